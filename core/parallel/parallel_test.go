package parallel

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelize_CoversEveryItemOnce(t *testing.T) {
	for _, workers := range []int{-1, 1, 3, 64} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			const items = 101
			var hits [items]int32
			Parallelize(items, workers, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				assert.Equal(t, int32(1), h, "item %d", i)
			}
		})
	}
}

func TestParallelize_ZeroItems(t *testing.T) {
	called := false
	Parallelize(0, 4, func(start, end int) { called = true })
	assert.False(t, called)
}

func TestParallelizeWithThreshold_Sequential(t *testing.T) {
	var calls int32
	ParallelizeWithThreshold(10, 100, 4, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, int32(1), calls)
}

func TestEach_ReturnsLowestIndexError(t *testing.T) {
	err := Each(20, 4, func(i int) error {
		if i == 7 || i == 15 {
			return fmt.Errorf("tree %d failed", i)
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, "tree 7 failed", err.Error())

	assert.NoError(t, Each(5, 2, func(int) error { return nil }))
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, Workers(3))
	assert.Greater(t, Workers(0), 0)
}
