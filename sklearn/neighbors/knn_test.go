package neighbors

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/pkg/errors"
)

func lineData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(10, 1, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, float64(10*i))
	}
	return X, y
}

func TestKNeighborsRegressor_Uniform(t *testing.T) {
	X, y := lineData()
	tests := []struct {
		name      string
		algorithm string
	}{
		{"kd_tree", AlgorithmKDTree},
		{"brute", AlgorithmBrute},
		{"auto", AlgorithmAuto},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kn := NewKNeighborsRegressor(WithNNeighbors(3), WithAlgorithm(tt.algorithm))
			require.NoError(t, kn.Fit(X, y))

			// 4.1 の3近傍は 3, 4, 5
			pred, err := kn.Predict(mat.NewDense(2, 1, []float64{4.1, 0}))
			require.NoError(t, err)
			assert.InDelta(t, 40.0, pred.At(0, 0), 1e-12)
			// 0 の3近傍は 0, 1, 2
			assert.InDelta(t, 10.0, pred.At(1, 0), 1e-12)
		})
	}
}

func TestKNeighborsRegressor_DistanceWeights(t *testing.T) {
	X, y := lineData()
	kn := NewKNeighborsRegressor(WithNNeighbors(2), WithWeights(WeightsDistance))
	require.NoError(t, kn.Fit(X, y))

	// 3.25 の近傍は 3 (距離 0.25) と 4 (距離 0.75)
	pred, err := kn.Predict(mat.NewDense(2, 1, []float64{3.25, 7}))
	require.NoError(t, err)
	want := (4*30.0 + (4.0/3)*40) / (4 + 4.0/3)
	assert.InDelta(t, want, pred.At(0, 0), 1e-9)

	// 学習点と一致する場合はその値
	assert.Equal(t, 70.0, pred.At(1, 0))

	score, err := kn.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestKNeighborsRegressor_KDTreeMatchesBrute(t *testing.T) {
	X := mat.NewDense(200, 3, nil)
	y := mat.NewDense(200, 1, nil)
	for i := 0; i < 200; i++ {
		for j := 0; j < 3; j++ {
			X.Set(i, j, math.Sin(float64(i*(j+2))*0.37))
		}
		y.Set(i, 0, float64(i))
	}
	Q := mat.NewDense(20, 3, nil)
	for i := 0; i < 20; i++ {
		for j := 0; j < 3; j++ {
			Q.Set(i, j, math.Cos(float64(i*(j+5))*0.11))
		}
	}

	kd := NewKNeighborsRegressor(WithAlgorithm(AlgorithmKDTree), WithWeights(WeightsDistance))
	bf := NewKNeighborsRegressor(WithAlgorithm(AlgorithmBrute), WithWeights(WeightsDistance))
	require.NoError(t, kd.Fit(X, y))
	require.NoError(t, bf.Fit(X, y))

	a, err := kd.Predict(Q)
	require.NoError(t, err)
	b, err := bf.Predict(Q)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(a, b, 1e-9))
}

func TestKNeighborsRegressor_Manhattan(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{
		3, 0,
		2, 2,
	})
	y := mat.NewDense(2, 1, []float64{1, 2})
	q := mat.NewDense(1, 2, []float64{0, 0})

	// 原点からの L1 距離は 3 と 4、L2 距離は 3 と約 2.83
	manhattan := NewKNeighborsRegressor(WithNNeighbors(1), WithP(1))
	require.NoError(t, manhattan.Fit(X, y))
	pred, err := manhattan.Predict(q)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(0, 0))

	euclid := NewKNeighborsRegressor(WithNNeighbors(1))
	require.NoError(t, euclid.Fit(X, y))
	pred, err = euclid.Predict(q)
	require.NoError(t, err)
	assert.Equal(t, 2.0, pred.At(0, 0))
}

func TestKNeighborsRegressor_Validation(t *testing.T) {
	X, y := lineData()
	tests := []struct {
		name string
		kn   *KNeighborsRegressor
	}{
		{"zero neighbors", NewKNeighborsRegressor(WithNNeighbors(0))},
		{"too many neighbors", NewKNeighborsRegressor(WithNNeighbors(11))},
		{"weights", NewKNeighborsRegressor(WithWeights("gaussian"))},
		{"p", NewKNeighborsRegressor(WithP(0.5))},
		{"kd_tree with p=1", NewKNeighborsRegressor(WithAlgorithm(AlgorithmKDTree), WithP(1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.kn.Fit(X, y))
		})
	}

	_, err := NewKNeighborsRegressor().Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestKNeighborsRegressor_GobRebuildsIndex(t *testing.T) {
	X, y := lineData()
	kn := NewKNeighborsRegressor(WithNNeighbors(2))
	require.NoError(t, kn.Fit(X, y))
	want, err := kn.Predict(X)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(kn, &buf))
	var loaded KNeighborsRegressor
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))

	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestKNeighborsRegressor_Params(t *testing.T) {
	kn := NewKNeighborsRegressor()
	require.NoError(t, kn.SetParams(model.Params{"n_neighbors": 9, "weights": "distance", "p": 1}))
	assert.Equal(t, 9, kn.NNeighbors)
	assert.Equal(t, WeightsDistance, kn.Weights)
	assert.Equal(t, 1.0, kn.P)
	assert.Equal(t, kn.GetParams(), kn.Clone().GetParams())
	assert.Error(t, kn.SetParams(model.Params{"leaf_size": 30}))
}
