package neighbors

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// neighbor は kd 木に格納する学習サンプル。idx は学習データの行番号
type neighbor struct {
	x   []float64
	idx int
}

// Compare は次元 d における p と c の差を返す
func (p neighbor) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(neighbor)
	return p.x[d] - q.x[d]
}

// Dims は特徴量の数を返す
func (p neighbor) Dims() int { return len(p.x) }

// Distance はユークリッド距離の二乗を返す
func (p neighbor) Distance(c kdtree.Comparable) float64 {
	q := c.(neighbor)
	var sum float64
	for i, v := range p.x {
		d := v - q.x[i]
		sum += d * d
	}
	return sum
}

// neighborSet は kdtree.Interface を満たす学習サンプルの集合
type neighborSet []neighbor

func (p neighborSet) Index(i int) kdtree.Comparable         { return p[i] }
func (p neighborSet) Len() int                              { return len(p) }
func (p neighborSet) Pivot(d kdtree.Dim) int                { return plane{neighborSet: p, Dim: d}.Pivot() }
func (p neighborSet) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane は次元 Dim に沿って並べ替えるための kdtree.SortSlicer
type plane struct {
	kdtree.Dim
	neighborSet
}

func (p plane) Less(i, j int) bool {
	return p.neighborSet[i].x[p.Dim] < p.neighborSet[j].x[p.Dim]
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.neighborSet = p.neighborSet[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.neighborSet[i], p.neighborSet[j] = p.neighborSet[j], p.neighborSet[i]
}
