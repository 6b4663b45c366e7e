package ensemble

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/regselect/sklearn/tree"
)

// gradientTreeParams は二次近似のブースティング木の構築パラメータ
type gradientTreeParams struct {
	MaxDepth       int     // 0 = unlimited
	Lambda         float64 // L2 regularization on leaf weights
	Gamma          float64 // Minimum loss reduction to make a split
	MinChildWeight float64 // Minimum sum of hessians in a child
}

// gradientTreeBuilder は勾配とヘッシアンから回帰木を構築する
type gradientTreeBuilder struct {
	params   gradientTreeParams
	columns  [][]float64
	features []int
	grad     []float64
	hess     []float64
	nodes    []tree.Node
}

type gradientSplit struct {
	feature   int
	threshold float64
	gain      float64
}

// build は idx のサンプルから部分木を作り、そのノード番号を返す
func (b *gradientTreeBuilder) build(idx []int, depth int) int {
	var g, h float64
	for _, i := range idx {
		g += b.grad[i]
		h += b.hess[i]
	}

	id := len(b.nodes)
	b.nodes = append(b.nodes, tree.Node{
		Feature: -1,
		Value:   b.leafWeight(g, h),
		Samples: len(idx),
	})

	if (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) || len(idx) < 2 {
		return id
	}

	best, ok := b.findSplit(idx, g, h)
	if !ok {
		return id
	}

	var left, right []int
	col := b.columns[best.feature]
	for _, i := range idx {
		if col[i] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id].Feature = best.feature
	b.nodes[id].Threshold = best.threshold
	b.nodes[id].Impurity = best.gain
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

// leafWeight は L2 正則化付きの最適な葉の重み -G/(H+λ)
func (b *gradientTreeBuilder) leafWeight(g, h float64) float64 {
	return -g / (h + b.params.Lambda)
}

// splitGain は分割による目的関数の減少量から gamma を引いたもの
func (b *gradientTreeBuilder) splitGain(gl, hl, gr, hr float64) float64 {
	lambda := b.params.Lambda
	score := gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - (gl+gr)*(gl+gr)/(hl+hr+lambda)
	return 0.5*score - b.params.Gamma
}

func (b *gradientTreeBuilder) findSplit(idx []int, g, h float64) (gradientSplit, bool) {
	best := gradientSplit{feature: -1, gain: math.Inf(-1)}
	order := make([]int, len(idx))

	for _, f := range b.features {
		col := b.columns[f]
		copy(order, idx)
		sort.SliceStable(order, func(a, c int) bool { return col[order[a]] < col[order[c]] })

		var gl, hl float64
		for k := 0; k < len(order)-1; k++ {
			gl += b.grad[order[k]]
			hl += b.hess[order[k]]
			lo, hi := col[order[k]], col[order[k+1]]
			if lo == hi {
				continue
			}
			gr, hr := g-gl, h-hl
			if hl < b.params.MinChildWeight || hr < b.params.MinChildWeight {
				continue
			}
			gain := b.splitGain(gl, hl, gr, hr)
			if gain > best.gain {
				best.gain = gain
				best.feature = f
				best.threshold = lo + (hi-lo)/2
				if best.threshold >= hi {
					best.threshold = lo
				}
			}
		}
	}

	// 目的関数を改善しない分割は行わない
	if best.feature < 0 || best.gain <= 0 {
		return gradientSplit{}, false
	}
	return best, true
}
