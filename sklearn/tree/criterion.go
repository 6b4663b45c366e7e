package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// 分割評価基準
const (
	SquaredError  = "squared_error"
	FriedmanMSE   = "friedman_mse"
	AbsoluteError = "absolute_error"
	Poisson       = "poisson"
)

// Criteria は利用可能な評価基準の一覧
var Criteria = []string{SquaredError, FriedmanMSE, AbsoluteError, Poisson}

func validCriterion(c string) bool {
	for _, v := range Criteria {
		if v == c {
			return true
		}
	}
	return false
}

// splitGains は特徴量順に並んだ y について、位置 i（左 = y[:i], 右 = y[i:]）で
// 分割したときの改善度の代理値を返す。値が大きいほど良い分割で、-Inf は無効な分割
func splitGains(criterion string, y []float64) []float64 {
	n := len(y)
	gains := make([]float64, n)
	gains[0] = math.Inf(-1)

	switch criterion {
	case AbsoluteError:
		left := make([]float64, 0, n)
		right := append([]float64(nil), y...)
		sort.Float64s(right)
		for i := 1; i < n; i++ {
			left = insertSorted(left, y[i-1])
			right = removeSorted(right, y[i-1])
			gains[i] = -(absDeviation(left) + absDeviation(right))
		}
		return gains
	}

	total := floats.Sum(y)
	var sumL float64
	for i := 1; i < n; i++ {
		sumL += y[i-1]
		sumR := total - sumL
		nL, nR := float64(i), float64(n-i)

		switch criterion {
		case FriedmanMSE:
			diff := sumL/nL - sumR/nR
			gains[i] = nL * nR * diff * diff / float64(n)
		case Poisson:
			if sumL <= 0 || sumR <= 0 {
				gains[i] = math.Inf(-1)
				continue
			}
			gains[i] = sumL*math.Log(sumL/nL) + sumR*math.Log(sumR/nR)
		default:
			gains[i] = sumL*sumL/nL + sumR*sumR/nR
		}
	}
	return gains
}

// impurity はノードの不純度を返す
func impurity(criterion string, y []float64) float64 {
	switch criterion {
	case AbsoluteError:
		s := append([]float64(nil), y...)
		sort.Float64s(s)
		return absDeviation(s) / float64(len(y))
	case Poisson:
		return poissonDeviance(y)
	default:
		_, v := stat.PopMeanVariance(y, nil)
		return v
	}
}

// leafValue は葉ノードの予測値（absolute_error では中央値、それ以外は平均）を返す
func leafValue(criterion string, y []float64) float64 {
	if criterion == AbsoluteError {
		s := append([]float64(nil), y...)
		sort.Float64s(s)
		return median(s)
	}
	return stat.Mean(y, nil)
}

// poissonDeviance は平均を予測値とした半ポアソン逸脱度の平均
func poissonDeviance(y []float64) float64 {
	mean := stat.Mean(y, nil)
	if mean <= 0 {
		return 0
	}
	var d float64
	for _, v := range y {
		if v > 0 {
			d += v * math.Log(v/mean)
		}
		d -= v - mean
	}
	return d / float64(len(y))
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// absDeviation はソート済み配列の中央値からの絶対偏差の合計
func absDeviation(sorted []float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	m := median(sorted)
	var s float64
	for _, v := range sorted {
		s += math.Abs(v - m)
	}
	return s
}

func insertSorted(s []float64, v float64) []float64 {
	i := sort.SearchFloat64s(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeSorted(s []float64, v float64) []float64 {
	i := sort.SearchFloat64s(s, v)
	return append(s[:i], s[i+1:]...)
}
