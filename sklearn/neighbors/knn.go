// Package neighbors は k 近傍法による回帰を提供します。
package neighbors

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/core/parallel"
	"github.com/YuminosukeSato/regselect/metrics"
	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// 近傍の重み付け
const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

// 近傍探索アルゴリズム
const (
	AlgorithmAuto   = "auto"
	AlgorithmKDTree = "kd_tree"
	AlgorithmBrute  = "brute"
)

// KNeighborsRegressor は k 個の最近傍の目的変数の（重み付き）平均で予測する
//
// p=2 のときは kd 木で探索し、それ以外の Minkowski 距離では全探索する。
type KNeighborsRegressor struct {
	model.BaseEstimator

	// Hyperparameters (matching scikit-learn)
	NNeighbors int
	Weights    string
	P          float64
	Algorithm  string
	NJobs      int

	// 学習データ（予測時に参照する）
	XTrain    [][]float64
	YTrain    []float64
	NFeatures int

	mu    sync.Mutex
	index *kdtree.Tree
}

// Option は KNeighborsRegressor を設定する関数
type Option func(*KNeighborsRegressor)

// WithNNeighbors は近傍の数を設定する
func WithNNeighbors(k int) Option {
	return func(kn *KNeighborsRegressor) { kn.NNeighbors = k }
}

// WithWeights は近傍の重み付け（"uniform" または "distance"）を設定する
func WithWeights(w string) Option {
	return func(kn *KNeighborsRegressor) { kn.Weights = w }
}

// WithP は Minkowski 距離の次数を設定する
func WithP(p float64) Option {
	return func(kn *KNeighborsRegressor) { kn.P = p }
}

// WithAlgorithm は探索アルゴリズムを設定する
func WithAlgorithm(a string) Option {
	return func(kn *KNeighborsRegressor) { kn.Algorithm = a }
}

// NewKNeighborsRegressor はscikit-learnと同じ既定値でモデルを作成する
func NewKNeighborsRegressor(opts ...Option) *KNeighborsRegressor {
	kn := &KNeighborsRegressor{
		NNeighbors: 5,
		Weights:    WeightsUniform,
		P:          2,
		Algorithm:  AlgorithmAuto,
	}
	for _, opt := range opts {
		opt(kn)
	}
	return kn
}

func (kn *KNeighborsRegressor) validate(rows int) error {
	switch {
	case kn.NNeighbors < 1:
		return errors.NewValidationError("n_neighbors", "must be >= 1", kn.NNeighbors)
	case kn.NNeighbors > rows:
		return errors.NewValueError("KNeighborsRegressor.Fit",
			"n_neighbors must not exceed the number of training samples")
	case kn.Weights != WeightsUniform && kn.Weights != WeightsDistance:
		return errors.NewValidationError("weights", "must be uniform or distance", kn.Weights)
	case kn.P < 1:
		return errors.NewValidationError("p", "must be >= 1", kn.P)
	case kn.Algorithm != AlgorithmAuto && kn.Algorithm != AlgorithmKDTree && kn.Algorithm != AlgorithmBrute:
		return errors.NewValidationError("algorithm", "must be auto, kd_tree or brute", kn.Algorithm)
	case kn.Algorithm == AlgorithmKDTree && kn.P != 2:
		return errors.NewValidationError("algorithm", "kd_tree requires p=2", kn.P)
	}
	return nil
}

// Fit は学習データを保持する
func (kn *KNeighborsRegressor) Fit(X, y mat.Matrix) error {
	rows, cols, err := model.ValidateFitInput("KNeighborsRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := kn.validate(rows); err != nil {
		return err
	}

	kn.XTrain = make([][]float64, rows)
	for i := range kn.XTrain {
		kn.XTrain[i] = mat.Row(nil, i, X)
	}
	kn.YTrain = model.ColumnOf(y, 0)
	kn.NFeatures = cols

	kn.mu.Lock()
	kn.index = nil
	kn.mu.Unlock()

	kn.SetFitted()
	return nil
}

func (kn *KNeighborsRegressor) useKDTree() bool {
	return kn.Algorithm != AlgorithmBrute && kn.P == 2
}

// kdIndex は kd 木を返す。gob から読み込んだ直後は木がないのでここで構築する
func (kn *KNeighborsRegressor) kdIndex() *kdtree.Tree {
	kn.mu.Lock()
	defer kn.mu.Unlock()
	if kn.index == nil {
		set := make(neighborSet, len(kn.XTrain))
		for i, x := range kn.XTrain {
			set[i] = neighbor{x: x, idx: i}
		}
		kn.index = kdtree.New(set, false)
	}
	return kn.index
}

// found は近傍1件（学習データの行番号と距離）
type found struct {
	idx  int
	dist float64
}

func (kn *KNeighborsRegressor) queryKDTree(index *kdtree.Tree, row []float64) []found {
	keeper := kdtree.NewNKeeper(kn.NNeighbors)
	index.NearestSet(keeper, neighbor{x: row})

	out := make([]found, 0, kn.NNeighbors)
	for _, c := range keeper.Heap {
		// 件数が足りないときは番兵が残る
		if c.Comparable == nil {
			continue
		}
		out = append(out, found{idx: c.Comparable.(neighbor).idx, dist: math.Sqrt(c.Dist)})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].dist != out[b].dist {
			return out[a].dist < out[b].dist
		}
		return out[a].idx < out[b].idx
	})
	return out
}

func (kn *KNeighborsRegressor) queryBrute(row []float64) []found {
	all := make([]found, len(kn.XTrain))
	for i, x := range kn.XTrain {
		all[i] = found{idx: i, dist: floats.Distance(row, x, kn.P)}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].dist < all[b].dist })
	return all[:kn.NNeighbors]
}

// estimate は近傍の目的変数から予測値を計算する
func (kn *KNeighborsRegressor) estimate(nn []found) float64 {
	if kn.Weights == WeightsDistance {
		// 距離 0 の近傍があればそれらだけの平均
		var exact []float64
		for _, f := range nn {
			if f.dist == 0 {
				exact = append(exact, kn.YTrain[f.idx])
			}
		}
		if len(exact) > 0 {
			return floats.Sum(exact) / float64(len(exact))
		}
		var num, den float64
		for _, f := range nn {
			w := 1 / f.dist
			num += w * kn.YTrain[f.idx]
			den += w
		}
		return num / den
	}

	var sum float64
	for _, f := range nn {
		sum += kn.YTrain[f.idx]
	}
	return sum / float64(len(nn))
}

// Predict は各サンプルの k 近傍から予測する
func (kn *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := kn.CheckPredictInput("KNeighborsRegressor", X, kn.NFeatures); err != nil {
		return nil, err
	}
	Xd := model.DenseOf(X)
	r, _ := Xd.Dims()

	var index *kdtree.Tree
	if kn.useKDTree() {
		index = kn.kdIndex()
	}

	out := make([]float64, r)
	parallel.Parallelize(r, kn.NJobs, func(start, end int) {
		for i := start; i < end; i++ {
			row := Xd.RawRowView(i)
			var nn []found
			if index != nil {
				nn = kn.queryKDTree(index, row)
			} else {
				nn = kn.queryBrute(row)
			}
			out[i] = kn.estimate(nn)
		}
	})
	return model.ColumnVector(out), nil
}

// Score returns the coefficient of determination R^2 of the prediction
func (kn *KNeighborsRegressor) Score(X, y mat.Matrix) (float64, error) {
	return metrics.Score(kn, X, y)
}

// GetParams returns the hyperparameters keyed by their scikit-learn names
func (kn *KNeighborsRegressor) GetParams() model.Params {
	return model.Params{
		"n_neighbors": kn.NNeighbors,
		"weights":     kn.Weights,
		"p":           kn.P,
		"algorithm":   kn.Algorithm,
		"n_jobs":      kn.NJobs,
	}
}

// SetParams sets the hyperparameters
func (kn *KNeighborsRegressor) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "n_neighbors":
			kn.NNeighbors, err = model.AsInt(k, v)
		case "weights":
			kn.Weights, err = model.AsString(k, v)
		case "p":
			kn.P, err = model.AsFloat(k, v)
		case "algorithm":
			kn.Algorithm, err = model.AsString(k, v)
		case "n_jobs":
			kn.NJobs, err = model.AsInt(k, v)
		default:
			err = model.UnknownParam("KNeighborsRegressor", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted regressor with the same hyperparameters
func (kn *KNeighborsRegressor) Clone() model.Regressor {
	c := NewKNeighborsRegressor()
	_ = c.SetParams(kn.GetParams())
	return c
}
