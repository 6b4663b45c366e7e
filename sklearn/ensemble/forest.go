// Package ensemble はアンサンブル回帰モデルを提供します。
//
// ランダムフォレスト、勾配ブースティング、XGBoost 方式の正則化ブースティング、
// CatBoost 方式の対称木ブースティング、AdaBoost.R2 を含みます。
// すべてのモデルは model.Regressor を満たし、学習結果は公開フィールドとして保持されるため gob で保存できます。
package ensemble

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/core/parallel"
	"github.com/YuminosukeSato/regselect/metrics"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
	"github.com/YuminosukeSato/regselect/sklearn/tree"
)

// 予測を並列化する行数の閾値
const predictParallelThreshold = 1000

// RandomForestRegressor はブートストラップ標本で学習した回帰木の平均を予測とするモデル
type RandomForestRegressor struct {
	model.BaseEstimator

	// Hyperparameters (matching scikit-learn)
	NEstimators     int    // Number of trees
	Criterion       string // Split criterion of each tree
	MaxDepth        int    // Maximum depth of each tree (0 = unlimited)
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int  // Features considered per split (0 = all)
	Bootstrap       bool // Whether bootstrap samples are used
	RandomState     int
	NJobs           int // Trees fitted concurrently (<= 0 = all cores)

	// Learned state
	Estimators         []*tree.DecisionTreeRegressor
	NFeatures          int
	FeatureImportances []float64
}

// NewRandomForestRegressor はscikit-learnと同じ既定値でランダムフォレストを作成する
func NewRandomForestRegressor() *RandomForestRegressor {
	return &RandomForestRegressor{
		NEstimators:     100,
		Criterion:       tree.SquaredError,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
	}
}

// WithNEstimators sets the number of trees
func (rf *RandomForestRegressor) WithNEstimators(n int) *RandomForestRegressor {
	rf.NEstimators = n
	return rf
}

// WithMaxDepth sets the maximum depth of each tree
func (rf *RandomForestRegressor) WithMaxDepth(d int) *RandomForestRegressor {
	rf.MaxDepth = d
	return rf
}

// WithMaxFeatures sets the number of features considered per split
func (rf *RandomForestRegressor) WithMaxFeatures(n int) *RandomForestRegressor {
	rf.MaxFeatures = n
	return rf
}

// WithRandomState sets the random seed
func (rf *RandomForestRegressor) WithRandomState(seed int) *RandomForestRegressor {
	rf.RandomState = seed
	return rf
}

// WithNJobs sets the number of trees fitted concurrently
func (rf *RandomForestRegressor) WithNJobs(n int) *RandomForestRegressor {
	rf.NJobs = n
	return rf
}

// Fit はブートストラップ標本ごとに回帰木を並列に学習させる
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	rows, cols, err := model.ValidateFitInput("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if rf.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.NEstimators)
	}

	Xd := model.DenseOf(X)
	target := model.ColumnOf(y, 0)
	estimators := make([]*tree.DecisionTreeRegressor, rf.NEstimators)

	err = parallel.Each(rf.NEstimators, rf.NJobs, func(i int) error {
		dt := tree.NewDecisionTreeRegressor(
			tree.WithCriterion(rf.Criterion),
			tree.WithMaxDepth(rf.MaxDepth),
			tree.WithMinSamplesSplit(rf.MinSamplesSplit),
			tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
			tree.WithMaxFeatures(rf.MaxFeatures),
			tree.WithRandomState(rf.RandomState+i),
		)

		if !rf.Bootstrap {
			if err := dt.Fit(Xd, y); err != nil {
				return err
			}
			estimators[i] = dt
			return nil
		}

		// 木ごとに独立した乱数列でブートストラップ標本を引く
		rng := rand.New(rand.NewPCG(uint64(rf.RandomState), uint64(i)))
		idx := make([]int, rows)
		for k := range idx {
			idx[k] = rng.IntN(rows)
		}
		if err := dt.Fit(model.SelectRows(Xd, idx), model.ColumnVector(model.SelectValues(target, idx))); err != nil {
			return err
		}
		estimators[i] = dt
		return nil
	})
	if err != nil {
		return err
	}

	rf.Estimators = estimators
	rf.NFeatures = cols
	rf.FeatureImportances = make([]float64, cols)
	for _, dt := range estimators {
		for j, v := range dt.FeatureImportances {
			rf.FeatureImportances[j] += v / float64(len(estimators))
		}
	}
	rf.SetFitted()

	log.GetLoggerWithName("ensemble").Debug("Random forest fitted",
		log.ModelNameKey, "RandomForestRegressor",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"n_estimators", rf.NEstimators,
	)
	return nil
}

// Predict は全ての木の予測の平均を返す
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.CheckPredictInput("RandomForestRegressor", X, rf.NFeatures); err != nil {
		return nil, err
	}
	Xd := model.DenseOf(X)
	r, _ := Xd.Dims()
	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, predictParallelThreshold, rf.NJobs, func(start, end int) {
		for i := start; i < end; i++ {
			row := Xd.RawRowView(i)
			var sum float64
			for _, dt := range rf.Estimators {
				sum += dt.PredictRow(row)
			}
			out[i] = sum / float64(len(rf.Estimators))
		}
	})
	return model.ColumnVector(out), nil
}

// Score returns the coefficient of determination R^2 of the prediction
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	return metrics.Score(rf, X, y)
}

// GetParams returns the hyperparameters keyed by their scikit-learn names
func (rf *RandomForestRegressor) GetParams() model.Params {
	return model.Params{
		"n_estimators":      rf.NEstimators,
		"criterion":         rf.Criterion,
		"max_depth":         rf.MaxDepth,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
		"max_features":      rf.MaxFeatures,
		"bootstrap":         rf.Bootstrap,
		"random_state":      rf.RandomState,
		"n_jobs":            rf.NJobs,
	}
}

// SetParams sets the hyperparameters of the forest
func (rf *RandomForestRegressor) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "n_estimators":
			rf.NEstimators, err = model.AsInt(k, v)
		case "criterion":
			rf.Criterion, err = model.AsString(k, v)
		case "max_depth":
			rf.MaxDepth, err = model.AsInt(k, v)
		case "min_samples_split":
			rf.MinSamplesSplit, err = model.AsInt(k, v)
		case "min_samples_leaf":
			rf.MinSamplesLeaf, err = model.AsInt(k, v)
		case "max_features":
			rf.MaxFeatures, err = model.AsInt(k, v)
		case "bootstrap":
			rf.Bootstrap, err = model.AsBool(k, v)
		case "random_state":
			rf.RandomState, err = model.AsInt(k, v)
		case "n_jobs":
			rf.NJobs, err = model.AsInt(k, v)
		default:
			err = model.UnknownParam("RandomForestRegressor", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted forest with the same hyperparameters
func (rf *RandomForestRegressor) Clone() model.Regressor {
	c := NewRandomForestRegressor()
	_ = c.SetParams(rf.GetParams())
	return c
}
