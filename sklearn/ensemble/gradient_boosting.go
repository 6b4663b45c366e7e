package ensemble

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/core/parallel"
	"github.com/YuminosukeSato/regselect/metrics"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
	"github.com/YuminosukeSato/regselect/sklearn/tree"
)

// GradientBoostingRegressor は二乗誤差の勾配ブースティング
//
// 各ステージで残差に回帰木を当てはめ、学習率を掛けて予測に加算する。
// Subsample < 1 のときは確率的勾配ブースティングになる。
type GradientBoostingRegressor struct {
	model.BaseEstimator

	// Hyperparameters (matching scikit-learn)
	NEstimators     int     // Number of boosting stages
	LearningRate    float64 // Shrinks the contribution of each tree
	MaxDepth        int     // Maximum depth of each tree
	Subsample       float64 // Fraction of samples used per stage
	Criterion       string  // Split criterion of each tree
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomState     int

	// Learned state
	Init       float64 // Initial prediction (mean of y)
	Estimators []*tree.DecisionTreeRegressor
	TrainScore []float64 // Training MSE after each stage
	NFeatures  int
}

// NewGradientBoostingRegressor はscikit-learnと同じ既定値で勾配ブースティングを作成する
func NewGradientBoostingRegressor() *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		NEstimators:     100,
		LearningRate:    0.1,
		MaxDepth:        3,
		Subsample:       1.0,
		Criterion:       tree.FriedmanMSE,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

// WithNEstimators sets the number of boosting stages
func (gb *GradientBoostingRegressor) WithNEstimators(n int) *GradientBoostingRegressor {
	gb.NEstimators = n
	return gb
}

// WithLearningRate sets the learning rate
func (gb *GradientBoostingRegressor) WithLearningRate(lr float64) *GradientBoostingRegressor {
	gb.LearningRate = lr
	return gb
}

// WithSubsample sets the fraction of samples used per stage
func (gb *GradientBoostingRegressor) WithSubsample(s float64) *GradientBoostingRegressor {
	gb.Subsample = s
	return gb
}

// WithMaxDepth sets the maximum depth of each tree
func (gb *GradientBoostingRegressor) WithMaxDepth(d int) *GradientBoostingRegressor {
	gb.MaxDepth = d
	return gb
}

// WithRandomState sets the random seed
func (gb *GradientBoostingRegressor) WithRandomState(seed int) *GradientBoostingRegressor {
	gb.RandomState = seed
	return gb
}

func (gb *GradientBoostingRegressor) validate() error {
	if gb.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", gb.NEstimators)
	}
	if gb.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be > 0", gb.LearningRate)
	}
	if gb.Subsample <= 0 || gb.Subsample > 1 {
		return errors.NewValidationError("subsample", "must be in (0, 1]", gb.Subsample)
	}
	return nil
}

// Fit はブースティングのステージを順に学習させる
func (gb *GradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")

	rows, cols, err := model.ValidateFitInput("GradientBoostingRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := gb.validate(); err != nil {
		return err
	}

	Xd := model.DenseOf(X)
	target := model.ColumnOf(y, 0)

	gb.Init = stat.Mean(target, nil)
	pred := make([]float64, rows)
	for i := range pred {
		pred[i] = gb.Init
	}

	nSub := rows
	if gb.Subsample < 1 {
		nSub = max(1, int(gb.Subsample*float64(rows)))
	}
	seed := uint64(gb.RandomState)
	rng := rand.New(rand.NewPCG(seed, seed))

	gb.Estimators = make([]*tree.DecisionTreeRegressor, 0, gb.NEstimators)
	gb.TrainScore = make([]float64, 0, gb.NEstimators)
	residual := make([]float64, rows)

	for m := 0; m < gb.NEstimators; m++ {
		// 二乗誤差の負の勾配は残差そのもの
		for i := range residual {
			residual[i] = target[i] - pred[i]
		}

		dt := tree.NewDecisionTreeRegressor(
			tree.WithCriterion(gb.Criterion),
			tree.WithMaxDepth(gb.MaxDepth),
			tree.WithMinSamplesSplit(gb.MinSamplesSplit),
			tree.WithMinSamplesLeaf(gb.MinSamplesLeaf),
			tree.WithMaxFeatures(gb.MaxFeatures),
			tree.WithRandomState(gb.RandomState+m),
		)

		if nSub < rows {
			idx := rng.Perm(rows)[:nSub]
			sort.Ints(idx)
			err = dt.Fit(model.SelectRows(Xd, idx), model.ColumnVector(model.SelectValues(residual, idx)))
		} else {
			err = dt.Fit(Xd, model.ColumnVector(append([]float64(nil), residual...)))
		}
		if err != nil {
			return errors.Wrapf(err, "stage %d", m)
		}

		var mse float64
		for i := 0; i < rows; i++ {
			pred[i] += gb.LearningRate * dt.PredictRow(Xd.RawRowView(i))
			d := target[i] - pred[i]
			mse += d * d
		}
		mse /= float64(rows)
		if err := errors.CheckScalar("GradientBoostingRegressor.Fit", mse, m); err != nil {
			return err
		}
		gb.Estimators = append(gb.Estimators, dt)
		gb.TrainScore = append(gb.TrainScore, mse)
	}

	gb.NFeatures = cols
	gb.SetFitted()

	log.GetLoggerWithName("ensemble").Debug("Gradient boosting fitted",
		log.ModelNameKey, "GradientBoostingRegressor",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationKey, len(gb.Estimators),
	)
	return nil
}

// Predict は初期値に各ステージの寄与を足し合わせた予測を返す
func (gb *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := gb.CheckPredictInput("GradientBoostingRegressor", X, gb.NFeatures); err != nil {
		return nil, err
	}
	Xd := model.DenseOf(X)
	r, _ := Xd.Dims()
	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, predictParallelThreshold, 0, func(start, end int) {
		for i := start; i < end; i++ {
			row := Xd.RawRowView(i)
			v := gb.Init
			for _, dt := range gb.Estimators {
				v += gb.LearningRate * dt.PredictRow(row)
			}
			out[i] = v
		}
	})
	return model.ColumnVector(out), nil
}

// Score returns the coefficient of determination R^2 of the prediction
func (gb *GradientBoostingRegressor) Score(X, y mat.Matrix) (float64, error) {
	return metrics.Score(gb, X, y)
}

// GetParams returns the hyperparameters keyed by their scikit-learn names
func (gb *GradientBoostingRegressor) GetParams() model.Params {
	return model.Params{
		"n_estimators":      gb.NEstimators,
		"learning_rate":     gb.LearningRate,
		"max_depth":         gb.MaxDepth,
		"subsample":         gb.Subsample,
		"criterion":         gb.Criterion,
		"min_samples_split": gb.MinSamplesSplit,
		"min_samples_leaf":  gb.MinSamplesLeaf,
		"max_features":      gb.MaxFeatures,
		"random_state":      gb.RandomState,
	}
}

// SetParams sets the hyperparameters of the booster
func (gb *GradientBoostingRegressor) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "n_estimators":
			gb.NEstimators, err = model.AsInt(k, v)
		case "learning_rate":
			gb.LearningRate, err = model.AsFloat(k, v)
		case "max_depth":
			gb.MaxDepth, err = model.AsInt(k, v)
		case "subsample":
			gb.Subsample, err = model.AsFloat(k, v)
		case "criterion":
			gb.Criterion, err = model.AsString(k, v)
		case "min_samples_split":
			gb.MinSamplesSplit, err = model.AsInt(k, v)
		case "min_samples_leaf":
			gb.MinSamplesLeaf, err = model.AsInt(k, v)
		case "max_features":
			gb.MaxFeatures, err = model.AsInt(k, v)
		case "random_state":
			gb.RandomState, err = model.AsInt(k, v)
		default:
			err = model.UnknownParam("GradientBoostingRegressor", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted booster with the same hyperparameters
func (gb *GradientBoostingRegressor) Clone() model.Regressor {
	c := NewGradientBoostingRegressor()
	_ = c.SetParams(gb.GetParams())
	return c
}
