package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/core/parallel"
	"github.com/YuminosukeSato/regselect/metrics"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
	"github.com/YuminosukeSato/regselect/sklearn/tree"
)

// AdaBoost.R2 の損失関数
const (
	LossLinear      = "linear"
	LossSquare      = "square"
	LossExponential = "exponential"
)

// AdaBoostRegressor は AdaBoost.R2 (Drucker, 1997) による回帰
//
// 各ラウンドでサンプル重みに従う復元抽出で回帰木を学習し、誤差の小さいサンプルの重みを下げる。
// 予測は各木の予測の重み付き中央値。
type AdaBoostRegressor struct {
	model.BaseEstimator

	// Hyperparameters (matching scikit-learn)
	NEstimators  int
	LearningRate float64
	Loss         string
	MaxDepth     int // Depth of the base trees
	RandomState  int

	// Learned state
	Estimators       []*tree.DecisionTreeRegressor
	EstimatorWeights []float64
	EstimatorErrors  []float64
	NFeatures        int
}

// NewAdaBoostRegressor はscikit-learnと同じ既定値でモデルを作成する
// 弱学習器は max_depth=3 の回帰木
func NewAdaBoostRegressor() *AdaBoostRegressor {
	return &AdaBoostRegressor{
		NEstimators:  50,
		LearningRate: 1.0,
		Loss:         LossLinear,
		MaxDepth:     3,
	}
}

// WithNEstimators sets the maximum number of boosting rounds
func (ab *AdaBoostRegressor) WithNEstimators(n int) *AdaBoostRegressor {
	ab.NEstimators = n
	return ab
}

// WithLearningRate sets the learning rate
func (ab *AdaBoostRegressor) WithLearningRate(lr float64) *AdaBoostRegressor {
	ab.LearningRate = lr
	return ab
}

// WithLoss sets the loss used to update the sample weights
func (ab *AdaBoostRegressor) WithLoss(loss string) *AdaBoostRegressor {
	ab.Loss = loss
	return ab
}

// WithRandomState sets the random seed
func (ab *AdaBoostRegressor) WithRandomState(seed int) *AdaBoostRegressor {
	ab.RandomState = seed
	return ab
}

func (ab *AdaBoostRegressor) validate() error {
	switch {
	case ab.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be >= 1", ab.NEstimators)
	case ab.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", ab.LearningRate)
	case ab.Loss != LossLinear && ab.Loss != LossSquare && ab.Loss != LossExponential:
		return errors.NewValidationError("loss", "must be one of linear, square, exponential", ab.Loss)
	}
	return nil
}

// Fit はブースティングのラウンドを実行する。
// 推定誤差が 0 になるか 0.5 以上になった時点で打ち切る
func (ab *AdaBoostRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "AdaBoostRegressor.Fit")

	rows, cols, err := model.ValidateFitInput("AdaBoostRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := ab.validate(); err != nil {
		return err
	}

	Xd := model.DenseOf(X)
	target := model.ColumnOf(y, 0)
	seed := uint64(ab.RandomState)
	rng := rand.New(rand.NewPCG(seed, seed))

	weights := make([]float64, rows)
	for i := range weights {
		weights[i] = 1 / float64(rows)
	}

	ab.Estimators = ab.Estimators[:0]
	ab.EstimatorWeights = ab.EstimatorWeights[:0]
	ab.EstimatorErrors = ab.EstimatorErrors[:0]

	cdf := make([]float64, rows)
	errs := make([]float64, rows)
	for iboost := 0; iboost < ab.NEstimators; iboost++ {
		// サンプル重みに従う復元抽出
		floats.CumSum(cdf, weights)
		total := cdf[rows-1]
		idx := make([]int, rows)
		for k := range idx {
			i := sort.SearchFloat64s(cdf, rng.Float64()*total)
			idx[k] = min(i, rows-1)
		}

		dt := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(ab.MaxDepth),
			tree.WithRandomState(ab.RandomState+iboost),
		)
		if err := dt.Fit(model.SelectRows(Xd, idx), model.ColumnVector(model.SelectValues(target, idx))); err != nil {
			return errors.Wrapf(err, "boosting round %d", iboost)
		}

		for i := 0; i < rows; i++ {
			errs[i] = math.Abs(dt.PredictRow(Xd.RawRowView(i)) - target[i])
		}
		if errMax := floats.Max(errs); errMax != 0 {
			floats.Scale(1/errMax, errs)
		}
		switch ab.Loss {
		case LossSquare:
			floats.Mul(errs, errs)
		case LossExponential:
			for i, e := range errs {
				errs[i] = 1 - math.Exp(-e)
			}
		}
		estimatorError := floats.Dot(weights, errs)

		if estimatorError <= 0 {
			// 完全に当てはまったので以降のラウンドは不要
			ab.appendEstimator(dt, 1, 0)
			break
		}
		if estimatorError >= 0.5 {
			if len(ab.Estimators) == 0 {
				ab.appendEstimator(dt, 1, estimatorError)
			}
			errors.Warn(errors.NewConvergenceWarning("AdaBoostRegressor", iboost,
				"estimator error >= 0.5, boosting stopped early"))
			break
		}

		beta := estimatorError / (1 - estimatorError)
		ab.appendEstimator(dt, ab.LearningRate*math.Log(1/beta), estimatorError)

		if iboost == ab.NEstimators-1 {
			break
		}
		for i := range weights {
			weights[i] *= math.Pow(beta, (1-errs[i])*ab.LearningRate)
		}
		sum := floats.Sum(weights)
		if sum <= 0 {
			break
		}
		floats.Scale(1/sum, weights)
	}

	ab.NFeatures = cols
	ab.SetFitted()

	log.GetLoggerWithName("ensemble").Debug("AdaBoost fitted",
		log.ModelNameKey, "AdaBoostRegressor",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationKey, len(ab.Estimators),
	)
	return nil
}

func (ab *AdaBoostRegressor) appendEstimator(dt *tree.DecisionTreeRegressor, weight, estimatorError float64) {
	ab.Estimators = append(ab.Estimators, dt)
	ab.EstimatorWeights = append(ab.EstimatorWeights, weight)
	ab.EstimatorErrors = append(ab.EstimatorErrors, estimatorError)
}

// weightedMedian は各木の予測の重み付き中央値を返す
func (ab *AdaBoostRegressor) weightedMedian(row []float64) float64 {
	n := len(ab.Estimators)
	preds := make([]float64, n)
	order := make([]int, n)
	for k, dt := range ab.Estimators {
		preds[k] = dt.PredictRow(row)
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool { return preds[order[a]] < preds[order[b]] })

	total := floats.Sum(ab.EstimatorWeights)
	var cum float64
	for _, k := range order {
		cum += ab.EstimatorWeights[k]
		if cum >= 0.5*total {
			return preds[k]
		}
	}
	return preds[order[n-1]]
}

// Predict は重み付き中央値による予測を返す
func (ab *AdaBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := ab.CheckPredictInput("AdaBoostRegressor", X, ab.NFeatures); err != nil {
		return nil, err
	}
	Xd := model.DenseOf(X)
	r, _ := Xd.Dims()
	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, predictParallelThreshold, 0, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = ab.weightedMedian(Xd.RawRowView(i))
		}
	})
	return model.ColumnVector(out), nil
}

// Score returns the coefficient of determination R^2 of the prediction
func (ab *AdaBoostRegressor) Score(X, y mat.Matrix) (float64, error) {
	return metrics.Score(ab, X, y)
}

// GetParams returns the hyperparameters keyed by their scikit-learn names
func (ab *AdaBoostRegressor) GetParams() model.Params {
	return model.Params{
		"n_estimators":  ab.NEstimators,
		"learning_rate": ab.LearningRate,
		"loss":          ab.Loss,
		"max_depth":     ab.MaxDepth,
		"random_state":  ab.RandomState,
	}
}

// SetParams sets the hyperparameters of the booster
func (ab *AdaBoostRegressor) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "n_estimators":
			ab.NEstimators, err = model.AsInt(k, v)
		case "learning_rate":
			ab.LearningRate, err = model.AsFloat(k, v)
		case "loss":
			ab.Loss, err = model.AsString(k, v)
		case "max_depth":
			ab.MaxDepth, err = model.AsInt(k, v)
		case "random_state":
			ab.RandomState, err = model.AsInt(k, v)
		default:
			err = model.UnknownParam("AdaBoostRegressor", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted booster with the same hyperparameters
func (ab *AdaBoostRegressor) Clone() model.Regressor {
	c := NewAdaBoostRegressor()
	_ = c.SetParams(ab.GetParams())
	return c
}
