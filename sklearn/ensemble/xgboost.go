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

// BoostedTree は学習済みのブースティング木1本
type BoostedTree struct {
	Nodes []tree.Node
}

// XGBRegressor は XGBoost の reg:squarederror と同じ二次近似の正則化ブースティング
//
// 各木は勾配 g と ヘッシアン h の和から分割利得
// 0.5·(G_L²/(H_L+λ) + G_R²/(H_R+λ) − G²/(H+λ)) − γ を最大化するように成長する。
type XGBRegressor struct {
	model.BaseEstimator

	// Hyperparameters (matching the xgboost sklearn wrapper)
	NEstimators     int
	LearningRate    float64 // eta
	MaxDepth        int
	RegLambda       float64 // L2 regularization on leaf weights
	Gamma           float64 // Minimum loss reduction to split
	MinChildWeight  float64
	Subsample       float64
	ColsampleBytree float64
	RandomState     int

	// Learned state
	BaseScore float64
	Trees     []BoostedTree
	NFeatures int
}

// NewXGBRegressor はxgboostと同じ既定値でモデルを作成する
func NewXGBRegressor() *XGBRegressor {
	return &XGBRegressor{
		NEstimators:     100,
		LearningRate:    0.3,
		MaxDepth:        6,
		RegLambda:       1,
		MinChildWeight:  1,
		Subsample:       1,
		ColsampleBytree: 1,
	}
}

// WithNEstimators sets the number of boosting rounds
func (xgb *XGBRegressor) WithNEstimators(n int) *XGBRegressor {
	xgb.NEstimators = n
	return xgb
}

// WithLearningRate sets the learning rate (eta)
func (xgb *XGBRegressor) WithLearningRate(lr float64) *XGBRegressor {
	xgb.LearningRate = lr
	return xgb
}

// WithMaxDepth sets the maximum depth of each tree
func (xgb *XGBRegressor) WithMaxDepth(d int) *XGBRegressor {
	xgb.MaxDepth = d
	return xgb
}

// WithRegLambda sets the L2 regularization
func (xgb *XGBRegressor) WithRegLambda(lambda float64) *XGBRegressor {
	xgb.RegLambda = lambda
	return xgb
}

// WithGamma sets the minimum loss reduction required to split
func (xgb *XGBRegressor) WithGamma(gamma float64) *XGBRegressor {
	xgb.Gamma = gamma
	return xgb
}

func (xgb *XGBRegressor) validate() error {
	switch {
	case xgb.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be >= 1", xgb.NEstimators)
	case xgb.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", xgb.LearningRate)
	case xgb.MaxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", xgb.MaxDepth)
	case xgb.RegLambda < 0:
		return errors.NewValidationError("reg_lambda", "must be >= 0", xgb.RegLambda)
	case xgb.Gamma < 0:
		return errors.NewValidationError("gamma", "must be >= 0", xgb.Gamma)
	case xgb.Subsample <= 0 || xgb.Subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", xgb.Subsample)
	case xgb.ColsampleBytree <= 0 || xgb.ColsampleBytree > 1:
		return errors.NewValidationError("colsample_bytree", "must be in (0, 1]", xgb.ColsampleBytree)
	}
	return nil
}

// Fit はブースティングを行う
func (xgb *XGBRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "XGBRegressor.Fit")

	rows, cols, err := model.ValidateFitInput("XGBRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := xgb.validate(); err != nil {
		return err
	}

	target := model.ColumnOf(y, 0)
	columns := make([][]float64, cols)
	for j := range columns {
		columns[j] = model.ColumnOf(X, j)
	}

	xgb.BaseScore = stat.Mean(target, nil)
	pred := make([]float64, rows)
	for i := range pred {
		pred[i] = xgb.BaseScore
	}

	seed := uint64(xgb.RandomState)
	rng := rand.New(rand.NewPCG(seed, seed))
	nRows := max(1, int(xgb.Subsample*float64(rows)))
	nCols := max(1, int(xgb.ColsampleBytree*float64(cols)))

	grad := make([]float64, rows)
	hess := make([]float64, rows)
	for i := range hess {
		hess[i] = 1
	}

	xgb.Trees = make([]BoostedTree, 0, xgb.NEstimators)
	row := make([]float64, cols)
	for m := 0; m < xgb.NEstimators; m++ {
		// 二乗誤差: g = pred - y, h = 1
		for i := range grad {
			grad[i] = pred[i] - target[i]
		}

		idx := sampleIndices(rng, rows, nRows)
		features := sampleIndices(rng, cols, nCols)

		b := &gradientTreeBuilder{
			params: gradientTreeParams{
				MaxDepth:       xgb.MaxDepth,
				Lambda:         xgb.RegLambda,
				Gamma:          xgb.Gamma,
				MinChildWeight: xgb.MinChildWeight,
			},
			columns:  columns,
			features: features,
			grad:     grad,
			hess:     hess,
		}
		b.build(idx, 0)

		// 学習率は葉の重みに掛けておく
		for k := range b.nodes {
			b.nodes[k].Value *= xgb.LearningRate
		}
		bt := BoostedTree{Nodes: b.nodes}
		xgb.Trees = append(xgb.Trees, bt)

		var loss float64
		for i := 0; i < rows; i++ {
			for j := range row {
				row[j] = columns[j][i]
			}
			pred[i] += tree.Traverse(bt.Nodes, row)
			d := pred[i] - target[i]
			loss += d * d
		}
		if err := errors.CheckScalar("XGBRegressor.Fit", loss/float64(rows), m); err != nil {
			return err
		}
	}

	xgb.NFeatures = cols
	xgb.SetFitted()

	log.GetLoggerWithName("ensemble").Debug("XGBoost fitted",
		log.ModelNameKey, "XGBRegressor",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationKey, len(xgb.Trees),
	)
	return nil
}

// sampleIndices は [0, n) から k 個を非復元抽出して昇順に返す。k >= n なら全て
func sampleIndices(rng *rand.Rand, n, k int) []int {
	if k >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := rng.Perm(n)[:k]
	sort.Ints(idx)
	return idx
}

// Predict は base_score に全ての木の出力を足した予測を返す
func (xgb *XGBRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := xgb.CheckPredictInput("XGBRegressor", X, xgb.NFeatures); err != nil {
		return nil, err
	}
	Xd := model.DenseOf(X)
	r, _ := Xd.Dims()
	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, predictParallelThreshold, 0, func(start, end int) {
		for i := start; i < end; i++ {
			row := Xd.RawRowView(i)
			v := xgb.BaseScore
			for _, t := range xgb.Trees {
				v += tree.Traverse(t.Nodes, row)
			}
			out[i] = v
		}
	})
	return model.ColumnVector(out), nil
}

// Score returns the coefficient of determination R^2 of the prediction
func (xgb *XGBRegressor) Score(X, y mat.Matrix) (float64, error) {
	return metrics.Score(xgb, X, y)
}

// GetParams returns the hyperparameters keyed by their xgboost names
func (xgb *XGBRegressor) GetParams() model.Params {
	return model.Params{
		"n_estimators":     xgb.NEstimators,
		"learning_rate":    xgb.LearningRate,
		"max_depth":        xgb.MaxDepth,
		"reg_lambda":       xgb.RegLambda,
		"gamma":            xgb.Gamma,
		"min_child_weight": xgb.MinChildWeight,
		"subsample":        xgb.Subsample,
		"colsample_bytree": xgb.ColsampleBytree,
		"random_state":     xgb.RandomState,
	}
}

// SetParams sets the hyperparameters of the booster
func (xgb *XGBRegressor) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "n_estimators":
			xgb.NEstimators, err = model.AsInt(k, v)
		case "learning_rate", "eta":
			xgb.LearningRate, err = model.AsFloat(k, v)
		case "max_depth":
			xgb.MaxDepth, err = model.AsInt(k, v)
		case "reg_lambda", "lambda":
			xgb.RegLambda, err = model.AsFloat(k, v)
		case "gamma":
			xgb.Gamma, err = model.AsFloat(k, v)
		case "min_child_weight":
			xgb.MinChildWeight, err = model.AsFloat(k, v)
		case "subsample":
			xgb.Subsample, err = model.AsFloat(k, v)
		case "colsample_bytree":
			xgb.ColsampleBytree, err = model.AsFloat(k, v)
		case "random_state", "seed":
			xgb.RandomState, err = model.AsInt(k, v)
		default:
			err = model.UnknownParam("XGBRegressor", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted booster with the same hyperparameters
func (xgb *XGBRegressor) Clone() model.Regressor {
	c := NewXGBRegressor()
	_ = c.SetParams(xgb.GetParams())
	return c
}
