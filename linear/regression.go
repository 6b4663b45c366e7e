package linear

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/core/parallel"
	"github.com/YuminosukeSato/regselect/metrics"
	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

const machineEpsilon = 2.220446049250313e-16

// LinearRegression は最小二乗法による線形回帰モデル
//
// 学習は特異値分解（SVD）で解くため、特徴量が線形従属でも
// 最小ノルム解が得られる（scikit-learn の lstsq と同じ振る舞い）。
type LinearRegression struct {
	model.BaseEstimator

	// ハイパーパラメータ
	FitIntercept bool
	NJobs        int

	// 学習結果
	Weights   []float64 // 重み（係数）
	Intercept float64   // 切片
	NFeatures int       // 特徴量の数
	Rank      int       // 計画行列のランク
	Singular  []float64 // 計画行列の特異値
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{FitIntercept: true, NJobs: 1}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習させる
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c, err := model.ValidateFitInput("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	target := model.ColumnOf(y, 0)
	xMean := make([]float64, c)
	var yMean float64
	if lr.FitIntercept {
		for j := 0; j < c; j++ {
			xMean[j] = stat.Mean(model.ColumnOf(X, j), nil)
		}
		yMean = stat.Mean(target, nil)
	}

	// 切片を求める場合は X と y を中心化してから解く
	design := mat.NewDense(r, c, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, lr.NJobs, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				design.Set(i, j, X.At(i, j)-xMean[j])
			}
			target[i] -= yMean
		}
	})

	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "SVD did not converge", errors.ErrSingularMatrix)
	}

	lr.Singular = svd.Values(nil)
	// numpy.linalg.lstsq と同じ既定の打ち切り
	lr.Rank = svd.Rank(machineEpsilon * float64(max(r, c)))

	lr.Weights = make([]float64, c)
	if lr.Rank > 0 {
		var w mat.Dense
		svd.SolveTo(&w, mat.NewDense(r, 1, target), lr.Rank)
		copy(lr.Weights, mat.Col(nil, 0, &w))
	}

	lr.Intercept = 0
	if lr.FitIntercept {
		lr.Intercept = yMean
		for j, w := range lr.Weights {
			lr.Intercept -= w * xMean[j]
		}
	}
	lr.NFeatures = c

	lr.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.CheckPredictInput("LinearRegression", X, lr.NFeatures); err != nil {
		return nil, err
	}

	// 予測: y = X * weights + intercept
	r, _ := X.Dims()
	var out mat.VecDense
	out.MulVec(X, mat.NewVecDense(len(lr.Weights), lr.Weights))

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		predictions.Set(i, 0, out.AtVec(i)+lr.Intercept)
	}
	return predictions, nil
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	return metrics.Score(lr, X, y)
}

// GetWeights は学習された重み（係数）のコピーを返す
func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Weights == nil {
		return nil
	}
	return append([]float64(nil), lr.Weights...)
}

// GetIntercept は学習された切片を返す
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// GetParams はハイパーパラメータを返す
func (lr *LinearRegression) GetParams() model.Params {
	return model.Params{
		"fit_intercept": lr.FitIntercept,
		"n_jobs":        lr.NJobs,
	}
}

// SetParams はハイパーパラメータを設定する
func (lr *LinearRegression) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "fit_intercept":
			lr.FitIntercept, err = model.AsBool(k, v)
		case "n_jobs":
			lr.NJobs, err = model.AsInt(k, v)
		default:
			err = model.UnknownParam("LinearRegression", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone は同じハイパーパラメータを持つ未学習のモデルを返す
func (lr *LinearRegression) Clone() model.Regressor {
	return NewLinearRegression(WithFitIntercept(lr.FitIntercept), WithNJobs(lr.NJobs))
}
