package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// checkPair は yTrue と yPred の長さを検証する
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
//
// yTrue の分散がゼロの場合は完全一致なら 1.0、それ以外は 0.0 を返す（scikit-learn の force_finite と同じ）。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yMean := stat.Mean(mat.Col(nil, 0, yTrue), nil)

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := 0; i < n; i++ {
		yTrueVal := yTrue.AtVec(i)
		yPredVal := yPred.AtVec(i)

		tss += (yTrueVal - yMean) * (yTrueVal - yMean)
		rss += (yTrueVal - yPredVal) * (yTrueVal - yPredVal)
	}

	if tss == 0 {
		if rss == 0 {
			return 1, nil
		}
		return 0, nil
	}

	return 1 - rss/tss, nil
}

// columnVec は n×1 行列を VecDense に変換する
func columnVec(op string, m mat.Matrix) (*mat.VecDense, error) {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	if c != 1 {
		return nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	return mat.NewVecDense(r, model.ColumnOf(m, 0)), nil
}

// R2ScoreMatrix は n×1 行列形式の入力に対してR²を計算する
func R2ScoreMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, err := columnVec("R2ScoreMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	p, err := columnVec("R2ScoreMatrix", yPred)
	if err != nil {
		return 0, err
	}
	return R2Score(t, p)
}

// MSEMatrix は行列形式の入力に対してMSEを計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, err := columnVec("MSEMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	p, err := columnVec("MSEMatrix", yPred)
	if err != nil {
		return 0, err
	}
	return MSE(t, p)
}

// Score は学習済みモデルで X を予測し、y に対するR²を返す
// scikit-learn の RegressorMixin.score と同じ
func Score(p model.Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return R2ScoreMatrix(y, pred)
}

// RegressionScores は1つの予測に対する回帰指標のまとめ
type RegressionScores struct {
	R2   float64
	MSE  float64
	RMSE float64
	MAE  float64
}

// Evaluate は予測値に対して R², MSE, RMSE, MAE をまとめて計算する
func Evaluate(yTrue, yPred mat.Matrix) (RegressionScores, error) {
	t, err := columnVec("Evaluate", yTrue)
	if err != nil {
		return RegressionScores{}, err
	}
	p, err := columnVec("Evaluate", yPred)
	if err != nil {
		return RegressionScores{}, err
	}

	var s RegressionScores
	if s.R2, err = R2Score(t, p); err != nil {
		return RegressionScores{}, err
	}
	if s.MSE, err = MSE(t, p); err != nil {
		return RegressionScores{}, err
	}
	s.RMSE = math.Sqrt(s.MSE)
	if s.MAE, err = MAE(t, p); err != nil {
		return RegressionScores{}, err
	}
	return s, nil
}

// MAPE は平均絶対パーセンテージ誤差を計算する
// yTrue が 0 のサンプルは除外する
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MAPE = (100/n) * Σ|yTrue - yPred|/|yTrue|
	var sum float64
	valid := 0
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		if t == 0 {
			continue
		}
		sum += math.Abs(t-yPred.AtVec(i)) / math.Abs(t)
		valid++
	}
	if valid == 0 {
		return 0, errors.NewValueError("MAPE", "all yTrue values are zero")
	}
	return sum / float64(valid) * 100, nil
}

// ExplainedVarianceScore は説明分散スコア 1 - Var(yTrue - yPred) / Var(yTrue) を計算する
//
// Var(yTrue) がゼロの場合の扱いは R2Score と同じ。
func ExplainedVarianceScore(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("ExplainedVarianceScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	t := mat.Col(nil, 0, yTrue)
	diff := make([]float64, n)
	for i := range diff {
		diff[i] = t[i] - yPred.AtVec(i)
	}

	_, varTrue := stat.PopMeanVariance(t, nil)
	_, varDiff := stat.PopMeanVariance(diff, nil)
	if varTrue == 0 {
		if varDiff == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - varDiff/varTrue, nil
}
