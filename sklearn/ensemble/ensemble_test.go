package ensemble

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// smoothData は y = 3*x1 + 2*sin(x2) の決定的なデータ
func smoothData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x1 := float64(i) / 10
		x2 := float64((i*37)%n) / 10
		X.Set(i, 0, x1)
		X.Set(i, 1, x2)
		y.Set(i, 0, 3*x1+2*math.Sin(x2))
	}
	return X, y
}

func regressors() map[string]model.Regressor {
	return map[string]model.Regressor{
		"RandomForest":     NewRandomForestRegressor().WithNEstimators(30).WithRandomState(1),
		"GradientBoosting": NewGradientBoostingRegressor(),
		"XGB":              NewXGBRegressor(),
		"CatBoost":         NewCatBoostRegressor().WithIterations(200).WithLearningRate(0.1).WithDepth(4),
		"AdaBoost":         NewAdaBoostRegressor().WithRandomState(3),
	}
}

func TestEnsembles_FitScore(t *testing.T) {
	X, y := smoothData(100)
	minScore := map[string]float64{
		"RandomForest":     0.9,
		"GradientBoosting": 0.95,
		"XGB":              0.95,
		"CatBoost":         0.9,
		"AdaBoost":         0.8,
	}

	for name, reg := range regressors() {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, reg.Fit(X, y))

			pred, err := reg.Predict(X)
			require.NoError(t, err)
			r, c := pred.Dims()
			assert.Equal(t, 100, r)
			assert.Equal(t, 1, c)

			score, err := scoreOf(reg, X, y)
			require.NoError(t, err)
			assert.Greater(t, score, minScore[name])
		})
	}
}

func scoreOf(reg model.Regressor, X, y mat.Matrix) (float64, error) {
	type scorer interface {
		Score(X, y mat.Matrix) (float64, error)
	}
	return reg.(scorer).Score(X, y)
}

func TestEnsembles_NotFittedAndDimensions(t *testing.T) {
	X, y := smoothData(40)
	for name, reg := range regressors() {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Predict(X)
			var nf *errors.NotFittedError
			assert.True(t, errors.As(err, &nf))

			require.NoError(t, reg.Fit(X, y))
			_, err = reg.Predict(mat.NewDense(1, 3, nil))
			var dim *errors.DimensionError
			assert.True(t, errors.As(err, &dim))
		})
	}
}

func TestEnsembles_CloneAndParams(t *testing.T) {
	for name, reg := range regressors() {
		t.Run(name, func(t *testing.T) {
			clone := reg.Clone()
			assert.Equal(t, reg.GetParams(), clone.GetParams())
			assert.Error(t, clone.SetParams(model.Params{"no_such_param": 1}))
		})
	}
}

func TestEnsembles_GobRoundTrip(t *testing.T) {
	X, y := smoothData(60)
	for name, reg := range regressors() {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, reg.Fit(X, y))
			want, err := reg.Predict(X)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, model.SaveModelToWriter(reg, &buf))

			loaded := reg.Clone()
			require.NoError(t, model.LoadModelFromReader(loaded, &buf))
			got, err := loaded.Predict(X)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(want, got, 1e-12))
		})
	}
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := smoothData(50)
	a := NewRandomForestRegressor().WithNEstimators(10).WithRandomState(7).WithNJobs(4)
	b := NewRandomForestRegressor().WithNEstimators(10).WithRandomState(7).WithNJobs(1)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pa, pb))

	var sum float64
	for _, v := range a.FeatureImportances {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestGradientBoosting_TrainScoreDecreases(t *testing.T) {
	X, y := smoothData(80)
	gb := NewGradientBoostingRegressor().WithNEstimators(30)
	require.NoError(t, gb.Fit(X, y))

	require.Len(t, gb.TrainScore, 30)
	for m := 1; m < len(gb.TrainScore); m++ {
		assert.LessOrEqual(t, gb.TrainScore[m], gb.TrainScore[m-1]+1e-9)
	}
}

func TestGradientBoosting_Subsample(t *testing.T) {
	X, y := smoothData(80)
	gb := NewGradientBoostingRegressor().WithSubsample(0.5).WithRandomState(11)
	require.NoError(t, gb.Fit(X, y))
	score, err := gb.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.9)

	err = NewGradientBoostingRegressor().WithSubsample(1.5).Fit(X, y)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestXGB_LargeGammaPreventsSplits(t *testing.T) {
	X, y := smoothData(50)
	xgb := NewXGBRegressor().WithNEstimators(5).WithGamma(1e12)
	require.NoError(t, xgb.Fit(X, y))

	for _, tr := range xgb.Trees {
		assert.Len(t, tr.Nodes, 1)
	}
	pred, err := xgb.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		assert.InDelta(t, xgb.BaseScore, pred.At(i, 0), 1e-9)
	}
}

func TestXGB_InvalidParams(t *testing.T) {
	X, y := smoothData(20)
	err := NewXGBRegressor().WithLearningRate(0).Fit(X, y)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	err = NewXGBRegressor().WithRegLambda(-1).Fit(X, y)
	assert.True(t, errors.As(err, &ve))
}

func TestBoosting_OverflowingLossIsReported(t *testing.T) {
	// 二乗誤差が float64 の範囲を超える目的変数
	n := 20
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		v := 1e200
		if i%2 == 1 {
			v = -v
		}
		y.Set(i, 0, v)
	}

	for name, reg := range map[string]model.Regressor{
		"GradientBoosting": NewGradientBoostingRegressor().WithNEstimators(5),
		"XGB":              NewXGBRegressor().WithNEstimators(5),
	} {
		t.Run(name, func(t *testing.T) {
			err := reg.Fit(X, y)
			var ni *errors.NumericalInstabilityError
			require.True(t, errors.As(err, &ni), "got %v", err)
			assert.Equal(t, 0, ni.Iteration)
			assert.True(t, math.IsInf(ni.Values[0], 1))
		})
	}
}

func TestQuantizeBorders(t *testing.T) {
	assert.Equal(t, []float64{1.5, 2.5}, quantizeBorders([]float64{3, 1, 1, 2}, 254))
	assert.Nil(t, quantizeBorders([]float64{4, 4, 4}, 254))

	values := make([]float64, 1000)
	for i := range values {
		values[i] = float64(i)
	}
	borders := quantizeBorders(values, 10)
	assert.LessOrEqual(t, len(borders), 10)
	assert.NotEmpty(t, borders)
	for i := 1; i < len(borders); i++ {
		assert.Greater(t, borders[i], borders[i-1])
	}
}

func TestObliviousTree_LeafIndex(t *testing.T) {
	tr := ObliviousTree{
		Features:   []int{0, 1},
		Borders:    []float64{0.5, 10},
		LeafValues: []float64{1, 2, 3, 4},
	}
	assert.Equal(t, 0, tr.leafIndex([]float64{0, 0}))
	assert.Equal(t, 1, tr.leafIndex([]float64{1, 0}))
	assert.Equal(t, 2, tr.leafIndex([]float64{0, 11}))
	assert.Equal(t, 3, tr.leafIndex([]float64{1, 11}))
}

func TestAdaBoost_PerfectFitStopsEarly(t *testing.T) {
	X := mat.NewDense(12, 1, []float64{1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2})
	y := mat.NewDense(12, 1, []float64{1, 1, 1, 1, 1, 1, 5, 5, 5, 5, 5, 5})

	ab := NewAdaBoostRegressor()
	require.NoError(t, ab.Fit(X, y))
	pred, err := ab.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(y, pred, 1e-12))
	assert.Len(t, ab.Estimators, 1)
}

func TestAdaBoost_InvalidLoss(t *testing.T) {
	X, y := smoothData(20)
	err := NewAdaBoostRegressor().WithLoss("huber").Fit(X, y)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestAdaBoost_Losses(t *testing.T) {
	X, y := smoothData(60)
	for _, loss := range []string{LossLinear, LossSquare, LossExponential} {
		t.Run(loss, func(t *testing.T) {
			ab := NewAdaBoostRegressor().WithLoss(loss).WithNEstimators(20)
			require.NoError(t, ab.Fit(X, y))
			assert.Equal(t, len(ab.Estimators), len(ab.EstimatorWeights))
			score, err := ab.Score(X, y)
			require.NoError(t, err)
			assert.Greater(t, score, 0.7)
		})
	}
}
