package model_selection

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/pkg/log"
	"github.com/YuminosukeSato/regselect/sklearn/neighbors"
	"github.com/YuminosukeSato/regselect/sklearn/tree"
)

func TestKFold_Split(t *testing.T) {
	tests := []struct {
		name      string
		nSplits   int
		nSamples  int
		testSizes []int
	}{
		{"even", 5, 10, []int{2, 2, 2, 2, 2}},
		{"remainder", 3, 10, []int{4, 3, 3}},
		{"leave one out", 4, 4, []int{1, 1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, shuffle := range []bool{false, true} {
				folds, err := NewKFold(tt.nSplits, shuffle, 7).Split(tt.nSamples)
				require.NoError(t, err)
				require.Len(t, folds, tt.nSplits)

				var allTest []int
				for i, f := range folds {
					assert.Len(t, f.TestIndices, tt.testSizes[i])
					assert.Len(t, f.TrainIndices, tt.nSamples-tt.testSizes[i])

					seen := make(map[int]bool)
					for _, idx := range f.TestIndices {
						seen[idx] = true
					}
					for _, idx := range f.TrainIndices {
						assert.False(t, seen[idx], "index %d in both train and test", idx)
					}
					allTest = append(allTest, f.TestIndices...)
				}

				// 全サンプルがちょうど1回ずつテスト側に現れる
				sort.Ints(allTest)
				for i, idx := range allTest {
					assert.Equal(t, i, idx)
				}
			}
		})
	}
}

func TestKFold_UnshuffledIsContiguous(t *testing.T) {
	folds, err := NewKFold(2, false, 0).Split(4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, folds[0].TestIndices)
	assert.Equal(t, []int{2, 3}, folds[0].TrainIndices)
	assert.Equal(t, []int{2, 3}, folds[1].TestIndices)
}

func TestKFold_Errors(t *testing.T) {
	_, err := NewKFold(1, false, 0).Split(10)
	assert.Error(t, err)

	_, err = NewKFold(5, false, 0).Split(3)
	assert.Error(t, err)
}

func TestKFold_ShuffleDeterministic(t *testing.T) {
	a, err := NewKFold(3, true, 42).Split(30)
	require.NoError(t, err)
	b, err := NewKFold(3, true, 42).Split(30)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParameterGrid(t *testing.T) {
	combos := ParameterGrid(ParamGrid{
		"n_estimators":  {8, 16, 32},
		"learning_rate": {0.1, 0.01},
	})
	require.Len(t, combos, 6)

	// 名前順にソートされ、最後の名前が最も速く変わる
	assert.Equal(t, model.Params{"learning_rate": 0.1, "n_estimators": 8}, combos[0])
	assert.Equal(t, model.Params{"learning_rate": 0.1, "n_estimators": 16}, combos[1])
	assert.Equal(t, model.Params{"learning_rate": 0.1, "n_estimators": 32}, combos[2])
	assert.Equal(t, model.Params{"learning_rate": 0.01, "n_estimators": 8}, combos[3])
	assert.Equal(t, model.Params{"learning_rate": 0.01, "n_estimators": 32}, combos[5])
}

func TestParameterGrid_Edges(t *testing.T) {
	assert.Equal(t, []model.Params{{}}, ParameterGrid(ParamGrid{}))
	assert.Empty(t, ParameterGrid(ParamGrid{"depth": {}}))
}

func lineData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, 2*float64(i)+1)
	}
	return X, y
}

func TestGridSearchCV_PicksBestParams(t *testing.T) {
	X, y := lineData(60)

	gs := NewGridSearchCV(
		tree.NewDecisionTreeRegressor(),
		ParamGrid{"max_depth": {1, 6}},
	).WithShuffle(0)
	require.NoError(t, gs.Fit(X, y))

	require.Len(t, gs.Results, 2)
	assert.Equal(t, 1, gs.BestIndex)
	assert.Equal(t, model.Params{"max_depth": 6}, gs.BestParams)
	assert.Equal(t, gs.Results[1].MeanScore, gs.BestScore)
	assert.Greater(t, gs.BestScore, 0.95)
	assert.Equal(t, 1, gs.Results[1].Rank)
	assert.Equal(t, 2, gs.Results[0].Rank)
	for _, r := range gs.Results {
		assert.Len(t, r.FoldScores, 3)
		assert.GreaterOrEqual(t, r.StdScore, 0.0)
	}

	// refit 済みの推定器は元の推定器とは別物
	require.NotNil(t, gs.BestEstimator)
	best := gs.BestEstimator.(*tree.DecisionTreeRegressor)
	assert.Equal(t, 6, best.MaxDepth)
	assert.True(t, best.IsFitted())
	assert.False(t, gs.Estimator.(*tree.DecisionTreeRegressor).IsFitted())
}

func TestGridSearchCV_FailedFitScoresNegInf(t *testing.T) {
	provider, logger := log.NewTestLoggerProvider(log.LevelDebug)
	log.SetLoggerProvider(provider)
	defer log.SetLoggerProvider(log.NewZerologProvider(&bytes.Buffer{}, log.LevelInfo))

	X, y := lineData(30)
	gs := NewGridSearchCV(
		neighbors.NewKNeighborsRegressor(),
		ParamGrid{"n_neighbors": {2, 1000}},
	).WithShuffle(1).WithNJobs(2)
	require.NoError(t, gs.Fit(X, y))

	assert.True(t, math.IsInf(gs.Results[1].MeanScore, -1))
	for _, s := range gs.Results[1].FoldScores {
		assert.True(t, math.IsInf(s, -1))
	}
	assert.Equal(t, 0, gs.BestIndex)
	assert.Equal(t, model.Params{"n_neighbors": 2}, gs.BestParams)
	assert.True(t, logger.ContainsMessage("fit failed"))
	assert.NotEmpty(t, logger.EntriesWithMessage("Grid search completed"))
}

func TestGridSearchCV_ConstantTargetFoldsStayFinite(t *testing.T) {
	X, _ := lineData(30)
	y := mat.NewDense(30, 1, nil)
	for i := 0; i < 30; i++ {
		y.Set(i, 0, 7)
	}

	gs := NewGridSearchCV(
		tree.NewDecisionTreeRegressor(),
		ParamGrid{"max_depth": {1, 2}},
	).WithNJobs(3)
	require.NoError(t, gs.Fit(X, y))

	for _, r := range gs.Results {
		assert.Equal(t, 1.0, r.MeanScore)
		for _, s := range r.FoldScores {
			assert.Equal(t, 1.0, s)
		}
	}
	assert.Equal(t, 0, gs.BestIndex)
}

func TestGridSearchCV_AllFailed(t *testing.T) {
	X, y := lineData(30)
	gs := NewGridSearchCV(
		neighbors.NewKNeighborsRegressor(),
		ParamGrid{"n_neighbors": {500, 1000}},
	)
	assert.Error(t, gs.Fit(X, y))
}

func TestGridSearchCV_TieKeepsFirst(t *testing.T) {
	X, y := lineData(30)
	// 同じ値の組み合わせは同じスコアになる
	gs := NewGridSearchCV(
		tree.NewDecisionTreeRegressor(),
		ParamGrid{"max_depth": {3, 3}},
	)
	gs.Refit = false
	require.NoError(t, gs.Fit(X, y))

	assert.Equal(t, 0, gs.BestIndex)
	assert.Equal(t, gs.Results[0].MeanScore, gs.Results[1].MeanScore)
	assert.Equal(t, gs.Results[0].Rank, gs.Results[1].Rank)
	assert.Nil(t, gs.BestEstimator)
}

func TestGridSearchCV_ProgressBar(t *testing.T) {
	X, y := lineData(30)
	var out bytes.Buffer
	gs := NewGridSearchCV(
		neighbors.NewKNeighborsRegressor(),
		ParamGrid{"n_neighbors": {1, 3}},
	).WithProgressBar(&out)
	require.NoError(t, gs.Fit(X, y))
	assert.NotZero(t, out.Len())
}

func TestGridSearchCV_InvalidInput(t *testing.T) {
	X, y := lineData(10)

	gs := NewGridSearchCV(nil, ParamGrid{})
	assert.Error(t, gs.Fit(X, y))

	gs = NewGridSearchCV(tree.NewDecisionTreeRegressor(), ParamGrid{"max_depth": {}})
	assert.Error(t, gs.Fit(X, y))

	gs = NewGridSearchCV(tree.NewDecisionTreeRegressor(), ParamGrid{}).WithCV(20)
	assert.Error(t, gs.Fit(X, y))
}
