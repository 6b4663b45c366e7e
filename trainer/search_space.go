package trainer

import (
	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/sklearn/model_selection"
)

// SearchSpace は候補名からハイパーパラメータの組み合わせのリストへの対応
//
// リストが空（またはキーが無い）候補は既定値のまま学習する
type SearchSpace map[string][]model.Params

// NoTuning means every candidate is fit with its default hyperparameters.
var NoTuning SearchSpace

// Combinations returns the combinations to search for name (nil when none).
func (s SearchSpace) Combinations(name string) []model.Params {
	if s == nil {
		return nil
	}
	return s[name]
}

// Size returns the total number of combinations over all candidates.
func (s SearchSpace) Size() int {
	n := 0
	for _, combos := range s {
		n += len(combos)
	}
	return n
}

var estimatorCounts = []interface{}{8, 16, 32, 64, 128, 256}

// DefaultSearchSpace returns the grids searched in the tuned variant.
// Linear Regression has no grid.
func DefaultSearchSpace() SearchSpace {
	return SearchSpace{
		DecisionTree: model_selection.ParameterGrid(model_selection.ParamGrid{
			"criterion": {"squared_error", "friedman_mse", "absolute_error", "poisson"},
		}),
		RandomForest: model_selection.ParameterGrid(model_selection.ParamGrid{
			"n_estimators": estimatorCounts,
		}),
		GradientBoosting: model_selection.ParameterGrid(model_selection.ParamGrid{
			"learning_rate": {0.1, 0.01, 0.05, 0.001},
			"subsample":     {0.6, 0.7, 0.75, 0.8, 0.85, 0.9},
			"n_estimators":  estimatorCounts,
		}),
		LinearRegression: nil,
		KNeighbors: model_selection.ParameterGrid(model_selection.ParamGrid{
			"n_neighbors": {5, 7, 9, 11},
		}),
		XGBoost: model_selection.ParameterGrid(model_selection.ParamGrid{
			"learning_rate": {0.1, 0.01, 0.05, 0.001},
			"n_estimators":  estimatorCounts,
		}),
		CatBoost: model_selection.ParameterGrid(model_selection.ParamGrid{
			"depth":         {6, 8, 10},
			"learning_rate": {0.01, 0.05, 0.1},
			"iterations":    {30, 50, 100},
		}),
		AdaBoost: model_selection.ParameterGrid(model_selection.ParamGrid{
			"learning_rate": {0.1, 0.01, 0.5, 0.001},
			"n_estimators":  estimatorCounts,
		}),
	}
}
