package trainer

import (
	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/linear"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/sklearn/ensemble"
	"github.com/YuminosukeSato/regselect/sklearn/neighbors"
	"github.com/YuminosukeSato/regselect/sklearn/tree"
)

// Candidate names, in registry order.
const (
	RandomForest     = "Random Forest"
	DecisionTree     = "Decision Tree Regressor"
	GradientBoosting = "Gradient Boosting Regressor"
	LinearRegression = "Linear Regression"
	KNeighbors       = "K-Neighbours Regressor"
	XGBoost          = "XGBoost Regressor"
	CatBoost         = "CatBoost Regressor"
	AdaBoost         = "AdaBoost Regressor"
)

// Candidate は名前付きの未学習モデル
type Candidate struct {
	Name  string
	Model model.Regressor
}

// Registry は候補モデルの順序付きリスト。名前は一意
//
// 同点のスコアは先に登録された候補が選ばれるため、順序に意味がある
type Registry []Candidate

// NewRegistry builds the fixed catalog of eight regressors with default
// hyperparameters. randomState seeds every estimator that uses randomness.
func NewRegistry(randomState int) Registry {
	xgb := ensemble.NewXGBRegressor()
	xgb.RandomState = randomState
	cat := ensemble.NewCatBoostRegressor()
	cat.RandomState = randomState

	return Registry{
		{RandomForest, ensemble.NewRandomForestRegressor().WithRandomState(randomState)},
		{DecisionTree, tree.NewDecisionTreeRegressor(tree.WithRandomState(randomState))},
		{GradientBoosting, ensemble.NewGradientBoostingRegressor().WithRandomState(randomState)},
		{LinearRegression, linear.NewLinearRegression()},
		{KNeighbors, neighbors.NewKNeighborsRegressor()},
		{XGBoost, xgb},
		{CatBoost, cat},
		{AdaBoost, ensemble.NewAdaBoostRegressor().WithRandomState(randomState)},
	}
}

// Names returns the candidate names in order.
func (r Registry) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

// Get returns the model registered under name.
func (r Registry) Get(name string) (model.Regressor, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Model, true
		}
	}
	return nil, false
}

// Validate checks that the registry is non-empty with unique, non-nil entries.
func (r Registry) Validate() error {
	if len(r) == 0 {
		return errors.NewValueError("Registry.Validate", "no candidates registered")
	}
	seen := make(map[string]bool, len(r))
	for _, c := range r {
		if c.Model == nil {
			return errors.NewValidationError("registry", "model is nil", c.Name)
		}
		if seen[c.Name] {
			return errors.NewValidationError("registry", "duplicate candidate name", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}
