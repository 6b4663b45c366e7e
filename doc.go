// Package regselect picks the best regression model for a dataset and keeps it
// for later inference.
//
// Given numeric train and test arrays whose last column is the target,
// regselect fits a fixed catalog of regressors, scores each with R² on the
// test split, selects the highest-scoring one and writes it to disk. Runs
// where no candidate reaches R² 0.6 are rejected.
//
// # Installation
//
//	go get github.com/YuminosukeSato/regselect
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/regselect/trainer"
//	)
//
//	func main() {
//	    // train, test: *mat.Dense with the target in the last column
//	    mt := trainer.NewModelTrainer(trainer.DefaultConfig())
//	    score, err := mt.InitiateModelTrainer(train, test)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("R² of the saved model:", score)
//	}
//
// # Candidates
//
// The catalog, in the order used to break ties:
//
//   - Random Forest (sklearn/ensemble)
//   - Decision Tree Regressor (sklearn/tree)
//   - Gradient Boosting Regressor (sklearn/ensemble)
//   - Linear Regression (linear)
//   - K-Neighbours Regressor (sklearn/neighbors)
//   - XGBoost Regressor (sklearn/ensemble)
//   - CatBoost Regressor (sklearn/ensemble)
//   - AdaBoost Regressor (sklearn/ensemble)
//
// # Packages
//
//   - trainer: model selection, search space, artifacts, configuration
//   - sklearn/model_selection: KFold, ParameterGrid, GridSearchCV
//   - linear, sklearn/tree, sklearn/ensemble, sklearn/neighbors: regressors
//   - metrics: regression metrics (MSE, RMSE, MAE, R², MAPE)
//   - core/model: estimator interfaces, parameters, gob persistence
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: structured errors and zerolog logging
//
// The cmd/regselect command exposes the same pipeline over CSV files:
//
//	regselect train --train train.csv --test test.csv --artifact artifacts/model.gob
//	regselect predict --model artifacts/model.gob --input features.csv
package regselect
