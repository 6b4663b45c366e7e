package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// BaseEstimator は全てのモデルの基底となる構造体
// gobで保存したモデルを読み戻しても学習済み状態が保たれるよう、State は公開している
type BaseEstimator struct {
	State EstimatorState
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted はモデルを学習済み状態に設定する
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}

// CheckPredictInput は予測前の共通チェック（学習済みか、特徴量数が一致するか）を行う
func (e *BaseEstimator) CheckPredictInput(modelName string, X mat.Matrix, nFeatures int) error {
	if !e.IsFitted() {
		return errors.NewNotFittedError(modelName, "Predict")
	}
	r, c := X.Dims()
	if r == 0 {
		return errors.NewModelError(modelName+".Predict", "empty data", errors.ErrEmptyData)
	}
	if c != nFeatures {
		return errors.NewDimensionError(modelName+".Predict", nFeatures, c, 1)
	}
	return nil
}
