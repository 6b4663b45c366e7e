package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は n×1 の列ベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う。戻り値は n×1 の列ベクトル
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter is the interface for models that expose their hyperparameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters keyed by their scikit-learn names.
	GetParams() Params
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the given hyperparameters. Unknown names are an error.
	SetParams(params Params) error
}

// Regressor is the contract every candidate in the registry satisfies.
type Regressor interface {
	Fitter
	Predictor
	ParameterGetter
	ParameterSetter

	// Clone returns an unfitted copy with the same hyperparameters.
	Clone() Regressor
}
