// Package log defines standard attribute keys for machine learning operations.
//
// These keys follow a hierarchical naming convention (e.g., "model.name",
// "data.samples") to enable structured log analysis and filtering.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the candidate or estimator type.
	// Examples: "Random Forest", "DecisionTreeRegressor"
	ModelNameKey = "model.name"

	// OperationKey specifies the machine learning operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "trainer", "modelselection", "ensemble"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the run.
	PhaseKey = "ml.phase"

	// RunIDKey identifies a single trainer run. Also stored in the artifact.
	RunIDKey = "run.id"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// CandidatesKey is the number of candidate models or parameter combinations.
	CandidatesKey = "data.candidates"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records R² coefficient of determination for regression.
	// Range typically [-∞, 1.0], with 1.0 being perfect prediction.
	R2ScoreKey = "metrics.r2_score"

	// TrainR2ScoreKey records R² on the training split.
	TrainR2ScoreKey = "metrics.train_r2_score"

	// IterationKey records the current iteration number during iterative processes.
	IterationKey = "training.iteration"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// ArtifactPathKey is where the selected model is written.
	ArtifactPathKey = "config.artifact_path"

	// FoldsKey is the number of cross-validation folds used by a search.
	FoldsKey = "config.cv_folds"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
	OperationSearch  = "search"
	OperationSelect  = "select"
	OperationSave    = "save"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseTesting    = "testing"
)
