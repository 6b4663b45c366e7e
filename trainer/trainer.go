// Package trainer selects the best regressor from a fixed catalog.
//
// ModelTrainer splits the train/test matrices (target in the last column),
// scores every candidate with R² on the test split, keeps the first candidate
// with the highest score and persists it when it reaches AcceptanceFloor.
//
// Example:
//
//	cfg := trainer.DefaultConfig()
//	mt := trainer.NewModelTrainer(cfg)
//	score, err := mt.InitiateModelTrainer(train, test)
//	if errors.Is(err, errors.ErrNoBestModel) {
//	    // every candidate scored below 0.6
//	}
package trainer

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/metrics"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
)

// ModelTrainer runs one model selection.
type ModelTrainer struct {
	Config Config

	evaluator   Evaluator
	newRegistry func() Registry
	space       SearchSpace
	spaceSet    bool
	logger      log.Logger
}

// Option configures a ModelTrainer
type Option func(*ModelTrainer)

// WithEvaluator replaces the default GridEvaluator.
func WithEvaluator(ev Evaluator) Option {
	return func(mt *ModelTrainer) {
		mt.evaluator = ev
	}
}

// WithRegistry replaces the candidate catalog. fn is called once per run.
func WithRegistry(fn func() Registry) Option {
	return func(mt *ModelTrainer) {
		mt.newRegistry = fn
	}
}

// WithSearchSpace sets the search space regardless of Config.Tuning.
func WithSearchSpace(space SearchSpace) Option {
	return func(mt *ModelTrainer) {
		mt.space = space
		mt.spaceSet = true
	}
}

// WithLogger sets the logger
func WithLogger(l log.Logger) Option {
	return func(mt *ModelTrainer) {
		mt.logger = l
	}
}

// NewModelTrainer creates a trainer for cfg.
func NewModelTrainer(cfg Config, opts ...Option) *ModelTrainer {
	mt := &ModelTrainer{Config: cfg}
	for _, opt := range opts {
		opt(mt)
	}
	if mt.newRegistry == nil {
		seed := cfg.RandomState
		mt.newRegistry = func() Registry { return NewRegistry(seed) }
	}
	if mt.logger == nil {
		mt.logger = log.GetLoggerWithName("trainer")
	}
	if mt.evaluator == nil {
		ge := NewGridEvaluator(cfg)
		ge.Logger = mt.logger
		mt.evaluator = ge
	}
	return mt
}

// Result describes a successful run.
type Result struct {
	RunID        string
	BestName     string
	Score        float64 // R² of the persisted model on the test split
	Report       Report
	ArtifactPath string
}

// InitiateModelTrainer runs Train and returns only the held-out R² of the
// persisted model.
func (mt *ModelTrainer) InitiateModelTrainer(train, test mat.Matrix) (float64, error) {
	res, err := mt.Train(train, test)
	if err != nil {
		return 0, err
	}
	return res.Score, nil
}

// searchSpace は今回の実行で使う探索空間を返す
func (mt *ModelTrainer) searchSpace() SearchSpace {
	if mt.spaceSet {
		return mt.space
	}
	if mt.Config.Tuning {
		return DefaultSearchSpace()
	}
	return NoTuning
}

// Train は分割、評価、選択、保存を順に行う
//
// 最良スコアが AcceptanceFloor 未満なら NoBestModelError を返し、何も書き出さない。
// それ以外の失敗は発生箇所付きの TrainerError に包まれる
func (mt *ModelTrainer) Train(train, test mat.Matrix) (*Result, error) {
	runID := uuid.New().String()
	logger := mt.logger.With(log.RunIDKey, runID)
	start := time.Now()

	logger.Info("Splitting training and test input data")
	ds, err := splitDataset(train, test)
	if err != nil {
		return nil, errors.NewTrainerError("split", err)
	}

	registry := mt.newRegistry()
	if err := registry.Validate(); err != nil {
		return nil, errors.NewTrainerError("build registry", err)
	}
	space := mt.searchSpace()

	rows, cols := ds.XTrain.Dims()
	logger.Info("Evaluating candidates",
		log.CandidatesKey, len(registry),
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"tuning", space.Size() > 0,
	)
	report, err := mt.evaluator.Evaluate(ds, registry, space)
	if err != nil {
		return nil, errors.NewTrainerError("evaluate", err)
	}
	if len(report) != len(registry) {
		return nil, errors.NewTrainerError("evaluate",
			errors.Newf("report has %d entries for %d candidates", len(report), len(registry)))
	}

	best, err := SelectBest(report)
	if err != nil {
		return nil, errors.NewTrainerError("select", err)
	}
	if best.Score < AcceptanceFloor {
		err := errors.NewNoBestModelError(best.Name, best.Score, AcceptanceFloor)
		logger.Warn("No candidate reached the acceptance floor",
			log.ModelNameKey, best.Name,
			log.R2ScoreKey, best.Score,
			log.ErrAttrKey, err,
		)
		return nil, err
	}
	logger.Info("Best found model on both training and testing dataset",
		log.ModelNameKey, best.Name,
		log.R2ScoreKey, best.Score,
		log.OperationKey, log.OperationSelect,
	)

	// 図の出力に失敗した場合は成果物を残さない
	if mt.Config.ReportPlotPath != "" {
		if err := PlotReport(report, mt.Config.ReportPlotPath); err != nil {
			return nil, errors.NewTrainerError("plot report", err)
		}
	}

	bestModel, ok := registry.Get(best.Name)
	if !ok {
		return nil, errors.NewTrainerError("select", errors.Newf("candidate %q not in registry", best.Name))
	}

	artifact := &Artifact{
		RunID:     runID,
		Name:      best.Name,
		Score:     best.Score,
		NFeatures: cols,
		Params:    bestModel.GetParams(),
		CreatedAt: time.Now().UTC(),
		Model:     bestModel,
	}
	if err := SaveArtifact(artifact, mt.Config.ArtifactPath); err != nil {
		return nil, errors.NewTrainerError("save artifact", err)
	}
	logger.Info("Model artifact saved",
		log.ArtifactPathKey, mt.Config.ArtifactPath,
		log.OperationKey, log.OperationSave,
	)

	score, err := metrics.Score(bestModel, ds.XTest, ds.YTest)
	if err != nil {
		return nil, errors.NewTrainerError("score best model", err)
	}

	logger.Info("Model selection completed",
		log.ModelNameKey, best.Name,
		log.R2ScoreKey, score,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &Result{
		RunID:        runID,
		BestName:     best.Name,
		Score:        score,
		Report:       report,
		ArtifactPath: mt.Config.ArtifactPath,
	}, nil
}

// splitDataset は最後の列を目的変数として学習・テストデータを分ける
func splitDataset(train, test mat.Matrix) (Dataset, error) {
	if train == nil || test == nil {
		return Dataset{}, errors.NewValueError("split", "train and test arrays are required")
	}
	trRows, trCols := train.Dims()
	teRows, teCols := test.Dims()
	switch {
	case trRows == 0 || teRows == 0:
		return Dataset{}, errors.NewModelError("split", "empty data", errors.ErrEmptyData)
	case trCols < 2:
		return Dataset{}, errors.NewValueError("split", "arrays need at least one feature column and a target column")
	case teCols != trCols:
		return Dataset{}, errors.NewDimensionError("split", trCols, teCols, 1)
	}
	if err := errors.CheckMatrix("split.train", train, trRows, trCols); err != nil {
		return Dataset{}, err
	}
	if err := errors.CheckMatrix("split.test", test, teRows, teCols); err != nil {
		return Dataset{}, err
	}

	XTrain, yTrain := splitXY(train)
	XTest, yTest := splitXY(test)
	return Dataset{XTrain: XTrain, YTrain: yTrain, XTest: XTest, YTest: yTest}, nil
}

func splitXY(m mat.Matrix) (*mat.Dense, *mat.Dense) {
	d := model.DenseOf(m)
	r, c := d.Dims()
	X := mat.DenseCopyOf(d.Slice(0, r, 0, c-1))
	y := mat.DenseCopyOf(d.Slice(0, r, c-1, c))
	return X, y
}
