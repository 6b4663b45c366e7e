package trainer

import (
	"io"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/metrics"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
	"github.com/YuminosukeSato/regselect/sklearn/model_selection"
)

// Dataset は特徴量と目的変数に分けた学習・テストデータ
type Dataset struct {
	XTrain, YTrain *mat.Dense
	XTest, YTest   *mat.Dense
}

// Evaluator scores every candidate of a registry on a dataset.
//
// Implementations fit the registered models in place: after Evaluate returns,
// each registry entry holds the fitted estimator its report entry describes.
type Evaluator interface {
	Evaluate(ds Dataset, registry Registry, space SearchSpace) (Report, error)
}

// GridEvaluator は必要に応じてグリッドサーチで各候補のパラメータを選び、
// 学習データで学習してテストデータの R² を記録する
type GridEvaluator struct {
	CV           int
	RandomState  int
	NJobs        int
	ShowProgress bool
	Progress     io.Writer
	Logger       log.Logger
}

// NewGridEvaluator creates an evaluator from the trainer configuration.
func NewGridEvaluator(cfg Config) *GridEvaluator {
	return &GridEvaluator{
		CV:           cfg.CVFolds,
		RandomState:  cfg.RandomState,
		NJobs:        cfg.NJobs,
		ShowProgress: cfg.ShowProgress,
	}
}

// Evaluate implements Evaluator.
func (ev *GridEvaluator) Evaluate(ds Dataset, registry Registry, space SearchSpace) (Report, error) {
	return EvaluateModels(ds, registry, space, ev.searchFunc())
}

func (ev *GridEvaluator) logger() log.Logger {
	if ev.Logger != nil {
		return ev.Logger
	}
	return log.GetLoggerWithName("evaluator")
}

// searchFunc は GridSearchCV で最良の組み合わせを探す関数を返す
func (ev *GridEvaluator) searchFunc() SearchFunc {
	return func(name string, m model.Regressor, combos []model.Params, X, y *mat.Dense) (model.Params, error) {
		cv := ev.CV
		if cv == 0 {
			cv = 3
		}
		gs := &model_selection.GridSearchCV{
			Estimator:    m,
			Candidates:   combos,
			CV:           cv,
			Shuffle:      true,
			RandomState:  ev.RandomState,
			NJobs:        ev.NJobs,
			ShowProgress: ev.ShowProgress,
			Progress:     ev.Progress,
		}
		start := time.Now()
		if err := gs.Fit(X, y); err != nil {
			return nil, errors.Wrapf(err, "grid search for %s", name)
		}
		ev.logger().Info("Hyperparameters selected",
			log.ModelNameKey, name,
			log.OperationKey, log.OperationSearch,
			log.CandidatesKey, len(combos),
			log.HyperParamsKey, gs.BestParams.String(),
			log.R2ScoreKey, gs.BestScore,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
		return gs.BestParams, nil
	}
}

// SearchFunc returns the best parameter combination for one candidate.
type SearchFunc func(name string, m model.Regressor, combos []model.Params, X, y *mat.Dense) (model.Params, error)

// EvaluateModels fits each candidate in registry order and records its train
// and test R². Candidates with combinations in space are tuned with search
// first and then fit on the whole train split with the chosen parameters.
// search may be nil when space is NoTuning.
func EvaluateModels(ds Dataset, registry Registry, space SearchSpace, search SearchFunc) (Report, error) {
	logger := log.GetLoggerWithName("evaluator")
	report := make(Report, 0, len(registry))

	for _, c := range registry {
		entry := ReportEntry{Name: c.Name}

		if combos := space.Combinations(c.Name); len(combos) > 0 {
			if search == nil {
				return nil, errors.NewValueError("EvaluateModels", "search space given without a search function")
			}
			best, err := search(c.Name, c.Model, combos, ds.XTrain, ds.YTrain)
			if err != nil {
				return nil, err
			}
			if err := c.Model.SetParams(best); err != nil {
				return nil, errors.Wrapf(err, "set params for %s", c.Name)
			}
			entry.BestParams = best
		}

		start := time.Now()
		err := errors.SafeExecute(c.Name+".Fit", func() error {
			return c.Model.Fit(ds.XTrain, ds.YTrain)
		})
		if err != nil {
			return nil, errors.Wrapf(err, "fit %s", c.Name)
		}

		if entry.TrainScore, err = metrics.Score(c.Model, ds.XTrain, ds.YTrain); err != nil {
			return nil, errors.Wrapf(err, "score %s on train split", c.Name)
		}
		if entry.TestScore, err = metrics.Score(c.Model, ds.XTest, ds.YTest); err != nil {
			return nil, errors.Wrapf(err, "score %s on test split", c.Name)
		}

		logger.Debug("Candidate scored",
			log.ModelNameKey, c.Name,
			log.OperationKey, log.OperationScore,
			log.TrainR2ScoreKey, entry.TrainScore,
			log.R2ScoreKey, entry.TestScore,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
		report = append(report, entry)
	}
	return report, nil
}
