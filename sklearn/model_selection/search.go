package model_selection

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/cheggaaa/pb/v3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/core/parallel"
	"github.com/YuminosukeSato/regselect/metrics"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
)

// CVResult は1つのパラメータの組み合わせに対する交差検証の結果
type CVResult struct {
	Params     model.Params
	FoldScores []float64 // 学習に失敗した分割は -Inf
	MeanScore  float64
	StdScore   float64
	Rank       int // 1 が最良
}

// GridSearchCV は全てのパラメータの組み合わせを k 分割交差検証の平均 R² で比較する
//
// 学習や評価に失敗した組み合わせのスコアは -Inf となり、FitFailedWarning が発行される。
// 平均スコアが同じ場合は Candidates で先に現れた組み合わせを選ぶ。
type GridSearchCV struct {
	Estimator  model.Regressor
	Candidates []model.Params

	CV           int  // Number of folds
	Shuffle      bool // Shuffle samples before splitting
	RandomState  int
	NJobs        int  // Fits run concurrently (<= 0 = all cores)
	Refit        bool // Refit the best combination on the whole data
	ShowProgress bool
	Progress     io.Writer // Progress bar output (default os.Stderr)

	Results       []CVResult
	BestIndex     int
	BestParams    model.Params
	BestScore     float64
	BestEstimator model.Regressor
}

// NewGridSearchCV は cv=3、refit ありのグリッドサーチを作成する
func NewGridSearchCV(estimator model.Regressor, grid ParamGrid) *GridSearchCV {
	return &GridSearchCV{
		Estimator:  estimator,
		Candidates: ParameterGrid(grid),
		CV:         3,
		Refit:      true,
	}
}

// WithCV sets the number of folds
func (gs *GridSearchCV) WithCV(cv int) *GridSearchCV {
	gs.CV = cv
	return gs
}

// WithNJobs sets the number of concurrent fits
func (gs *GridSearchCV) WithNJobs(n int) *GridSearchCV {
	gs.NJobs = n
	return gs
}

// WithProgressBar enables the progress bar written to w (os.Stderr when nil)
func (gs *GridSearchCV) WithProgressBar(w io.Writer) *GridSearchCV {
	gs.ShowProgress = true
	gs.Progress = w
	return gs
}

// WithShuffle shuffles the samples with the given seed before splitting
func (gs *GridSearchCV) WithShuffle(seed int) *GridSearchCV {
	gs.Shuffle = true
	gs.RandomState = seed
	return gs
}

// Fit は全ての組み合わせと分割で学習と評価を行い、最良の組み合わせを選ぶ
func (gs *GridSearchCV) Fit(X, y mat.Matrix) error {
	rows, _, err := model.ValidateFitInput("GridSearchCV.Fit", X, y)
	if err != nil {
		return err
	}
	if gs.Estimator == nil {
		return errors.NewValueError("GridSearchCV.Fit", "estimator is nil")
	}
	if len(gs.Candidates) == 0 {
		return errors.NewValueError("GridSearchCV.Fit", "no parameter combinations to search")
	}

	folds, err := NewKFold(gs.CV, gs.Shuffle, gs.RandomState).Split(rows)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%T", gs.Estimator)
	logger := log.GetLoggerWithName("model_selection").With(
		log.ModelNameKey, name,
		log.OperationKey, log.OperationSearch,
	)
	start := time.Now()

	Xd := model.DenseOf(X)
	target := model.ColumnOf(y, 0)
	nFits := len(gs.Candidates) * len(folds)

	var bar *pb.ProgressBar
	if gs.ShowProgress {
		w := gs.Progress
		if w == nil {
			w = os.Stderr
		}
		bar = pb.New(nFits).SetWriter(w).Start()
	}

	scores := make([]float64, nFits)
	// 失敗した学習は警告にして -Inf を記録するので、ここでエラーは起きない
	parallel.Parallelize(nFits, gs.NJobs, func(start, end int) {
		for k := start; k < end; k++ {
			c, f := k/len(folds), k%len(folds)
			s, err := gs.fitAndScore(Xd, target, gs.Candidates[c], folds[f])
			if err != nil {
				errors.Warn(errors.NewFitFailedWarning(name, gs.Candidates[c], err))
				s = math.Inf(-1)
			}
			scores[k] = s
			if bar != nil {
				bar.Increment()
			}
		}
	})
	if bar != nil {
		bar.Finish()
	}

	gs.Results = make([]CVResult, len(gs.Candidates))
	for c := range gs.Candidates {
		fs := scores[c*len(folds) : (c+1)*len(folds)]
		res := CVResult{Params: gs.Candidates[c], FoldScores: append([]float64(nil), fs...)}
		if anyInf(fs) {
			res.MeanScore = math.Inf(-1)
		} else {
			mean, variance := stat.PopMeanVariance(fs, nil)
			res.MeanScore = mean
			res.StdScore = math.Sqrt(variance)
		}
		gs.Results[c] = res
	}
	rankResults(gs.Results)

	gs.BestIndex = -1
	for c, res := range gs.Results {
		if math.IsNaN(res.MeanScore) || math.IsInf(res.MeanScore, -1) {
			continue
		}
		if gs.BestIndex < 0 || res.MeanScore > gs.BestScore {
			gs.BestIndex = c
			gs.BestScore = res.MeanScore
		}
	}
	if gs.BestIndex < 0 {
		return errors.NewModelError("GridSearchCV.Fit", "all fits failed", nil)
	}
	gs.BestParams = gs.Candidates[gs.BestIndex].Clone()

	logger.Info("Grid search completed",
		log.CandidatesKey, len(gs.Candidates),
		log.FoldsKey, len(folds),
		log.R2ScoreKey, gs.BestScore,
		log.HyperParamsKey, gs.BestParams.String(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if gs.Refit {
		best := gs.Estimator.Clone()
		if err := best.SetParams(gs.BestParams); err != nil {
			return err
		}
		if err := best.Fit(Xd, y); err != nil {
			return errors.Wrap(err, "refit with best parameters")
		}
		gs.BestEstimator = best
	}
	return nil
}

// fitAndScore は1つの組み合わせを1つの分割で学習し、テスト側の R² を返す
func (gs *GridSearchCV) fitAndScore(X *mat.Dense, y []float64, params model.Params, fold Fold) (score float64, err error) {
	defer errors.Recover(&err, "GridSearchCV.fitAndScore")

	est := gs.Estimator.Clone()
	if err := est.SetParams(params); err != nil {
		return 0, err
	}
	if err := est.Fit(model.SelectRows(X, fold.TrainIndices), model.ColumnVector(model.SelectValues(y, fold.TrainIndices))); err != nil {
		return 0, err
	}
	return metrics.Score(est, model.SelectRows(X, fold.TestIndices), model.ColumnVector(model.SelectValues(y, fold.TestIndices)))
}

func anyInf(xs []float64) bool {
	for _, x := range xs {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return true
		}
	}
	return false
}

// rankResults は平均スコアの降順に順位を付ける。同点は同順位
func rankResults(results []CVResult) {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return results[order[a]].MeanScore > results[order[b]].MeanScore
	})
	for pos, i := range order {
		if pos > 0 && results[i].MeanScore == results[order[pos-1]].MeanScore {
			results[i].Rank = results[order[pos-1]].Rank
			continue
		}
		results[i].Rank = pos + 1
	}
}
