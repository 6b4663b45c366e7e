package ensemble

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/core/parallel"
	"github.com/YuminosukeSato/regselect/metrics"
	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/YuminosukeSato/regselect/pkg/log"
)

// ObliviousTree は全ての深さで同じ (特徴量, 境界値) の分割を使う対称木
//
// 葉の番号は深さ d の分割で x[Features[d]] > Borders[d] のときビット d を立てたもの。
type ObliviousTree struct {
	Features   []int
	Borders    []float64
	LeafValues []float64
}

// leafIndex は1サンプルの葉の番号を返す
func (t *ObliviousTree) leafIndex(row []float64) int {
	leaf := 0
	for d, f := range t.Features {
		if row[f] > t.Borders[d] {
			leaf |= 1 << d
		}
	}
	return leaf
}

// CatBoostRegressor は CatBoost の RMSE 目的関数と同じ対称木による勾配ブースティング
//
// 特徴量は学習前に最大 BorderCount 個の境界で量子化され、分割候補はその境界に限られる。
type CatBoostRegressor struct {
	model.BaseEstimator

	// Hyperparameters (matching the catboost python package)
	Iterations   int
	LearningRate float64
	Depth        int
	L2LeafReg    float64
	BorderCount  int
	RandomState  int

	// Learned state
	BaseScore float64
	Trees     []ObliviousTree
	NFeatures int
}

// NewCatBoostRegressor はcatboostと同じ既定値でモデルを作成する
func NewCatBoostRegressor() *CatBoostRegressor {
	return &CatBoostRegressor{
		Iterations:   1000,
		LearningRate: 0.03,
		Depth:        6,
		L2LeafReg:    3,
		BorderCount:  254,
	}
}

// WithIterations sets the number of trees
func (cb *CatBoostRegressor) WithIterations(n int) *CatBoostRegressor {
	cb.Iterations = n
	return cb
}

// WithLearningRate sets the learning rate
func (cb *CatBoostRegressor) WithLearningRate(lr float64) *CatBoostRegressor {
	cb.LearningRate = lr
	return cb
}

// WithDepth sets the depth of each oblivious tree
func (cb *CatBoostRegressor) WithDepth(d int) *CatBoostRegressor {
	cb.Depth = d
	return cb
}

func (cb *CatBoostRegressor) validate() error {
	switch {
	case cb.Iterations < 1:
		return errors.NewValidationError("iterations", "must be >= 1", cb.Iterations)
	case cb.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", cb.LearningRate)
	case cb.Depth < 1 || cb.Depth > 16:
		return errors.NewValidationError("depth", "must be in [1, 16]", cb.Depth)
	case cb.L2LeafReg < 0:
		return errors.NewValidationError("l2_leaf_reg", "must be >= 0", cb.L2LeafReg)
	case cb.BorderCount < 1:
		return errors.NewValidationError("border_count", "must be >= 1", cb.BorderCount)
	}
	return nil
}

// quantizeBorders は特徴量の境界値を求める。
// ユニーク値が少なければ隣接値の中点を全て使い、多ければ等頻度で間引く
func quantizeBorders(values []float64, maxBorders int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	unique := sorted[:1]
	for _, v := range sorted[1:] {
		if v != unique[len(unique)-1] {
			unique = append(unique, v)
		}
	}
	if len(unique) < 2 {
		return nil
	}

	if len(unique)-1 <= maxBorders {
		borders := make([]float64, len(unique)-1)
		for i := range borders {
			borders[i] = unique[i] + (unique[i+1]-unique[i])/2
		}
		return borders
	}

	borders := make([]float64, 0, maxBorders)
	for k := 1; k <= maxBorders; k++ {
		q := stat.Quantile(float64(k)/float64(maxBorders+1), stat.Empirical, sorted, nil)
		i := sort.SearchFloat64s(unique, q)
		if i == 0 || i >= len(unique) {
			continue
		}
		b := unique[i-1] + (unique[i]-unique[i-1])/2
		if len(borders) == 0 || b > borders[len(borders)-1] {
			borders = append(borders, b)
		}
	}
	return borders
}

// binOf は x を超えない境界の数（= x より小さい境界の数）を返す
func binOf(borders []float64, x float64) int {
	return sort.Search(len(borders), func(k int) bool { return borders[k] >= x })
}

// Fit は対称木を Iterations 本学習させる
func (cb *CatBoostRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "CatBoostRegressor.Fit")

	rows, cols, err := model.ValidateFitInput("CatBoostRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := cb.validate(); err != nil {
		return err
	}

	target := model.ColumnOf(y, 0)
	borders := make([][]float64, cols)
	bins := make([][]int, cols)
	for j := 0; j < cols; j++ {
		col := model.ColumnOf(X, j)
		borders[j] = quantizeBorders(col, cb.BorderCount)
		bins[j] = make([]int, rows)
		for i, v := range col {
			bins[j][i] = binOf(borders[j], v)
		}
	}

	cb.BaseScore = stat.Mean(target, nil)
	pred := make([]float64, rows)
	for i := range pred {
		pred[i] = cb.BaseScore
	}

	residual := make([]float64, rows)
	leaf := make([]int, rows)
	cb.Trees = make([]ObliviousTree, 0, cb.Iterations)

	for it := 0; it < cb.Iterations; it++ {
		for i := range residual {
			residual[i] = target[i] - pred[i]
			leaf[i] = 0
		}

		t := cb.growTree(borders, bins, residual, leaf)
		for i := range pred {
			pred[i] += t.LeafValues[leaf[i]]
		}
		cb.Trees = append(cb.Trees, t)
	}

	cb.NFeatures = cols
	cb.SetFitted()

	log.GetLoggerWithName("ensemble").Debug("CatBoost fitted",
		log.ModelNameKey, "CatBoostRegressor",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationKey, len(cb.Trees),
	)
	return nil
}

// growTree は深さごとに全ての葉で共通の分割を貪欲に選ぶ。
// leaf には各サンプルの葉の番号が書き込まれる
func (cb *CatBoostRegressor) growTree(borders [][]float64, bins [][]int, residual []float64, leaf []int) ObliviousTree {
	var t ObliviousTree
	lambda := cb.L2LeafReg

	for d := 0; d < cb.Depth; d++ {
		nLeaves := 1 << d
		bestScore := math.Inf(-1)
		bestFeature, bestBorder := -1, 0

		for f, fb := range borders {
			nb := len(fb)
			if nb == 0 {
				continue
			}
			// 葉 × ビンごとの残差の和と件数
			sum := make([]float64, nLeaves*(nb+1))
			cnt := make([]float64, nLeaves*(nb+1))
			for i, r := range residual {
				k := leaf[i]*(nb+1) + bins[f][i]
				sum[k] += r
				cnt[k]++
			}

			for l := 0; l < nLeaves; l++ {
				// 累積和に変換
				base := l * (nb + 1)
				for b := 1; b <= nb; b++ {
					sum[base+b] += sum[base+b-1]
					cnt[base+b] += cnt[base+b-1]
				}
			}

			for border := 0; border < nb; border++ {
				var score float64
				for l := 0; l < nLeaves; l++ {
					base := l * (nb + 1)
					sL, nL := sum[base+border], cnt[base+border]
					sT, nT := sum[base+nb], cnt[base+nb]
					sR, nR := sT-sL, nT-nL
					score += sL*sL/(nL+lambda) + sR*sR/(nR+lambda)
				}
				if score > bestScore {
					bestScore = score
					bestFeature = f
					bestBorder = border
				}
			}
		}

		if bestFeature < 0 {
			break
		}
		t.Features = append(t.Features, bestFeature)
		t.Borders = append(t.Borders, borders[bestFeature][bestBorder])
		for i := range leaf {
			if bins[bestFeature][i] > bestBorder {
				leaf[i] |= 1 << d
			}
		}
	}

	nLeaves := 1 << len(t.Features)
	sum := make([]float64, nLeaves)
	cnt := make([]float64, nLeaves)
	for i, r := range residual {
		sum[leaf[i]] += r
		cnt[leaf[i]]++
	}
	t.LeafValues = make([]float64, nLeaves)
	for l := range t.LeafValues {
		t.LeafValues[l] = cb.LearningRate * sum[l] / (cnt[l] + lambda)
	}
	return t
}

// Predict は base_score に全ての対称木の出力を足した予測を返す
func (cb *CatBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := cb.CheckPredictInput("CatBoostRegressor", X, cb.NFeatures); err != nil {
		return nil, err
	}
	Xd := model.DenseOf(X)
	r, _ := Xd.Dims()
	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, predictParallelThreshold, 0, func(start, end int) {
		for i := start; i < end; i++ {
			row := Xd.RawRowView(i)
			v := cb.BaseScore
			for k := range cb.Trees {
				t := &cb.Trees[k]
				v += t.LeafValues[t.leafIndex(row)]
			}
			out[i] = v
		}
	})
	return model.ColumnVector(out), nil
}

// Score returns the coefficient of determination R^2 of the prediction
func (cb *CatBoostRegressor) Score(X, y mat.Matrix) (float64, error) {
	return metrics.Score(cb, X, y)
}

// GetParams returns the hyperparameters keyed by their catboost names
func (cb *CatBoostRegressor) GetParams() model.Params {
	return model.Params{
		"iterations":    cb.Iterations,
		"learning_rate": cb.LearningRate,
		"depth":         cb.Depth,
		"l2_leaf_reg":   cb.L2LeafReg,
		"border_count":  cb.BorderCount,
		"random_state":  cb.RandomState,
	}
}

// SetParams sets the hyperparameters of the booster
func (cb *CatBoostRegressor) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "iterations", "n_estimators":
			cb.Iterations, err = model.AsInt(k, v)
		case "learning_rate":
			cb.LearningRate, err = model.AsFloat(k, v)
		case "depth", "max_depth":
			cb.Depth, err = model.AsInt(k, v)
		case "l2_leaf_reg":
			cb.L2LeafReg, err = model.AsFloat(k, v)
		case "border_count":
			cb.BorderCount, err = model.AsInt(k, v)
		case "random_state", "random_seed":
			cb.RandomState, err = model.AsInt(k, v)
		default:
			err = model.UnknownParam("CatBoostRegressor", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted booster with the same hyperparameters
func (cb *CatBoostRegressor) Clone() model.Regressor {
	c := NewCatBoostRegressor()
	_ = c.SetParams(cb.GetParams())
	return c
}
