// Package tree は CART による決定木回帰を提供します。
//
// 学習済みの木はノードのフラットな配列として保持されるため、gob でそのまま保存できます。
// ensemble パッケージのランダムフォレスト、勾配ブースティング、AdaBoost の弱学習器としても使われます。
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/core/parallel"
	"github.com/YuminosukeSato/regselect/metrics"
	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// 予測を並列化する行数の閾値
const predictParallelThreshold = 2000

// Node は決定木のノード。Feature が -1 のノードは葉
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Samples   int
	Impurity  float64
}

// IsLeaf は葉ノードかどうかを返す
func (n Node) IsLeaf() bool {
	return n.Feature < 0
}

// DecisionTreeRegressor は scikit-learn の DecisionTreeRegressor 互換の回帰木
type DecisionTreeRegressor struct {
	model.BaseEstimator

	// ハイパーパラメータ
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomState     int

	// 学習結果
	Nodes              []Node
	NFeatures          int
	FeatureImportances []float64
}

// NewDecisionTreeRegressor は新しい回帰木を作成する
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		Criterion:       SquaredError,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

func (dt *DecisionTreeRegressor) validate(y []float64) error {
	if !validCriterion(dt.Criterion) {
		return errors.NewValidationError("criterion", "must be one of squared_error, friedman_mse, absolute_error, poisson", dt.Criterion)
	}
	if dt.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", dt.MaxDepth)
	}
	if dt.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.MinSamplesSplit)
	}
	if dt.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.MinSamplesLeaf)
	}
	if dt.MaxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0", dt.MaxFeatures)
	}
	if dt.Criterion == Poisson {
		var sum float64
		for _, v := range y {
			if v < 0 {
				return errors.NewValueError("DecisionTreeRegressor.Fit", "some value(s) of y are negative which is not allowed for Poisson regression")
			}
			sum += v
		}
		if sum <= 0 {
			return errors.NewValueError("DecisionTreeRegressor.Fit", "sum of y is not positive which is necessary for Poisson regression")
		}
	}
	return nil
}

// Fit は回帰木を学習させる
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	rows, cols, err := model.ValidateFitInput("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	target := model.ColumnOf(y, 0)
	if err := dt.validate(target); err != nil {
		return err
	}

	columns := make([][]float64, cols)
	for j := range columns {
		columns[j] = model.ColumnOf(X, j)
	}

	seed := uint64(dt.RandomState)
	b := &builder{
		tree:        dt,
		columns:     columns,
		y:           target,
		rng:         rand.New(rand.NewPCG(seed, seed)),
		importances: make([]float64, cols),
	}

	idx := make([]int, rows)
	for i := range idx {
		idx[i] = i
	}

	dt.Nodes = dt.Nodes[:0]
	dt.NFeatures = cols
	b.build(idx, 0)

	total := 0.0
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for i := range b.importances {
			b.importances[i] /= total
		}
	}
	dt.FeatureImportances = b.importances

	dt.SetFitted()
	return nil
}

// builder は深さ優先で木を組み立てる
type builder struct {
	tree        *DecisionTreeRegressor
	columns     [][]float64
	y           []float64
	rng         *rand.Rand
	importances []float64
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

func (b *builder) values(idx []int) []float64 {
	return model.SelectValues(b.y, idx)
}

// build は idx のサンプルからノードを作り、そのインデックスを返す
func (b *builder) build(idx []int, depth int) int {
	dt := b.tree
	ys := b.values(idx)
	node := Node{
		Feature:  -1,
		Value:    leafValue(dt.Criterion, ys),
		Samples:  len(idx),
		Impurity: impurity(dt.Criterion, ys),
	}
	id := len(dt.Nodes)
	dt.Nodes = append(dt.Nodes, node)

	if (dt.MaxDepth > 0 && depth >= dt.MaxDepth) ||
		len(idx) < dt.MinSamplesSplit ||
		len(idx) < 2*dt.MinSamplesLeaf ||
		node.Impurity <= 1e-12 {
		return id
	}

	best, ok := b.findSplit(idx)
	if !ok {
		return id
	}

	nL, nR := float64(len(best.left)), float64(len(best.right))
	decrease := float64(len(idx))*node.Impurity -
		nL*impurity(dt.Criterion, b.values(best.left)) -
		nR*impurity(dt.Criterion, b.values(best.right))
	if decrease > 0 {
		b.importances[best.feature] += decrease
	}

	left := b.build(best.left, depth+1)
	right := b.build(best.right, depth+1)

	dt.Nodes[id].Feature = best.feature
	dt.Nodes[id].Threshold = best.threshold
	dt.Nodes[id].Left = left
	dt.Nodes[id].Right = right
	return id
}

// candidateFeatures は分割で検討する特徴量を返す
func (b *builder) candidateFeatures() []int {
	n := len(b.columns)
	k := b.tree.MaxFeatures
	if k <= 0 || k >= n {
		features := make([]int, n)
		for i := range features {
			features[i] = i
		}
		return features
	}
	features := b.rng.Perm(n)[:k]
	sort.Ints(features)
	return features
}

// findSplit は全候補特徴量の中で改善度が最大の分割を探す。同点の場合は先に見つかったものを採用する
func (b *builder) findSplit(idx []int) (split, bool) {
	minLeaf := b.tree.MinSamplesLeaf
	best := split{gain: math.Inf(-1), feature: -1}
	var bestOrder []int
	bestPos := 0

	order := make([]int, len(idx))
	for _, f := range b.candidateFeatures() {
		col := b.columns[f]
		copy(order, idx)
		sort.SliceStable(order, func(a, c int) bool { return col[order[a]] < col[order[c]] })

		gains := splitGains(b.tree.Criterion, b.values(order))
		for i := minLeaf; i <= len(order)-minLeaf; i++ {
			if col[order[i-1]] >= col[order[i]] {
				continue
			}
			if gains[i] > best.gain {
				best.gain = gains[i]
				best.feature = f
				lo, hi := col[order[i-1]], col[order[i]]
				best.threshold = lo + (hi-lo)/2
				if best.threshold >= hi {
					best.threshold = lo
				}
				bestOrder = append(bestOrder[:0], order...)
				bestPos = i
			}
		}
	}

	if best.feature < 0 {
		return split{}, false
	}
	best.left = append([]int(nil), bestOrder[:bestPos]...)
	best.right = append([]int(nil), bestOrder[bestPos:]...)
	return best, true
}

// Traverse はルート nodes[0] から葉までたどり、葉の値を返す。
// しきい値以下のサンプルは左の子に進む
func Traverse(nodes []Node, row []float64) float64 {
	i := 0
	for {
		n := nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// PredictRow は1サンプルの予測値を返す
func (dt *DecisionTreeRegressor) PredictRow(row []float64) float64 {
	return Traverse(dt.Nodes, row)
}

// Predict は入力データに対する予測を行う
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.CheckPredictInput("DecisionTreeRegressor", X, dt.NFeatures); err != nil {
		return nil, err
	}
	Xd := model.DenseOf(X)
	r, _ := Xd.Dims()
	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, predictParallelThreshold, 0, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = dt.PredictRow(Xd.RawRowView(i))
		}
	})
	return model.ColumnVector(out), nil
}

// Score はモデルの決定係数（R²）を計算する
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	return metrics.Score(dt, X, y)
}

// GetDepth は木の深さを返す
func (dt *DecisionTreeRegressor) GetDepth() int {
	if len(dt.Nodes) == 0 {
		return 0
	}
	var depth func(i int) int
	depth = func(i int) int {
		n := dt.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(depth(n.Left), depth(n.Right))
	}
	return depth(0)
}

// GetNLeaves は葉ノードの数を返す
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	count := 0
	for _, n := range dt.Nodes {
		if n.IsLeaf() {
			count++
		}
	}
	return count
}

// GetFeatureImportances は不純度減少に基づく特徴量重要度（合計1）を返す
func (dt *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.FeatureImportances...)
}

// GetParams はハイパーパラメータを返す
func (dt *DecisionTreeRegressor) GetParams() model.Params {
	return model.Params{
		"criterion":         dt.Criterion,
		"max_depth":         dt.MaxDepth,
		"min_samples_split": dt.MinSamplesSplit,
		"min_samples_leaf":  dt.MinSamplesLeaf,
		"max_features":      dt.MaxFeatures,
		"random_state":      dt.RandomState,
	}
}

// SetParams はハイパーパラメータを設定する
func (dt *DecisionTreeRegressor) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "criterion":
			dt.Criterion, err = model.AsString(k, v)
		case "max_depth":
			dt.MaxDepth, err = model.AsInt(k, v)
		case "min_samples_split":
			dt.MinSamplesSplit, err = model.AsInt(k, v)
		case "min_samples_leaf":
			dt.MinSamplesLeaf, err = model.AsInt(k, v)
		case "max_features":
			dt.MaxFeatures, err = model.AsInt(k, v)
		case "random_state":
			dt.RandomState, err = model.AsInt(k, v)
		default:
			err = model.UnknownParam("DecisionTreeRegressor", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone は同じハイパーパラメータを持つ未学習の木を返す
func (dt *DecisionTreeRegressor) Clone() model.Regressor {
	return &DecisionTreeRegressor{
		Criterion:       dt.Criterion,
		MaxDepth:        dt.MaxDepth,
		MinSamplesSplit: dt.MinSamplesSplit,
		MinSamplesLeaf:  dt.MinSamplesLeaf,
		MaxFeatures:     dt.MaxFeatures,
		RandomState:     dt.RandomState,
	}
}
