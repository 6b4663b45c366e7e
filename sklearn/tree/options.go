package tree

// Option は DecisionTreeRegressor を設定する関数
type Option func(*DecisionTreeRegressor)

// WithCriterion は分割の評価基準を設定する
// "squared_error", "friedman_mse", "absolute_error", "poisson" のいずれか
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.Criterion = criterion
	}
}

// WithMaxDepth は木の最大深さを設定する（0 は無制限）
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MaxDepth = depth
	}
}

// WithMinSamplesSplit は内部ノードを分割するのに必要な最小サンプル数を設定する
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MinSamplesSplit = n
	}
}

// WithMinSamplesLeaf は葉ノードに必要な最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MinSamplesLeaf = n
	}
}

// WithMaxFeatures は各分割で検討する特徴量の数を設定する（0 は全特徴量）
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MaxFeatures = n
	}
}

// WithRandomState は特徴量サンプリングの乱数シードを設定する
func WithRandomState(seed int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.RandomState = seed
	}
}
