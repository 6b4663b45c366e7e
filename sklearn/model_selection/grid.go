package model_selection

import (
	"sort"

	"github.com/YuminosukeSato/regselect/core/model"
)

// ParamGrid はパラメータ名から候補値のリストへの対応
type ParamGrid map[string][]interface{}

// ParameterGrid はグリッドの全ての組み合わせ（直積）を返す。
// パラメータ名はソートされ、最後の名前の値が最も速く変わる（scikit-learn の ParameterGrid と同じ順序）。
// 空のグリッドは空のパラメータ1つだけを返す。候補値が空のパラメータがあれば組み合わせはない
func ParameterGrid(grid ParamGrid) []model.Params {
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []model.Params{{}}
	for _, k := range keys {
		values := grid[k]
		next := make([]model.Params, 0, len(combos)*len(values))
		for _, c := range combos {
			for _, v := range values {
				p := c.Clone()
				p[k] = v
				next = append(next, p)
			}
		}
		combos = next
	}
	return combos
}
