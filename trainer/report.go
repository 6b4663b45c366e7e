package trainer

import (
	"math"

	"github.com/YuminosukeSato/regselect/core/model"
	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// AcceptanceFloor is the minimum test R² a selected model must reach.
const AcceptanceFloor = 0.6

// ReportEntry は1つの候補の評価結果
type ReportEntry struct {
	Name       string
	TestScore  float64 // R² on the test split
	TrainScore float64 // R² on the train split
	BestParams model.Params
}

// Report holds one entry per registered candidate, in registry order.
type Report []ReportEntry

// Scores returns candidate name → test R².
func (r Report) Scores() map[string]float64 {
	out := make(map[string]float64, len(r))
	for _, e := range r {
		out[e.Name] = e.TestScore
	}
	return out
}

// Selection は選ばれた候補の名前とスコア
type Selection struct {
	Index int
	Name  string
	Score float64
}

// SelectBest はテストスコアが最大の候補を返す
//
// 同点の場合は先に現れた候補を選ぶ。NaN のスコアは選ばれない
func SelectBest(report Report) (Selection, error) {
	best := Selection{Index: -1}
	for i, e := range report {
		if math.IsNaN(e.TestScore) {
			continue
		}
		if best.Index < 0 || e.TestScore > best.Score {
			best = Selection{Index: i, Name: e.Name, Score: e.TestScore}
		}
	}
	if best.Index < 0 {
		return best, errors.NewValueError("SelectBest", "no candidate has a valid score")
	}
	return best, nil
}
