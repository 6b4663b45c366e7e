package errors

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ErrNoBestModel は全ての候補モデルのスコアが採用基準を下回った場合のエラーです。
var ErrNoBestModel = New("no best model found")

// TrainerError はモデル選択の途中（分割、学習、評価、保存）で発生した想定外のエラーを包みます。
// 元のエラーと発生箇所（ファイル名・行番号）を保持します。
type TrainerError struct {
	Op   string
	File string
	Line int
	Err  error
}

func (e *TrainerError) Error() string {
	return fmt.Sprintf("regselect: %s failed at %s:%d: %v", e.Op, e.File, e.Line, e.Err)
}

func (e *TrainerError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *TrainerError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("file", e.File).
		Int("line", e.Line).
		AnErr("cause", e.Err).
		Str("type", "TrainerError")
}

// NewTrainerError は呼び出し元の位置を記録したTrainerErrorを作成します。
// err が既にTrainerErrorまたはNoBestModelErrorの場合は二重に包まずそのまま返します。
func NewTrainerError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TrainerError
	if errors.As(err, &te) {
		return err
	}
	var nb *NoBestModelError
	if errors.As(err, &nb) {
		return err
	}

	file, line := "unknown", 0
	if _, f, l, ok := runtime.Caller(1); ok {
		file, line = filepath.Base(f), l
	}
	return errors.WithStack(&TrainerError{Op: op, File: file, Line: line, Err: err})
}

// NoBestModelError は最良モデルのスコアが採用基準に届かなかったことを表します。
type NoBestModelError struct {
	BestName  string
	BestScore float64
	Floor     float64
}

func (e *NoBestModelError) Error() string {
	return fmt.Sprintf("regselect: %v: best candidate %q scored %.4f, below acceptance floor %.2f",
		ErrNoBestModel, e.BestName, e.BestScore, e.Floor)
}

// Unwrap により errors.Is(err, ErrNoBestModel) が成立する。
func (e *NoBestModelError) Unwrap() error {
	return ErrNoBestModel
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NoBestModelError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("best_model", e.BestName).
		Float64("best_score", e.BestScore).
		Float64("floor", e.Floor).
		Str("type", "NoBestModelError")
}

// NewNoBestModelError は新しいNoBestModelErrorを作成し、スタックトレースを付与します。
func NewNoBestModelError(bestName string, bestScore, floor float64) error {
	return errors.WithStack(&NoBestModelError{BestName: bestName, BestScore: bestScore, Floor: floor})
}
