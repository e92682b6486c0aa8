// Package preprocessing はカテゴリ変数のエンコードと歪度補正の変換器を提供します。
package preprocessing

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/atul219/Hotel-Reservation/core/model"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// LabelEncoder はscikit-learn互換のラベルエンコーダー。
// カテゴリを昇順に並べ、0..K-1 の整数コードへ対応付ける。
// すべての値が数値として解釈できる場合は数値順、それ以外は文字列順。
type LabelEncoder struct {
	state *model.StateManager

	// Classes はソート済みのカテゴリ値。Classes[i] のコードは i
	Classes []string

	index map[string]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
//
// 使用例:
//
//	enc := preprocessing.NewLabelEncoder()
//	codes, err := enc.FitTransform([]string{"Room_Type 1", "Room_Type 4"})
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{state: model.NewStateManager()}
}

// Fit は出現したカテゴリ値を学習する。複数のスライスを渡すと和集合で学習する
func (e *LabelEncoder) Fit(values ...[]string) error {
	seen := make(map[string]struct{})
	for _, vs := range values {
		for _, v := range vs {
			seen[v] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	e.Classes = make([]string, 0, len(seen))
	for v := range seen {
		e.Classes = append(e.Classes, v)
	}
	sortClasses(e.Classes)

	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.index[c] = i
	}
	e.state.SetFitted()
	e.state.SetDimensions(1, len(e.Classes))
	return nil
}

// Transform はカテゴリ値をコードへ変換する。未学習の値はValueErrorになる
func (e *LabelEncoder) Transform(values []string) ([]float64, error) {
	if err := e.state.RequireFitted("LabelEncoder", "Transform"); err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		code, ok := e.index[v]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform",
				fmt.Sprintf("y contains previously unseen label %q", v))
		}
		out[i] = float64(code)
	}
	return out, nil
}

// FitTransform はFitとTransformを同時に実行する
func (e *LabelEncoder) FitTransform(values []string) ([]float64, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// InverseTransform はコードを元のカテゴリ値へ戻す
func (e *LabelEncoder) InverseTransform(codes []float64) ([]string, error) {
	if err := e.state.RequireFitted("LabelEncoder", "InverseTransform"); err != nil {
		return nil, err
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		idx := int(c)
		if float64(idx) != c || idx < 0 || idx >= len(e.Classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform",
				fmt.Sprintf("code %v is out of range [0, %d)", c, len(e.Classes)))
		}
		out[i] = e.Classes[idx]
	}
	return out, nil
}

// Mapping はカテゴリ値からコードへの対応表を返す
func (e *LabelEncoder) Mapping() map[string]int {
	out := make(map[string]int, len(e.index))
	for k, v := range e.index {
		out[k] = v
	}
	return out
}

// IsFitted は学習済みかどうかを返す
func (e *LabelEncoder) IsFitted() bool {
	return e.state.IsFitted()
}

// sortClasses は全要素が数値なら数値順、そうでなければ文字列順に並べる
func sortClasses(classes []string) {
	nums := make(map[string]float64, len(classes))
	for _, c := range classes {
		f, err := strconv.ParseFloat(c, 64)
		if err != nil {
			sort.Strings(classes)
			return
		}
		nums[c] = f
	}
	sort.Slice(classes, func(i, j int) bool {
		a, b := nums[classes[i]], nums[classes[j]]
		if a != b {
			return a < b
		}
		return classes[i] < classes[j]
	})
}
