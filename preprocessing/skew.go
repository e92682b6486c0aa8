package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/atul219/Hotel-Reservation/core/model"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// SkewTransformer は歪度が閾値を超える列に log(1+x) を適用する変換器。
//
// 列の選択はFit時に一度だけ行われ、Transformは選ばれた列にのみ適用される。
// そのため訓練データでFitし、テストデータには同じ列集合で変換できる。
// 歪度はバイアス補正済みの標本歪度 (pandas の Series.skew と同じ G1)。
// 値が3未満の列や分散0の列の歪度はNaNとなり、選択されない。
type SkewTransformer struct {
	state *model.StateManager

	// Threshold はこの値より大きい歪度の列を選ぶ
	Threshold float64

	// Skewness はFit時に計算した各列の歪度
	Skewness []float64

	// Columns は変換対象に選ばれた列インデックス (昇順)
	Columns []int
}

// NewSkewTransformer は新しいSkewTransformerを作成する
//
// 使用例:
//
//	sk := preprocessing.NewSkewTransformer(5)
//	XT, err := sk.FitTransform(X)
func NewSkewTransformer(threshold float64) *SkewTransformer {
	return &SkewTransformer{
		state:     model.NewStateManager(),
		Threshold: threshold,
	}
}

// Fit は各列の歪度を計算し、変換対象の列を決める
func (s *SkewTransformer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SkewTransformer.Fit", "empty data", errors.ErrEmptyData)
	}

	s.Skewness = make([]float64, c)
	s.Columns = s.Columns[:0]
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		if r < 3 {
			s.Skewness[j] = math.NaN()
			continue
		}
		mat.Col(col, j, X)
		s.Skewness[j] = stat.Skew(col, nil)
		if s.Skewness[j] > s.Threshold {
			s.Columns = append(s.Columns, j)
		}
	}

	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

// Transform は選ばれた列に log(1+x) を適用した新しい行列を返す。
// 対象列に -1 以下の値がある場合はValidationErrorを返す
func (s *SkewTransformer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("SkewTransformer", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := s.state.CheckFeatures("SkewTransformer.Transform", c); err != nil {
		return nil, err
	}

	out := mat.DenseCopyOf(X)
	for _, j := range s.Columns {
		for i := 0; i < r; i++ {
			v := out.At(i, j)
			if v <= -1 {
				return nil, errors.NewValidationError(
					fmt.Sprintf("column[%d]", j),
					"log1p requires values greater than -1",
					v,
				)
			}
			out.Set(i, j, math.Log1p(v))
		}
	}
	return out, nil
}

// FitTransform はFitとTransformを同時に実行する
func (s *SkewTransformer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// IsFitted は学習済みかどうかを返す
func (s *SkewTransformer) IsFitted() bool {
	return s.state.IsFitted()
}

var _ model.Transformer = (*SkewTransformer)(nil)
