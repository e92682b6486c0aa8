// Package metrics implements classification scores with scikit-learn semantics.
package metrics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// Average selects how per-class scores are combined.
type Average string

const (
	// AverageBinary reports the score of the positive class (label 1) only.
	AverageBinary Average = "binary"
	// AverageMacro is the unweighted mean over every label in yTrue or yPred.
	AverageMacro Average = "macro"
)

// PositiveLabel is the label treated as positive for binary averaging.
const PositiveLabel = 1.0

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "input vectors must not be nil")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// Accuracy returns the fraction of exact matches.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError returns 1 - Accuracy.
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// confusion holds one-vs-rest counts for a single label.
type confusion struct {
	tp, fp, fn int
}

func countFor(label float64, yTrue, yPred *mat.VecDense) confusion {
	var c confusion
	for i := 0; i < yTrue.Len(); i++ {
		t, p := yTrue.AtVec(i) == label, yPred.AtVec(i) == label
		switch {
		case t && p:
			c.tp++
		case p:
			c.fp++
		case t:
			c.fn++
		}
	}
	return c
}

// labelsOf returns the sorted union of labels in both vectors.
func labelsOf(yTrue, yPred *mat.VecDense) []float64 {
	seen := make(map[float64]struct{})
	for i := 0; i < yTrue.Len(); i++ {
		seen[yTrue.AtVec(i)] = struct{}{}
		seen[yPred.AtVec(i)] = struct{}{}
	}
	labels := make([]float64, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	return labels
}

func checkBinary(op string, labels []float64) error {
	for _, l := range labels {
		if l != 0 && l != PositiveLabel {
			return errors.NewValueError(op,
				fmt.Sprintf("target is multiclass (label %v) but average='binary'", l))
		}
	}
	return nil
}

func precisionOf(c confusion) (float64, bool) {
	if c.tp+c.fp == 0 {
		return 0, false
	}
	return float64(c.tp) / float64(c.tp+c.fp), true
}

func recallOf(c confusion) (float64, bool) {
	if c.tp+c.fn == 0 {
		return 0, false
	}
	return float64(c.tp) / float64(c.tp+c.fn), true
}

func f1Of(c confusion) (float64, bool) {
	denom := 2*c.tp + c.fp + c.fn
	if denom == 0 {
		return 0, false
	}
	return float64(2*c.tp) / float64(denom), true
}

// averaged applies score to each label selected by average. Undefined
// per-label scores count as 0 and emit one UndefinedMetricWarning.
func averaged(op string, yTrue, yPred *mat.VecDense, average Average,
	score func(confusion) (float64, bool), condition string) (float64, error) {
	if _, err := checkPair(op, yTrue, yPred); err != nil {
		return 0, err
	}
	labels := labelsOf(yTrue, yPred)

	switch average {
	case AverageBinary, "":
		if err := checkBinary(op, labels); err != nil {
			return 0, err
		}
		labels = []float64{PositiveLabel}
	case AverageMacro:
	default:
		return 0, errors.NewValidationError("average", "must be 'binary' or 'macro'", average)
	}

	total := 0.0
	undefined := false
	for _, l := range labels {
		v, ok := score(countFor(l, yTrue, yPred))
		if !ok {
			undefined = true
		}
		total += v
	}
	result := total / float64(len(labels))
	if undefined {
		errors.Warn(errors.NewUndefinedMetricWarning(op, condition, 0))
	}
	return result, nil
}

// Precision returns tp / (tp + fp).
// When no sample is predicted as a label the score for it is 0.
func Precision(yTrue, yPred *mat.VecDense, average Average) (float64, error) {
	return averaged("precision", yTrue, yPred, average, precisionOf, "no predicted samples")
}

// Recall returns tp / (tp + fn).
func Recall(yTrue, yPred *mat.VecDense, average Average) (float64, error) {
	return averaged("recall", yTrue, yPred, average, recallOf, "no true samples")
}

// F1Score returns the harmonic mean of precision and recall.
func F1Score(yTrue, yPred *mat.VecDense, average Average) (float64, error) {
	return averaged("f1", yTrue, yPred, average, f1Of, "no true nor predicted samples")
}

// AUC computes the area under the ROC curve for binary labels from scores
// of the positive class, using average ranks for tied scores.
// A single-class yTrue makes the area undefined; 0.5 is returned with a warning.
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}

	nPos := 0
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			nPos++
		case 0:
		default:
			return 0, errors.NewValueError("AUC", fmt.Sprintf("labels must be 0 or 1, got %v", yTrue.AtVec(i)))
		}
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return yScore.AtVec(order[a]) < yScore.AtVec(order[b])
	})

	rankSumPos := 0.0
	for i := 0; i < n; {
		j := i
		for j+1 < n && yScore.AtVec(order[j+1]) == yScore.AtVec(order[i]) {
			j++
		}
		rank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue.AtVec(order[k]) == 1 {
				rankSumPos += rank
			}
		}
		i = j + 1
	}

	u := rankSumPos - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}

// AUCMatrix is AUC for column matrices; only the first column is used.
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	if yTrue == nil || yScore == nil {
		return 0, errors.NewValueError("AUCMatrix", "input matrices must not be nil")
	}
	rt, ct := yTrue.Dims()
	rs, cs := yScore.Dims()
	if rt == 0 || ct == 0 || rs == 0 || cs == 0 {
		return 0, errors.NewModelError("AUCMatrix", "empty data", errors.ErrEmptyData)
	}
	return AUC(firstColumn(yTrue), firstColumn(yScore))
}

func firstColumn(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
