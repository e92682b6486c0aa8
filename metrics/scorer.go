package metrics

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// Scorer evaluates predictions. proba holds per-class probabilities in
// column order of the sorted class labels and may be nil for scorers that
// do not need it.
type Scorer func(yTrue, yPred *mat.VecDense, proba mat.Matrix) (float64, error)

var scorers = map[string]Scorer{
	"accuracy": func(yTrue, yPred *mat.VecDense, _ mat.Matrix) (float64, error) {
		return Accuracy(yTrue, yPred)
	},
	"precision": func(yTrue, yPred *mat.VecDense, _ mat.Matrix) (float64, error) {
		return Precision(yTrue, yPred, AverageBinary)
	},
	"recall": func(yTrue, yPred *mat.VecDense, _ mat.Matrix) (float64, error) {
		return Recall(yTrue, yPred, AverageBinary)
	},
	"f1": func(yTrue, yPred *mat.VecDense, _ mat.Matrix) (float64, error) {
		return F1Score(yTrue, yPred, AverageBinary)
	},
	"precision_macro": func(yTrue, yPred *mat.VecDense, _ mat.Matrix) (float64, error) {
		return Precision(yTrue, yPred, AverageMacro)
	},
	"recall_macro": func(yTrue, yPred *mat.VecDense, _ mat.Matrix) (float64, error) {
		return Recall(yTrue, yPred, AverageMacro)
	},
	"f1_macro": func(yTrue, yPred *mat.VecDense, _ mat.Matrix) (float64, error) {
		return F1Score(yTrue, yPred, AverageMacro)
	},
	"roc_auc": func(yTrue, _ *mat.VecDense, proba mat.Matrix) (float64, error) {
		if proba == nil {
			return 0, errors.NewValueError("roc_auc", "probabilities are required")
		}
		r, c := proba.Dims()
		if c != 2 {
			return 0, errors.NewValueError("roc_auc", "only binary probabilities are supported")
		}
		pos := mat.NewVecDense(r, nil)
		for i := 0; i < r; i++ {
			pos.SetVec(i, proba.At(i, 1))
		}
		return AUC(yTrue, pos)
	},
}

// GetScorer returns the scorer registered under a scikit-learn scoring name.
func GetScorer(name string) (Scorer, error) {
	s, ok := scorers[name]
	if !ok {
		return nil, errors.NewValidationError("scoring", "unknown scorer, expected one of "+joinNames(), name)
	}
	return s, nil
}

// NeedsProba reports whether the named scorer reads probabilities.
func NeedsProba(name string) bool {
	return name == "roc_auc"
}

func joinNames() string {
	names := make([]string, 0, len(scorers))
	for n := range scorers {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
