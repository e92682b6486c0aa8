package training

import (
	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/core/model"
	"github.com/atul219/Hotel-Reservation/metrics"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
)

// Metric names returned by Evaluate.
const (
	MetricAccuracy  = "accuracy"
	MetricPrecision = "precision"
	MetricRecall    = "recall"
	MetricF1        = "f1"
	MetricROCAUC    = "roc_auc"
)

// Evaluate scores clf on the held out data. Precision, recall and F1 are
// computed for the positive label 1 when the model knows exactly the
// classes 0 and 1, and macro averaged otherwise. Binary models also get
// ROC AUC.
func (t *ModelTrainer) Evaluate(clf model.Classifier, X, y mat.Matrix) (map[string]float64, error) {
	pred, err := clf.Predict(X)
	if err != nil {
		return nil, errors.NewTrainingError("evaluate", err)
	}
	yTrue, yPred := column(y), column(pred)

	binary := isBinary(clf.Classes())
	average := metrics.AverageMacro
	if binary {
		average = metrics.AverageBinary
	}

	out := make(map[string]float64, 5)
	if out[MetricAccuracy], err = metrics.Accuracy(yTrue, yPred); err != nil {
		return nil, errors.NewTrainingError("evaluate", err)
	}
	if out[MetricPrecision], err = metrics.Precision(yTrue, yPred, average); err != nil {
		return nil, errors.NewTrainingError("evaluate", err)
	}
	if out[MetricRecall], err = metrics.Recall(yTrue, yPred, average); err != nil {
		return nil, errors.NewTrainingError("evaluate", err)
	}
	if out[MetricF1], err = metrics.F1Score(yTrue, yPred, average); err != nil {
		return nil, errors.NewTrainingError("evaluate", err)
	}

	if binary {
		proba, err := clf.PredictProba(X)
		if err != nil {
			return nil, errors.NewTrainingError("evaluate", err)
		}
		rows, _ := proba.Dims()
		pos := mat.NewVecDense(rows, nil)
		for i := 0; i < rows; i++ {
			pos.SetVec(i, proba.At(i, 1))
		}
		if out[MetricROCAUC], err = metrics.AUC(yTrue, pos); err != nil {
			return nil, errors.NewTrainingError("evaluate", err)
		}
	}

	t.logger.Info("Model evaluated",
		log.AccuracyKey, out[MetricAccuracy],
		"metrics.precision", out[MetricPrecision],
		"metrics.recall", out[MetricRecall],
		"metrics.f1", out[MetricF1],
	)
	return out, nil
}

func isBinary(classes []int) bool {
	return len(classes) == 2 && classes[0] == 0 && classes[1] == 1
}

func column(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
