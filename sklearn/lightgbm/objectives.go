package lightgbm

import (
	"math"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// minHessian keeps leaf denominators positive when predictions saturate.
const minHessian = 1e-16

// ObjectiveFunction computes first and second order gradients of a loss.
// Scores, gradients and hessians are flat row-major n_samples × NumOutputs.
type ObjectiveFunction interface {
	// NumOutputs is the number of raw scores per sample
	NumOutputs() int

	// InitScores returns the baseline raw score of each output
	InitScores(labels []int) []float64

	// Gradients fills grad and hess for the current scores
	Gradients(labels []int, scores, grad, hess []float64)

	// Loss returns the mean loss of the current scores
	Loss(labels []int, scores []float64) float64

	// Name returns the name of the objective
	Name() ObjectiveType
}

// CreateObjectiveFunction returns the objective for a class count.
// objective may be empty to choose from numClass.
func CreateObjectiveFunction(objective ObjectiveType, numClass int) (ObjectiveFunction, error) {
	if numClass < 2 {
		return nil, errors.NewModelError("CreateObjectiveFunction", "single class", errors.ErrSingleClass)
	}
	if objective == "" {
		objective = BinaryLogistic
		if numClass > 2 {
			objective = MulticlassSoftmax
		}
	}
	switch objective {
	case BinaryLogistic:
		if numClass != 2 {
			return nil, errors.NewValidationError("objective", "binary objective needs exactly 2 classes", numClass)
		}
		return &BinaryLoglossObjective{}, nil
	case MulticlassSoftmax:
		return NewMulticlassSoftmax(numClass), nil
	default:
		return nil, errors.NewValidationError("objective", "must be 'binary' or 'multiclass'", objective)
	}
}

// BinaryLoglossObjective implements binary cross entropy on a logit.
type BinaryLoglossObjective struct{}

func (o *BinaryLoglossObjective) NumOutputs() int { return 1 }

func (o *BinaryLoglossObjective) Name() ObjectiveType { return BinaryLogistic }

// InitScores boosts from the log odds of the positive class.
func (o *BinaryLoglossObjective) InitScores(labels []int) []float64 {
	pos := 0.0
	for _, l := range labels {
		pos += float64(l)
	}
	p := errors.ClipValue(pos/float64(len(labels)), 1e-15, 1-1e-15)
	return []float64{math.Log(p / (1 - p))}
}

func (o *BinaryLoglossObjective) Gradients(labels []int, scores, grad, hess []float64) {
	for i, l := range labels {
		p := sigmoid(scores[i])
		grad[i] = p - float64(l)
		hess[i] = math.Max(p*(1-p), minHessian)
	}
}

func (o *BinaryLoglossObjective) Loss(labels []int, scores []float64) float64 {
	total := 0.0
	for i, l := range labels {
		p := sigmoid(scores[i])
		if l == 1 {
			total -= errors.StabilizeLog(p)
		} else {
			total -= errors.StabilizeLog(1 - p)
		}
	}
	return total / float64(len(labels))
}

// MulticlassSoftmaxObjective implements cross entropy over softmax outputs.
type MulticlassSoftmaxObjective struct {
	NumClass int
	// factor rescales the diagonal hessian the way LightGBM does: K / (K - 1)
	factor float64
}

// NewMulticlassSoftmax creates a softmax objective for numClass classes.
func NewMulticlassSoftmax(numClass int) *MulticlassSoftmaxObjective {
	return &MulticlassSoftmaxObjective{
		NumClass: numClass,
		factor:   float64(numClass) / float64(numClass-1),
	}
}

func (o *MulticlassSoftmaxObjective) NumOutputs() int { return o.NumClass }

func (o *MulticlassSoftmaxObjective) Name() ObjectiveType { return MulticlassSoftmax }

// InitScores starts every class at its log prior.
func (o *MulticlassSoftmaxObjective) InitScores(labels []int) []float64 {
	counts := make([]float64, o.NumClass)
	for _, l := range labels {
		counts[l]++
	}
	out := make([]float64, o.NumClass)
	for k, c := range counts {
		out[k] = errors.StabilizeLog(c / float64(len(labels)))
	}
	return out
}

func (o *MulticlassSoftmaxObjective) Gradients(labels []int, scores, grad, hess []float64) {
	k := o.NumClass
	for i, l := range labels {
		p := softmax(scores[i*k : (i+1)*k])
		for c := 0; c < k; c++ {
			target := 0.0
			if c == l {
				target = 1
			}
			grad[i*k+c] = p[c] - target
			hess[i*k+c] = math.Max(o.factor*p[c]*(1-p[c]), minHessian)
		}
	}
}

func (o *MulticlassSoftmaxObjective) Loss(labels []int, scores []float64) float64 {
	k := o.NumClass
	total := 0.0
	for i, l := range labels {
		row := scores[i*k : (i+1)*k]
		total += errors.LogSumExp(row) - row[l]
	}
	return total / float64(len(labels))
}
