// Package model_selection provides data splitting, cross-validation
// splitters and randomized hyperparameter search.
package model_selection

import (
	"math"
	"math/rand/v2"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// TrainTestSplit shuffles the row indices [0, nSamples) with a seeded
// generator and returns round(nSamples·trainRatio) of them as the train
// partition and the rest as the test partition. Both partitions are
// non-empty and disjoint.
func TrainTestSplit(nSamples int, trainRatio float64, seed uint64) (train, test []int, err error) {
	if !(trainRatio > 0 && trainRatio < 1) {
		return nil, nil, errors.NewValidationError("train_ratio", "must be in (0, 1)", trainRatio)
	}
	if nSamples == 0 {
		return nil, nil, errors.NewModelError("TrainTestSplit", "empty data", errors.ErrEmptyData)
	}
	nTrain := int(math.Round(float64(nSamples) * trainRatio))
	if nTrain == 0 || nTrain == nSamples {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"with the given train_ratio one of the resulting partitions would be empty")
	}

	r := rand.New(rand.NewPCG(seed, seed))
	perm := r.Perm(nSamples)
	return perm[:nTrain], perm[nTrain:], nil
}
