// Package imblearn provides resampling for imbalanced classification data.
package imblearn

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/core/parallel"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// neighborParallelThreshold is the class size above which neighbor search runs on all cores.
const neighborParallelThreshold = 512

// Option configures SMOTE.
type Option func(*SMOTE)

// WithKNeighbors sets how many same-class neighbors are candidates for interpolation.
func WithKNeighbors(k int) Option {
	return func(s *SMOTE) { s.kNeighbors = k }
}

// WithRandomState seeds sample and gap selection.
func WithRandomState(seed uint64) Option {
	return func(s *SMOTE) { s.randomState = seed }
}

// SMOTE oversamples every minority class up to the majority count by
// interpolating between a sample and one of its nearest same-class neighbors.
//
// A class with fewer than kNeighbors+1 samples uses all other members as
// neighbors; a class with a single sample is replicated.
type SMOTE struct {
	kNeighbors  int
	randomState uint64
}

// NewSMOTE creates a SMOTE resampler with k=5 and seed 0.
func NewSMOTE(opts ...Option) *SMOTE {
	s := &SMOTE{kNeighbors: 5}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FitResample returns X and y with synthetic rows appended after the
// original ones, grouped by ascending class label. y must be n_samples × 1.
func (s *SMOTE) FitResample(X, y mat.Matrix) (*mat.Dense, *mat.Dense, error) {
	if s.kNeighbors < 1 {
		return nil, nil, errors.NewValidationError("k_neighbors", "must be at least 1", s.kNeighbors)
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, nil, errors.NewModelError("SMOTE.FitResample", "empty data", errors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return nil, nil, errors.NewDimensionError("SMOTE.FitResample", rows, yRows, 0)
	}

	members := make(map[float64][]int)
	for i := 0; i < rows; i++ {
		label := y.At(i, 0)
		members[label] = append(members[label], i)
	}
	labels := make([]float64, 0, len(members))
	target := 0
	for l, idx := range members {
		labels = append(labels, l)
		target = max(target, len(idx))
	}
	sort.Float64s(labels)

	total := target * len(labels)
	outX := mat.NewDense(total, cols, nil)
	outY := mat.NewDense(total, 1, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			outX.Set(i, j, X.At(i, j))
		}
		outY.Set(i, 0, y.At(i, 0))
	}

	rng := rand.New(rand.NewPCG(s.randomState, s.randomState))
	next := rows
	for _, l := range labels {
		idx := members[l]
		need := target - len(idx)
		if need == 0 {
			continue
		}
		samples := classRows(X, idx)
		neighbors := nearestNeighbors(samples, min(s.kNeighbors, len(samples)-1))

		diff := make([]float64, cols)
		for n := 0; n < need; n++ {
			i := rng.IntN(len(samples))
			row := outX.RawRowView(next)
			copy(row, samples[i])
			if nn := neighbors[i]; len(nn) > 0 {
				j := nn[rng.IntN(len(nn))]
				gap := rng.Float64()
				floats.SubTo(diff, samples[j], samples[i])
				floats.AddScaled(row, gap, diff)
			}
			outY.Set(next, 0, l)
			next++
		}
	}
	return outX, outY, nil
}

func classRows(X mat.Matrix, idx []int) [][]float64 {
	_, cols := X.Dims()
	out := make([][]float64, len(idx))
	for k, i := range idx {
		out[k] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[k][j] = X.At(i, j)
		}
	}
	return out
}

// nearestNeighbors returns, for each sample, the positions of its k closest
// other samples by Euclidean distance; ties keep the lower position.
func nearestNeighbors(samples [][]float64, k int) [][]int {
	out := make([][]int, len(samples))
	if k <= 0 {
		return out
	}
	parallel.ParallelizeWithThreshold(len(samples), neighborParallelThreshold, func(start, end int) {
		type candidate struct {
			pos  int
			dist float64
		}
		cands := make([]candidate, 0, len(samples)-1)
		for i := start; i < end; i++ {
			cands = cands[:0]
			for j := range samples {
				if j != i {
					cands = append(cands, candidate{pos: j, dist: floats.Distance(samples[i], samples[j], 2)})
				}
			}
			sort.SliceStable(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
			nn := make([]int, k)
			for m := 0; m < k; m++ {
				nn[m] = cands[m].pos
			}
			out[i] = nn
		}
	})
	return out
}

// ClassCounts returns the number of rows per label of y, keyed by the label
// rendered as text.
func ClassCounts(y mat.Matrix) map[string]int {
	rows, _ := y.Dims()
	counts := make(map[string]int)
	for i := 0; i < rows; i++ {
		counts[fmt.Sprint(y.At(i, 0))]++
	}
	return counts
}
