// Package ensemble implements bagged tree ensembles.
package ensemble

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/core/model"
	"github.com/atul219/Hotel-Reservation/core/parallel"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/sklearn/tree"
)

// predictParallelThreshold is the row count above which prediction is split across cores.
const predictParallelThreshold = 2048

// Option configures a RandomForestClassifier.
type Option func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

// WithMaxDepth limits every tree's depth. Values below 1 mean unlimited.
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithMaxFeatures sets the per-split feature budget: "sqrt", "log2" or "all".
func WithMaxFeatures(mode string) Option {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = mode }
}

// WithBootstrap toggles sampling rows with replacement for each tree.
func WithBootstrap(b bool) Option {
	return func(rf *RandomForestClassifier) { rf.bootstrap = b }
}

// WithRandomState seeds tree construction.
func WithRandomState(seed uint64) Option {
	return func(rf *RandomForestClassifier) { rf.randomState = seed }
}

// WithNJobs bounds the number of trees fitted concurrently. Values below 1 use all cores.
func WithNJobs(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nJobs = n }
}

// RandomForestClassifier averages the class probabilities of decision
// trees fitted on bootstrap samples.
type RandomForestClassifier struct {
	state *model.StateManager

	nEstimators    int
	maxDepth       int
	minSamplesLeaf int
	maxFeatures    string
	bootstrap      bool
	randomState    uint64
	nJobs          int

	estimators          []*tree.DecisionTreeClassifier
	classes_            []float64
	featureImportances_ []float64
}

// NewRandomForestClassifier creates an unfitted forest with scikit-learn defaults.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:          model.NewStateManager(),
		nEstimators:    100,
		maxDepth:       -1,
		minSamplesLeaf: 1,
		maxFeatures:    "sqrt",
		bootstrap:      true,
		nJobs:          -1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

func (rf *RandomForestClassifier) featureBudget(nFeatures int) (int, error) {
	switch rf.maxFeatures {
	case "sqrt":
		return max(1, int(math.Sqrt(float64(nFeatures)))), nil
	case "log2":
		return max(1, int(math.Log2(float64(nFeatures)))), nil
	case "all", "":
		return nFeatures, nil
	default:
		return 0, errors.NewValidationError("max_features", "must be 'sqrt', 'log2' or 'all'", rf.maxFeatures)
	}
}

// Fit is FitContext with a background context.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext fits the trees concurrently. Per-tree seeds are drawn up front
// so the fitted forest does not depend on scheduling.
func (rf *RandomForestClassifier) FitContext(ctx context.Context, X, y mat.Matrix) error {
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", rf.nEstimators)
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("RandomForestClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("RandomForestClassifier.Fit", rows, yRows, 0)
	}
	budget, err := rf.featureBudget(cols)
	if err != nil {
		return err
	}

	rf.classes_ = uniqueLabels(y)
	master := rand.New(rand.NewPCG(rf.randomState, rf.randomState))
	seeds := make([]uint64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	estimators := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	err = parallel.ForEach(ctx, rf.nEstimators, rf.nJobs, func(_ context.Context, i int) error {
		dt := tree.NewDecisionTreeClassifier(
			tree.WithMaxDepth(rf.maxDepth),
			tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
			tree.WithMaxFeatures(budget),
			tree.WithRandomState(seeds[i]),
		)
		sampleX, sampleY := X, y
		if rf.bootstrap {
			rng := rand.New(rand.NewPCG(seeds[i], ^seeds[i]))
			idx := make([]int, rows)
			for k := range idx {
				idx[k] = rng.IntN(rows)
			}
			sampleX, sampleY = rowView{m: X, rows: idx}, rowView{m: y, rows: idx}
		}
		if err := dt.Fit(sampleX, sampleY); err != nil {
			return errors.Wrapf(err, "fitting tree %d", i)
		}
		estimators[i] = dt
		return nil
	})
	if err != nil {
		return err
	}
	rf.estimators = estimators
	rf.featureImportances_ = rf.aggregateImportances(cols)

	rf.state.SetDimensions(cols, rows)
	rf.state.SetFitted()
	return nil
}

// aggregateImportances averages the importances of trees that split at
// least once and renormalizes the result.
func (rf *RandomForestClassifier) aggregateImportances(nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	used := 0
	for _, dt := range rf.estimators {
		if dt.GetNLeaves() <= 1 {
			continue
		}
		for j, v := range dt.GetFeatureImportances() {
			out[j] += v
		}
		used++
	}
	if used == 0 {
		return out
	}
	total := 0.0
	for j := range out {
		out[j] /= float64(used)
		total += out[j]
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

// PredictProba averages tree probabilities (n_samples × n_classes).
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := rf.state.CheckFeatures("RandomForestClassifier.PredictProba", cols); err != nil {
		return nil, err
	}

	classIndex := make(map[int]int, len(rf.classes_))
	for k, c := range rf.classes_ {
		classIndex[int(c)] = k
	}

	out := mat.NewDense(rows, len(rf.classes_), nil)
	var (
		mu       sync.Mutex
		firstErr error
	)
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, func(start, end int) {
		idx := make([]int, end-start)
		for i := range idx {
			idx[i] = start + i
		}
		view := rowView{m: X, rows: idx}
		for _, dt := range rf.estimators {
			proba, err := dt.PredictProba(view)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			treeClasses := dt.Classes()
			for i := range idx {
				for k, c := range treeClasses {
					col := classIndex[c]
					out.Set(start+i, col, out.At(start+i, col)+proba.At(i, k))
				}
			}
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}
	out.Scale(1/float64(len(rf.estimators)), out)
	return out, nil
}

// Predict returns the class with the highest averaged probability.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, nClasses := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for k := 1; k < nClasses; k++ {
			if proba.At(i, k) > proba.At(i, best) {
				best = k
			}
		}
		out.Set(i, 0, rf.classes_[best])
	}
	return out, nil
}

// Classes returns the sorted class labels seen during Fit.
func (rf *RandomForestClassifier) Classes() []int {
	out := make([]int, len(rf.classes_))
	for i, c := range rf.classes_ {
		out[i] = int(c)
	}
	return out
}

// FeatureImportances returns the mean decrease in impurity per feature, summing to 1.
func (rf *RandomForestClassifier) FeatureImportances() ([]float64, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "FeatureImportances"); err != nil {
		return nil, err
	}
	out := make([]float64, len(rf.featureImportances_))
	copy(out, rf.featureImportances_)
	return out, nil
}

// GetParams returns the hyperparameters.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     rf.nEstimators,
		"max_depth":        rf.maxDepth,
		"min_samples_leaf": rf.minSamplesLeaf,
		"max_features":     rf.maxFeatures,
		"bootstrap":        rf.bootstrap,
		"random_state":     rf.randomState,
		"n_jobs":           rf.nJobs,
	}
}

// String is used in log lines.
func (rf *RandomForestClassifier) String() string {
	return fmt.Sprintf("RandomForestClassifier(n_estimators=%d, max_features=%s, random_state=%d)",
		rf.nEstimators, rf.maxFeatures, rf.randomState)
}

// rowView exposes selected rows of m without copying them.
type rowView struct {
	m    mat.Matrix
	rows []int
}

func (v rowView) Dims() (int, int) {
	_, c := v.m.Dims()
	return len(v.rows), c
}

func (v rowView) At(i, j int) float64 { return v.m.At(v.rows[i], j) }

func (v rowView) T() mat.Matrix { return mat.Transpose{Matrix: v} }

func uniqueLabels(y mat.Matrix) []float64 {
	rows, _ := y.Dims()
	seen := make(map[float64]struct{})
	for i := 0; i < rows; i++ {
		seen[y.At(i, 0)] = struct{}{}
	}
	labels := make([]float64, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	return labels
}

var (
	_ model.Classifier         = (*RandomForestClassifier)(nil)
	_ model.FeatureImportancer = (*RandomForestClassifier)(nil)
)
