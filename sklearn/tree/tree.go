// Package tree implements a CART decision tree classifier compatible with
// scikit-learn's DecisionTreeClassifier.
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/core/model"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

const impurityEpsilon = 1e-12

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the split quality measure: "gini" or "entropy".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) { dt.criterion = criterion }
}

// WithMaxDepth limits the depth of the tree. Values below 1 mean unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

// WithMinImpurityDecrease sets the minimum weighted impurity decrease for a split.
func WithMinImpurityDecrease(v float64) Option {
	return func(dt *DecisionTreeClassifier) { dt.minImpurityDecrease = v }
}

// WithMaxFeatures sets how many non-constant features are examined at each
// split. Values below 1 mean all features.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxFeatures = n }
}

// WithRandomState seeds the feature permutation drawn at every split.
func WithRandomState(seed uint64) Option {
	return func(dt *DecisionTreeClassifier) { dt.randomState = seed }
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	proba     []float64
	nSamples  int
	impurity  float64
}

func (n *node) isLeaf() bool { return n.left == nil }

// DecisionTreeClassifier is a binary-split CART classifier.
type DecisionTreeClassifier struct {
	state *model.StateManager

	criterion           string
	maxDepth            int
	minSamplesSplit     int
	minSamplesLeaf      int
	minImpurityDecrease float64
	maxFeatures         int
	randomState         uint64

	root                *node
	classes_            []float64
	nClasses_           int
	featureImportances_ []float64
}

// NewDecisionTreeClassifier creates an unfitted tree with scikit-learn defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

func (dt *DecisionTreeClassifier) impurity(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	switch dt.criterion {
	case "entropy":
		h := 0.0
		for _, c := range counts {
			if c > 0 {
				p := c / total
				h -= p * math.Log2(p)
			}
		}
		return h
	default:
		g := 1.0
		for _, c := range counts {
			p := c / total
			g -= p * p
		}
		return g
	}
}

func (dt *DecisionTreeClassifier) validate() error {
	if dt.criterion != "gini" && dt.criterion != "entropy" {
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	return nil
}

// Fit builds the tree from X (n_samples × n_features) and y (n_samples × 1).
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	if err := dt.validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, _ := y.Dims()
	if yRows != rows {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", rows, yRows, 0)
	}

	dt.classes_ = uniqueLabels(y)
	dt.nClasses_ = len(dt.classes_)
	classIndex := make(map[float64]int, dt.nClasses_)
	for i, c := range dt.classes_ {
		classIndex[c] = i
	}

	b := &builder{
		dt:          dt,
		columns:     make([][]float64, cols),
		y:           make([]int, rows),
		nClasses:    dt.nClasses_,
		nTotal:      float64(rows),
		importances: make([]float64, cols),
		rng:         rand.New(rand.NewPCG(dt.randomState, dt.randomState)),
	}
	for j := 0; j < cols; j++ {
		b.columns[j] = mat.Col(nil, j, X)
	}
	for i := 0; i < rows; i++ {
		b.y[i] = classIndex[y.At(i, 0)]
	}

	idx := make([]int, rows)
	for i := range idx {
		idx[i] = i
	}
	dt.root = b.build(idx, 0)

	total := 0.0
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for j := range b.importances {
			b.importances[j] /= total
		}
	}
	dt.featureImportances_ = b.importances

	dt.state.SetDimensions(cols, rows)
	dt.state.SetFitted()
	return nil
}

type builder struct {
	dt          *DecisionTreeClassifier
	columns     [][]float64
	y           []int
	nClasses    int
	nTotal      float64
	importances []float64
	rng         *rand.Rand
}

type split struct {
	feature     int
	threshold   float64
	improvement float64
	found       bool
}

func (b *builder) countClasses(idx []int) []float64 {
	counts := make([]float64, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

func (b *builder) build(idx []int, depth int) *node {
	dt := b.dt
	counts := b.countClasses(idx)
	n := float64(len(idx))
	nd := &node{
		nSamples: len(idx),
		impurity: dt.impurity(counts, n),
		proba:    make([]float64, b.nClasses),
	}
	for k, c := range counts {
		nd.proba[k] = c / n
	}

	if (dt.maxDepth > 0 && depth >= dt.maxDepth) ||
		len(idx) < dt.minSamplesSplit ||
		len(idx) < 2*dt.minSamplesLeaf ||
		nd.impurity <= impurityEpsilon {
		return nd
	}

	best := b.bestSplit(idx, counts, nd.impurity)
	if !best.found || best.improvement+impurityEpsilon < dt.minImpurityDecrease {
		return nd
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	col := b.columns[best.feature]
	for _, i := range idx {
		if col[i] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	nd.feature = best.feature
	nd.threshold = best.threshold
	b.importances[best.feature] += n / b.nTotal * best.improvement
	nd.left = b.build(left, depth+1)
	nd.right = b.build(right, depth+1)
	return nd
}

// bestSplit scans features in random order and stops once maxFeatures
// non-constant features have been examined.
func (b *builder) bestSplit(idx []int, counts []float64, parentImpurity float64) split {
	dt := b.dt
	nFeatures := len(b.columns)
	limit := dt.maxFeatures
	if limit < 1 || limit > nFeatures {
		limit = nFeatures
	}

	order := make([]int, nFeatures)
	for i := range order {
		order[i] = i
	}
	if limit < nFeatures {
		b.rng.Shuffle(nFeatures, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	n := float64(len(idx))
	sorted := make([]int, len(idx))
	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)

	best := split{improvement: math.Inf(-1)}
	visited := 0
	for _, f := range order {
		if visited >= limit {
			break
		}
		col := b.columns[f]
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return col[sorted[a]] < col[sorted[c]] })
		if col[sorted[0]] == col[sorted[len(sorted)-1]] {
			continue
		}
		visited++

		for k := range leftCounts {
			leftCounts[k] = 0
			rightCounts[k] = counts[k]
		}
		for i := 0; i < len(sorted)-1; i++ {
			cls := b.y[sorted[i]]
			leftCounts[cls]++
			rightCounts[cls]--

			lo, hi := col[sorted[i]], col[sorted[i+1]]
			if lo == hi {
				continue
			}
			nl := i + 1
			nr := len(sorted) - nl
			if nl < dt.minSamplesLeaf || nr < dt.minSamplesLeaf {
				continue
			}

			fl, fr := float64(nl), float64(nr)
			improvement := parentImpurity -
				fl/n*dt.impurity(leftCounts, fl) -
				fr/n*dt.impurity(rightCounts, fr)
			if improvement > best.improvement {
				threshold := lo + (hi-lo)/2
				if threshold == hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, improvement: improvement, found: true}
			}
		}
	}
	return best
}

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

func (dt *DecisionTreeClassifier) checkPredict(op string, X mat.Matrix) error {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", op); err != nil {
		return err
	}
	_, cols := X.Dims()
	return dt.state.CheckFeatures("DecisionTreeClassifier."+op, cols)
}

func (dt *DecisionTreeClassifier) leafFor(X mat.Matrix, i int) *node {
	nd := dt.root
	for !nd.isLeaf() {
		if X.At(i, nd.feature) <= nd.threshold {
			nd = nd.left
		} else {
			nd = nd.right
		}
	}
	return nd
}

// PredictProba returns class probabilities (n_samples × n_classes) in the
// order of Classes.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict("PredictProba", X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	out := mat.NewDense(rows, dt.nClasses_, nil)
	for i := 0; i < rows; i++ {
		out.SetRow(i, dt.leafFor(X, i).proba)
	}
	return out, nil
}

// Predict returns the most probable class label for each row (n_samples × 1).
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict("Predict", X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		proba := dt.leafFor(X, i).proba
		bestK := 0
		for k := 1; k < len(proba); k++ {
			if proba[k] > proba[bestK] {
				bestK = k
			}
		}
		out.Set(i, 0, dt.classes_[bestK])
	}
	return out, nil
}

// Score returns the mean accuracy on X and y, or 0 when prediction fails.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	rows, _ := X.Dims()
	correct := 0
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows)
}

// Classes returns the sorted class labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []int {
	out := make([]int, len(dt.classes_))
	for i, c := range dt.classes_ {
		out[i] = int(c)
	}
	return out
}

// FeatureImportances returns the normalized total impurity decrease per feature.
func (dt *DecisionTreeClassifier) FeatureImportances() ([]float64, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "FeatureImportances"); err != nil {
		return nil, err
	}
	out := make([]float64, len(dt.featureImportances_))
	copy(out, dt.featureImportances_)
	return out, nil
}

// GetFeatureImportances is FeatureImportances without the error, nil when unfitted.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	imp, _ := dt.FeatureImportances()
	return imp
}

// GetDepth returns the depth of the fitted tree; a single leaf has depth 0.
func (dt *DecisionTreeClassifier) GetDepth() int {
	var depth func(*node) int
	depth = func(n *node) int {
		if n == nil || n.isLeaf() {
			return 0
		}
		return 1 + max(depth(n.left), depth(n.right))
	}
	return depth(dt.root)
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	var count func(*node) int
	count = func(n *node) int {
		if n == nil {
			return 0
		}
		if n.isLeaf() {
			return 1
		}
		return count(n.left) + count(n.right)
	}
	return count(dt.root)
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             dt.criterion,
		"max_depth":             dt.maxDepth,
		"min_samples_split":     dt.minSamplesSplit,
		"min_samples_leaf":      dt.minSamplesLeaf,
		"min_impurity_decrease": dt.minImpurityDecrease,
		"max_features":          dt.maxFeatures,
		"random_state":          dt.randomState,
	}
}

// SetParams updates hyperparameters by name.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "criterion":
			dt.criterion, ok = value.(string)
		case "max_depth":
			dt.maxDepth, ok = value.(int)
		case "min_samples_split":
			dt.minSamplesSplit, ok = value.(int)
		case "min_samples_leaf":
			dt.minSamplesLeaf, ok = value.(int)
		case "min_impurity_decrease":
			dt.minImpurityDecrease, ok = value.(float64)
		case "max_features":
			dt.maxFeatures, ok = value.(int)
		case "random_state":
			dt.randomState, ok = value.(uint64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, fmt.Sprintf("unexpected type %T", value), value)
		}
	}
	return dt.validate()
}

var (
	_ model.Classifier         = (*DecisionTreeClassifier)(nil)
	_ model.FeatureImportancer = (*DecisionTreeClassifier)(nil)
)
