package lightgbm

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/core/parallel"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
)

// parallelLeafThreshold is the leaf size above which split search fans out over features.
const parallelLeafThreshold = 4096

// Trainer implements histogram based, leaf-wise gradient boosting
type Trainer struct {
	params TrainingParams
	logger log.Logger

	// Data
	rows    [][]float64
	bins    [][]int // bins[feature][sample]
	mappers []binMapper
	labels  []int

	rng *rand.Rand
}

// TrainingParams contains all training hyperparameters
type TrainingParams struct {
	// Basic parameters
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	NumLeaves     int     `json:"num_leaves"`
	MaxDepth      int     `json:"max_depth"`
	MinDataInLeaf int     `json:"min_data_in_leaf"`

	// Regularization
	MinSumHessianInLeaf float64 `json:"min_sum_hessian_in_leaf"`
	Lambda              float64 `json:"lambda_l2"`
	Alpha               float64 `json:"lambda_l1"`
	MinGainToSplit      float64 `json:"min_gain_to_split"`

	// Sampling
	BaggingFraction float64 `json:"bagging_fraction"`
	BaggingFreq     int     `json:"bagging_freq"`
	FeatureFraction float64 `json:"feature_fraction"`

	// Histogram parameters
	MaxBin int `json:"max_bin"`

	// Objective; empty selects binary or multiclass from NumClass
	Objective ObjectiveType `json:"objective"`
	NumClass  int           `json:"num_class"`

	// Other
	Seed uint64 `json:"seed"`
}

// SplitInfo contains information about a potential split
type SplitInfo struct {
	Feature    int
	Bin        int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
	LeftGrad   float64
	RightGrad  float64
	LeftHess   float64
	RightHess  float64
	found      bool
}

// NewTrainer creates a new trainer, filling zero values with LightGBM defaults
func NewTrainer(params TrainingParams) *Trainer {
	if params.NumIterations == 0 {
		params.NumIterations = 100
	}
	if params.LearningRate == 0 {
		params.LearningRate = 0.1
	}
	if params.NumLeaves == 0 {
		params.NumLeaves = 31
	}
	if params.MaxBin == 0 {
		params.MaxBin = 255
	}
	if params.MinDataInLeaf == 0 {
		params.MinDataInLeaf = 20
	}
	if params.MinSumHessianInLeaf == 0 {
		params.MinSumHessianInLeaf = 1e-3
	}
	if params.BaggingFraction == 0 {
		params.BaggingFraction = 1.0
	}
	if params.FeatureFraction == 0 {
		params.FeatureFraction = 1.0
	}

	return &Trainer{
		params: params,
		logger: log.Nop(),
	}
}

// WithLogger sets the logger used for training progress
func (t *Trainer) WithLogger(logger log.Logger) *Trainer {
	t.logger = logger
	return t
}

func (p TrainingParams) validate() error {
	switch {
	case p.NumIterations < 1:
		return errors.NewValidationError("n_estimators", "must be at least 1", p.NumIterations)
	case p.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be positive", p.LearningRate)
	case p.NumLeaves < 2:
		return errors.NewValidationError("num_leaves", "must be at least 2", p.NumLeaves)
	case p.MinDataInLeaf < 1:
		return errors.NewValidationError("min_child_samples", "must be at least 1", p.MinDataInLeaf)
	case p.Lambda < 0 || p.Alpha < 0:
		return errors.NewValidationError("reg_lambda/reg_alpha", "must be non-negative", p.Lambda)
	case p.BaggingFraction <= 0 || p.BaggingFraction > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", p.BaggingFraction)
	case p.FeatureFraction <= 0 || p.FeatureFraction > 1:
		return errors.NewValidationError("colsample_bytree", "must be in (0, 1]", p.FeatureFraction)
	case p.MaxBin < 2 || p.MaxBin > 65535:
		return errors.NewValidationError("max_bin", "must be in [2, 65535]", p.MaxBin)
	}
	return nil
}

// Fit trains a model on X and integer class labels in [0, NumClass).
func (t *Trainer) Fit(X mat.Matrix, labels []int) (*Model, error) {
	if err := t.params.validate(); err != nil {
		return nil, err
	}
	n, nFeatures := X.Dims()
	if n == 0 || nFeatures == 0 {
		return nil, errors.NewModelError("Trainer.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(labels) != n {
		return nil, errors.NewDimensionError("Trainer.Fit", n, len(labels), 0)
	}

	objective, err := CreateObjectiveFunction(t.params.Objective, t.params.NumClass)
	if err != nil {
		return nil, err
	}

	t.labels = labels
	t.rng = rand.New(rand.NewPCG(t.params.Seed, t.params.Seed))
	t.prepareData(X)

	k := objective.NumOutputs()
	m := NewModel()
	m.Objective = objective.Name()
	m.NumClass = t.params.NumClass
	m.NumFeatures = nFeatures
	m.LearningRate = t.params.LearningRate
	m.InitScores = objective.InitScores(labels)

	scores := make([]float64, n*k)
	for i := 0; i < n; i++ {
		copy(scores[i*k:(i+1)*k], m.InitScores)
	}
	grad := make([]float64, n*k)
	hess := make([]float64, n*k)
	classGrad := make([]float64, n)
	classHess := make([]float64, n)

	var bag []int
	for iter := 0; iter < t.params.NumIterations; iter++ {
		objective.Gradients(labels, scores, grad, hess)
		bag = t.bagIndices(iter, n, bag)

		for c := 0; c < k; c++ {
			for i := 0; i < n; i++ {
				classGrad[i] = grad[i*k+c]
				classHess[i] = hess[i*k+c]
			}
			tree := t.buildTree(bag, t.sampleFeatures(nFeatures), classGrad, classHess)
			tree.TreeIndex = len(m.Trees)
			tree.ClassIndex = c
			tree.ShrinkageRate = t.params.LearningRate

			for i, row := range t.rows {
				scores[i*k+c] += tree.Predict(row)
			}
			m.Trees = append(m.Trees, tree)
		}
		m.NumIteration = iter + 1

		if t.logger.Enabled(context.Background(), log.LevelDebug) && iter%10 == 0 {
			loss := objective.Loss(labels, scores)
			if err := errors.CheckNumericalStability("boosting loss", []float64{loss}, iter); err != nil {
				return nil, err
			}
			t.logger.Debug("Training progress", log.IterationKey, iter, "loss", loss)
		}
	}
	return m, nil
}

func (t *Trainer) prepareData(X mat.Matrix) {
	n, nFeatures := X.Dims()
	t.rows = make([][]float64, n)
	for i := 0; i < n; i++ {
		t.rows[i] = mat.Row(nil, i, X)
	}

	t.mappers = make([]binMapper, nFeatures)
	t.bins = make([][]int, nFeatures)
	col := make([]float64, n)
	for j := 0; j < nFeatures; j++ {
		mat.Col(col, j, X)
		t.mappers[j] = newBinMapper(col, t.params.MaxBin)
		t.bins[j] = make([]int, n)
		for i, v := range col {
			t.bins[j][i] = t.mappers[j].bin(v)
		}
	}
}

// bagIndices returns the rows used for this iteration. A new bag is drawn
// every BaggingFreq iterations; without bagging every row is used.
func (t *Trainer) bagIndices(iter, n int, prev []int) []int {
	if t.params.BaggingFreq <= 0 || t.params.BaggingFraction >= 1 {
		if prev != nil {
			return prev
		}
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	if prev != nil && iter%t.params.BaggingFreq != 0 {
		return prev
	}
	size := max(1, int(math.Round(t.params.BaggingFraction*float64(n))))
	bag := t.rng.Perm(n)[:size]
	sort.Ints(bag)
	return bag
}

// sampleFeatures draws the feature subset for one tree.
func (t *Trainer) sampleFeatures(nFeatures int) []int {
	if t.params.FeatureFraction >= 1 {
		all := make([]int, nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	size := max(1, int(math.Round(t.params.FeatureFraction*float64(nFeatures))))
	features := t.rng.Perm(nFeatures)[:size]
	sort.Ints(features)
	return features
}

type leafState struct {
	nodeID  int
	indices []int
	depth   int
	sumGrad float64
	sumHess float64
	best    SplitInfo
}

// buildTree grows one tree leaf-wise: the leaf with the largest gain is
// split until NumLeaves is reached or no leaf has a valid split.
func (t *Trainer) buildTree(indices, features []int, grad, hess []float64) Tree {
	tree := Tree{Nodes: make([]Node, 0, 2*t.params.NumLeaves-1)}

	root := &leafState{indices: indices}
	for _, i := range indices {
		root.sumGrad += grad[i]
		root.sumHess += hess[i]
	}
	tree.Nodes = append(tree.Nodes, t.newLeafNode(0, -1, 0, root))
	root.best = t.findBestSplit(root, features, grad, hess)

	leaves := []*leafState{root}
	for len(leaves) < t.params.NumLeaves {
		bestIdx := -1
		for i, l := range leaves {
			if l.best.found && (bestIdx < 0 || l.best.Gain > leaves[bestIdx].best.Gain) {
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}

		parent := leaves[bestIdx]
		split := parent.best
		left, right := t.partition(parent.indices, split)

		leftState := &leafState{
			nodeID: len(tree.Nodes), indices: left, depth: parent.depth + 1,
			sumGrad: split.LeftGrad, sumHess: split.LeftHess,
		}
		rightState := &leafState{
			nodeID: len(tree.Nodes) + 1, indices: right, depth: parent.depth + 1,
			sumGrad: split.RightGrad, sumHess: split.RightHess,
		}

		node := &tree.Nodes[parent.nodeID]
		node.NodeType = NumericalNode
		node.SplitFeature = split.Feature
		node.Threshold = split.Threshold
		node.Gain = split.Gain
		node.LeftChild = leftState.nodeID
		node.RightChild = rightState.nodeID

		tree.Nodes = append(tree.Nodes,
			t.newLeafNode(leftState.nodeID, parent.nodeID, leftState.depth, leftState),
			t.newLeafNode(rightState.nodeID, parent.nodeID, rightState.depth, rightState),
		)
		leftState.best = t.findBestSplit(leftState, features, grad, hess)
		rightState.best = t.findBestSplit(rightState, features, grad, hess)

		leaves[bestIdx] = leftState
		leaves = append(leaves, rightState)
	}
	tree.NumLeaves = len(leaves)
	return tree
}

func (t *Trainer) newLeafNode(id, parent, depth int, l *leafState) Node {
	return Node{
		NodeID:     id,
		ParentID:   parent,
		LeftChild:  -1,
		RightChild: -1,
		NodeType:   LeafNode,
		Depth:      depth,
		LeafValue:  t.leafOutput(l.sumGrad, l.sumHess),
		LeafCount:  len(l.indices),
	}
}

func (t *Trainer) partition(indices []int, split SplitInfo) ([]int, []int) {
	left := make([]int, 0, split.LeftCount)
	right := make([]int, 0, split.RightCount)
	bins := t.bins[split.Feature]
	for _, i := range indices {
		if bins[i] <= split.Bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func (t *Trainer) findBestSplit(l *leafState, features []int, grad, hess []float64) SplitInfo {
	if t.params.MaxDepth > 0 && l.depth >= t.params.MaxDepth {
		return SplitInfo{}
	}
	if len(l.indices) < 2*t.params.MinDataInLeaf {
		return SplitInfo{}
	}

	results := make([]SplitInfo, len(features))
	work := func(start, end int) {
		for fi := start; fi < end; fi++ {
			results[fi] = t.findBestSplitForFeature(l, features[fi], grad, hess)
		}
	}
	if len(l.indices) >= parallelLeafThreshold {
		parallel.Parallelize(len(features), work)
	} else {
		work(0, len(features))
	}

	var best SplitInfo
	for _, s := range results {
		if s.found && (!best.found || s.Gain > best.Gain) {
			best = s
		}
	}
	return best
}

func (t *Trainer) findBestSplitForFeature(l *leafState, feature int, grad, hess []float64) SplitInfo {
	mapper := t.mappers[feature]
	nBins := len(mapper.upper)
	if nBins < 2 {
		return SplitInfo{}
	}

	histGrad := make([]float64, nBins)
	histHess := make([]float64, nBins)
	histCount := make([]int, nBins)
	bins := t.bins[feature]
	for _, i := range l.indices {
		b := bins[i]
		histGrad[b] += grad[i]
		histHess[b] += hess[i]
		histCount[b]++
	}

	best := SplitInfo{Gain: t.params.MinGainToSplit}
	var leftGrad, leftHess float64
	leftCount := 0
	for b := 0; b < nBins-1; b++ {
		leftGrad += histGrad[b]
		leftHess += histHess[b]
		leftCount += histCount[b]
		rightCount := len(l.indices) - leftCount
		if leftCount < t.params.MinDataInLeaf {
			continue
		}
		if rightCount < t.params.MinDataInLeaf {
			break
		}
		rightGrad := l.sumGrad - leftGrad
		rightHess := l.sumHess - leftHess
		if leftHess < t.params.MinSumHessianInLeaf || rightHess < t.params.MinSumHessianInLeaf {
			continue
		}

		gain := t.calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, l.sumGrad, l.sumHess)
		if gain > best.Gain {
			best = SplitInfo{
				Feature:    feature,
				Bin:        b,
				Threshold:  mapper.upper[b],
				Gain:       gain,
				LeftCount:  leftCount,
				RightCount: rightCount,
				LeftGrad:   leftGrad,
				RightGrad:  rightGrad,
				LeftHess:   leftHess,
				RightHess:  rightHess,
				found:      true,
			}
		}
	}
	return best
}

// calculateSplitGain is the reduction in regularized loss of a split:
// 0.5 * (GL²/(HL+λ) + GR²/(HR+λ) - G²/(H+λ)), with G soft-thresholded by λ1.
func (t *Trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	return 0.5 * (t.leafGain(leftGrad, leftHess) + t.leafGain(rightGrad, rightHess) - t.leafGain(totalGrad, totalHess))
}

func (t *Trainer) leafGain(sumGrad, sumHess float64) float64 {
	g := thresholdL1(sumGrad, t.params.Alpha)
	return g * g / (sumHess + t.params.Lambda)
}

// leafOutput is the Newton step -G/(H+λ) for a leaf.
func (t *Trainer) leafOutput(sumGrad, sumHess float64) float64 {
	return -thresholdL1(sumGrad, t.params.Alpha) / (sumHess + t.params.Lambda)
}

func thresholdL1(g, alpha float64) float64 {
	if alpha <= 0 {
		return g
	}
	reduced := math.Max(0, math.Abs(g)-alpha)
	if g < 0 {
		return -reduced
	}
	return reduced
}

// binMapper maps raw feature values to histogram bins. A value v falls in
// the first bin b with v <= upper[b]; the last bound is +Inf.
type binMapper struct {
	upper []float64
}

// newBinMapper uses one bin per distinct value when they fit in maxBin,
// and equal-frequency bins otherwise. Bounds sit halfway between
// neighboring distinct values.
func newBinMapper(values []float64, maxBin int) binMapper {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)
	if len(sorted) == 0 {
		return binMapper{upper: []float64{math.Inf(1)}}
	}

	unique := []float64{sorted[0]}
	for _, v := range sorted[1:] {
		if v != unique[len(unique)-1] {
			unique = append(unique, v)
		}
	}

	var upper []float64
	if len(unique) <= maxBin {
		upper = make([]float64, 0, len(unique))
		for i := 0; i < len(unique)-1; i++ {
			upper = append(upper, midpoint(unique[i], unique[i+1]))
		}
	} else {
		for b := 1; b < maxBin; b++ {
			v := sorted[b*len(sorted)/maxBin]
			next := sort.SearchFloat64s(unique, v)
			if next+1 >= len(unique) {
				break
			}
			bound := midpoint(unique[next], unique[next+1])
			if len(upper) == 0 || bound > upper[len(upper)-1] {
				upper = append(upper, bound)
			}
		}
	}
	upper = append(upper, math.Inf(1))
	return binMapper{upper: upper}
}

func (b binMapper) bin(v float64) int {
	if math.IsNaN(v) {
		return len(b.upper) - 1
	}
	return sort.SearchFloat64s(b.upper, v)
}

func midpoint(lo, hi float64) float64 {
	m := lo + (hi-lo)/2
	if m >= hi {
		return lo
	}
	return m
}
