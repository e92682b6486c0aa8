package lightgbm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// NodeType represents the type of a tree node
type NodeType int

const (
	// LeafNode represents a terminal node with a value
	LeafNode NodeType = iota
	// NumericalNode represents a node with numerical split
	NumericalNode
)

// Node represents a single node in a decision tree.
// Fields are exported so that the model can be gob encoded.
type Node struct {
	NodeID     int      // Index of the node inside Tree.Nodes
	ParentID   int      // Parent node ID (-1 for root)
	LeftChild  int      // Left child node ID (-1 if leaf)
	RightChild int      // Right child node ID (-1 if leaf)
	NodeType   NodeType // Type of the node
	Depth      int      // Depth of the node, root is 0

	// Split information (for non-leaf nodes)
	SplitFeature int     // Feature index used for splitting
	Threshold    float64 // Samples with value <= Threshold go left
	Gain         float64 // Split gain (reduction in loss)

	// Leaf information (for leaf nodes)
	LeafValue float64 // Raw leaf output before shrinkage
	LeafCount int     // Number of training samples at the node
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree represents a single decision tree in the ensemble
type Tree struct {
	TreeIndex     int     // Index of the tree in ensemble
	ClassIndex    int     // Output column this tree contributes to
	NumLeaves     int     // Number of leaf nodes
	ShrinkageRate float64 // Learning rate applied to this tree

	Nodes []Node // All nodes in the tree; Nodes[0] is the root
}

// Predict makes a prediction for a single sample using this tree.
// NaN features follow the right branch.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0.0
}

// Depth returns the depth of the deepest leaf.
func (t *Tree) Depth() int {
	d := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() && t.Nodes[i].Depth > d {
			d = t.Nodes[i].Depth
		}
	}
	return d
}

// ObjectiveType represents the objective function type
type ObjectiveType string

const (
	// BinaryLogistic is log loss on a single raw score.
	BinaryLogistic ObjectiveType = "binary"
	// MulticlassSoftmax is cross entropy over one raw score per class.
	MulticlassSoftmax ObjectiveType = "multiclass"
)

// BoostingType represents the boosting algorithm type
type BoostingType string

// GBDT is plain gradient boosting; it is the only supported boosting type.
const GBDT BoostingType = "gbdt"

// Model represents a complete boosted ensemble
type Model struct {
	Objective    ObjectiveType // Objective function
	BoostingType BoostingType  // Boosting algorithm
	NumClass     int           // Number of classes
	NumIteration int           // Number of boosting iterations
	LearningRate float64       // Base learning rate

	// Trees, NumIteration × TreesPerIteration in iteration order
	Trees []Tree

	NumFeatures int       // Number of features
	InitScores  []float64 // Baseline raw score per output column
}

// NewModel creates a new empty model
func NewModel() *Model {
	return &Model{
		Trees:        make([]Tree, 0),
		BoostingType: GBDT,
		LearningRate: 0.1,
	}
}

// TreesPerIteration is 1 for binary models and NumClass for multiclass ones.
func (m *Model) TreesPerIteration() int {
	if m.Objective == MulticlassSoftmax {
		return m.NumClass
	}
	return 1
}

// RawScore returns the untransformed ensemble output for one sample.
func (m *Model) RawScore(features []float64) []float64 {
	scores := make([]float64, m.TreesPerIteration())
	copy(scores, m.InitScores)
	for i := range m.Trees {
		tree := &m.Trees[i]
		scores[tree.ClassIndex] += tree.Predict(features)
	}
	return scores
}

// PredictRaw returns raw scores (n_samples × TreesPerIteration).
func (m *Model) PredictRaw(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.PredictRaw", m.NumFeatures, cols, 1)
	}
	out := mat.NewDense(rows, m.TreesPerIteration(), nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		out.SetRow(i, m.RawScore(features))
	}
	return out, nil
}

// PredictProba returns class probabilities (n_samples × NumClass).
func (m *Model) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	raw, err := m.PredictRaw(X)
	if err != nil {
		return nil, err
	}
	rows, _ := raw.Dims()
	out := mat.NewDense(rows, m.NumClass, nil)
	for i := 0; i < rows; i++ {
		switch m.Objective {
		case MulticlassSoftmax:
			out.SetRow(i, softmax(raw.RawRowView(i)))
		default:
			p := sigmoid(raw.At(i, 0))
			out.Set(i, 0, 1-p)
			out.Set(i, 1, p)
		}
	}
	return out, nil
}

// GetFeatureImportance returns per-feature importance normalized to sum to 1.
// importanceType is "split" (number of splits) or "gain" (total split gain).
func (m *Model) GetFeatureImportance(importanceType string) []float64 {
	importance := make([]float64, m.NumFeatures)
	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			switch importanceType {
			case "split":
				importance[node.SplitFeature]++
			default:
				importance[node.SplitFeature] += node.Gain
			}
		}
	}

	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}
	return importance
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func softmax(x []float64) []float64 {
	maxVal := x[0]
	for _, v := range x[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	expSum := 0.0
	result := make([]float64, len(x))
	for i, v := range x {
		result[i] = math.Exp(v - maxVal)
		expSum += result[i]
	}
	for i := range result {
		result[i] /= expSum
	}
	return result
}
