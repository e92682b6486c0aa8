package lightgbm

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/core/model"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
)

// LGBMClassifier is a gradient boosted tree classifier with the
// hyperparameter names of lightgbm.LGBMClassifier.
type LGBMClassifier struct {
	state  *model.StateManager
	logger log.Logger

	// Hyperparameters
	NEstimators     int
	LearningRate    float64
	NumLeaves       int
	MaxDepth        int
	MinChildSamples int
	MinChildWeight  float64
	MinSplitGain    float64
	Subsample       float64
	SubsampleFreq   int
	ColsampleByTree float64
	RegAlpha        float64
	RegLambda       float64
	MaxBin          int
	RandomState     int
	Objective       string

	// Fitted state
	Model     *Model
	classes_  []int
	nClasses_ int
}

// Option configures an LGBMClassifier.
type Option func(*LGBMClassifier)

// WithNEstimators sets the number of boosting iterations.
func WithNEstimators(n int) Option {
	return func(c *LGBMClassifier) { c.NEstimators = n }
}

// WithLearningRate sets the shrinkage applied to every tree.
func WithLearningRate(lr float64) Option {
	return func(c *LGBMClassifier) { c.LearningRate = lr }
}

// WithNumLeaves sets the maximum number of leaves per tree.
func WithNumLeaves(n int) Option {
	return func(c *LGBMClassifier) { c.NumLeaves = n }
}

// WithMaxDepth limits tree depth. Values below 1 mean unlimited.
func WithMaxDepth(depth int) Option {
	return func(c *LGBMClassifier) { c.MaxDepth = depth }
}

// WithMinChildSamples sets the minimum number of samples in a leaf.
func WithMinChildSamples(n int) Option {
	return func(c *LGBMClassifier) { c.MinChildSamples = n }
}

// WithRandomState seeds bagging and feature sampling.
func WithRandomState(seed int) Option {
	return func(c *LGBMClassifier) { c.RandomState = seed }
}

// WithLogger sets the logger used for training progress.
func WithLogger(logger log.Logger) Option {
	return func(c *LGBMClassifier) { c.logger = logger }
}

// NewLGBMClassifier creates a classifier with LightGBM's defaults.
//
// Example:
//
//	clf := lightgbm.NewLGBMClassifier(lightgbm.WithNEstimators(200), lightgbm.WithRandomState(42))
//	err := clf.Fit(X, y)
//	proba, err := clf.PredictProba(XTest)
func NewLGBMClassifier(opts ...Option) *LGBMClassifier {
	c := &LGBMClassifier{
		state:           model.NewStateManager(),
		logger:          log.Nop(),
		NEstimators:     100,
		LearningRate:    0.1,
		NumLeaves:       31,
		MaxDepth:        -1,
		MinChildSamples: 20,
		MinChildWeight:  1e-3,
		Subsample:       1.0,
		ColsampleByTree: 1.0,
		MaxBin:          255,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LGBMClassifier) trainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:       c.NEstimators,
		LearningRate:        c.LearningRate,
		NumLeaves:           c.NumLeaves,
		MaxDepth:            c.MaxDepth,
		MinDataInLeaf:       c.MinChildSamples,
		MinSumHessianInLeaf: c.MinChildWeight,
		Lambda:              c.RegLambda,
		Alpha:               c.RegAlpha,
		MinGainToSplit:      c.MinSplitGain,
		BaggingFraction:     c.Subsample,
		BaggingFreq:         c.SubsampleFreq,
		FeatureFraction:     c.ColsampleByTree,
		MaxBin:              c.MaxBin,
		Objective:           ObjectiveType(c.Objective),
		NumClass:            c.nClasses_,
		Seed:                uint64(c.RandomState),
	}
}

// Fit trains the classifier. y is n_samples × 1 with integer class labels.
func (c *LGBMClassifier) Fit(X, y mat.Matrix) error {
	rows, _ := X.Dims()
	yRows, _ := y.Dims()
	if yRows != rows {
		return errors.NewDimensionError("LGBMClassifier.Fit", rows, yRows, 0)
	}

	classIndex := make(map[int]int)
	raw := make([]int, rows)
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != math.Trunc(v) {
			return errors.NewValueError("LGBMClassifier.Fit", fmt.Sprintf("class labels must be integers, got %v", v))
		}
		raw[i] = int(v)
		classIndex[raw[i]] = 0
	}
	c.classes_ = make([]int, 0, len(classIndex))
	for label := range classIndex {
		c.classes_ = append(c.classes_, label)
	}
	sort.Ints(c.classes_)
	for i, label := range c.classes_ {
		classIndex[label] = i
	}
	c.nClasses_ = len(c.classes_)

	labels := make([]int, rows)
	for i, v := range raw {
		labels[i] = classIndex[v]
	}

	logger := c.logger
	if logger == nil {
		logger = log.Nop()
	}
	m, err := NewTrainer(c.trainingParams()).WithLogger(logger).Fit(X, labels)
	if err != nil {
		c.state.Reset()
		return err
	}
	c.Model = m

	_, cols := X.Dims()
	c.state.SetDimensions(cols, rows)
	c.state.SetFitted()
	return nil
}

func (c *LGBMClassifier) checkPredict(op string, X mat.Matrix) error {
	if err := c.state.RequireFitted("LGBMClassifier", op); err != nil {
		return err
	}
	_, cols := X.Dims()
	return c.state.CheckFeatures("LGBMClassifier."+op, cols)
}

// DecisionFunction returns raw scores: one column for binary models,
// one per class for multiclass ones.
func (c *LGBMClassifier) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := c.checkPredict("DecisionFunction", X); err != nil {
		return nil, err
	}
	return c.Model.PredictRaw(X)
}

// PredictProba returns class probabilities (n_samples × n_classes) in the order of Classes.
func (c *LGBMClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := c.checkPredict("PredictProba", X); err != nil {
		return nil, err
	}
	return c.Model.PredictProba(X)
}

// Predict returns the most probable class label per row (n_samples × 1).
func (c *LGBMClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, k := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, float64(c.classes_[best]))
	}
	return out, nil
}

// Score returns the mean accuracy on X and y.
func (c *LGBMClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := pred.Dims()
	correct := 0
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows), nil
}

// Classes returns the sorted class labels seen during Fit.
func (c *LGBMClassifier) Classes() []int {
	out := make([]int, len(c.classes_))
	copy(out, c.classes_)
	return out
}

// GetFeatureImportance returns normalized "split" or "gain" importances, nil when unfitted.
func (c *LGBMClassifier) GetFeatureImportance(importanceType string) []float64 {
	if c.Model == nil {
		return nil
	}
	return c.Model.GetFeatureImportance(importanceType)
}

// FeatureImportances returns gain importances normalized to sum to 1.
func (c *LGBMClassifier) FeatureImportances() ([]float64, error) {
	if err := c.state.RequireFitted("LGBMClassifier", "FeatureImportances"); err != nil {
		return nil, err
	}
	return c.Model.GetFeatureImportance("gain"), nil
}

// GetParams returns the hyperparameters keyed by their LightGBM sklearn names.
func (c *LGBMClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"boosting_type":     string(GBDT),
		"n_estimators":      c.NEstimators,
		"learning_rate":     c.LearningRate,
		"num_leaves":        c.NumLeaves,
		"max_depth":         c.MaxDepth,
		"min_child_samples": c.MinChildSamples,
		"min_child_weight":  c.MinChildWeight,
		"min_split_gain":    c.MinSplitGain,
		"subsample":         c.Subsample,
		"subsample_freq":    c.SubsampleFreq,
		"colsample_bytree":  c.ColsampleByTree,
		"reg_alpha":         c.RegAlpha,
		"reg_lambda":        c.RegLambda,
		"max_bin":           c.MaxBin,
		"random_state":      c.RandomState,
		"objective":         c.Objective,
	}
}

// SetParams updates hyperparameters by name. Integer parameters accept any
// integral number so that values decoded from YAML or JSON can be passed through.
func (c *LGBMClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			c.NEstimators, err = toInt(key, value)
		case "learning_rate":
			c.LearningRate, err = toFloat(key, value)
		case "num_leaves":
			c.NumLeaves, err = toInt(key, value)
		case "max_depth":
			c.MaxDepth, err = toInt(key, value)
		case "min_child_samples", "min_data_in_leaf":
			c.MinChildSamples, err = toInt(key, value)
		case "min_child_weight":
			c.MinChildWeight, err = toFloat(key, value)
		case "min_split_gain":
			c.MinSplitGain, err = toFloat(key, value)
		case "subsample", "bagging_fraction":
			c.Subsample, err = toFloat(key, value)
		case "subsample_freq", "bagging_freq":
			c.SubsampleFreq, err = toInt(key, value)
		case "colsample_bytree", "feature_fraction":
			c.ColsampleByTree, err = toFloat(key, value)
		case "reg_alpha", "lambda_l1":
			c.RegAlpha, err = toFloat(key, value)
		case "reg_lambda", "lambda_l2":
			c.RegLambda, err = toFloat(key, value)
		case "max_bin":
			c.MaxBin, err = toInt(key, value)
		case "random_state", "seed":
			c.RandomState, err = toInt(key, value)
		case "objective":
			s, ok := value.(string)
			if !ok {
				err = errors.NewValidationError(key, fmt.Sprintf("unexpected type %T", value), value)
			}
			c.Objective = s
		case "boosting_type":
			if value != string(GBDT) {
				err = errors.NewValidationError(key, "only 'gbdt' is supported", value)
			}
		default:
			err = errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted classifier with the same hyperparameters.
func (c *LGBMClassifier) Clone() model.Classifier {
	clone := *c
	clone.state = model.NewStateManager()
	clone.Model = nil
	clone.classes_ = nil
	clone.nClasses_ = 0
	return &clone
}

// gobClassifier is the persisted form of LGBMClassifier.
type gobClassifier struct {
	Params    map[string]interface{}
	Model     *Model
	Classes   []int
	NFeatures int
	NSamples  int
}

// GobEncode stores hyperparameters, trees and class labels.
func (c *LGBMClassifier) GobEncode() ([]byte, error) {
	nFeatures, nSamples := c.state.GetDimensions()
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(gobClassifier{
		Params:    c.GetParams(),
		Model:     c.Model,
		Classes:   c.classes_,
		NFeatures: nFeatures,
		NSamples:  nSamples,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode LGBMClassifier")
	}
	return buf.Bytes(), nil
}

// GobDecode restores a classifier written by GobEncode.
func (c *LGBMClassifier) GobDecode(data []byte) error {
	var g gobClassifier
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return errors.Wrap(err, "failed to decode LGBMClassifier")
	}
	*c = *NewLGBMClassifier()
	if err := c.SetParams(g.Params); err != nil {
		return err
	}
	c.Model = g.Model
	c.classes_ = g.Classes
	c.nClasses_ = len(g.Classes)
	if c.Model != nil {
		c.state.SetDimensions(g.NFeatures, g.NSamples)
		c.state.SetFitted()
	}
	return nil
}

func toInt(key string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	}
	return 0, errors.NewValidationError(key, fmt.Sprintf("expected an integer, got %T", value), value)
}

func toFloat(key string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, errors.NewValidationError(key, fmt.Sprintf("expected a number, got %T", value), value)
}

var (
	_ model.SearchableClassifier = (*LGBMClassifier)(nil)
	_ model.FeatureImportancer   = (*LGBMClassifier)(nil)
)
