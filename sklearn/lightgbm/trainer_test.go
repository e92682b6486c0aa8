package lightgbm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
)

func thresholdData(n int) (*mat.Dense, []int) {
	X := mat.NewDense(n, 2, nil)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%7))
		if i >= n/2 {
			labels[i] = 1
		}
	}
	return X, labels
}

func TestTrainerBinary(t *testing.T) {
	X, labels := thresholdData(100)

	m, err := NewTrainer(TrainingParams{
		NumIterations: 20,
		NumClass:      2,
		MinDataInLeaf: 5,
	}).Fit(X, labels)
	require.NoError(t, err)

	assert.Equal(t, BinaryLogistic, m.Objective)
	assert.Equal(t, 20, m.NumIteration)
	assert.Len(t, m.Trees, 20)
	assert.Equal(t, 2, m.NumFeatures)

	proba, err := m.PredictProba(X)
	require.NoError(t, err)
	for i, l := range labels {
		assert.Equal(t, l == 1, proba.At(i, 1) > 0.5, "row %d", i)
	}

	// the first split is on the informative feature
	root := m.Trees[0].Nodes[0]
	assert.Equal(t, 0, root.SplitFeature)
	assert.InDelta(t, 49.5, root.Threshold, 1e-12)
}

func TestTrainerMulticlass(t *testing.T) {
	X := mat.NewDense(90, 1, nil)
	labels := make([]int, 90)
	for i := 0; i < 90; i++ {
		X.Set(i, 0, float64(i))
		labels[i] = i / 30
	}

	m, err := NewTrainer(TrainingParams{
		NumIterations: 10,
		NumClass:      3,
		MinDataInLeaf: 5,
	}).Fit(X, labels)
	require.NoError(t, err)

	assert.Equal(t, MulticlassSoftmax, m.Objective)
	assert.Len(t, m.Trees, 30)
	for i, tree := range m.Trees {
		assert.Equal(t, i%3, tree.ClassIndex)
	}

	proba, err := m.PredictProba(mat.NewDense(3, 1, []float64{5, 45, 85}))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0, mat.Sum(proba.RowView(i)), 1e-12)
		assert.Greater(t, proba.At(i, i), 0.5)
	}
}

func TestTrainerRespectsTreeLimits(t *testing.T) {
	X, labels := thresholdData(200)

	m, err := NewTrainer(TrainingParams{
		NumIterations: 5,
		NumLeaves:     4,
		MaxDepth:      2,
		MinDataInLeaf: 3,
		NumClass:      2,
	}).Fit(X, labels)
	require.NoError(t, err)

	for _, tree := range m.Trees {
		assert.LessOrEqual(t, tree.NumLeaves, 4)
		assert.LessOrEqual(t, tree.Depth(), 2)
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				assert.GreaterOrEqual(t, node.LeafCount, 3)
			}
		}
	}
}

func TestTrainerSamplingIsDeterministic(t *testing.T) {
	X, labels := thresholdData(120)
	params := TrainingParams{
		NumIterations:   8,
		NumClass:        2,
		MinDataInLeaf:   5,
		BaggingFraction: 0.7,
		BaggingFreq:     2,
		FeatureFraction: 0.5,
		Seed:            42,
	}

	m1, err := NewTrainer(params).Fit(X, labels)
	require.NoError(t, err)
	m2, err := NewTrainer(params).Fit(X, labels)
	require.NoError(t, err)

	r1, err := m1.PredictRaw(X)
	require.NoError(t, err)
	r2, err := m2.PredictRaw(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(r1, r2))
}

func TestTrainerValidation(t *testing.T) {
	X, labels := thresholdData(10)

	tests := []struct {
		name   string
		params TrainingParams
	}{
		{"negative iterations", TrainingParams{NumIterations: -1, NumClass: 2}},
		{"one leaf", TrainingParams{NumLeaves: 1, NumClass: 2}},
		{"subsample above one", TrainingParams{BaggingFraction: 1.5, NumClass: 2}},
		{"negative lambda", TrainingParams{Lambda: -1, NumClass: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *errors.ValidationError
			_, err := NewTrainer(tt.params).Fit(X, labels)
			assert.ErrorAs(t, err, &ve)
		})
	}

	var de *errors.DimensionError
	_, err := NewTrainer(TrainingParams{NumClass: 2}).Fit(X, labels[:5])
	assert.ErrorAs(t, err, &de)
}

func TestTrainerLogsProgress(t *testing.T) {
	X, labels := thresholdData(60)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	_, err := NewTrainer(TrainingParams{NumIterations: 11, NumClass: 2, MinDataInLeaf: 5}).
		WithLogger(logger).
		Fit(X, labels)
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("Training progress"))
	assert.True(t, logger.ContainsField(log.IterationKey, 10.0))
}

func TestBinMapper(t *testing.T) {
	m := newBinMapper([]float64{3, 1, 2, 2, math.NaN()}, 255)
	assert.Equal(t, []float64{1.5, 2.5, math.Inf(1)}, m.upper)
	assert.Equal(t, 0, m.bin(1))
	assert.Equal(t, 1, m.bin(2))
	assert.Equal(t, 2, m.bin(3))
	assert.Equal(t, 2, m.bin(math.NaN()))

	values := make([]float64, 1000)
	for i := range values {
		values[i] = float64(i)
	}
	q := newBinMapper(values, 10)
	assert.LessOrEqual(t, len(q.upper), 10)
	assert.True(t, math.IsInf(q.upper[len(q.upper)-1], 1))
}
