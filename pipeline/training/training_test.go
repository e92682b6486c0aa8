package training

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/core/model"
	"github.com/atul219/Hotel-Reservation/dataframe"
	"github.com/atul219/Hotel-Reservation/pipeline/config"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
	"github.com/atul219/Hotel-Reservation/sklearn/lightgbm"
	"github.com/atul219/Hotel-Reservation/tracking"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ArtifactsDir = t.TempDir()
	cfg.Tracking.TrackingDir = filepath.Join(cfg.ArtifactsDir, "mlruns")
	cfg.ModelTraining.NIter = 2
	cfg.ModelTraining.NJobs = 2
	cfg.ModelTraining.ParamDistributions = map[string]config.ParamDistribution{
		"n_estimators":      {Type: "randint", Low: 5, High: 10},
		"learning_rate":     {Type: "uniform", Loc: 0.1, Scale: 0.1},
		"min_child_samples": {Type: "choice", Values: []interface{}{2}},
	}
	return cfg
}

// separable returns n rows where lead_time alone decides booking_status.
func separable(n int) *dataframe.DataFrame {
	lead := make([]float64, n)
	price := make([]float64, n)
	label := make([]float64, n)
	for i := 0; i < n; i++ {
		label[i] = float64(i % 2)
		lead[i] = label[i]*10 + float64(i%5)*0.1
		price[i] = float64(i % 7)
	}
	df, err := dataframe.New(
		dataframe.NewFloatSeries("lead_time", lead),
		dataframe.NewFloatSeries("avg_price_per_room", price),
		dataframe.NewFloatSeries("booking_status", label),
	)
	if err != nil {
		panic(err)
	}
	return df
}

func writeProcessed(t *testing.T, cfg *config.Config, train, test *dataframe.DataFrame) {
	t.Helper()
	require.NoError(t, train.WriteCSVFile(cfg.Paths().ProcessedTrain))
	require.NoError(t, test.WriteCSVFile(cfg.Paths().ProcessedTest))
}

func TestLoadAndSplit(t *testing.T) {
	cfg := testConfig(t)
	writeProcessed(t, cfg, separable(40), separable(10))

	ds, err := New(cfg, nil, nil).LoadAndSplit()
	require.NoError(t, err)
	assert.Equal(t, []string{"lead_time", "avg_price_per_room"}, ds.Features)

	r, c := ds.XTrain.Dims()
	assert.Equal(t, []int{40, 2}, []int{r, c})
	r, c = ds.YTrain.Dims()
	assert.Equal(t, []int{40, 1}, []int{r, c})
	r, c = ds.XTest.Dims()
	assert.Equal(t, []int{10, 2}, []int{r, c})
	assert.Equal(t, 1.0, ds.YTest.At(1, 0))
}

func TestLoadAndSplitErrors(t *testing.T) {
	t.Run("missing files", func(t *testing.T) {
		_, err := New(testConfig(t), nil, nil).LoadAndSplit()
		var te *errors.TrainingError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "load", te.Step)
	})

	t.Run("test lacks a train column", func(t *testing.T) {
		cfg := testConfig(t)
		writeProcessed(t, cfg, separable(10), separable(4).DropIfExists("avg_price_per_room"))
		_, err := New(cfg, nil, nil).LoadAndSplit()
		var te *errors.TrainingError
		require.ErrorAs(t, err, &te)
		assert.ErrorIs(t, err, errors.ErrColumnNotFound)
	})

	t.Run("no label", func(t *testing.T) {
		cfg := testConfig(t)
		df := separable(10).DropIfExists("booking_status")
		writeProcessed(t, cfg, df, df)
		_, err := New(cfg, nil, nil).LoadAndSplit()
		assert.ErrorIs(t, err, errors.ErrColumnNotFound)
	})
}

func TestTrain(t *testing.T) {
	cfg := testConfig(t)
	X, err := separable(40).ToMatrix("lead_time", "avg_price_per_room")
	require.NoError(t, err)
	y, err := separable(40).ToMatrix("booking_status")
	require.NoError(t, err)

	logger, _ := log.NewTestLogger(log.LevelInfo)
	best, search, err := New(cfg, nil, logger).Train(context.Background(), X, y)
	require.NoError(t, err)

	assert.Len(t, search.CVResults, 2)
	assert.GreaterOrEqual(t, best.NEstimators, 5)
	assert.Less(t, best.NEstimators, 10)
	assert.Equal(t, 2, best.MinChildSamples)
	assert.Equal(t, 42, best.RandomState)
	assert.Equal(t, []int{0, 1}, best.Classes())

	scores, err := New(cfg, nil, nil).Evaluate(best, X, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, scores[MetricAccuracy], 0.95)
	assert.True(t, logger.ContainsMessage("Hyperparameter tuning completed"))

	// a fixed seed gives the same search
	again, _, err := New(cfg, nil, nil).Train(context.Background(), X, y)
	require.NoError(t, err)
	assert.Equal(t, best.GetParams(), again.GetParams())
}

func TestTrainErrors(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 1, 0, 1})

	tests := []struct {
		name  string
		dists map[string]config.ParamDistribution
	}{
		{"bad distribution", map[string]config.ParamDistribution{"n_estimators": {Type: "normal"}}},
		{"unknown parameter", map[string]config.ParamDistribution{"bogus": {Type: "choice", Values: []interface{}{1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.ModelTraining.ParamDistributions = tt.dists
			_, _, err := New(cfg, nil, nil).Train(context.Background(), X, y)
			var te *errors.TrainingError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, "train", te.Step)
		})
	}
}

// fixedClassifier returns canned predictions.
type fixedClassifier struct {
	classes []int
	pred    []float64
	proba   *mat.Dense
}

func (f *fixedClassifier) Fit(X, y mat.Matrix) error { return nil }

func (f *fixedClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	return mat.NewDense(len(f.pred), 1, f.pred), nil
}

func (f *fixedClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	return f.proba, nil
}

func (f *fixedClassifier) Classes() []int { return f.classes }

var _ model.Classifier = (*fixedClassifier)(nil)

func TestEvaluate(t *testing.T) {
	m := New(testConfig(t), nil, nil)

	t.Run("binary", func(t *testing.T) {
		clf := &fixedClassifier{
			classes: []int{0, 1},
			pred:    []float64{1, 0, 0, 0},
			proba:   mat.NewDense(4, 2, []float64{0.1, 0.9, 0.6, 0.4, 0.7, 0.3, 0.9, 0.1}),
		}
		y := mat.NewDense(4, 1, []float64{1, 1, 0, 0})
		got, err := m.Evaluate(clf, mat.NewDense(4, 1, nil), y)
		require.NoError(t, err)

		assert.InDelta(t, 0.75, got[MetricAccuracy], 1e-12)
		assert.InDelta(t, 1.0, got[MetricPrecision], 1e-12)
		assert.InDelta(t, 0.5, got[MetricRecall], 1e-12)
		assert.InDelta(t, 2.0/3.0, got[MetricF1], 1e-12)
		assert.InDelta(t, 1.0, got[MetricROCAUC], 1e-12)
	})

	t.Run("multiclass uses macro average", func(t *testing.T) {
		clf := &fixedClassifier{classes: []int{0, 1, 2}, pred: []float64{0, 1, 2, 2}}
		y := mat.NewDense(4, 1, []float64{0, 1, 2, 1})
		got, err := m.Evaluate(clf, mat.NewDense(4, 1, nil), y)
		require.NoError(t, err)

		assert.InDelta(t, 0.75, got[MetricAccuracy], 1e-12)
		assert.InDelta(t, (1+1+0.5)/3.0, got[MetricPrecision], 1e-12)
		assert.InDelta(t, (1+0.5+1)/3.0, got[MetricRecall], 1e-12)
		assert.NotContains(t, got, MetricROCAUC)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	X, err := separable(30).ToMatrix("lead_time", "avg_price_per_room")
	require.NoError(t, err)
	y, err := separable(30).ToMatrix("booking_status")
	require.NoError(t, err)

	clf := lightgbm.NewLGBMClassifier(lightgbm.WithNEstimators(5), lightgbm.WithMinChildSamples(2))
	require.NoError(t, clf.Fit(X, y))

	trainer := New(cfg, nil, nil)
	require.NoError(t, trainer.Save(clf))

	loaded := &lightgbm.LGBMClassifier{}
	require.NoError(t, model.LoadModel(loaded, cfg.Paths().ModelFile))
	want, err := clf.PredictProba(X)
	require.NoError(t, err)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestRunRecordsTrackerRun(t *testing.T) {
	cfg := testConfig(t)
	writeProcessed(t, cfg, separable(40), separable(10))
	tracker, err := tracking.NewTracker(cfg.Tracking.TrackingDir, cfg.Tracking.ExperimentName)
	require.NoError(t, err)

	scores, err := New(cfg, tracker, nil).Run(context.Background())
	require.NoError(t, err)
	for _, k := range []string{MetricAccuracy, MetricPrecision, MetricRecall, MetricF1} {
		require.Contains(t, scores, k)
		assert.GreaterOrEqual(t, scores[k], 0.0)
		assert.LessOrEqual(t, scores[k], 1.0)
	}
	assert.FileExists(t, cfg.Paths().ModelFile)

	ids, err := tracker.RunIDs()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	info, err := tracker.ReadRun(ids[0])
	require.NoError(t, err)
	assert.Equal(t, tracking.StatusFinished, info.Status)
	assert.Equal(t, RunName, info.Name)
	assert.Equal(t, "2", info.Params["min_child_samples"])
	assert.Equal(t, "gbdt", info.Params["boosting_type"])
	assert.Equal(t, scores[MetricAccuracy], info.Metrics[MetricAccuracy])
	assert.Contains(t, info.Metrics, "best_cv_score")

	artifacts := filepath.Join(cfg.Tracking.TrackingDir, tracker.ExperimentID(), ids[0], "artifacts")
	assert.FileExists(t, filepath.Join(artifacts, "datasets", "processed_train.csv"))
	assert.FileExists(t, filepath.Join(artifacts, "datasets", "processed_test.csv"))
	assert.FileExists(t, filepath.Join(artifacts, "model", "lgbm_model.gob"))
}

func TestRunFailureEndsRunAsFailed(t *testing.T) {
	cfg := testConfig(t)
	tracker, err := tracking.NewTracker(cfg.Tracking.TrackingDir, "")
	require.NoError(t, err)
	logger, _ := log.NewTestLogger(log.LevelInfo)

	_, err = New(cfg, tracker, logger).Run(context.Background())
	stage, ok := errors.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.StageTraining, stage)
	assert.True(t, logger.ContainsMessage("Model training failed"))

	ids, err := tracker.RunIDs()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	info, err := tracker.ReadRun(ids[0])
	require.NoError(t, err)
	assert.Equal(t, tracking.StatusFailed, info.Status)
}

func TestRunWithoutTracker(t *testing.T) {
	_, err := New(testConfig(t), nil, nil).Run(context.Background())
	var te *errors.TrainingError
	assert.ErrorAs(t, err, &te)
}
