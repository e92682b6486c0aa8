// Package training tunes a LightGBM style classifier on the processed
// data, evaluates it on the test split, persists it and records the run
// with the experiment tracker.
package training

import (
	"context"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/core/model"
	"github.com/atul219/Hotel-Reservation/dataframe"
	"github.com/atul219/Hotel-Reservation/pipeline/config"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
	"github.com/atul219/Hotel-Reservation/sklearn/lightgbm"
	"github.com/atul219/Hotel-Reservation/sklearn/model_selection"
	"github.com/atul219/Hotel-Reservation/tracking"
)

// RunName names the tracker runs created by Run.
const RunName = "lgbm-training"

// Dataset is the processed data split into features and label.
type Dataset struct {
	Features []string
	XTrain   *mat.Dense
	YTrain   *mat.Dense
	XTest    *mat.Dense
	YTest    *mat.Dense
}

// ModelTrainer runs the training stage.
type ModelTrainer struct {
	settings config.ModelTraining
	target   string
	paths    config.Paths
	tracker  *tracking.Tracker
	logger   log.Logger
}

// New creates the training stage. tracker may be nil when Run is not used.
func New(cfg *config.Config, tracker *tracking.Tracker, logger log.Logger) *ModelTrainer {
	if logger == nil {
		logger = log.Nop()
	}
	return &ModelTrainer{
		settings: cfg.ModelTraining,
		target:   cfg.DataProcessing.TargetColumn,
		paths:    cfg.Paths(),
		tracker:  tracker,
		logger:   logger.With(log.StageKey, string(errors.StageTraining)),
	}
}

// LoadAndSplit reads both processed files and separates the label column.
// The test file must have the same feature columns as the train file.
func (t *ModelTrainer) LoadAndSplit() (*Dataset, error) {
	train, err := dataframe.ReadCSVFile(t.paths.ProcessedTrain)
	if err != nil {
		return nil, errors.NewTrainingError("load", err)
	}
	test, err := dataframe.ReadCSVFile(t.paths.ProcessedTest)
	if err != nil {
		return nil, errors.NewTrainingError("load", err)
	}

	features := make([]string, 0, train.NumCols())
	for _, c := range train.Columns() {
		if c != t.target {
			features = append(features, c)
		}
	}
	if !train.Has(t.target) || len(features) == 0 {
		return nil, errors.NewTrainingError("load",
			errors.Wrapf(errors.ErrColumnNotFound, "train data needs label %q and at least one feature", t.target))
	}

	ds := &Dataset{Features: features}
	if ds.XTrain, err = train.ToMatrix(features...); err != nil {
		return nil, errors.NewTrainingError("load", err)
	}
	if ds.YTrain, err = train.ToMatrix(t.target); err != nil {
		return nil, errors.NewTrainingError("load", err)
	}
	if ds.XTest, err = test.ToMatrix(features...); err != nil {
		return nil, errors.NewTrainingError("load", errors.Wrap(err, "test data does not match train columns"))
	}
	if ds.YTest, err = test.ToMatrix(t.target); err != nil {
		return nil, errors.NewTrainingError("load", err)
	}

	t.logger.Info("Data split for model training",
		"train_samples", train.NumRows(),
		"test_samples", test.NumRows(),
		log.FeaturesKey, features,
	)
	return ds, nil
}

// Train runs a randomized search over LGBMClassifier hyperparameters and
// returns the best model refit on all of X together with the fitted search.
func (t *ModelTrainer) Train(ctx context.Context, X, y mat.Matrix) (*lightgbm.LGBMClassifier, *model_selection.RandomizedSearchCV, error) {
	dists, err := t.settings.Distributions()
	if err != nil {
		return nil, nil, errors.NewTrainingError("train", err)
	}

	seed := int(t.settings.RandomState)
	estimator := lightgbm.NewLGBMClassifier(lightgbm.WithRandomState(seed))
	search := model_selection.NewRandomizedSearchCV(estimator, dists,
		model_selection.WithNIter(t.settings.NIter),
		model_selection.WithNFolds(t.settings.CV),
		model_selection.WithNJobs(t.settings.NJobs),
		model_selection.WithScoring(t.settings.Scoring),
		model_selection.WithRandomState(t.settings.RandomState),
		model_selection.WithLogger(t.logger),
	)

	t.logger.Info("Starting hyperparameter tuning",
		log.ModelNameKey, "LGBMClassifier",
		log.RandomSeedKey, t.settings.RandomState,
	)
	if err := search.Fit(ctx, X, y); err != nil {
		return nil, nil, errors.NewTrainingError("train", err)
	}

	best, ok := search.BestEstimator.(*lightgbm.LGBMClassifier)
	if !ok {
		return nil, nil, errors.NewTrainingError("train",
			errors.NewValueError("Train", "search did not produce a refit LGBMClassifier"))
	}
	t.logger.Info("Hyperparameter tuning completed",
		log.HyperParamsKey, search.BestParams,
		log.ScoreKey, search.BestScore,
	)
	return best, search, nil
}

// Save writes the model with gob, creating parent directories.
func (t *ModelTrainer) Save(m *lightgbm.LGBMClassifier) error {
	if err := model.SaveModel(m, t.paths.ModelFile); err != nil {
		return errors.NewTrainingError("save", err)
	}
	t.logger.Info("Model saved", log.PathKey, t.paths.ModelFile)
	return nil
}

// Run trains, evaluates and saves the model inside one tracker run and
// returns the test metrics. The run is ended FINISHED or FAILED in every case.
func (t *ModelTrainer) Run(ctx context.Context) (metricsOut map[string]float64, err error) {
	defer func() {
		if err == nil {
			return
		}
		if _, ok := errors.StageOf(err); !ok {
			err = errors.NewTrainingError("run", err)
		}
		t.logger.Error("Model training failed", err)
	}()
	defer errors.Recover(&err, "training.Run")

	if t.tracker == nil {
		return nil, errors.NewTrainingError("run", errors.NewValidationError("tracker", "must not be nil", nil))
	}

	start := time.Now()
	err = t.tracker.WithRun(ctx, RunName, func(ctx context.Context, run *tracking.Run) error {
		logger := t.logger.With(log.RunIDKey, run.ID())
		logger.Info("Starting model training")

		for _, p := range []string{t.paths.ProcessedTrain, t.paths.ProcessedTest} {
			if err := run.LogArtifact(ctx, p, "datasets"); err != nil {
				return errors.NewTrainingError("track", err)
			}
		}

		ds, err := t.LoadAndSplit()
		if err != nil {
			return err
		}
		best, search, err := t.Train(ctx, ds.XTrain, ds.YTrain)
		if err != nil {
			return err
		}
		scores, err := t.Evaluate(best, ds.XTest, ds.YTest)
		if err != nil {
			return err
		}
		if err := t.Save(best); err != nil {
			return err
		}

		logger.Info("Logging the model to the tracker")
		if err := run.LogArtifact(ctx, t.paths.ModelFile, "model"); err != nil {
			return errors.NewTrainingError("track", err)
		}
		for _, p := range []string{t.paths.LabelMappings, t.paths.ImportancePlot} {
			if _, statErr := os.Stat(p); statErr != nil {
				continue
			}
			if err := run.LogArtifact(ctx, p, "preprocessing"); err != nil {
				return errors.NewTrainingError("track", err)
			}
		}
		if err := run.LogParams(best.GetParams()); err != nil {
			return errors.NewTrainingError("track", err)
		}
		if err := run.LogMetrics(scores); err != nil {
			return errors.NewTrainingError("track", err)
		}
		if err := run.LogMetric("best_cv_score", search.BestScore); err != nil {
			return errors.NewTrainingError("track", err)
		}

		metricsOut = scores
		logger.Info("Model trained successfully", log.DurationMsKey, time.Since(start).Milliseconds())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return metricsOut, nil
}
