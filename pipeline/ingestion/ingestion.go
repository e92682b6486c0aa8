// Package ingestion downloads the raw reservation dataset from object
// storage and splits it into train and test CSV files.
package ingestion

import (
	"context"
	"time"

	"github.com/atul219/Hotel-Reservation/dataframe"
	"github.com/atul219/Hotel-Reservation/pipeline/config"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
	"github.com/atul219/Hotel-Reservation/sklearn/model_selection"
	"github.com/atul219/Hotel-Reservation/storage"
)

// SplitSeed fixes the train/test shuffle so reruns produce the same files.
const SplitSeed uint64 = 42

// DataIngestion fetches one object and splits it.
type DataIngestion struct {
	settings config.DataIngestion
	paths    config.Paths
	store    storage.ObjectStore
	logger   log.Logger
}

// New creates the ingestion stage. store is not closed by the stage.
func New(cfg *config.Config, store storage.ObjectStore, logger log.Logger) *DataIngestion {
	if logger == nil {
		logger = log.Nop()
	}
	return &DataIngestion{
		settings: cfg.DataIngestion,
		paths:    cfg.Paths(),
		store:    store,
		logger:   logger.With(log.StageKey, string(errors.StageIngestion)),
	}
}

// Fetch downloads the configured object to the raw file path.
func (d *DataIngestion) Fetch(ctx context.Context) error {
	start := time.Now()
	err := d.store.Download(ctx, d.settings.BucketName, d.settings.BucketFileName, d.paths.RawFile)
	if err != nil {
		return errors.NewIngestionError("fetch", errors.Wrapf(err,
			"failed to download %s from bucket %s", d.settings.BucketFileName, d.settings.BucketName))
	}
	d.logger.Info("Raw file downloaded",
		log.BucketKey, d.settings.BucketName,
		log.ObjectKey, d.settings.BucketFileName,
		log.PathKey, d.paths.RawFile,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Split reads the raw file, shuffles its rows with SplitSeed and writes
// round(N·train_ratio) of them to the train file and the rest to the test file.
func (d *DataIngestion) Split() error {
	raw, err := dataframe.ReadCSVFile(d.paths.RawFile)
	if err != nil {
		return errors.NewIngestionError("split", err)
	}
	trainIdx, testIdx, err := model_selection.TrainTestSplit(raw.NumRows(), d.settings.TrainRatio, SplitSeed)
	if err != nil {
		return errors.NewIngestionError("split", err)
	}

	if err := raw.Take(trainIdx).WriteCSVFile(d.paths.Train); err != nil {
		return errors.NewIngestionError("split", err)
	}
	if err := raw.Take(testIdx).WriteCSVFile(d.paths.Test); err != nil {
		return errors.NewIngestionError("split", err)
	}
	d.logger.Info("Train and test data saved",
		"train_path", d.paths.Train,
		"test_path", d.paths.Test,
		"train_samples", len(trainIdx),
		"test_samples", len(testIdx),
	)
	return nil
}

// Run fetches then splits.
func (d *DataIngestion) Run(ctx context.Context) (err error) {
	defer func() {
		if err == nil {
			return
		}
		if _, ok := errors.StageOf(err); !ok {
			err = errors.NewIngestionError("run", err)
		}
		d.logger.Error("Data ingestion failed", err)
	}()
	defer errors.Recover(&err, "ingestion.Run")

	d.logger.Info("Starting data ingestion",
		log.BucketKey, d.settings.BucketName,
		log.ObjectKey, d.settings.BucketFileName,
	)
	if err := d.Fetch(ctx); err != nil {
		return err
	}
	if err := d.Split(); err != nil {
		return err
	}
	d.logger.Info("Data ingestion completed")
	return nil
}
