// Package pipeline wires the ingestion, preprocessing and training stages
// together in the order the CLI runs them.
package pipeline

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/atul219/Hotel-Reservation/pipeline/config"
	"github.com/atul219/Hotel-Reservation/pipeline/ingestion"
	"github.com/atul219/Hotel-Reservation/pipeline/processing"
	"github.com/atul219/Hotel-Reservation/pipeline/training"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
	"github.com/atul219/Hotel-Reservation/storage"
	"github.com/atul219/Hotel-Reservation/tracking"
)

// NewLogger builds the zerolog logger described by cfg.Logging and routes
// library warnings through it.
func NewLogger(cfg config.Logging, w io.Writer) log.Logger {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.LevelInfo
	}
	pretty := strings.EqualFold(cfg.Format, "console")
	provider := log.NewZerologProviderWithWriter(w, level, pretty)
	logger := provider.GetLoggerWithName("pipeline")
	log.RouteWarnings(logger)
	return logger
}

// OpenStore connects to the object store named by the ingestion provider.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	store, err := storage.New(ctx, cfg.DataIngestion.Provider, cfg.Storage)
	if err != nil {
		return nil, errors.NewConfigError("storage", err)
	}
	return store, nil
}

// Ingest runs only the ingestion stage.
func Ingest(ctx context.Context, cfg *config.Config, logger log.Logger) error {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return ingestion.New(cfg, store, logger).Run(ctx)
}

// Run executes ingestion, preprocessing and training in sequence and
// returns the test metrics of the trained model. The first failing stage
// aborts the run.
func Run(ctx context.Context, cfg *config.Config, logger log.Logger) (map[string]float64, error) {
	if logger == nil {
		logger = log.Nop()
	}
	start := time.Now()

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	opts := []tracking.Option{tracking.WithLogger(logger.With(log.ComponentKey, "tracking"))}
	if cfg.Tracking.ArtifactBucket != "" {
		opts = append(opts, tracking.WithArtifactMirror(store, cfg.Tracking.ArtifactBucket))
	}
	tracker, err := tracking.NewTracker(cfg.Tracking.TrackingDir, cfg.Tracking.ExperimentName, opts...)
	if err != nil {
		return nil, errors.NewConfigError("tracking", err)
	}

	if err := ingestion.New(cfg, store, logger).Run(ctx); err != nil {
		return nil, err
	}
	if _, err := processing.New(cfg, logger).Run(ctx); err != nil {
		return nil, err
	}
	metrics, err := training.New(cfg, tracker, logger).Run(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("Pipeline completed",
		log.DurationMsKey, time.Since(start).Milliseconds(),
		"metrics", metrics,
	)
	return metrics, nil
}
