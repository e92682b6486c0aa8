// Package config loads the pipeline's YAML configuration into an explicit
// Config value that is handed to every stage.
package config

import (
	"bytes"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/atul219/Hotel-Reservation/metrics"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
	"github.com/atul219/Hotel-Reservation/storage"
)

// DefaultPath is where the CLIs look for the configuration file.
const DefaultPath = "config/config.yaml"

// Environment variables that override secrets so they can stay out of the file.
const (
	EnvAccessKeyID     = "HOTEL_STORAGE_ACCESS_KEY_ID"
	EnvSecretAccessKey = "HOTEL_STORAGE_SECRET_ACCESS_KEY"
	EnvCredentialsFile = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Config is the complete pipeline configuration.
type Config struct {
	ArtifactsDir   string         `yaml:"artifacts_dir"`
	DataIngestion  DataIngestion  `yaml:"data_ingestion"`
	DataProcessing DataProcessing `yaml:"data_processing"`
	ModelTraining  ModelTraining  `yaml:"model_training"`
	Storage        storage.Config `yaml:"storage"`
	Tracking       Tracking       `yaml:"tracking"`
	Logging        Logging        `yaml:"logging"`
}

// DataIngestion configures where the raw data comes from and how it is split.
type DataIngestion struct {
	BucketName     string  `yaml:"bucket_name"`
	BucketFileName string  `yaml:"bucket_file_name"`
	TrainRatio     float64 `yaml:"train_ratio"`
	Provider       string  `yaml:"provider"`
}

// DataProcessing configures cleaning, encoding, skew handling and feature selection.
type DataProcessing struct {
	CategoricalColumns []string `yaml:"categorical_columns"`
	NumericalColumns   []string `yaml:"numerical_columns"`
	SkewnessThreshold  float64  `yaml:"skewness_threshold"`
	NoOfFeatures       int      `yaml:"no_of_features"`
	DropColumns        []string `yaml:"drop_columns"`
	TargetColumn       string   `yaml:"target_column"`
}

// ModelTraining configures the randomized hyperparameter search.
type ModelTraining struct {
	NIter              int                          `yaml:"n_iter"`
	CV                 int                          `yaml:"cv"`
	NJobs              int                          `yaml:"n_jobs"`
	Scoring            string                       `yaml:"scoring"`
	RandomState        uint64                       `yaml:"random_state"`
	ParamDistributions map[string]ParamDistribution `yaml:"param_distributions"`
}

// Tracking configures the experiment tracker.
type Tracking struct {
	TrackingDir    string `yaml:"tracking_dir"`
	ExperimentName string `yaml:"experiment_name"`
	// ArtifactBucket mirrors run artifacts to the configured object store when set.
	ArtifactBucket string `yaml:"artifact_bucket"`
}

// Logging configures the zerolog output.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the configuration used for every key the file leaves out.
func Default() *Config {
	return &Config{
		ArtifactsDir: "artifacts",
		DataIngestion: DataIngestion{
			TrainRatio: 0.8,
			Provider:   storage.ProviderGCS,
		},
		DataProcessing: DataProcessing{
			SkewnessThreshold: 5,
			NoOfFeatures:      10,
			DropColumns:       []string{"Unnamed: 0", "Booking_ID"},
			TargetColumn:      "booking_status",
		},
		ModelTraining: ModelTraining{
			NIter:              4,
			CV:                 2,
			NJobs:              -1,
			Scoring:            "accuracy",
			RandomState:        42,
			ParamDistributions: DefaultParamDistributions(),
		},
		Tracking: Tracking{
			TrackingDir:    "mlruns",
			ExperimentName: "hotel-reservation",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path over Default, applies environment
// overrides and validates the result. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("read", errors.Wrapf(err, "reading config file %s", path))
	}
	return Parse(data)
}

// Parse is Load for configuration already in memory.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	// A file that lists distributions replaces the defaults rather than merging with them.
	cfg.ModelTraining.ParamDistributions = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.NewConfigError("parse", errors.Wrap(err, "parsing config"))
	}
	if cfg.ModelTraining.ParamDistributions == nil {
		cfg.ModelTraining.ParamDistributions = DefaultParamDistributions()
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigError("validate", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAccessKeyID); v != "" {
		c.Storage.AccessKeyID = v
	}
	if v := os.Getenv(EnvSecretAccessKey); v != "" {
		c.Storage.SecretAccessKey = v
	}
	if v := os.Getenv(EnvCredentialsFile); v != "" && c.Storage.CredentialsFile == "" {
		c.Storage.CredentialsFile = v
	}
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	in := c.DataIngestion
	switch {
	case in.BucketName == "":
		return errors.NewValidationError("data_ingestion.bucket_name", "is required", in.BucketName)
	case in.BucketFileName == "":
		return errors.NewValidationError("data_ingestion.bucket_file_name", "is required", in.BucketFileName)
	case !(in.TrainRatio > 0 && in.TrainRatio < 1):
		return errors.NewValidationError("data_ingestion.train_ratio", "must be in (0, 1)", in.TrainRatio)
	}
	switch in.Provider {
	case storage.ProviderGCS, storage.ProviderS3:
	case storage.ProviderLocal:
		if c.Storage.LocalRoot == "" {
			return errors.NewValidationError("storage.local_root", "is required for the local provider", "")
		}
	default:
		return errors.NewValidationError("data_ingestion.provider", "must be one of gcs, s3, local", in.Provider)
	}

	dp := c.DataProcessing
	if dp.TargetColumn == "" {
		return errors.NewValidationError("data_processing.target_column", "is required", dp.TargetColumn)
	}
	if dp.NoOfFeatures < 1 {
		return errors.NewValidationError("data_processing.no_of_features", "must be at least 1", dp.NoOfFeatures)
	}
	for _, col := range dp.NumericalColumns {
		if contains(dp.CategoricalColumns, col) {
			return errors.NewValidationError("data_processing.numerical_columns", "column is also listed as categorical", col)
		}
		if col == dp.TargetColumn {
			return errors.NewValidationError("data_processing.numerical_columns", "must not contain the target column", col)
		}
	}

	mt := c.ModelTraining
	if mt.NIter < 1 {
		return errors.NewValidationError("model_training.n_iter", "must be at least 1", mt.NIter)
	}
	if mt.CV < 2 {
		return errors.NewValidationError("model_training.cv", "must be at least 2", mt.CV)
	}
	if _, err := metrics.GetScorer(mt.Scoring); err != nil {
		return err
	}
	if _, err := mt.Distributions(); err != nil {
		return err
	}

	if c.Tracking.TrackingDir == "" {
		return errors.NewValidationError("tracking.tracking_dir", "is required", "")
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return errors.NewValidationError("logging.level", err.Error(), c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "":
	default:
		return errors.NewValidationError("logging.format", "must be json or console", c.Logging.Format)
	}
	return nil
}

// Paths returns the file layout under ArtifactsDir.
func (c *Config) Paths() Paths {
	return NewPaths(c.ArtifactsDir)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
