package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Stage identifies which part of the pipeline produced an error.
type Stage string

const (
	StageConfig        Stage = "config"
	StageIngestion     Stage = "ingestion"
	StagePreprocessing Stage = "preprocessing"
	StageTraining      Stage = "training"
)

// StageError is the common shape behind the per-stage error kinds. Step names
// the operation inside the stage that failed ("fetch", "rebalance", ...).
type StageError struct {
	Stage Stage
	Step  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Step, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *StageError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", string(e.Stage)).
		Str("step", e.Step).
		Str("type", "StageError")
}

// ConfigError is returned when the configuration file cannot be loaded or is invalid.
type ConfigError struct{ StageError }

// IngestionError is returned by the data ingestion stage.
type IngestionError struct{ StageError }

// PreprocessingError is returned by the data preprocessing stage.
type PreprocessingError struct{ StageError }

// TrainingError is returned by the model training stage.
type TrainingError struct{ StageError }

func (e *ConfigError) Unwrap() error        { return e.Err }
func (e *IngestionError) Unwrap() error     { return e.Err }
func (e *PreprocessingError) Unwrap() error { return e.Err }
func (e *TrainingError) Unwrap() error      { return e.Err }

// NewConfigError wraps err as a configuration failure. A nil err yields nil.
func NewConfigError(step string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStackDepth(&ConfigError{StageError{Stage: StageConfig, Step: step, Err: err}}, 1)
}

// NewIngestionError wraps err as a data ingestion failure. A nil err yields nil.
func NewIngestionError(step string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStackDepth(&IngestionError{StageError{Stage: StageIngestion, Step: step, Err: err}}, 1)
}

// NewPreprocessingError wraps err as a preprocessing failure. A nil err yields nil.
func NewPreprocessingError(step string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStackDepth(&PreprocessingError{StageError{Stage: StagePreprocessing, Step: step, Err: err}}, 1)
}

// NewTrainingError wraps err as a model training failure. A nil err yields nil.
func NewTrainingError(step string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStackDepth(&TrainingError{StageError{Stage: StageTraining, Step: step, Err: err}}, 1)
}

// StageOf reports the pipeline stage recorded in err's chain, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Stage, true
	}
	var ie *IngestionError
	if errors.As(err, &ie) {
		return ie.Stage, true
	}
	var pe *PreprocessingError
	if errors.As(err, &pe) {
		return pe.Stage, true
	}
	var te *TrainingError
	if errors.As(err, &te) {
		return te.Stage, true
	}
	return "", false
}
