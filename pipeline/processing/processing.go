// Package processing turns the raw train and test splits into model ready
// tables: it cleans, label encodes, deskews, rebalances and keeps the most
// important features.
package processing

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/atul219/Hotel-Reservation/dataframe"
	"github.com/atul219/Hotel-Reservation/pipeline/config"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
	"github.com/atul219/Hotel-Reservation/preprocessing"
	"github.com/atul219/Hotel-Reservation/report"
)

// RandomSeed drives both SMOTE and the feature ranking forest.
const RandomSeed uint64 = 42

// DataProcessor holds the encoders and skew transformer fitted during Run,
// so a processor should not be shared between concurrent runs.
type DataProcessor struct {
	settings config.DataProcessing
	paths    config.Paths
	logger   log.Logger

	encoders map[string]*preprocessing.LabelEncoder
	skew     *preprocessing.SkewTransformer
}

// New creates the preprocessing stage.
func New(cfg *config.Config, logger log.Logger) *DataProcessor {
	if logger == nil {
		logger = log.Nop()
	}
	return &DataProcessor{
		settings: cfg.DataProcessing,
		paths:    cfg.Paths(),
		logger:   logger.With(log.StageKey, string(errors.StagePreprocessing)),
	}
}

// Result summarizes a preprocessing run.
type Result struct {
	TrainRows   int
	TestRows    int
	Features    []string
	Importances []report.FeatureImportance
}

// Run reads both splits, processes them and writes the processed tables,
// the label mappings and the importance chart.
func (p *DataProcessor) Run(ctx context.Context) (res *Result, err error) {
	defer func() {
		if err == nil {
			return
		}
		if _, ok := errors.StageOf(err); !ok {
			err = errors.NewPreprocessingError("run", err)
		}
		p.logger.Error("Data preprocessing failed", err)
	}()
	defer errors.Recover(&err, "processing.Run")

	start := time.Now()
	p.logger.Info("Starting data preprocessing", "train_path", p.paths.Train, "test_path", p.paths.Test)

	train, err := dataframe.ReadCSVFile(p.paths.Train)
	if err != nil {
		return nil, errors.NewPreprocessingError("load", err)
	}
	test, err := dataframe.ReadCSVFile(p.paths.Test)
	if err != nil {
		return nil, errors.NewPreprocessingError("load", err)
	}

	train, test, err = p.Preprocess(train, test)
	if err != nil {
		return nil, err
	}

	if train, err = p.Rebalance(train); err != nil {
		return nil, err
	}
	if test, err = p.Rebalance(test); err != nil {
		return nil, err
	}

	train, ranking, err := p.SelectFeatures(ctx, train, p.settings.NoOfFeatures)
	if err != nil {
		return nil, err
	}
	test, err = test.Select(train.Columns()...)
	if err != nil {
		return nil, errors.NewPreprocessingError("select_features", err)
	}

	if err := p.save(train, test, ranking); err != nil {
		return nil, err
	}

	features := train.Columns()
	res = &Result{
		TrainRows:   train.NumRows(),
		TestRows:    test.NumRows(),
		Features:    features[:len(features)-1],
		Importances: ranking,
	}
	p.logger.Info("Data preprocessing completed",
		"train_samples", res.TrainRows,
		"test_samples", res.TestRows,
		log.FeaturesKey, res.Features,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Preprocess applies Clean, Encode and FixSkew to both splits. Encoders
// are fitted on the union of both splits and the skewed column set is
// chosen on train.
func (p *DataProcessor) Preprocess(train, test *dataframe.DataFrame) (*dataframe.DataFrame, *dataframe.DataFrame, error) {
	train = p.Clean(train)
	test = p.Clean(test)

	if err := p.FitEncoders(train, test); err != nil {
		return nil, nil, err
	}
	train, err := p.Encode(train)
	if err != nil {
		return nil, nil, err
	}
	test, err = p.Encode(test)
	if err != nil {
		return nil, nil, err
	}

	if err := p.FitSkew(train); err != nil {
		return nil, nil, err
	}
	if train, err = p.FixSkew(train); err != nil {
		return nil, nil, err
	}
	if test, err = p.FixSkew(test); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func (p *DataProcessor) save(train, test *dataframe.DataFrame, ranking []report.FeatureImportance) error {
	if err := train.WriteCSVFile(p.paths.ProcessedTrain); err != nil {
		return errors.NewPreprocessingError("save", err)
	}
	if err := test.WriteCSVFile(p.paths.ProcessedTest); err != nil {
		return errors.NewPreprocessingError("save", err)
	}
	if err := writeJSON(p.paths.LabelMappings, p.Mappings()); err != nil {
		return errors.NewPreprocessingError("save", err)
	}
	if err := report.ImportanceChart(ranking, "Random forest feature importance", p.paths.ImportancePlot); err != nil {
		return errors.NewPreprocessingError("save", err)
	}
	p.logger.Info("Processed data saved",
		"train_path", p.paths.ProcessedTrain,
		"test_path", p.paths.ProcessedTest,
		"mappings_path", p.paths.LabelMappings,
		"chart_path", p.paths.ImportancePlot,
	)
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	return errors.Wrapf(os.WriteFile(path, append(data, '\n'), 0o644), "failed to write %s", path)
}
