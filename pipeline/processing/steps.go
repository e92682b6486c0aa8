package processing

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/dataframe"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
	"github.com/atul219/Hotel-Reservation/preprocessing"
	"github.com/atul219/Hotel-Reservation/report"
	"github.com/atul219/Hotel-Reservation/sklearn/ensemble"
	"github.com/atul219/Hotel-Reservation/sklearn/imblearn"
)

// Clean drops the configured identifier columns that are present and then
// exact duplicate rows, keeping first occurrences.
func (p *DataProcessor) Clean(df *dataframe.DataFrame) *dataframe.DataFrame {
	out, removed := df.DropIfExists(p.settings.DropColumns...).DropDuplicates()
	p.logger.Info("Cleaned data",
		log.SamplesKey, out.NumRows(),
		"duplicates_removed", removed,
	)
	return out
}

// FitEncoders fits one LabelEncoder per categorical column over the
// distinct values of every frame given, so the codes agree across splits.
func (p *DataProcessor) FitEncoders(frames ...*dataframe.DataFrame) error {
	p.encoders = make(map[string]*preprocessing.LabelEncoder, len(p.settings.CategoricalColumns))
	for _, col := range p.settings.CategoricalColumns {
		values := make([][]string, 0, len(frames))
		for _, df := range frames {
			s, err := df.Column(col)
			if err != nil {
				return errors.NewPreprocessingError("encode", err)
			}
			values = append(values, s.Strings())
		}
		enc := preprocessing.NewLabelEncoder()
		if err := enc.Fit(values...); err != nil {
			return errors.NewPreprocessingError("encode", errors.Wrapf(err, "column %q", col))
		}
		p.encoders[col] = enc
		p.logger.Info("Label mapping", log.ColumnKey, col, "mapping", enc.Mapping())
	}
	return nil
}

// Encode replaces every categorical column with its integer codes.
// FitEncoders must have been called.
func (p *DataProcessor) Encode(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	if p.encoders == nil {
		return nil, errors.NewPreprocessingError("encode", errors.NewNotFittedError("DataProcessor", "Encode"))
	}
	out := df
	for _, col := range p.settings.CategoricalColumns {
		s, err := out.Column(col)
		if err != nil {
			return nil, errors.NewPreprocessingError("encode", err)
		}
		codes, err := p.encoders[col].Transform(s.Strings())
		if err != nil {
			return nil, errors.NewPreprocessingError("encode", errors.Wrapf(err, "column %q", col))
		}
		if out, err = out.WithColumn(dataframe.NewFloatSeries(col, codes)); err != nil {
			return nil, errors.NewPreprocessingError("encode", err)
		}
	}
	return out, nil
}

// Mappings returns value → code for every fitted categorical column.
func (p *DataProcessor) Mappings() map[string]map[string]int {
	out := make(map[string]map[string]int, len(p.encoders))
	for col, enc := range p.encoders {
		out[col] = enc.Mapping()
	}
	return out
}

// FitSkew measures the skewness of every numerical column of df and
// records which exceed the threshold.
func (p *DataProcessor) FitSkew(df *dataframe.DataFrame) error {
	cols := p.settings.NumericalColumns
	if len(cols) == 0 {
		p.skew = nil
		return nil
	}
	X, err := df.ToMatrix(cols...)
	if err != nil {
		return errors.NewPreprocessingError("fix_skew", err)
	}
	sk := preprocessing.NewSkewTransformer(p.settings.SkewnessThreshold)
	if err := sk.Fit(X); err != nil {
		return errors.NewPreprocessingError("fix_skew", err)
	}
	p.skew = sk

	for j, col := range cols {
		p.logger.Debug("Column skewness", log.ColumnKey, col, "skewness", sk.Skewness[j])
	}
	selected := make([]string, len(sk.Columns))
	for i, j := range sk.Columns {
		selected[i] = cols[j]
	}
	p.logger.Info("Skewed columns selected", "columns", selected, "threshold", p.settings.SkewnessThreshold)
	return nil
}

// FixSkew applies log(1+x) to the columns chosen by FitSkew. A value of
// -1 or less in one of those columns is a validation error.
func (p *DataProcessor) FixSkew(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	cols := p.settings.NumericalColumns
	if len(cols) == 0 {
		return df, nil
	}
	if p.skew == nil {
		return nil, errors.NewPreprocessingError("fix_skew", errors.NewNotFittedError("DataProcessor", "FixSkew"))
	}
	X, err := df.ToMatrix(cols...)
	if err != nil {
		return nil, errors.NewPreprocessingError("fix_skew", err)
	}
	XT, err := p.skew.Transform(X)
	if err != nil {
		return nil, errors.NewPreprocessingError("fix_skew", err)
	}

	out := df
	for _, j := range p.skew.Columns {
		vals := mat.Col(nil, j, XT)
		if out, err = out.WithColumn(dataframe.NewFloatSeries(cols[j], vals)); err != nil {
			return nil, errors.NewPreprocessingError("fix_skew", err)
		}
	}
	return out, nil
}

// Rebalance oversamples minority classes with SMOTE until every label
// value is as frequent as the majority one. Features keep their order and
// the label becomes the last column.
func (p *DataProcessor) Rebalance(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	features, err := p.featureColumns(df)
	if err != nil {
		return nil, errors.NewPreprocessingError("rebalance", err)
	}
	X, err := df.ToMatrix(features...)
	if err != nil {
		return nil, errors.NewPreprocessingError("rebalance", err)
	}
	y, err := df.ToMatrix(p.settings.TargetColumn)
	if err != nil {
		return nil, errors.NewPreprocessingError("rebalance", err)
	}

	Xr, yr, err := imblearn.NewSMOTE(imblearn.WithRandomState(RandomSeed)).FitResample(X, y)
	if err != nil {
		return nil, errors.NewPreprocessingError("rebalance", err)
	}
	rows, cols := Xr.Dims()
	combined := mat.NewDense(rows, cols+1, nil)
	combined.Slice(0, rows, 0, cols).(*mat.Dense).Copy(Xr)
	combined.SetCol(cols, mat.Col(nil, 0, yr))

	out, err := dataframe.FromMatrix(append(features, p.settings.TargetColumn), combined)
	if err != nil {
		return nil, errors.NewPreprocessingError("rebalance", err)
	}
	p.logger.Info("Data balanced",
		log.SamplesKey, rows,
		log.ClassCountsKey, imblearn.ClassCounts(yr),
	)
	return out, nil
}

// SelectFeatures ranks the features of df by random forest impurity
// importance and keeps the top min(k, n_features) followed by the label.
// Ties keep the original column order. The full ranking is returned.
func (p *DataProcessor) SelectFeatures(ctx context.Context, df *dataframe.DataFrame, k int) (*dataframe.DataFrame, []report.FeatureImportance, error) {
	if k < 1 {
		return nil, nil, errors.NewPreprocessingError("select_features",
			errors.NewValidationError("no_of_features", "must be at least 1", k))
	}
	features, err := p.featureColumns(df)
	if err != nil {
		return nil, nil, errors.NewPreprocessingError("select_features", err)
	}
	X, err := df.ToMatrix(features...)
	if err != nil {
		return nil, nil, errors.NewPreprocessingError("select_features", err)
	}
	y, err := df.ToMatrix(p.settings.TargetColumn)
	if err != nil {
		return nil, nil, errors.NewPreprocessingError("select_features", err)
	}

	forest := ensemble.NewRandomForestClassifier(ensemble.WithRandomState(RandomSeed))
	if err := forest.FitContext(ctx, X, y); err != nil {
		return nil, nil, errors.NewPreprocessingError("select_features", err)
	}
	importances, err := forest.FeatureImportances()
	if err != nil {
		return nil, nil, errors.NewPreprocessingError("select_features", err)
	}

	ranking := make([]report.FeatureImportance, len(features))
	for j, name := range features {
		ranking[j] = report.FeatureImportance{Feature: name, Importance: importances[j]}
	}
	sort.SliceStable(ranking, func(a, b int) bool {
		return ranking[a].Importance > ranking[b].Importance
	})

	keep := make([]string, 0, min(k, len(ranking))+1)
	for _, fi := range ranking[:min(k, len(ranking))] {
		keep = append(keep, fi.Feature)
	}
	keep = append(keep, p.settings.TargetColumn)

	out, err := df.Select(keep...)
	if err != nil {
		return nil, nil, errors.NewPreprocessingError("select_features", err)
	}
	p.logger.Info("Top features selected", log.FeaturesKey, keep[:len(keep)-1])
	return out, ranking, nil
}

// featureColumns returns every column except the label, which must exist.
func (p *DataProcessor) featureColumns(df *dataframe.DataFrame) ([]string, error) {
	if !df.Has(p.settings.TargetColumn) {
		return nil, errors.Wrapf(errors.ErrColumnNotFound, "label column %q", p.settings.TargetColumn)
	}
	features := make([]string, 0, df.NumCols()-1)
	for _, c := range df.Columns() {
		if c != p.settings.TargetColumn {
			features = append(features, c)
		}
	}
	if len(features) == 0 {
		return nil, errors.NewValueError("featureColumns", "no feature columns besides the label")
	}
	return features, nil
}
