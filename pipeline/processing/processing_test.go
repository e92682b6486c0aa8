package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atul219/Hotel-Reservation/dataframe"
	"github.com/atul219/Hotel-Reservation/pipeline/config"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ArtifactsDir = t.TempDir()
	cfg.DataProcessing.CategoricalColumns = []string{"type_of_meal_plan", "booking_status"}
	cfg.DataProcessing.NumericalColumns = []string{"lead_time", "avg_price_per_room"}
	cfg.DataProcessing.SkewnessThreshold = 3
	cfg.DataProcessing.NoOfFeatures = 2
	return cfg
}

// reservations builds n rows. lead_time has one large outlier so it is
// heavily skewed; avg_price_per_room is uniform. Rows with i%5 == 0 are
// cancelled.
func reservations(n int) *dataframe.DataFrame {
	ids := make([]string, n)
	meals := make([]string, n)
	lead := make([]float64, n)
	price := make([]float64, n)
	status := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("INN%05d", i)
		meals[i] = fmt.Sprintf("Meal Plan %d", i%3+1)
		lead[i] = float64(i % 4)
		price[i] = 80 + float64(i)
		status[i] = "Not_Canceled"
		if i%5 == 0 {
			status[i] = "Canceled"
		}
	}
	lead[n-1] = 1000
	df, err := dataframe.New(
		dataframe.NewFloatSeries("Unnamed: 0", price),
		dataframe.NewStringSeries("Booking_ID", ids),
		dataframe.NewStringSeries("type_of_meal_plan", meals),
		dataframe.NewFloatSeries("lead_time", lead),
		dataframe.NewFloatSeries("avg_price_per_room", price),
		dataframe.NewStringSeries("booking_status", status),
	)
	if err != nil {
		panic(err)
	}
	return df
}

func floats(t *testing.T, df *dataframe.DataFrame, col string) []float64 {
	t.Helper()
	s, err := df.Column(col)
	require.NoError(t, err)
	v, err := s.Floats()
	require.NoError(t, err)
	return v
}

func TestClean(t *testing.T) {
	p := New(testConfig(t), nil)
	df := reservations(6)
	withDup := df.Take([]int{0, 1, 2, 1, 3, 4, 5, 5})

	out := p.Clean(withDup)
	assert.Equal(t, []string{"type_of_meal_plan", "lead_time", "avg_price_per_room", "booking_status"}, out.Columns())
	assert.Equal(t, 6, out.NumRows())

	// identifier columns are optional
	again := p.Clean(out)
	assert.Equal(t, out.Columns(), again.Columns())
}

func TestEncodeSharesCodesAcrossSplits(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataProcessing.CategoricalColumns = []string{"room"}
	p := New(cfg, nil)

	train, err := dataframe.New(dataframe.NewStringSeries("room", []string{"Room_Type 4", "Room_Type 1", "Room_Type 4"}))
	require.NoError(t, err)
	test, err := dataframe.New(dataframe.NewStringSeries("room", []string{"Room_Type 7", "Room_Type 1"}))
	require.NoError(t, err)

	require.NoError(t, p.FitEncoders(train, test))
	encTrain, err := p.Encode(train)
	require.NoError(t, err)
	encTest, err := p.Encode(test)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 0, 1}, floats(t, encTrain, "room"))
	assert.Equal(t, []float64{2, 0}, floats(t, encTest, "room"))
	assert.Equal(t, map[string]map[string]int{
		"room": {"Room_Type 1": 0, "Room_Type 4": 1, "Room_Type 7": 2},
	}, p.Mappings())
}

func TestEncodeNumericCategoriesInValueOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataProcessing.CategoricalColumns = []string{"no_of_special_requests"}
	p := New(cfg, nil)

	train, err := dataframe.New(dataframe.NewFloatSeries("no_of_special_requests", []float64{2, 10, 9, 0}))
	require.NoError(t, err)
	test, err := dataframe.New(dataframe.NewFloatSeries("no_of_special_requests", []float64{10, 0}))
	require.NoError(t, err)

	require.NoError(t, p.FitEncoders(train, test))
	encTrain, err := p.Encode(train)
	require.NoError(t, err)
	encTest, err := p.Encode(test)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 3, 2, 0}, floats(t, encTrain, "no_of_special_requests"))
	assert.Equal(t, []float64{3, 0}, floats(t, encTest, "no_of_special_requests"))
	assert.Equal(t, map[string]map[string]int{
		"no_of_special_requests": {"0": 0, "2": 1, "9": 2, "10": 3},
	}, p.Mappings())
}

func TestEncodeErrors(t *testing.T) {
	p := New(testConfig(t), nil)
	df := reservations(5)

	_, err := p.Encode(df)
	var pe *errors.PreprocessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "encode", pe.Step)

	other, err := dataframe.New(dataframe.NewStringSeries("booking_status", []string{"Canceled"}))
	require.NoError(t, err)
	assert.Error(t, p.FitEncoders(df, other), "second frame lacks type_of_meal_plan")
}

func TestFixSkew(t *testing.T) {
	p := New(testConfig(t), nil)
	train := reservations(20)
	require.NoError(t, p.FitSkew(train))

	out, err := p.FixSkew(train)
	require.NoError(t, err)
	lead := floats(t, out, "lead_time")
	assert.InDelta(t, math.Log1p(1000), lead[19], 1e-12)
	assert.InDelta(t, math.Log1p(3), lead[3], 1e-12)
	assert.Equal(t, floats(t, train, "avg_price_per_room"), floats(t, out, "avg_price_per_room"))

	// the column set comes from train even when test is not skewed
	test := reservations(4)
	testOut, err := p.FixSkew(test.Take([]int{0, 1, 2}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, math.Log1p(1), math.Log1p(2)}, floats(t, testOut, "lead_time"))

	// selection on unchanged data is stable, so fitting again picks the same columns
	selected := append([]int(nil), p.skew.Columns...)
	require.NoError(t, p.FitSkew(train))
	assert.Equal(t, selected, p.skew.Columns)
}

func TestFixSkewRejectsValuesAtOrBelowMinusOne(t *testing.T) {
	p := New(testConfig(t), nil)
	require.NoError(t, p.FitSkew(reservations(20)))

	bad, err := reservations(3).WithColumn(dataframe.NewFloatSeries("lead_time", []float64{0, -1, 2}))
	require.NoError(t, err)
	_, err = p.FixSkew(bad)

	var pe *errors.PreprocessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "fix_skew", pe.Step)
	var ve *errors.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestRebalance(t *testing.T) {
	p := New(testConfig(t), nil)
	train := p.Clean(reservations(20))
	require.NoError(t, p.FitEncoders(train))
	encoded, err := p.Encode(train)
	require.NoError(t, err)

	out, err := p.Rebalance(encoded)
	require.NoError(t, err)

	cols := out.Columns()
	assert.Equal(t, "booking_status", cols[len(cols)-1])
	s, err := out.Column("booking_status")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"0": 16, "1": 16}, s.ValueCounts())
}

func TestSelectFeatures(t *testing.T) {
	n := 40
	noiseA := make([]float64, n)
	signal := make([]float64, n)
	noiseB := make([]float64, n)
	label := make([]float64, n)
	for i := 0; i < n; i++ {
		noiseA[i] = 7
		noiseB[i] = 3
		label[i] = float64(i % 2)
		signal[i] = label[i]*10 + float64(i%3)
	}
	df, err := dataframe.New(
		dataframe.NewFloatSeries("noise_a", noiseA),
		dataframe.NewFloatSeries("signal", signal),
		dataframe.NewFloatSeries("noise_b", noiseB),
		dataframe.NewFloatSeries("booking_status", label),
	)
	require.NoError(t, err)

	tests := []struct {
		k    int
		want []string
	}{
		{1, []string{"signal", "booking_status"}},
		{2, []string{"signal", "noise_a", "booking_status"}},
		{10, []string{"signal", "noise_a", "noise_b", "booking_status"}},
	}
	p := New(testConfig(t), nil)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("k=%d", tt.k), func(t *testing.T) {
			out, ranking, err := p.SelectFeatures(context.Background(), df, tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Columns())
			assert.Equal(t, n, out.NumRows())
			require.Len(t, ranking, 3)
			assert.InDelta(t, 1.0, ranking[0].Importance, 1e-9)
		})
	}

	_, _, err = p.SelectFeatures(context.Background(), df, 0)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	paths := cfg.Paths()
	all := reservations(25)
	train := all.Take([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 24})
	test := all.Take([]int{20, 21, 22, 23})
	require.NoError(t, train.WriteCSVFile(paths.Train))
	require.NoError(t, test.WriteCSVFile(paths.Test))

	logger, _ := log.NewTestLogger(log.LevelInfo)
	res, err := New(cfg, logger).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Features, 2)
	assert.Equal(t, 34, res.TrainRows)
	assert.Equal(t, 6, res.TestRows)
	assert.Len(t, res.Importances, 3)

	processedTrain, err := dataframe.ReadCSVFile(paths.ProcessedTrain)
	require.NoError(t, err)
	processedTest, err := dataframe.ReadCSVFile(paths.ProcessedTest)
	require.NoError(t, err)
	assert.Equal(t, processedTrain.Columns(), processedTest.Columns())
	assert.Equal(t, append(res.Features, "booking_status"), processedTrain.Columns())

	status, err := processedTrain.Column("booking_status")
	require.NoError(t, err)
	counts := status.ValueCounts()
	assert.Len(t, counts, 2)
	assert.Equal(t, counts["0"], counts["1"])

	raw, err := os.ReadFile(paths.LabelMappings)
	require.NoError(t, err)
	var mappings map[string]map[string]int
	require.NoError(t, json.Unmarshal(raw, &mappings))
	assert.Equal(t, map[string]int{"Canceled": 0, "Not_Canceled": 1}, mappings["booking_status"])
	assert.FileExists(t, paths.ImportancePlot)

	assert.True(t, logger.ContainsMessage("Data preprocessing completed"))
	assert.True(t, logger.ContainsField(log.StageKey, "preprocessing"))
}

func TestRunFailures(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		_, err := New(testConfig(t), nil).Run(context.Background())
		var pe *errors.PreprocessingError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "load", pe.Step)
	})

	t.Run("missing label", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.DataProcessing.CategoricalColumns = []string{"type_of_meal_plan"}
		cfg.DataProcessing.TargetColumn = "is_canceled"
		df := reservations(10).DropIfExists("booking_status")
		require.NoError(t, df.WriteCSVFile(cfg.Paths().Train))
		require.NoError(t, df.WriteCSVFile(cfg.Paths().Test))

		_, err := New(cfg, nil).Run(context.Background())
		stage, ok := errors.StageOf(err)
		require.True(t, ok)
		assert.Equal(t, errors.StagePreprocessing, stage)
		assert.ErrorIs(t, err, errors.ErrColumnNotFound)
	})
}

func TestProcessedFilesLayout(t *testing.T) {
	cfg := testConfig(t)
	assert.Equal(t, filepath.Join(cfg.ArtifactsDir, "processed", "processed_train.csv"), cfg.Paths().ProcessedTrain)
}
