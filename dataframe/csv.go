package dataframe

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// ReadCSV parses a comma separated table with a header row.
//
// A column is numeric when every non-empty cell parses as a float and at
// least one cell is non-empty; all other columns stay as text.
func ReadCSV(r io.Reader) (*DataFrame, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse csv")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv has no header row")
	}

	header := records[0]
	rows := records[1:]
	cols := make([]*Series, len(header))
	for j, name := range header {
		raw := make([]string, len(rows))
		for i, rec := range rows {
			raw[i] = rec[j]
		}
		cols[j] = inferSeries(name, raw)
	}
	df, err := New(cols...)
	if err != nil {
		return nil, err
	}
	df.nRows = len(rows)
	return df, nil
}

// ReadCSVFile reads a CSV file from disk.
func ReadCSVFile(path string) (*DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	df, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return df, nil
}

// WriteCSV writes the header and every row. Numbers use the shortest
// representation that round-trips.
func (df *DataFrame) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(df.Columns()); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}
	for i := 0; i < df.nRows; i++ {
		if err := writer.Write(df.Row(i)); err != nil {
			return errors.Wrapf(err, "failed to write csv row %d", i)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "failed to flush csv")
}

// WriteCSVFile writes the frame to path, creating parent directories.
func (df *DataFrame) WriteCSVFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := df.WriteCSV(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}

func inferSeries(name string, raw []string) *Series {
	nums := make([]float64, len(raw))
	nonEmpty := 0
	for i, v := range raw {
		if v == "" {
			nums[i] = parseNaN()
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return NewStringSeries(name, raw)
		}
		nums[i] = f
		nonEmpty++
	}
	if nonEmpty == 0 {
		return NewStringSeries(name, raw)
	}
	return NewFloatSeries(name, nums)
}

func parseNaN() float64 {
	v, _ := parseCell("")
	return v
}
