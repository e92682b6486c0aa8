// Package dataframe is the small row table the pipeline stages pass around.
//
// A DataFrame is an ordered set of equally long Series. Operations return
// new frames and never mutate their receiver; column data may be shared
// between frames, so callers must not write into slices obtained from a
// Series they did not create.
package dataframe

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// DataFrame is an ordered collection of named columns.
type DataFrame struct {
	columns []*Series
	index   map[string]int
	nRows   int
}

// New builds a frame from columns, which must have unique names and equal lengths.
func New(columns ...*Series) (*DataFrame, error) {
	df := &DataFrame{
		columns: make([]*Series, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := df.index[c.Name()]; dup {
			return nil, errors.NewValidationError("columns", "duplicate column name", c.Name())
		}
		if i == 0 {
			df.nRows = c.Len()
		} else if c.Len() != df.nRows {
			return nil, errors.NewDimensionError("dataframe.New", df.nRows, c.Len(), 0)
		}
		df.index[c.Name()] = len(df.columns)
		df.columns = append(df.columns, c)
	}
	return df, nil
}

// NumRows returns the number of rows.
func (df *DataFrame) NumRows() int { return df.nRows }

// NumCols returns the number of columns.
func (df *DataFrame) NumCols() int { return len(df.columns) }

// Columns returns the column names in order.
func (df *DataFrame) Columns() []string {
	names := make([]string, len(df.columns))
	for i, c := range df.columns {
		names[i] = c.Name()
	}
	return names
}

// Has reports whether the frame has a column called name.
func (df *DataFrame) Has(name string) bool {
	_, ok := df.index[name]
	return ok
}

// Column returns the named column.
func (df *DataFrame) Column(name string) (*Series, error) {
	i, ok := df.index[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrColumnNotFound, "column %q", name)
	}
	return df.columns[i], nil
}

// Select returns a frame with exactly the named columns, in the given order.
func (df *DataFrame) Select(names ...string) (*DataFrame, error) {
	cols := make([]*Series, 0, len(names))
	for _, n := range names {
		c, err := df.Column(n)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		out.nRows = df.nRows
	}
	return out, nil
}

// Drop removes the named columns. Every name must exist.
func (df *DataFrame) Drop(names ...string) (*DataFrame, error) {
	for _, n := range names {
		if !df.Has(n) {
			return nil, errors.Wrapf(errors.ErrColumnNotFound, "column %q", n)
		}
	}
	return df.DropIfExists(names...), nil
}

// DropIfExists removes the named columns that are present and ignores the rest.
func (df *DataFrame) DropIfExists(names ...string) *DataFrame {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]string, 0, len(df.columns))
	for _, c := range df.columns {
		if !drop[c.Name()] {
			keep = append(keep, c.Name())
		}
	}
	out, _ := df.Select(keep...)
	return out
}

// WithColumn returns a frame where s replaces the column of the same name,
// or is appended when no such column exists.
func (df *DataFrame) WithColumn(s *Series) (*DataFrame, error) {
	if len(df.columns) > 0 && s.Len() != df.nRows {
		return nil, errors.NewDimensionError("DataFrame.WithColumn", df.nRows, s.Len(), 0)
	}
	cols := make([]*Series, len(df.columns), len(df.columns)+1)
	copy(cols, df.columns)
	if i, ok := df.index[s.Name()]; ok {
		cols[i] = s
	} else {
		cols = append(cols, s)
	}
	return New(cols...)
}

// Take returns the rows at the given positions, in that order.
func (df *DataFrame) Take(rows []int) *DataFrame {
	cols := make([]*Series, len(df.columns))
	for i, c := range df.columns {
		cols[i] = c.take(rows)
	}
	out, _ := New(cols...)
	out.nRows = len(rows)
	return out
}

// Row returns row i rendered as text.
func (df *DataFrame) Row(i int) []string {
	row := make([]string, len(df.columns))
	for j, c := range df.columns {
		row[j] = c.Value(i)
	}
	return row
}

// DropDuplicates removes rows identical to an earlier row across all
// columns, keeping the first occurrence. It returns the number of rows removed.
func (df *DataFrame) DropDuplicates() (*DataFrame, int) {
	seen := make(map[uint64][]int, df.nRows)
	keep := make([]int, 0, df.nRows)
	digest := xxhash.New()

	for i := 0; i < df.nRows; i++ {
		digest.Reset()
		for _, c := range df.columns {
			_, _ = digest.WriteString(c.Value(i))
			_, _ = digest.Write([]byte{0x1f})
		}
		h := digest.Sum64()

		duplicate := false
		for _, prev := range seen[h] {
			if df.rowsEqual(prev, i) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		seen[h] = append(seen[h], i)
		keep = append(keep, i)
	}
	return df.Take(keep), df.nRows - len(keep)
}

func (df *DataFrame) rowsEqual(a, b int) bool {
	for _, c := range df.columns {
		if c.Value(a) != c.Value(b) {
			return false
		}
	}
	return true
}

// ToMatrix copies the named columns into an n_rows × len(names) matrix.
// With no names every column is used.
func (df *DataFrame) ToMatrix(names ...string) (*mat.Dense, error) {
	if len(names) == 0 {
		names = df.Columns()
	}
	if df.nRows == 0 || len(names) == 0 {
		return nil, errors.NewModelError("DataFrame.ToMatrix", "empty data", errors.ErrEmptyData)
	}
	m := mat.NewDense(df.nRows, len(names), nil)
	for j, n := range names {
		c, err := df.Column(n)
		if err != nil {
			return nil, err
		}
		vals, err := c.Floats()
		if err != nil {
			return nil, err
		}
		m.SetCol(j, vals)
	}
	return m, nil
}

// FromMatrix builds a numeric frame from m, naming columns in order.
func FromMatrix(names []string, m mat.Matrix) (*DataFrame, error) {
	r, c := m.Dims()
	if c != len(names) {
		return nil, errors.NewDimensionError("dataframe.FromMatrix", len(names), c, 1)
	}
	cols := make([]*Series, c)
	for j := 0; j < c; j++ {
		vals := make([]float64, r)
		for i := 0; i < r; i++ {
			vals[i] = m.At(i, j)
		}
		cols[j] = NewFloatSeries(names[j], vals)
	}
	return New(cols...)
}

// String renders a short summary, used in log lines.
func (df *DataFrame) String() string {
	return fmt.Sprintf("DataFrame[%d rows × %d cols: %s]", df.nRows, len(df.columns), strings.Join(df.Columns(), ", "))
}
