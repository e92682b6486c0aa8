package dataframe

import (
	"math"
	"strconv"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// Kind is the storage type of a Series.
type Kind int

const (
	// String columns keep the raw CSV text.
	String Kind = iota
	// Float columns hold parsed numbers; empty cells become NaN.
	Float
)

func (k Kind) String() string {
	if k == Float {
		return "float64"
	}
	return "string"
}

// Series is a single named column.
type Series struct {
	name string
	kind Kind
	strs []string
	nums []float64
}

// NewStringSeries creates a string column. values is not copied.
func NewStringSeries(name string, values []string) *Series {
	return &Series{name: name, kind: String, strs: values}
}

// NewFloatSeries creates a numeric column. values is not copied.
func NewFloatSeries(name string, values []float64) *Series {
	return &Series{name: name, kind: Float, nums: values}
}

// Name returns the column name.
func (s *Series) Name() string { return s.name }

// Kind returns the storage type.
func (s *Series) Kind() Kind { return s.kind }

// Len returns the number of rows.
func (s *Series) Len() int {
	if s.kind == Float {
		return len(s.nums)
	}
	return len(s.strs)
}

// Rename returns a shallow copy of s with a new name.
func (s *Series) Rename(name string) *Series {
	c := *s
	c.name = name
	return &c
}

// Value returns row i rendered as text, the way it would be written to CSV.
func (s *Series) Value(i int) string {
	if s.kind == Float {
		return formatFloat(s.nums[i])
	}
	return s.strs[i]
}

// Strings returns every row rendered as text.
func (s *Series) Strings() []string {
	if s.kind == String {
		out := make([]string, len(s.strs))
		copy(out, s.strs)
		return out
	}
	out := make([]string, len(s.nums))
	for i, v := range s.nums {
		out[i] = formatFloat(v)
	}
	return out
}

// Floats returns the column as numbers. String columns are parsed and fail
// with a ValueError on the first cell that is not a number.
func (s *Series) Floats() ([]float64, error) {
	if s.kind == Float {
		out := make([]float64, len(s.nums))
		copy(out, s.nums)
		return out, nil
	}
	out := make([]float64, len(s.strs))
	for i, v := range s.strs {
		f, err := parseCell(v)
		if err != nil {
			return nil, errors.NewValueError("Series.Floats",
				"column '"+s.name+"' row "+strconv.Itoa(i)+": "+strconv.Quote(v)+" is not numeric")
		}
		out[i] = f
	}
	return out, nil
}

// ValueCounts counts occurrences of every distinct rendered value.
func (s *Series) ValueCounts() map[string]int {
	counts := make(map[string]int)
	for i := 0; i < s.Len(); i++ {
		counts[s.Value(i)]++
	}
	return counts
}

func (s *Series) take(rows []int) *Series {
	if s.kind == Float {
		nums := make([]float64, len(rows))
		for i, r := range rows {
			nums[i] = s.nums[r]
		}
		return NewFloatSeries(s.name, nums)
	}
	strs := make([]string, len(rows))
	for i, r := range rows {
		strs[i] = s.strs[r]
	}
	return NewStringSeries(s.name, strs)
}

func parseCell(v string) (float64, error) {
	if v == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(v, 64)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
