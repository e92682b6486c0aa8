// Package report renders pipeline artifacts meant for people rather than
// for the next stage, such as feature importance charts.
package report

import (
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	_ "gonum.org/v1/plot/vg/vgimg" // png, jpg, tiff
	_ "gonum.org/v1/plot/vg/vgsvg" // svg

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// FeatureImportance is one bar of an importance chart.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// ImportanceChart draws a horizontal bar chart of importances, first item
// at the top, and writes it to path. The image format follows the file
// extension (.png, .jpg, .svg, ...).
func ImportanceChart(items []FeatureImportance, title, path string) error {
	if len(items) == 0 {
		return errors.NewModelError("ImportanceChart", "empty data", errors.ErrEmptyData)
	}

	// Bars are drawn bottom up, so reverse to put the first item on top.
	values := make(plotter.Values, len(items))
	names := make([]string, len(items))
	for i, item := range items {
		j := len(items) - 1 - i
		values[j] = item.Importance
		names[j] = item.Feature
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "importance"
	p.X.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return errors.Wrap(err, "failed to build bar chart")
	}
	bars.Horizontal = true
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalY(names...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	height := vg.Points(float64(40 + 20*len(items)))
	if err := p.Save(6*vg.Inch, height, path); err != nil {
		return errors.Wrapf(err, "failed to save chart to %s", path)
	}
	return nil
}
