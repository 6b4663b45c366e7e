package trainer

import (
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// plotFloor は棒グラフに描く R² の下限。これより低いスコアは下限に揃える
const plotFloor = -1.0

// PlotReport draws the test R² of every candidate as a bar chart.
// The image format follows the file extension (.png, .svg, .pdf, ...).
func PlotReport(report Report, path string) error {
	if len(report) == 0 {
		return errors.NewValueError("PlotReport", "empty report")
	}

	values := make(plotter.Values, len(report))
	names := make([]string, len(report))
	for i, e := range report {
		names[i] = e.Name
		v := e.TestScore
		if math.IsNaN(v) || v < plotFloor {
			v = plotFloor
		}
		values[i] = v
	}

	p := plot.New()
	p.Title.Text = "Candidate R² on test split"
	p.Y.Label.Text = "R²"
	p.Y.Min = plotFloor
	p.Y.Max = 1

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return errors.Wrap(err, "failed to build bar chart")
	}
	p.Add(bars, plotter.NewGrid())
	p.NominalX(names...)

	floor := plotter.NewFunction(func(float64) float64 { return AcceptanceFloor })
	floor.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(floor)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := p.Save(12*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot to %s", path)
	}
	return nil
}
