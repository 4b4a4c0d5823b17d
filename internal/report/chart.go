package report

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Chart draws the average detection and extraction time of every combination
// as grouped bars and saves the chart on Close.
type Chart struct {
	path string
	rows []Row
}

// NewChart returns a Chart saved to path. The extension picks the format.
func NewChart(path string) *Chart {
	return &Chart{path: path}
}

// Write buffers r.
func (c *Chart) Write(r Row) error {
	c.rows = append(c.rows, r)
	return nil
}

// Close renders and saves the chart.
func (c *Chart) Close() error {
	if len(c.rows) == 0 {
		return nil
	}
	p, err := c.plot()
	if err != nil {
		return err
	}
	width := vg.Length(len(c.rows)) * vg.Centimeter
	if width < 12*vg.Centimeter {
		width = 12 * vg.Centimeter
	}
	return errors.Wrapf(p.Save(width, 10*vg.Centimeter, c.path), "cannot save chart %s", c.path)
}

func (c *Chart) plot() (*plot.Plot, error) {
	det := make(plotter.Values, len(c.rows))
	ext := make(plotter.Values, len(c.rows))
	names := make([]string, len(c.rows))
	for i, r := range c.rows {
		det[i] = r.AvgDetectionMs
		ext[i] = r.AvgExtractionMs
		names[i] = r.Detector + "/" + r.Descriptor
	}

	p := plot.New()
	p.Title.Text = "Average time per frame"
	p.Y.Label.Text = "ms"

	w := vg.Points(8)
	detBars, err := plotter.NewBarChart(det, w)
	if err != nil {
		return nil, errors.Wrap(err, "detection bars")
	}
	detBars.LineStyle.Width = vg.Length(0)
	detBars.Color = plotutil.Color(0)
	detBars.Offset = -w / 2

	extBars, err := plotter.NewBarChart(ext, w)
	if err != nil {
		return nil, errors.Wrap(err, "extraction bars")
	}
	extBars.LineStyle.Width = vg.Length(0)
	extBars.Color = plotutil.Color(1)
	extBars.Offset = w / 2

	p.Add(detBars, extBars)
	p.Legend.Add("detection", detBars)
	p.Legend.Add("extraction", extBars)
	p.Legend.Top = true
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 1.2
	return p, nil
}
