// Package plots renders pruning sweeps and weight matrices as PNG files.
package plots

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"hebbprune/internal/metrics"
)

var (
	// Width and Height of the saved images.
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

// heatmapColors is chosen so the palette samples [-1, 1] at exact binary steps.
const heatmapColors = 129

// AccuracyVsPruned plots train and validation accuracy against the pruned
// percentage and saves it to path. The baseline is drawn at 0% pruned.
func AccuracyVsPruned(baseline metrics.Baseline, records []metrics.Record, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Pruned %"
	p.Y.Label.Text = "Accuracy"
	p.X.Min = 0
	p.Y.Min = 0
	p.Y.Max = 1.05
	p.Add(plotter.NewGrid())

	train := plotter.XYs{{X: 0, Y: baseline.TrainAccuracy}}
	val := plotter.XYs{{X: 0, Y: baseline.ValAccuracy}}
	for _, rec := range records {
		train = append(train, plotter.XY{X: rec.PrunedPercentage(), Y: rec.TrainAccuracy})
		val = append(val, plotter.XY{X: rec.PrunedPercentage(), Y: rec.ValAccuracy})
	}

	for i, series := range []struct {
		name string
		xys  plotter.XYs
	}{{"train", train}, {"validation", val}} {
		line, points, err := plotter.NewLinePoints(series.xys)
		if err != nil {
			return errors.Wrapf(err, "building %s series", series.name)
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(series.name, line, points)
	}
	p.Legend.Left = true
	p.Legend.Top = false

	if err := p.Save(Width, Height, path); err != nil {
		return errors.Wrapf(err, "failed to save plot %q", path)
	}
	return nil
}

// WeightHeatmap draws weights on a diverging blue/red scale centered at
// zero, inputs along x and outputs along y, and saves it to path.
func WeightHeatmap(weights mat.Matrix, title, path string) error {
	rows, cols := weights.Dims()
	if rows == 0 || cols == 0 {
		return errors.New("empty weight matrix")
	}
	bound := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			bound = math.Max(bound, math.Abs(weights.At(i, j)))
		}
	}
	if bound == 0 || math.IsNaN(bound) || math.IsInf(bound, 0) {
		bound = 1
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)
	heat := plotter.NewHeatMap(weightGrid{m: weights}, cmap.Palette(heatmapColors))
	heat.Min = -bound
	heat.Max = bound

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Input neuron"
	p.Y.Label.Text = "Output neuron"
	p.Add(heat)

	if err := p.Save(Width, Height, path); err != nil {
		return errors.Wrapf(err, "failed to save heatmap %q", path)
	}
	return nil
}

// weightGrid adapts a matrix to plotter.GridXYZ: column c is input neuron c,
// row r is output neuron r.
type weightGrid struct {
	m mat.Matrix
}

func (g weightGrid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g weightGrid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g weightGrid) X(c int) float64    { return float64(c) }
func (g weightGrid) Y(r int) float64    { return float64(r) }
