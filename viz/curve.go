package viz

import (
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

const (
	curveWidth  = 8 * vg.Inch
	curveHeight = 5 * vg.Inch
)

// PlotLearningCurve draws one line per history key ("set-metric") against
// the round number and saves it to path. The image format follows the
// extension of path (png, svg, pdf, ...).
func PlotLearningCurve(history map[string][]float64, title, path string) error {
	p, err := learningCurve(history, title)
	if err != nil {
		return err
	}
	if err := p.Save(curveWidth, curveHeight, path); err != nil {
		return errors.Wrapf(err, "PlotLearningCurve: save %s", path)
	}
	return nil
}

func learningCurve(history map[string][]float64, title string) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, errors.NewValueError("PlotLearningCurve", "empty history")
	}

	keys := make([]string, 0, len(history))
	for k := range history {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "round"
	p.Y.Label.Text = "score"
	p.Legend.Top = true

	lines := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		scores := history[k]
		pts := make(plotter.XYs, len(scores))
		for i, s := range scores {
			pts[i].X = float64(i)
			pts[i].Y = s
		}
		lines = append(lines, k, pts)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, errors.Wrap(err, "PlotLearningCurve")
	}
	return p, nil
}
