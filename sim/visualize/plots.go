// Package visualize renders a ResultSet as PNG plots and an HTML report.
package visualize

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sca-traffic/sca-mcs/sim"
)

// PlotsDir is the subdirectory of a run's output directory holding the plots.
const PlotsDir = "visualizations"

// Output file names written by GeneratePlots.
const (
	ReactionTimesFile = "reaction_times.png"
	AccidentProbsFile = "accident_probs.png"
	ScatterFile       = "window_vs_risk.png"
	ReportFile        = "report.html"
)

// ResultVisualizer renders plots for one simulation run.
type ResultVisualizer struct {
	Bins             int // histogram bins for the PNG plots
	MaxScatterPoints int // scatter points are strided down to this many
	Width, Height    vg.Length
}

// NewResultVisualizer returns a visualizer with default sizes.
func NewResultVisualizer() *ResultVisualizer {
	return &ResultVisualizer{
		Bins:             50,
		MaxScatterPoints: 5000,
		Width:            8 * vg.Inch,
		Height:           5 * vg.Inch,
	}
}

// GeneratePlots writes every plot into dir, creating it if needed, and
// returns the written paths.
func (v *ResultVisualizer) GeneratePlots(results *sim.ResultSet, dir string) ([]string, error) {
	if results == nil || results.Len() == 0 {
		return nil, fmt.Errorf("%w: no results to plot", sim.ErrConfiguration)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating plot dir: %w", err)
	}

	var written []string
	steps := []struct {
		file string
		draw func(path string) error
	}{
		{ReactionTimesFile, func(p string) error {
			return v.histogram(results.ReactionTimes, "Critical Intervention Window", "window (min)", p)
		}},
		{AccidentProbsFile, func(p string) error {
			return v.histogram(results.AccidentProbs, "Accident Probability", "probability", p)
		}},
		{ScatterFile, func(p string) error { return v.scatter(results, p) }},
		{ReportFile, func(p string) error { return writeReport(results, p) }},
	}
	for _, s := range steps {
		path := filepath.Join(dir, s.file)
		if err := s.draw(path); err != nil {
			return written, fmt.Errorf("rendering %s: %w", s.file, err)
		}
		written = append(written, path)
	}
	logrus.Debugf("wrote %d plots to %s", len(written), dir)
	return written, nil
}

func (v *ResultVisualizer) histogram(values []float64, title, xLabel, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "trials"

	h, err := plotter.NewHist(plotter.Values(values), v.Bins)
	if err != nil {
		return err
	}
	p.Add(h)
	return p.Save(v.Width, v.Height, path)
}

func (v *ResultVisualizer) scatter(results *sim.ResultSet, path string) error {
	n := results.Len()
	stride := 1
	if v.MaxScatterPoints > 0 && n > v.MaxScatterPoints {
		stride = (n + v.MaxScatterPoints - 1) / v.MaxScatterPoints
	}
	pts := make(plotter.XYs, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		pts = append(pts, plotter.XY{X: results.ReactionTimes[i], Y: results.AccidentProbs[i]})
	}

	p := plot.New()
	p.Title.Text = "Critical Window vs Accident Probability"
	p.X.Label.Text = "window (min)"
	p.Y.Label.Text = "accident probability"

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Radius = vg.Points(1)
	p.Add(s)
	return p.Save(v.Width, v.Height, path)
}

// windowDividers bins critical windows in 2-minute steps over [2, 32).
var windowDividers = floats.Span(make([]float64, 16), sim.MinCriticalWindow, sim.MaxCriticalWindow+2)

// writeReport renders an interactive HTML page: event counts and the
// critical window distribution.
func writeReport(results *sim.ResultSet, path string) error {
	var sca, acc, joint int
	for i := range results.SCAEvents {
		if results.SCAEvents[i] {
			sca++
		}
		if results.AccidentsOccurred[i] {
			acc++
		}
		if results.SCAEvents[i] && results.AccidentsOccurred[i] {
			joint++
		}
	}

	events := charts.NewBar()
	events.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "SCA Traffic Risk", Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Simulated Events", Subtitle: fmt.Sprintf("trials=%d", results.Len())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	events.SetXAxis([]string{"SCA", "Accident", "SCA + Accident"}).
		AddSeries("events", []opts.BarData{{Value: sca}, {Value: acc}, {Value: joint}},
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	lo, hi := windowDividers[0], windowDividers[len(windowDividers)-1]
	sorted := make([]float64, len(results.ReactionTimes))
	for i, rt := range results.ReactionTimes {
		sorted[i] = min(max(rt, lo), math.Nextafter(hi, lo))
	}
	slices.Sort(sorted)
	counts := stat.Histogram(nil, windowDividers, sorted, nil)
	labels := make([]string, len(counts))
	bars := make([]opts.BarData, len(counts))
	for i, c := range counts {
		labels[i] = fmt.Sprintf("%g-%g", windowDividers[i], windowDividers[i+1])
		bars[i] = opts.BarData{Value: c}
	}
	windows := charts.NewBar()
	windows.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Critical Window Distribution"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	windows.SetXAxis(labels).AddSeries("trials", bars)

	page := components.NewPage()
	page.SetPageTitle("SCA Traffic Risk")
	page.AddCharts(events, windows)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
