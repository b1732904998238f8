// Package chart renders the pipeline's PNG artifacts with gonum/plot.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"sort"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	DefaultWidth  = 12 * vg.Inch
	DefaultHeight = 6 * vg.Inch
	dateFormat    = "2006-01-02"
)

var ErrNoPoints = errors.New("chart has no points")

// Point is one dated value.
type Point struct {
	Time  time.Time
	Value float64
}

// Mark is a scatter point with a series group and an optional highlight.
type Mark struct {
	Point
	Group     string
	Highlight bool
}

// Size is the rendered image size.
type Size struct {
	Width, Height vg.Length
}

func (s Size) orDefault() Size {
	if s.Width <= 0 || s.Height <= 0 {
		return Size{Width: DefaultWidth, Height: DefaultHeight}
	}
	return s
}

// AnomalyScatter plots amounts over time, one colour per group, with
// highlighted marks drawn as crosses on top.
func AnomalyScatter(title string, marks []Mark, size Size) ([]byte, error) {
	if len(marks) == 0 {
		return nil, ErrNoPoints
	}

	p := newTimePlot(title, "Date", "Amount")

	groups := make(map[string]plotter.XYs)
	var highlighted plotter.XYs
	for _, m := range marks {
		xy := plotter.XY{X: unix(m.Time), Y: m.Value}
		groups[m.Group] = append(groups[m.Group], xy)
		if m.Highlight {
			highlighted = append(highlighted, xy)
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		s, err := plotter.NewScatter(groups[name])
		if err != nil {
			return nil, fmt.Errorf("scatter %s: %w", name, err)
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add(name, s)
	}

	if len(highlighted) > 0 {
		s, err := plotter.NewScatter(highlighted)
		if err != nil {
			return nil, fmt.Errorf("scatter anomalies: %w", err)
		}
		s.GlyphStyle.Color = color.RGBA{R: 220, A: 255}
		s.GlyphStyle.Shape = draw.CrossGlyph{}
		s.GlyphStyle.Radius = vg.Points(5)
		p.Add(s)
		p.Legend.Add("anomaly", s)
	}

	return render(p, size)
}

// ForecastPlot draws the historical series as a solid line and the forecast
// as a dashed line continuing from it.
func ForecastPlot(title string, history, forecast []Point, size Size) ([]byte, error) {
	if len(history) == 0 {
		return nil, ErrNoPoints
	}

	p := newTimePlot(title, "Date", "Net cash flow")

	hist, err := plotter.NewLine(toXYs(history))
	if err != nil {
		return nil, fmt.Errorf("history line: %w", err)
	}
	hist.LineStyle.Color = plotutil.Color(0)
	hist.LineStyle.Width = vg.Points(1.5)
	p.Add(hist)
	p.Legend.Add("historical", hist)

	if len(forecast) > 0 {
		// Start the dashed line at the last observation so the two connect.
		joined := append([]Point{history[len(history)-1]}, forecast...)
		fc, err := plotter.NewLine(toXYs(joined))
		if err != nil {
			return nil, fmt.Errorf("forecast line: %w", err)
		}
		fc.LineStyle.Color = plotutil.Color(1)
		fc.LineStyle.Width = vg.Points(1.5)
		fc.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		p.Add(fc)
		p.Legend.Add("forecast", fc)
	}

	return render(p, size)
}

func newTimePlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.X.Tick.Marker = plot.TimeTicks{Format: dateFormat}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

func render(p *plot.Plot, size Size) ([]byte, error) {
	size = size.orDefault()
	canvas := vgimg.New(size.Width, size.Height)
	p.Draw(draw.New(canvas))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	return buf.Bytes(), nil
}

func toXYs(points []Point) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: unix(pt.Time), Y: pt.Value}
	}
	return xys
}

func unix(t time.Time) float64 {
	return float64(t.Unix())
}
