package polar

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoSamples is returned when there is nothing to draw.
var ErrNoSamples = errors.New("no sailing samples found with the provided filters")

const diagramSize = 9 * vg.Inch

// project maps a polar (angle, speed) pair onto the page, 0 degrees up, clockwise.
func project(angleDeg, stw float64) plotter.XY {
	rad := angleDeg * math.Pi / 180
	return plotter.XY{X: stw * math.Sin(rad), Y: stw * math.Cos(rad)}
}

// RenderDiagram draws the samples and curves as a PNG polar diagram.
func RenderDiagram(w io.Writer, curves []Curve, pct float64) error {
	if SampleCount(curves) == 0 {
		return ErrNoSamples
	}

	p := plot.New()
	p.Title.Text = "Sailing Polar Diagram by True Wind Speed"
	p.X.Label.Text = "STW (kn)"
	p.Y.Label.Text = "STW (kn)"

	maxSTW := 1.0
	for _, c := range curves {
		for _, s := range c.Samples {
			maxSTW = math.Max(maxSTW, s.STW)
		}
	}
	maxSTW = math.Ceil(maxSTW)

	if err := addRings(p, maxSTW); err != nil {
		return err
	}

	for i, c := range curves {
		if len(c.Samples) == 0 {
			continue
		}
		col := plotutil.Color(i)

		pts := make(plotter.XYs, 0, len(c.Samples))
		for _, s := range c.Samples {
			pts = append(pts, project(s.Angle, s.STW))
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to create scatter for %s: %w", c.Band.Label, err)
		}
		r, g, b, _ := col.RGBA()
		scatter.GlyphStyle.Color = color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 40}
		scatter.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(scatter)

		if !hasSpeed(c.Points) {
			continue
		}
		linePts := make(plotter.XYs, 0, len(c.Points))
		for _, cp := range c.Points {
			linePts = append(linePts, project(cp.Angle, cp.STW))
		}
		line, err := plotter.NewLine(linePts)
		if err != nil {
			return fmt.Errorf("failed to create curve for %s: %w", c.Band.Label, err)
		}
		line.Color = col
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s (%dth %%ile)", c.Band.Label, int(pct)), line)
	}

	p.X.Min, p.X.Max = -maxSTW, maxSTW
	p.Y.Min, p.Y.Max = -maxSTW, maxSTW
	p.Legend.Top = true
	p.Legend.Left = false

	wt, err := p.WriterTo(diagramSize, diagramSize, "png")
	if err != nil {
		return fmt.Errorf("failed to render diagram: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write diagram: %w", err)
	}
	return nil
}

// addRings draws a grey speed circle per knot.
func addRings(p *plot.Plot, maxSTW float64) error {
	for kn := 1.0; kn <= maxSTW; kn++ {
		ring := make(plotter.XYs, 0, 73)
		for a := 0.0; a <= 360; a += 5 {
			ring = append(ring, project(a, kn))
		}
		l, err := plotter.NewLine(ring)
		if err != nil {
			return fmt.Errorf("failed to create speed ring: %w", err)
		}
		l.Color = color.Gray{Y: 210}
		l.Width = vg.Points(0.5)
		p.Add(l)
	}
	return nil
}

func hasSpeed(points []CurvePoint) bool {
	for _, p := range points {
		if p.STW > 0 {
			return true
		}
	}
	return false
}
