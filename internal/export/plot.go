package export

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/optim"
)

var (
	figureWidth  = 8 * vg.Inch
	figureHeight = 5 * vg.Inch

	lostColor     = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	detectedColor = color.RGBA{R: 30, G: 120, B: 200, A: 255}
	aliveColor    = color.RGBA{R: 60, G: 160, B: 60, A: 255}
)

func stylePlot(p *plot.Plot, title, x, y string) {
	p.Title.Text = title
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Title.Padding = vg.Points(8)
	p.Add(plotter.NewGrid())
}

// trackColor colours a track by the particle's final state in a device
// of the given number of zones.
func trackColor(h *dynamo.History, n, zones int) color.Color {
	switch m := h.At(h.Steps()-1, n).Membership; {
	case m == dynamo.Lost:
		return lostColor
	case m > zones:
		return detectedColor
	default:
		return aliveColor
	}
}

func trackXY(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

func linePlot(h *dynamo.History, zones int, title, xl, yl string, xch, ych int, useTime bool) (*plot.Plot, error) {
	p := plot.New()
	stylePlot(p, title, xl, yl)
	for n := 0; n < h.Particles(); n++ {
		xs := h.Time
		if !useTime {
			xs = h.Track(n, xch)
		}
		line, err := plotter.NewLine(trackXY(xs, h.Track(n, ych)))
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(0.8)
		line.LineStyle.Color = trackColor(h, n, zones)
		p.Add(line)
	}
	return p, nil
}

func scatterPlot(h *dynamo.History, step int, title string, radius float64) (*plot.Plot, error) {
	p := plot.New()
	stylePlot(p, title, "x (m)", "y (m)")
	pts := make(plotter.XYs, h.Particles())
	for n := range pts {
		s := h.At(step, n)
		pts[n].X, pts[n].Y = s.Pos[dynamo.X], s.Pos[dynamo.Y]
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	sc.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(sc)
	if radius > 0 {
		p.X.Min, p.X.Max = -radius, radius
		p.Y.Min, p.Y.Max = -radius, radius
	}
	return p, nil
}

// WriteFigures renders the trajectories of one species into dir as SVG
// and returns the file paths. zones is the device's zone count and
// radius its inscribed radius.
func WriteFigures(dir, tag string, h *dynamo.History, zones int, radius float64) ([]string, error) {
	if h.Steps() == 0 || h.Particles() == 0 {
		return nil, fmt.Errorf("species %s has nothing to plot", tag)
	}
	base := sheetReplacer.Replace(tag)

	type figure struct {
		name  string
		build func() (*plot.Plot, error)
	}
	figures := []figure{
		{"xz", func() (*plot.Plot, error) {
			return linePlot(h, zones, tag+" x(z)", "z (m)", "x (m)", 3, 1, false)
		}},
		{"yz", func() (*plot.Plot, error) {
			return linePlot(h, zones, tag+" y(z)", "z (m)", "y (m)", 3, 2, false)
		}},
		{"vz", func() (*plot.Plot, error) {
			return linePlot(h, zones, tag+" axial velocity", "t (s)", "vz (m/s)", 0, 6, true)
		}},
		{"initial", func() (*plot.Plot, error) {
			return scatterPlot(h, 0, tag+" initial cross-section", radius)
		}},
		{"final", func() (*plot.Plot, error) {
			return scatterPlot(h, h.Steps()-1, tag+" final cross-section", radius)
		}},
	}

	paths := make([]string, 0, len(figures))
	for _, fig := range figures {
		p, err := fig.build()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fig.name, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.svg", base, fig.name))
		if err := p.Save(figureWidth, figureHeight, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteScanFigure plots transmission against mass.
func WriteScanFigure(path string, points []optim.ScanPoint) error {
	p := plot.New()
	stylePlot(p, "Mass scan", "m (amu)", "transmission")
	pts := make(plotter.XYs, len(points))
	for i, pt := range points {
		pts[i].X, pts[i].Y = pt.MassAMU, pt.Transmission
	}
	line, marks, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Color = detectedColor
	marks.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(line, marks)
	p.Y.Min, p.Y.Max = 0, 1
	return p.Save(figureWidth, figureHeight, path)
}
