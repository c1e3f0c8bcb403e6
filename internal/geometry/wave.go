package geometry

import (
	"math"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

// Wave builds the oscilloscope polyline from time-domain bytes, 128 being the
// center line.
func Wave(s domain.WaveSettings, samples []uint8) Geometry {
	g := Geometry{Width: s.Width, Height: s.Height}
	n := len(samples)
	if n == 0 || (!s.Stroke && !s.Fill) {
		return g
	}

	pts := make([]Point, n)
	for i, v := range samples {
		frac := float64(i) / float64(n)
		dev := (float64(v)/128 - 1) * s.Height / 2
		if s.TaperEdges {
			dev *= math.Sin(frac * math.Pi)
		}
		if s.Wavelength > 0 {
			dev *= 1 + 0.3*math.Sin(frac*math.Pi*s.Wavelength)
		}
		pts[i] = Point{X: frac * s.Width, Y: s.Height/2 + dev}
	}

	if s.Fill {
		var area Path
		area = area.MoveTo(0, s.Height)
		for _, p := range pts {
			area = area.LineTo(p.X, p.Y)
		}
		area = area.LineTo(s.Width, s.Height).LineTo(0, s.Height).Close()
		g.Shapes = append(g.Shapes, Shape{
			Role: RoleArea,
			Path: area,
			Fill: &Paint{Color: domain.ParseColor(s.FillColor, domain.White)},
		})
	}
	if s.Stroke {
		var line Path
		line = line.MoveTo(pts[0].X, pts[0].Y)
		for _, p := range pts[1:] {
			line = line.LineTo(p.X, p.Y)
		}
		g.Shapes = append(g.Shapes, Shape{
			Role: RoleLine,
			Path: line,
			Stroke: &Stroke{
				Width: s.LineWidth,
				Color: domain.ParseColor(s.StrokeColor, domain.White),
				Round: true,
			},
		})
	}
	return g
}
