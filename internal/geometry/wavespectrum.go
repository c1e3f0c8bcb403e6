package geometry

import (
	"math"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

// spectrumGroup is how many neighbouring bins are averaged into one point.
const spectrumGroup = 4

// SpectrumLevels crops the bins to maxFrequency, averages groups of
// spectrumGroup bins and normalizes to [0, 1].
func SpectrumLevels(snap domain.Snapshot, maxFrequency float64) []float64 {
	bins := snap.Frequencies
	if hz := snap.BinHz(); hz > 0 && maxFrequency > 0 {
		limit := int(math.Ceil(maxFrequency / hz))
		if limit < 1 {
			limit = 1
		}
		if limit < len(bins) {
			bins = bins[:limit]
		}
	}

	out := make([]float64, 0, (len(bins)+spectrumGroup-1)/spectrumGroup)
	for i := 0; i < len(bins); i += spectrumGroup {
		end := min(i+spectrumGroup, len(bins))
		sum := 0
		for _, v := range bins[i:end] {
			sum += int(v)
		}
		out = append(out, float64(sum)/float64(end-i)/255)
	}
	return out
}

// WaveSpectrum draws the levels as a smooth area closed to the bottom edge.
// Each interval is a cubic with control points at one and two thirds of its
// width, holding the start and end heights.
func WaveSpectrum(s domain.WaveSpectrumSettings, snap domain.Snapshot) Geometry {
	g := Geometry{Width: s.Width, Height: s.Height}
	levels := SpectrumLevels(snap, s.MaxFrequency)
	n := len(levels)
	if n == 0 {
		return g
	}

	pts := make([]Point, n)
	for i, v := range levels {
		var frac float64
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		if s.TaperEdges {
			v *= math.Sin(frac * math.Pi)
		}
		pts[i] = Point{X: frac * s.Width, Y: s.Height - v*s.Height}
	}

	var curve Path
	curve = curve.MoveTo(pts[0].X, pts[0].Y)
	for i := 0; i < n-1; i++ {
		a, b := pts[i], pts[i+1]
		dx := b.X - a.X
		curve = curve.CubeTo(a.X+dx/3, a.Y, a.X+dx*2/3, b.Y, b.X, b.Y)
	}

	var area Path
	area = area.MoveTo(0, s.Height).LineTo(pts[0].X, pts[0].Y)
	area = append(area, curve[1:]...)
	area = area.LineTo(s.Width, s.Height).Close()

	fill := domain.ParseColor(s.FillColor, domain.White)
	fill.A = 0xff
	g.Shapes = append(g.Shapes, Shape{
		Role: RoleArea,
		Path: area,
		Fill: &Paint{
			Color: fill,
			Gradient: &LinearGradient{
				P0:   Point{0, 0},
				P1:   Point{0, s.Height},
				From: fill,
				To:   domain.WithAlpha(fill, 0),
			},
		},
	})

	if s.Stroke {
		g.Shapes = append(g.Shapes, Shape{
			Role: RoleLine,
			Path: curve,
			Stroke: &Stroke{
				Width: 1,
				Color: domain.WithAlpha(domain.ParseColor(s.StrokeColor, domain.White), 0.5),
			},
		})
	}
	return g
}
