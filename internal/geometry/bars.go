package geometry

import (
	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

// BarCount is fixed regardless of the analysis window size.
const BarCount = 64

var (
	defaultBarColor    = domain.ParseColor("#6366f1", domain.White)
	defaultShadowColor = domain.ParseColor("rgba(99, 102, 241, 0.2)", domain.Transparent)
)

// BarSpectrum lays out BarCount bars from the first frequency bins of snap.
// Bins past the analysed range read as 0.
func BarSpectrum(s domain.BarSpectrumSettings, snap domain.Snapshot) Geometry {
	analysisLength := len(snap.Frequencies)
	if analysisLength == 0 {
		analysisLength = BarCount
	}

	barWidth := s.BarWidth
	if s.IsBarWidthAuto {
		barWidth = s.Width / float64(analysisLength) * 2.5
	}
	spacing := s.BarSpacing
	if s.IsBarSpacingAuto {
		spacing = barWidth * 0.3
	}

	barPaint := &Paint{Color: domain.ParseColor(s.BarColor, defaultBarColor)}
	var shadowPaint *Paint
	if s.ShadowHeight > 0 {
		shadow := domain.ParseColor(s.ShadowColor, defaultShadowColor)
		shadowPaint = &Paint{
			Color: shadow,
			Gradient: &LinearGradient{
				P0:   Point{0, s.Height},
				P1:   Point{0, s.Height + s.ShadowHeight},
				From: shadow,
				To:   domain.WithAlpha(shadow, 0),
			},
		}
	}

	g := Geometry{Width: s.Width, Height: s.Height}
	for i := 0; i < BarCount; i++ {
		h := float64(snap.Frequency(i)) / 255 * s.Height
		x := float64(i) * (barWidth + spacing)
		g.Shapes = append(g.Shapes, Shape{
			Role: RoleBar,
			Path: Rect(x, s.Height-h, barWidth, h),
			Fill: barPaint,
		})
	}
	if shadowPaint != nil {
		for i := 0; i < BarCount; i++ {
			x := float64(i) * (barWidth + spacing)
			g.Shapes = append(g.Shapes, Shape{
				Role: RoleShadow,
				Path: Rect(x, s.Height, barWidth, s.ShadowHeight),
				Fill: shadowPaint,
			})
		}
	}
	return g
}
