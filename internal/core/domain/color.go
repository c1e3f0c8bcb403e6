package domain

import (
	"image/color"
	"strings"

	"github.com/mazznoer/csscolorparser"
)

// ParseColor parses a CSS color string ("#fff", "#6366f1", "rgba(99, 102, 241, 0.2)",
// "white", ...). Unparseable input yields fallback.
func ParseColor(s string, fallback color.NRGBA) color.NRGBA {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return fallback
	}
	r, g, b, a := c.RGBA255()
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// WithAlpha scales the alpha channel of c by f, clamped to [0,1].
func WithAlpha(c color.NRGBA, f float64) color.NRGBA {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	c.A = uint8(float64(c.A)*f + 0.5)
	return c
}

var (
	White       = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	Black       = color.NRGBA{A: 0xff}
	Transparent = color.NRGBA{}
)
