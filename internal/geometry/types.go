// Package geometry maps layer settings and an analysis snapshot to drawable,
// backend-free geometry in the layer's local coordinate box. Every generator
// is a pure function of its inputs.
package geometry

import (
	"image/color"
	"math"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Role tags what a shape stands for in its layer.
type Role string

const (
	RoleBar    Role = "bar"
	RoleShadow Role = "shadow"
	RoleLine   Role = "line"
	RoleArea   Role = "area"
)

// Op is a path verb, named after the SVG path commands.
type Op string

const (
	OpMove  Op = "M"
	OpLine  Op = "L"
	OpCubic Op = "C"
	OpClose Op = "Z"
)

type Segment struct {
	Op  Op      `json:"op"`
	Pts []Point `json:"pts,omitempty"`
}

// Path is a sequence of segments in local coordinates.
type Path []Segment

func (p Path) MoveTo(x, y float64) Path {
	return append(p, Segment{Op: OpMove, Pts: []Point{{x, y}}})
}

func (p Path) LineTo(x, y float64) Path {
	return append(p, Segment{Op: OpLine, Pts: []Point{{x, y}}})
}

func (p Path) CubeTo(c1x, c1y, c2x, c2y, x, y float64) Path {
	return append(p, Segment{Op: OpCubic, Pts: []Point{{c1x, c1y}, {c2x, c2y}, {x, y}}})
}

func (p Path) Close() Path {
	return append(p, Segment{Op: OpClose})
}

// Rect returns the closed rectangle path [x, x+w] x [y, y+h].
func Rect(x, y, w, h float64) Path {
	var p Path
	return p.MoveTo(x, y).LineTo(x+w, y).LineTo(x+w, y+h).LineTo(x, y+h).Close()
}

// Points returns every point of the path, control points included.
func (p Path) Points() []Point {
	var out []Point
	for _, s := range p {
		out = append(out, s.Pts...)
	}
	return out
}

// Bounds returns the min and max corners over all path points.
func (p Path) Bounds() (Point, Point) {
	pts := p.Points()
	if len(pts) == 0 {
		return Point{}, Point{}
	}
	lo := Point{math.Inf(1), math.Inf(1)}
	hi := Point{math.Inf(-1), math.Inf(-1)}
	for _, pt := range pts {
		lo.X, lo.Y = math.Min(lo.X, pt.X), math.Min(lo.Y, pt.Y)
		hi.X, hi.Y = math.Max(hi.X, pt.X), math.Max(hi.Y, pt.Y)
	}
	return lo, hi
}

// LinearGradient interpolates From at P0 to To at P1, both in local
// coordinates. Points beyond either end take the end color.
type LinearGradient struct {
	P0   Point       `json:"p0"`
	P1   Point       `json:"p1"`
	From color.NRGBA `json:"from"`
	To   color.NRGBA `json:"to"`
}

// At returns the gradient color at local point p.
func (g LinearGradient) At(p Point) color.NRGBA {
	dx, dy := g.P1.X-g.P0.X, g.P1.Y-g.P0.Y
	l2 := dx*dx + dy*dy
	var t float64
	if l2 > 0 {
		t = ((p.X-g.P0.X)*dx + (p.Y-g.P0.Y)*dy) / l2
	}
	t = math.Max(0, math.Min(1, t))
	lerp := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	return color.NRGBA{
		R: lerp(g.From.R, g.To.R),
		G: lerp(g.From.G, g.To.G),
		B: lerp(g.From.B, g.To.B),
		A: lerp(g.From.A, g.To.A),
	}
}

// Paint is a solid color, or a gradient when Gradient is set.
type Paint struct {
	Color    color.NRGBA     `json:"color"`
	Gradient *LinearGradient `json:"gradient,omitempty"`
}

type Stroke struct {
	Width float64     `json:"width"`
	Color color.NRGBA `json:"color"`
	Round bool        `json:"round,omitempty"`
}

type Shape struct {
	Role   Role    `json:"role"`
	Path   Path    `json:"path"`
	Fill   *Paint  `json:"fill,omitempty"`
	Stroke *Stroke `json:"stroke,omitempty"`
}

// TextRun is a styled single-line text centered on the local origin.
type TextRun struct {
	Text   string      `json:"text"`
	Font   string      `json:"font"`
	Size   float64     `json:"size"`
	Bold   bool        `json:"bold,omitempty"`
	Italic bool        `json:"italic,omitempty"`
	Color  color.NRGBA `json:"color"`
}

// ImageFill is an image stretched over [0, Width] x [0, Height].
type ImageFill struct {
	URL    string  `json:"url"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Geometry is everything one layer draws, in a local box of Width x Height
// whose center lands on the layer's placement point.
type Geometry struct {
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Shapes []Shape    `json:"shapes,omitempty"`
	Text   *TextRun   `json:"text,omitempty"`
	Image  *ImageFill `json:"image,omitempty"`
}

// Count returns the number of shapes with role r.
func (g Geometry) Count(r Role) int {
	n := 0
	for _, s := range g.Shapes {
		if s.Role == r {
			n++
		}
	}
	return n
}
