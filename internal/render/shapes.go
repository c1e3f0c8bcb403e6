package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ewilliams-labs/visualizer/internal/geometry"
)

// paintOp is one fill or stroke of a shape. Ops with a gradient are painted
// through a coverage mask; the rest go straight through the canvas.
type paintOp struct {
	path     geometry.Path
	fill     color.Color
	stroke   *geometry.Stroke
	gradient *geometry.LinearGradient
}

func (o paintOp) sameBatch(p paintOp) bool {
	if o.gradient == nil || p.gradient == nil {
		return o.gradient == nil && p.gradient == nil
	}
	return *o.gradient == *p.gradient
}

func opsFor(shapes []geometry.Shape) []paintOp {
	var ops []paintOp
	for _, s := range shapes {
		if s.Fill != nil && hasArea(s.Path) {
			op := paintOp{path: s.Path, fill: s.Fill.Color}
			if s.Fill.Gradient != nil {
				gr := *s.Fill.Gradient
				op.gradient = &gr
			}
			ops = append(ops, op)
		}
		if s.Stroke != nil && s.Stroke.Width > 0 && s.Stroke.Color.A > 0 {
			ops = append(ops, paintOp{path: s.Path, stroke: s.Stroke})
		}
	}
	return ops
}

func hasArea(p geometry.Path) bool {
	lo, hi := p.Bounds()
	return hi.X > lo.X && hi.Y > lo.Y
}

// paintShapes draws shapes in order onto dst, batching runs of ops that can
// share one rasterization.
func paintShapes(dst *image.RGBA, m geometry.Matrix, shapes []geometry.Shape) {
	ops := opsFor(shapes)
	for start := 0; start < len(ops); {
		end := start + 1
		for end < len(ops) && ops[start].sameBatch(ops[end]) {
			end++
		}
		batch := ops[start:end]
		if batch[0].gradient != nil {
			paintGradientBatch(dst, m, batch)
		} else {
			paintSolidBatch(dst, m, batch)
		}
		start = end
	}
}

func paintSolidBatch(dst *image.RGBA, m geometry.Matrix, ops []paintOp) {
	b := dst.Bounds()
	c := canvas.New(float64(b.Dx()), float64(b.Dy()))
	ctx := canvas.NewContext(c)
	for _, op := range ops {
		p := toCanvasPath(op.path, m, float64(b.Dy()))
		if op.stroke != nil {
			ctx.SetFillColor(canvas.Transparent)
			ctx.SetStrokeColor(op.stroke.Color)
			ctx.SetStrokeWidth(op.stroke.Width)
			if op.stroke.Round {
				ctx.SetStrokeCapper(canvas.RoundCap)
				ctx.SetStrokeJoiner(canvas.RoundJoin)
			} else {
				ctx.SetStrokeCapper(canvas.ButtCap)
				ctx.SetStrokeJoiner(canvas.MiterJoin)
			}
		} else {
			ctx.SetStrokeColor(canvas.Transparent)
			ctx.SetFillColor(op.fill)
		}
		ctx.DrawPath(0, 0, p)
	}
	img := rasterizer.Draw(c, canvas.DPMM(1.0), canvas.DefaultColorSpace)
	draw.Draw(dst, b, img, image.Point{}, draw.Over)
}

// paintGradientBatch rasterizes the coverage of every path in ops, then paints
// the shared gradient through it.
func paintGradientBatch(dst *image.RGBA, m geometry.Matrix, ops []paintOp) {
	b := dst.Bounds()
	c := canvas.New(float64(b.Dx()), float64(b.Dy()))
	ctx := canvas.NewContext(c)
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.SetFillColor(color.White)
	for _, op := range ops {
		ctx.DrawPath(0, 0, toCanvasPath(op.path, m, float64(b.Dy())))
	}
	coverage := rasterizer.Draw(c, canvas.DPMM(1.0), canvas.DefaultColorSpace)
	shader := &gradientImage{g: *ops[0].gradient, inv: m.Inverse(), bounds: b}
	draw.DrawMask(dst, b, shader, image.Point{}, coverage, image.Point{}, draw.Over)
}

// toCanvasPath maps a local path through m into scene pixels, flipping from
// y-down scene space to the canvas' y-up space.
func toCanvasPath(p geometry.Path, m geometry.Matrix, height float64) *canvas.Path {
	out := &canvas.Path{}
	pt := func(q geometry.Point) (float64, float64) {
		s := m.Apply(q)
		return s.X, height - s.Y
	}
	for _, seg := range p {
		switch seg.Op {
		case geometry.OpMove:
			x, y := pt(seg.Pts[0])
			out.MoveTo(x, y)
		case geometry.OpLine:
			x, y := pt(seg.Pts[0])
			out.LineTo(x, y)
		case geometry.OpCubic:
			x1, y1 := pt(seg.Pts[0])
			x2, y2 := pt(seg.Pts[1])
			x, y := pt(seg.Pts[2])
			out.CubeTo(x1, y1, x2, y2, x, y)
		case geometry.OpClose:
			out.Close()
		}
	}
	return out
}

// gradientImage evaluates a local-space gradient at scene pixel centers.
type gradientImage struct {
	g      geometry.LinearGradient
	inv    geometry.Matrix
	bounds image.Rectangle
}

func (gi *gradientImage) ColorModel() color.Model { return color.NRGBAModel }

func (gi *gradientImage) Bounds() image.Rectangle { return gi.bounds }

func (gi *gradientImage) At(x, y int) color.Color {
	local := gi.inv.Apply(geometry.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
	return gi.g.At(local)
}
