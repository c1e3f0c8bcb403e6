package render

import (
	"context"
	"image"
	"image/draw"
	"log"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ewilliams-labs/visualizer/internal/geometry"
)

// paintImage stretches the source over the local box and maps it through m.
func (c *Compositor) paintImage(ctx context.Context, dst *image.RGBA, m geometry.Matrix, fill geometry.ImageFill) bool {
	if c.images == nil {
		return false
	}
	src, err := c.images.Image(ctx, fill.URL)
	if err != nil {
		log.Printf("WARN render: load image %q: %v", fill.URL, err)
		return false
	}
	sb := src.Bounds()
	if sb.Empty() {
		return false
	}
	place := m.Scale(fill.Width/float64(sb.Dx()), fill.Height/float64(sb.Dy())).
		Translate(-float64(sb.Min.X), -float64(sb.Min.Y))
	transformOnto(dst, place, src)
	return true
}

// transformOnto draws src onto dst with src pixel coordinates mapped through m.
func transformOnto(dst draw.Image, m geometry.Matrix, src image.Image) {
	aff := f64.Aff3{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
	}
	xdraw.BiLinear.Transform(dst, aff, src, src.Bounds(), xdraw.Over, nil)
}
