package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

// ImageSource resolves an image layer URL to pixels.
type ImageSource interface {
	Image(ctx context.Context, url string) (image.Image, error)
}

// Compositor paints frames onto fixed-size RGBA surfaces. It holds no
// per-frame state, so painting the same Frame twice yields the same pixels.
type Compositor struct {
	images ImageSource
	fonts  *fontSet
}

// NewCompositor returns a compositor; images may be nil when no image layers
// are expected.
func NewCompositor(images ImageSource) *Compositor {
	return &Compositor{images: images, fonts: defaultFonts()}
}

// Composite describes and paints scene in one step.
func (c *Compositor) Composite(ctx context.Context, scene domain.Scene, snaps map[string]domain.Snapshot) (*image.RGBA, error) {
	return c.Paint(ctx, Describe(scene, snaps))
}

// Paint rasterizes f. Each layer is painted into its own buffer and then
// drawn onto the surface through a uniform alpha mask.
func (c *Compositor) Paint(ctx context.Context, f Frame) (*image.RGBA, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("render: invalid frame size %dx%d", f.Width, f.Height)
	}
	bounds := image.Rect(0, 0, f.Width, f.Height)
	surface := image.NewRGBA(bounds)
	draw.Draw(surface, bounds, image.NewUniform(f.Background), image.Point{}, draw.Src)

	for _, lf := range f.Layers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("render: paint canceled: %w", err)
		}
		alpha := uint8(math.Round(lf.Alpha * 255))
		if alpha == 0 {
			continue
		}
		layer := image.NewRGBA(bounds)
		if !c.paintLayer(ctx, layer, lf) {
			continue
		}
		draw.DrawMask(surface, bounds, layer, image.Point{}, image.NewUniform(color.Alpha{A: alpha}), image.Point{}, draw.Over)
	}
	return surface, nil
}

// paintLayer reports whether anything was painted.
func (c *Compositor) paintLayer(ctx context.Context, dst *image.RGBA, lf LayerFrame) bool {
	g := lf.Geometry
	painted := false
	if len(g.Shapes) > 0 {
		paintShapes(dst, lf.Matrix, g.Shapes)
		painted = true
	}
	if g.Image != nil {
		if c.paintImage(ctx, dst, lf.Matrix, *g.Image) {
			painted = true
		} else {
			log.Printf("WARN render: skipping image layer %s", lf.ID)
		}
	}
	if g.Text != nil && g.Text.Text != "" {
		if err := c.fonts.drawText(dst, lf.Matrix, *g.Text); err != nil {
			log.Printf("WARN render: skipping text layer %s: %v", lf.ID, err)
		} else {
			painted = true
		}
	}
	return painted
}
