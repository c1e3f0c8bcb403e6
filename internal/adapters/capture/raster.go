// Package capture turns described frames into still images, either in
// process or through a remote render service.
package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/ewilliams-labs/visualizer/internal/core/ports"
	"github.com/ewilliams-labs/visualizer/internal/render"
)

// Painter rasterizes a frame description.
type Painter interface {
	Paint(ctx context.Context, f render.Frame) (*image.RGBA, error)
}

// Raster captures frames with an in-process painter.
type Raster struct {
	painter Painter
}

var _ ports.FrameCapturer = (*Raster)(nil)

func NewRaster(painter Painter) *Raster {
	return &Raster{painter: painter}
}

func (r *Raster) Capture(ctx context.Context, f render.Frame) (image.Image, error) {
	img, err := r.painter.Paint(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("capture: raster: %w", err)
	}
	return img, nil
}
