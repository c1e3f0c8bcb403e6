// Package render composites a scene into pixels: Describe resolves every
// visible layer into positioned geometry, Paint rasterizes that description.
package render

import (
	"image/color"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/geometry"
)

// LayerFrame is one layer ready to paint: its geometry, the matrix from local
// to scene pixels and its alpha in [0, 1].
type LayerFrame struct {
	ID       string            `json:"id"`
	Type     domain.LayerType  `json:"type"`
	Matrix   geometry.Matrix   `json:"matrix"`
	Alpha    float64           `json:"alpha"`
	Geometry geometry.Geometry `json:"geometry"`
}

// Frame is the backend-free description of one composited frame, layers in
// draw order (first is bottom-most).
type Frame struct {
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Background color.NRGBA  `json:"background"`
	Layers     []LayerFrame `json:"layers"`
}

// DefaultBackground is the scene fill when none is set.
var DefaultBackground = domain.Black

// LayerMatrix places a local box of gw x gh so its center lands on the scene
// center offset by (x, y), rotated about that point.
func LayerMatrix(sceneW, sceneH int, p domain.Placement, gw, gh float64) geometry.Matrix {
	return geometry.Identity.
		Translate(float64(sceneW)/2+p.X, float64(sceneH)/2+p.Y).
		Rotate(p.Rotation).
		Translate(-gw/2, -gh/2)
}

// Describe resolves the visible layers of scene, sorted by ascending zIndex
// with ties in slice order, into a Frame. Audio layers read their snapshot
// from snaps by layer id; a missing snapshot reads as silence.
func Describe(scene domain.Scene, snaps map[string]domain.Snapshot) Frame {
	f := Frame{
		Width:      scene.Width,
		Height:     scene.Height,
		Background: domain.ParseColor(scene.Background, DefaultBackground),
	}
	for _, l := range scene.DrawOrder() {
		if l.Settings == nil {
			continue
		}
		g := geometry.Generate(l.Settings, snaps[l.ID])
		base := l.Settings.Base()
		f.Layers = append(f.Layers, LayerFrame{
			ID:       l.ID,
			Type:     l.Type,
			Matrix:   LayerMatrix(scene.Width, scene.Height, base, g.Width, g.Height),
			Alpha:    opacityToAlpha(base.Opacity),
			Geometry: g,
		})
	}
	return f
}

func opacityToAlpha(opacity float64) float64 {
	switch {
	case !(opacity > 0):
		return 0
	case opacity >= 100:
		return 1
	}
	return opacity / 100
}
