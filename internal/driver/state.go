// Package driver advances time over a scene and its audio session: the live
// driver ticks with the wall clock, the export driver steps frame by frame.
// Both composite through the same describe and paint path.
package driver

import (
	"context"
	"image"

	"github.com/ewilliams-labs/visualizer/internal/render"
)

// State is the lifecycle of a driver.
type State int

const (
	Idle State = iota
	Priming
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Priming:
		return "priming"
	case Running:
		return "running"
	case Paused:
		return "paused"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Driver is the contract both loops satisfy.
type Driver interface {
	State() State
	// Stop releases the session and any surface. It is safe from any state
	// and more than once.
	Stop()
}

// Painter rasterizes a described frame.
type Painter interface {
	Paint(ctx context.Context, f render.Frame) (*image.RGBA, error)
}

var (
	_ Driver  = (*Live)(nil)
	_ Driver  = (*Export)(nil)
	_ Painter = (*render.Compositor)(nil)
)
