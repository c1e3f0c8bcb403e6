package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

const (
	DefaultSceneWidth  = 1280
	DefaultSceneHeight = 720
)

// newLayerID is swapped in tests for predictable ids.
var newLayerID = uuid.NewString

// AssignLayerIDs returns a copy of layers where every layer without an id has
// been given a fresh one. Layer ids key per-layer analyser state, so a
// duplicate id is rejected.
func AssignLayerIDs(layers []Layer) ([]Layer, error) {
	if len(layers) == 0 {
		return layers, nil
	}
	out := make([]Layer, len(layers))
	seen := make(map[string]bool, len(layers))
	for i, l := range layers {
		if l.ID == "" {
			l.ID = newLayerID()
		}
		if seen[l.ID] {
			return nil, fmt.Errorf("%w: duplicate layer id %q", ErrInvalidExport, l.ID)
		}
		seen[l.ID] = true
		out[i] = l
	}
	return out, nil
}

// Scene is the ordered layer list plus fixed pixel dimensions. Layers are held
// by value; every mutation replaces the affected layer. The slice order is the
// stacking order from bottom to top.
type Scene struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Background    string  `json:"background,omitempty"`
	Layers        []Layer `json:"layers"`
	ActiveLayerID string  `json:"activeLayerId,omitempty"`
}

func NewScene(width, height int) *Scene {
	if width <= 0 {
		width = DefaultSceneWidth
	}
	if height <= 0 {
		height = DefaultSceneHeight
	}
	return &Scene{Width: width, Height: height, Layers: []Layer{}}
}

// Clone returns a copy that shares no mutable state with s.
func (s *Scene) Clone() Scene {
	out := *s
	out.Layers = append([]Layer(nil), s.Layers...)
	return out
}

func (s *Scene) index(id string) int {
	for i, l := range s.Layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the layer with the given id.
func (s *Scene) Find(id string) (Layer, bool) {
	if i := s.index(id); i >= 0 {
		return s.Layers[i], true
	}
	return Layer{}, false
}

// Add appends a new visible layer on top of the stack with zIndex equal to the
// current layer count and makes it the active layer.
func (s *Scene) Add(settings Settings) Layer {
	t := settings.Type()
	sameType := 0
	for _, l := range s.Layers {
		if l.Type == t {
			sameType++
		}
	}
	l := Layer{
		ID:       newLayerID(),
		Type:     t,
		Name:     fmt.Sprintf("%s %d", t, sameType+1),
		Visible:  true,
		ZIndex:   len(s.Layers),
		Settings: settings,
	}
	s.Layers = append(s.Layers, l)
	s.ActiveLayerID = l.ID
	return l
}

// Remove deletes the layer. Unknown ids are ignored.
func (s *Scene) Remove(id string) {
	i := s.index(id)
	if i < 0 {
		return
	}
	layers := make([]Layer, 0, len(s.Layers)-1)
	layers = append(layers, s.Layers[:i]...)
	s.Layers = append(layers, s.Layers[i+1:]...)
	if s.ActiveLayerID == id {
		s.ActiveLayerID = ""
	}
}

// Update shallow-merges partial into the layer's settings. Unknown ids are
// ignored; only a malformed patch is an error.
func (s *Scene) Update(id string, partial json.RawMessage) error {
	i := s.index(id)
	if i < 0 {
		return nil
	}
	merged, err := MergeSettings(s.Layers[i].Settings, partial)
	if err != nil {
		return err
	}
	l := s.Layers[i]
	l.Settings = merged
	s.Layers[i] = l
	return nil
}

func (s *Scene) SetVisibility(id string, visible bool) {
	if i := s.index(id); i >= 0 {
		l := s.Layers[i]
		l.Visible = visible
		s.Layers[i] = l
	}
}

func (s *Scene) Rename(id, name string) {
	if i := s.index(id); i >= 0 && name != "" {
		l := s.Layers[i]
		l.Name = name
		s.Layers[i] = l
	}
}

// SetActive selects a layer; an unknown id clears the selection.
func (s *Scene) SetActive(id string) {
	if s.index(id) < 0 {
		s.ActiveLayerID = ""
		return
	}
	s.ActiveLayerID = id
}

// Reorder moves the layer at from to position to and reassigns every zIndex
// to its new position, so sorting by zIndex reproduces the list order.
// Out of range indexes are ignored.
func (s *Scene) Reorder(from, to int) {
	n := len(s.Layers)
	if from < 0 || from >= n || to < 0 || to >= n {
		return
	}
	moved := s.Layers[from]
	rest := make([]Layer, 0, n)
	rest = append(rest, s.Layers[:from]...)
	rest = append(rest, s.Layers[from+1:]...)

	layers := make([]Layer, 0, n)
	layers = append(layers, rest[:to]...)
	layers = append(layers, moved)
	layers = append(layers, rest[to:]...)

	for i := range layers {
		layers[i].ZIndex = i
	}
	s.Layers = layers
}

// Resize changes the scene dimensions; non-positive values are ignored.
func (s *Scene) Resize(width, height int) {
	if width > 0 {
		s.Width = width
	}
	if height > 0 {
		s.Height = height
	}
}

// DrawOrder returns the visible layers sorted by ascending zIndex, ties kept in
// slice order. The first element is drawn first and ends up bottom-most.
func (s *Scene) DrawOrder() []Layer {
	out := make([]Layer, 0, len(s.Layers))
	for _, l := range s.Layers {
		if l.Visible {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZIndex < out[j].ZIndex
	})
	return out
}
