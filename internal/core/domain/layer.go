package domain

import (
	"encoding/json"
	"fmt"
)

// Layer is one visual element of a scene. Its Settings value always matches Type.
type Layer struct {
	ID       string    `json:"id"`
	Type     LayerType `json:"type"`
	Name     string    `json:"name"`
	Visible  bool      `json:"visible"`
	ZIndex   int       `json:"zIndex"`
	Settings Settings  `json:"settings"`
}

type layerWire struct {
	ID       string          `json:"id"`
	Type     LayerType       `json:"type"`
	Name     string          `json:"name"`
	Visible  *bool           `json:"visible"`
	ZIndex   int             `json:"zIndex"`
	Settings json.RawMessage `json:"settings"`
}

// UnmarshalJSON decodes settings by the type tag. A missing "visible" means visible.
func (l *Layer) UnmarshalJSON(b []byte) error {
	var w layerWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	settings, err := DecodeSettings(w.Type, w.Settings)
	if err != nil {
		return fmt.Errorf("layer %q: %w", w.ID, err)
	}
	*l = Layer{
		ID:       w.ID,
		Type:     w.Type,
		Name:     w.Name,
		Visible:  w.Visible == nil || *w.Visible,
		ZIndex:   w.ZIndex,
		Settings: settings,
	}
	return nil
}
