package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
)

func withSequentialIDs(t *testing.T) {
	t.Helper()
	n := 0
	prev := newLayerID
	newLayerID = func() string {
		n++
		return fmt.Sprintf("layer-%d", n)
	}
	t.Cleanup(func() { newLayerID = prev })
}

func sceneWith(t *testing.T, settings ...Settings) *Scene {
	t.Helper()
	s := NewScene(640, 360)
	for _, st := range settings {
		s.Add(st)
	}
	return s
}

func TestScene_Add(t *testing.T) {
	withSequentialIDs(t)
	s := NewScene(0, 0)
	if s.Width != DefaultSceneWidth || s.Height != DefaultSceneHeight {
		t.Fatalf("expected default size, got %dx%d", s.Width, s.Height)
	}

	first := s.Add(DefaultTextSettings())
	second := s.Add(DefaultTextSettings())
	third := s.Add(DefaultWaveSettings())

	if first.ZIndex != 0 || second.ZIndex != 1 || third.ZIndex != 2 {
		t.Fatalf("unexpected zIndex values: %d %d %d", first.ZIndex, second.ZIndex, third.ZIndex)
	}
	if second.Name != "text 2" || third.Name != "wave 1" {
		t.Fatalf("unexpected names: %q %q", second.Name, third.Name)
	}
	if s.ActiveLayerID != third.ID {
		t.Fatalf("expected newest layer active, got %q", s.ActiveLayerID)
	}
	if !third.Visible || third.Type != LayerWave {
		t.Fatalf("unexpected layer %+v", third)
	}
}

func TestScene_Remove(t *testing.T) {
	tests := []struct {
		name       string
		remove     string
		wantLen    int
		wantActive string
	}{
		{name: "removes active layer and clears selection", remove: "layer-2", wantLen: 1, wantActive: ""},
		{name: "removes inactive layer", remove: "layer-1", wantLen: 1, wantActive: "layer-2"},
		{name: "unknown id is a no-op", remove: "missing", wantLen: 2, wantActive: "layer-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withSequentialIDs(t)
			s := sceneWith(t, DefaultTextSettings(), DefaultImageSettings())
			s.Remove(tt.remove)
			if len(s.Layers) != tt.wantLen {
				t.Fatalf("expected %d layers, got %d", tt.wantLen, len(s.Layers))
			}
			if s.ActiveLayerID != tt.wantActive {
				t.Fatalf("expected active %q, got %q", tt.wantActive, s.ActiveLayerID)
			}
		})
	}
}

func TestScene_Update(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		patch   string
		wantErr bool
		check   func(t *testing.T, s TextSettings)
	}{
		{
			name:  "merges given fields and keeps the rest",
			id:    "layer-1",
			patch: `{"text":"bye","opacity":50}`,
			check: func(t *testing.T, s TextSettings) {
				if s.Text != "bye" || s.Opacity != 50 {
					t.Fatalf("patch not applied: %+v", s)
				}
				if s.Size != 40 || s.Color != "#FFFFFF" || s.Font != "roboto" {
					t.Fatalf("unspecified fields changed: %+v", s)
				}
			},
		},
		{
			name:  "foreign keys do not change the shape",
			id:    "layer-1",
			patch: `{"barColor":"#000","url":"x"}`,
			check: func(t *testing.T, s TextSettings) {
				if s != DefaultTextSettings() {
					t.Fatalf("expected defaults, got %+v", s)
				}
			},
		},
		{
			name:  "unknown id is ignored",
			id:    "missing",
			patch: `{"text":"bye"}`,
			check: func(t *testing.T, s TextSettings) {
				if s.Text != "hello" {
					t.Fatalf("expected untouched layer, got %+v", s)
				}
			},
		},
		{
			name:    "malformed patch",
			id:      "layer-1",
			patch:   `{"text":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withSequentialIDs(t)
			s := sceneWith(t, DefaultTextSettings())
			err := s.Update(tt.id, json.RawMessage(tt.patch))
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected err=%v, got %v", tt.wantErr, err)
			}
			if tt.check == nil {
				return
			}
			l, _ := s.Find("layer-1")
			ts, ok := l.Settings.(TextSettings)
			if !ok {
				t.Fatalf("settings type changed to %T", l.Settings)
			}
			tt.check(t, ts)
		})
	}
}

func TestScene_UpdateImageKeepsAspect(t *testing.T) {
	tests := []struct {
		name       string
		patch      string
		wantWidth  float64
		wantHeight float64
	}{
		{name: "width drives height", patch: `{"width":400}`, wantWidth: 400, wantHeight: 225},
		{name: "height drives width", patch: `{"height":90}`, wantWidth: 160, wantHeight: 90},
		{name: "both given are kept", patch: `{"width":10,"height":10}`, wantWidth: 10, wantHeight: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withSequentialIDs(t)
			img := DefaultImageSettings()
			img.NaturalWidth = 1920
			img.NaturalHeight = 1080
			s := sceneWith(t, img)
			if err := s.Update("layer-1", json.RawMessage(tt.patch)); err != nil {
				t.Fatalf("update: %v", err)
			}
			l, _ := s.Find("layer-1")
			got := l.Settings.(ImageSettings)
			if math.Abs(got.Width-tt.wantWidth) > 1e-9 || math.Abs(got.Height-tt.wantHeight) > 1e-9 {
				t.Fatalf("expected %vx%v, got %vx%v", tt.wantWidth, tt.wantHeight, got.Width, got.Height)
			}
		})
	}
}

func TestImageSettings_AspectRoundTrip(t *testing.T) {
	naturals := [][2]float64{{1920, 1080}, {3, 7}, {1, 1}, {4000, 3}}
	for _, n := range naturals {
		img := ImageSettings{NaturalWidth: n[0], NaturalHeight: n[1]}
		w := img.WithWidth(300)
		if want := 300 / (n[0] / n[1]); w.Height != want {
			t.Fatalf("natural %v: expected height %v, got %v", n, want, w.Height)
		}
		h := img.WithHeight(300)
		if want := 300 * (n[0] / n[1]); h.Width != want {
			t.Fatalf("natural %v: expected width %v, got %v", n, want, h.Width)
		}
	}

	unknown := ImageSettings{Width: 10, Height: 20}.WithWidth(50)
	if unknown.Height != 20 {
		t.Fatalf("expected height untouched without natural size, got %v", unknown.Height)
	}
}

func TestScene_Reorder(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{name: "move bottom to top", from: 0, to: 3, want: []string{"layer-2", "layer-3", "layer-4", "layer-1"}},
		{name: "move top to bottom", from: 3, to: 0, want: []string{"layer-4", "layer-1", "layer-2", "layer-3"}},
		{name: "move into middle", from: 0, to: 2, want: []string{"layer-2", "layer-3", "layer-1", "layer-4"}},
		{name: "same position", from: 1, to: 1, want: []string{"layer-1", "layer-2", "layer-3", "layer-4"}},
		{name: "out of range is ignored", from: 0, to: 9, want: []string{"layer-1", "layer-2", "layer-3", "layer-4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withSequentialIDs(t)
			s := sceneWith(t, DefaultTextSettings(), DefaultImageSettings(), DefaultWaveSettings(), DefaultBarSpectrumSettings())
			s.Reorder(tt.from, tt.to)

			for i, l := range s.Layers {
				if l.ID != tt.want[i] {
					t.Fatalf("position %d: expected %s, got %s", i, tt.want[i], l.ID)
				}
			}
			order := s.DrawOrder()
			for i, l := range order {
				if l.ID != tt.want[i] {
					t.Fatalf("draw order %d: expected %s, got %s", i, tt.want[i], l.ID)
				}
			}
		})
	}
}

func TestScene_DrawOrder(t *testing.T) {
	withSequentialIDs(t)
	s := sceneWith(t, DefaultTextSettings(), DefaultTextSettings(), DefaultTextSettings(), DefaultTextSettings())
	s.Layers[0].ZIndex = 5
	s.Layers[1].ZIndex = 1
	s.Layers[2].ZIndex = 5
	s.Layers[3].ZIndex = 1
	s.SetVisibility("layer-4", false)

	got := s.DrawOrder()
	want := []string{"layer-2", "layer-1", "layer-3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d layers, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i].ID)
		}
	}
}

func TestScene_CloneIsIndependent(t *testing.T) {
	withSequentialIDs(t)
	s := sceneWith(t, DefaultTextSettings())
	c := s.Clone()
	if err := s.Update("layer-1", json.RawMessage(`{"text":"changed"}`)); err != nil {
		t.Fatalf("update: %v", err)
	}
	s.SetVisibility("layer-1", false)

	l := c.Layers[0]
	if l.Settings.(TextSettings).Text != "hello" || !l.Visible {
		t.Fatalf("clone observed mutation: %+v", l)
	}
}

func TestScene_MiscOperations(t *testing.T) {
	withSequentialIDs(t)
	s := sceneWith(t, DefaultTextSettings(), DefaultWaveSettings())

	s.SetActive("layer-1")
	if s.ActiveLayerID != "layer-1" {
		t.Fatalf("expected layer-1 active, got %q", s.ActiveLayerID)
	}
	s.SetActive("missing")
	if s.ActiveLayerID != "" {
		t.Fatalf("expected selection cleared, got %q", s.ActiveLayerID)
	}

	s.Rename("layer-2", "scope")
	if l, _ := s.Find("layer-2"); l.Name != "scope" {
		t.Fatalf("expected rename, got %q", l.Name)
	}

	s.Resize(1920, 0)
	if s.Width != 1920 || s.Height != 360 {
		t.Fatalf("unexpected size %dx%d", s.Width, s.Height)
	}

	s.SetVisibility("missing", false)
	s.Rename("missing", "x")
}

func TestAssignLayerIDs(t *testing.T) {
	withSequentialIDs(t)
	in := []Layer{
		{Type: LayerBarSpectrum, Visible: true, Settings: DefaultBarSpectrumSettings()},
		{Type: LayerWave, Visible: true, Settings: DefaultWaveSettings()},
		{ID: "title", Type: LayerText, Visible: true, Settings: DefaultTextSettings()},
	}

	out, err := AssignLayerIDs(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].ID != "layer-1" || out[1].ID != "layer-2" || out[2].ID != "title" {
		t.Fatalf("unexpected ids %q %q %q", out[0].ID, out[1].ID, out[2].ID)
	}
	if in[0].ID != "" {
		t.Fatalf("input layers were modified")
	}

	dup := []Layer{
		{ID: "a", Type: LayerWave, Settings: DefaultWaveSettings()},
		{ID: "a", Type: LayerBarSpectrum, Settings: DefaultBarSpectrumSettings()},
	}
	if _, err := AssignLayerIDs(dup); !errors.Is(err, ErrInvalidExport) {
		t.Fatalf("expected ErrInvalidExport for duplicate ids, got %v", err)
	}
}
