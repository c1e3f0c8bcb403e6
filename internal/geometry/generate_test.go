package geometry

import (
	"math"
	"reflect"
	"slices"
	"testing"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

func ramp(n int) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		out[i] = uint8(i * 7 % 256)
	}
	return out
}

func TestGenerate_IsPure(t *testing.T) {
	snap := domain.Snapshot{
		SampleRate:  44100,
		WindowSize:  256,
		Frequencies: ramp(128),
		TimeDomain:  ramp(256),
	}
	wave := domain.DefaultWaveSettings()
	wave.Fill = true
	wave.TaperEdges = true
	wave.Wavelength = 3

	tests := []struct {
		name     string
		settings domain.Settings
	}{
		{name: "text", settings: domain.DefaultTextSettings()},
		{name: "image", settings: domain.ImageSettings{URL: "a.png", Width: 10, Height: 20, Zoom: 150}},
		{name: "bars", settings: domain.DefaultBarSpectrumSettings()},
		{name: "wave", settings: wave},
		{name: "wave spectrum", settings: domain.DefaultWaveSpectrumSettings()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			freq := slices.Clone(snap.Frequencies)
			timeDomain := slices.Clone(snap.TimeDomain)
			settings := tt.settings

			first := Generate(tt.settings, snap)
			second := Generate(tt.settings, snap)
			if !reflect.DeepEqual(first, second) {
				t.Fatalf("expected identical geometry for identical inputs")
			}
			if !slices.Equal(freq, snap.Frequencies) || !slices.Equal(timeDomain, snap.TimeDomain) {
				t.Fatalf("generator mutated the snapshot")
			}
			if !reflect.DeepEqual(settings, tt.settings) {
				t.Fatalf("generator mutated the settings")
			}
		})
	}
}

func TestText(t *testing.T) {
	s := domain.DefaultTextSettings()
	s.IsBold = true
	s.Color = "#ff0000"
	g := Text(s)
	if g.Text == nil || g.Text.Text != "hello" || !g.Text.Bold || g.Text.Size != 40 {
		t.Fatalf("unexpected text run %+v", g.Text)
	}
	if g.Text.Color.R != 0xff || g.Text.Color.G != 0 || g.Text.Color.A != 0xff {
		t.Fatalf("unexpected color %+v", g.Text.Color)
	}

	s.Color = "#fffff"
	if got := Text(s).Text.Color; got != domain.White {
		t.Fatalf("expected fallback to white, got %+v", got)
	}
}

func TestImage(t *testing.T) {
	tests := []struct {
		name      string
		settings  domain.ImageSettings
		wantW     float64
		wantH     float64
		wantImage bool
	}{
		{name: "zoom 100", settings: domain.ImageSettings{URL: "x", Width: 100, Height: 50, Zoom: 100}, wantW: 100, wantH: 50, wantImage: true},
		{name: "zoom 50", settings: domain.ImageSettings{URL: "x", Width: 100, Height: 50, Zoom: 50}, wantW: 50, wantH: 25, wantImage: true},
		{name: "no url", settings: domain.ImageSettings{Width: 100, Height: 50, Zoom: 100}, wantW: 100, wantH: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Image(tt.settings)
			if g.Width != tt.wantW || g.Height != tt.wantH {
				t.Fatalf("expected %vx%v, got %vx%v", tt.wantW, tt.wantH, g.Width, g.Height)
			}
			if (g.Image != nil) != tt.wantImage {
				t.Fatalf("expected image=%v, got %+v", tt.wantImage, g.Image)
			}
		})
	}
}

func TestBarSpectrum_AlwaysSixtyFourBars(t *testing.T) {
	for _, n := range []int{0, 10, 63, 64, 128, 1024} {
		g := BarSpectrum(domain.DefaultBarSpectrumSettings(), domain.Snapshot{Frequencies: ramp(n)})
		if got := g.Count(RoleBar); got != BarCount {
			t.Fatalf("len=%d: expected %d bars, got %d", n, BarCount, got)
		}
		if got := g.Count(RoleShadow); got != BarCount {
			t.Fatalf("len=%d: expected %d shadows, got %d", n, BarCount, got)
		}
	}
}

func TestBarSpectrum_Layout(t *testing.T) {
	s := domain.DefaultBarSpectrumSettings()
	s.Width = 640
	s.Height = 255
	mags := make([]uint8, 128)
	mags[0] = 255
	mags[1] = 51

	g := BarSpectrum(s, domain.Snapshot{Frequencies: mags})
	barWidth := 640.0 / 128 * 2.5
	spacing := barWidth * 0.3

	tests := []struct {
		bar    int
		x, top float64
	}{
		{bar: 0, x: 0, top: 0},
		{bar: 1, x: barWidth + spacing, top: 255 - 51},
		{bar: 63, x: 63 * (barWidth + spacing), top: 255},
	}
	for _, tt := range tests {
		lo, hi := g.Shapes[tt.bar].Path.Bounds()
		if math.Abs(lo.X-tt.x) > 1e-9 || math.Abs(hi.X-lo.X-barWidth) > 1e-9 {
			t.Fatalf("bar %d: unexpected x span [%v, %v]", tt.bar, lo.X, hi.X)
		}
		if math.Abs(lo.Y-tt.top) > 1e-9 || hi.Y != 255 {
			t.Fatalf("bar %d: unexpected y span [%v, %v]", tt.bar, lo.Y, hi.Y)
		}
	}

	shadow := g.Shapes[BarCount]
	lo, hi := shadow.Path.Bounds()
	if shadow.Role != RoleShadow || lo.Y != 255 || hi.Y != 255+s.ShadowHeight {
		t.Fatalf("unexpected shadow %v..%v", lo, hi)
	}
	if shadow.Fill.Gradient == nil || shadow.Fill.Gradient.To.A != 0 {
		t.Fatalf("expected shadow gradient fading to transparent")
	}
}

func TestBarSpectrum_FixedSizes(t *testing.T) {
	s := domain.DefaultBarSpectrumSettings()
	s.IsBarWidthAuto = false
	s.IsBarSpacingAuto = false
	s.BarWidth = 4
	s.BarSpacing = 2
	s.ShadowHeight = 0

	g := BarSpectrum(s, domain.Snapshot{})
	if g.Count(RoleShadow) != 0 {
		t.Fatalf("expected no shadows without shadow height")
	}
	lo, hi := g.Shapes[10].Path.Bounds()
	if lo.X != 60 || hi.X != 64 {
		t.Fatalf("unexpected bar 10 span [%v, %v]", lo.X, hi.X)
	}
	if lo.Y != s.Height || hi.Y != s.Height {
		t.Fatalf("expected zero height bar for missing magnitude")
	}
}

func TestWave(t *testing.T) {
	s := domain.WaveSettings{Width: 100, Height: 50, LineWidth: 2, Stroke: true, Fill: true, StrokeColor: "#fff", FillColor: "#000"}
	samples := []uint8{128, 255, 0, 128}

	g := Wave(s, samples)
	if g.Count(RoleLine) != 1 || g.Count(RoleArea) != 1 {
		t.Fatalf("expected one line and one area, got %d shapes", len(g.Shapes))
	}

	var line Shape
	for _, sh := range g.Shapes {
		if sh.Role == RoleLine {
			line = sh
		}
	}
	want := []Point{{0, 25}, {25, 25 + (255.0/128-1)*25}, {50, 0}, {75, 25}}
	got := line.Path.Points()
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if !near(got[i], want[i]) {
			t.Fatalf("point %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if !line.Stroke.Round || line.Stroke.Width != 2 {
		t.Fatalf("unexpected stroke %+v", line.Stroke)
	}

	area := g.Shapes[0].Path
	if area[0].Pts[0] != (Point{0, 50}) || area[len(area)-1].Op != OpClose {
		t.Fatalf("expected area closed to the bottom edge")
	}
}

func TestWave_TaperAndWavelength(t *testing.T) {
	s := domain.WaveSettings{Width: 100, Height: 100, Stroke: true, TaperEdges: true}
	samples := []uint8{255, 255, 255, 255}

	pts := Wave(s, samples).Shapes[0].Path.Points()
	if pts[0].Y != 50 {
		t.Fatalf("expected taper to flatten the first sample, got %v", pts[0].Y)
	}
	wantMid := 50 + (255.0/128-1)*50*math.Sin(0.5*math.Pi)
	if math.Abs(pts[2].Y-wantMid) > 1e-9 {
		t.Fatalf("expected %v at the middle, got %v", wantMid, pts[2].Y)
	}

	s.TaperEdges = false
	s.Wavelength = 1
	pts = Wave(s, samples).Shapes[0].Path.Points()
	wantMod := 50 + (255.0/128-1)*50*(1+0.3*math.Sin(0.5*math.Pi))
	if math.Abs(pts[2].Y-wantMod) > 1e-9 {
		t.Fatalf("expected %v with wavelength modulation, got %v", wantMod, pts[2].Y)
	}
}

func TestWave_Toggles(t *testing.T) {
	samples := ramp(16)
	tests := []struct {
		name         string
		stroke, fill bool
		want         int
	}{
		{name: "neither", want: 0},
		{name: "stroke only", stroke: true, want: 1},
		{name: "fill only", fill: true, want: 1},
		{name: "both", stroke: true, fill: true, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := domain.WaveSettings{Width: 10, Height: 10, Stroke: tt.stroke, Fill: tt.fill}
			if got := len(Wave(s, samples).Shapes); got != tt.want {
				t.Fatalf("expected %d shapes, got %d", tt.want, got)
			}
		})
	}
}

func TestSpectrumLevels(t *testing.T) {
	snap := domain.Snapshot{
		SampleRate:  8000,
		WindowSize:  16,
		Frequencies: []uint8{255, 255, 255, 255, 0, 0, 0, 0, 51, 51, 51, 51},
	}
	// 500 Hz per bin; 2000 Hz keeps the first four bins.
	if got := SpectrumLevels(snap, 2000); !slices.Equal(got, []float64{1}) {
		t.Fatalf("unexpected cropped levels %v", got)
	}
	got := SpectrumLevels(snap, 20000)
	want := []float64{1, 0, 0.2}
	if len(got) != len(want) {
		t.Fatalf("expected %d levels, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("level %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestWaveSpectrum(t *testing.T) {
	s := domain.DefaultWaveSpectrumSettings()
	s.Width = 300
	s.Height = 100
	snap := domain.Snapshot{
		SampleRate:  8000,
		WindowSize:  32,
		Frequencies: []uint8{0, 0, 0, 0, 255, 255, 255, 255, 0, 0, 0, 0, 255, 255, 255, 255},
	}

	g := WaveSpectrum(s, snap)
	if g.Count(RoleArea) != 1 || g.Count(RoleLine) != 1 {
		t.Fatalf("expected area and line, got %d shapes", len(g.Shapes))
	}

	area := g.Shapes[0]
	if area.Fill.Gradient == nil || area.Fill.Gradient.From.A != 0xff || area.Fill.Gradient.To.A != 0 {
		t.Fatalf("expected opaque to transparent gradient, got %+v", area.Fill.Gradient)
	}
	if area.Path[len(area.Path)-1].Op != OpClose {
		t.Fatalf("expected closed area")
	}

	line := g.Shapes[1]
	if line.Stroke.Color.A != 128 {
		t.Fatalf("expected half alpha stroke, got %d", line.Stroke.Color.A)
	}
	// Points at x = 0, 100, 200, 300; first cubic runs from (0,100) to (100,0).
	first := line.Path[1]
	if first.Op != OpCubic {
		t.Fatalf("expected cubic segment, got %s", first.Op)
	}
	wantCubic := []Point{{100.0 / 3, 100}, {200.0 / 3, 0}, {100, 0}}
	for i, p := range wantCubic {
		if !near(first.Pts[i], p) {
			t.Fatalf("control %d: expected %v, got %v", i, p, first.Pts[i])
		}
	}

	s.Stroke = false
	if WaveSpectrum(s, snap).Count(RoleLine) != 0 {
		t.Fatalf("expected no stroke when disabled")
	}
	if len(WaveSpectrum(s, domain.Snapshot{}).Shapes) != 0 {
		t.Fatalf("expected no shapes without data")
	}
}

func TestLinearGradient_At(t *testing.T) {
	g := LinearGradient{P0: Point{0, 0}, P1: Point{0, 10}, From: domain.White, To: domain.Transparent}
	tests := []struct {
		p     Point
		wantA uint8
	}{
		{Point{5, -3}, 255},
		{Point{5, 0}, 255},
		{Point{5, 5}, 128},
		{Point{5, 10}, 0},
		{Point{5, 30}, 0},
	}
	for _, tt := range tests {
		if got := g.At(tt.p); got.A != tt.wantA {
			t.Fatalf("at %v: expected alpha %d, got %d", tt.p, tt.wantA, got.A)
		}
	}
}
