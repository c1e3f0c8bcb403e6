package analysis

import (
	"math"
	"testing"
)

const testRate = 8192

// tone returns n samples of a unit sine at freq Hz.
func tone(freq float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / testRate))
	}
	return out
}

func argmax(b []uint8) int {
	best := 0
	for i, v := range b {
		if v > b[best] {
			best = i
		}
	}
	return best
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{
			name: "equal db range is widened",
			in:   Config{WindowSize: 256, Smoothing: 0.5, MinDb: -5, MaxDb: -5},
			want: Config{WindowSize: 256, Smoothing: 0.5, MinDb: -6, MaxDb: -5},
		},
		{
			name: "inverted db range is widened",
			in:   Config{WindowSize: 256, MinDb: 10, MaxDb: -30},
			want: Config{WindowSize: 256, MinDb: -31, MaxDb: -30},
		},
		{
			name: "exactly one db apart is kept",
			in:   Config{WindowSize: 256, MinDb: -31, MaxDb: -30},
			want: Config{WindowSize: 256, MinDb: -31, MaxDb: -30},
		},
		{
			name: "non power of two falls back",
			in:   Config{WindowSize: 1000, MinDb: -100, MaxDb: -30},
			want: Config{WindowSize: DefaultWindowSize, MinDb: -100, MaxDb: -30},
		},
		{
			name: "too small falls back",
			in:   Config{WindowSize: 16, MinDb: -100, MaxDb: -30},
			want: Config{WindowSize: DefaultWindowSize, MinDb: -100, MaxDb: -30},
		},
		{
			name: "smoothing clamped high",
			in:   Config{WindowSize: 32768, Smoothing: 3, MinDb: -100, MaxDb: -30},
			want: Config{WindowSize: 32768, Smoothing: 1, MinDb: -100, MaxDb: -30},
		},
		{
			name: "smoothing clamped low",
			in:   Config{WindowSize: 32, Smoothing: -1, MinDb: -100, MaxDb: -30},
			want: Config{WindowSize: 32, Smoothing: 0, MinDb: -100, MaxDb: -30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestAnalyser_SnapshotSizes(t *testing.T) {
	for _, n := range []int{32, 256, 2048} {
		a := NewAnalyser(Config{WindowSize: n, MinDb: -100, MaxDb: -30})
		if got := len(a.Frequencies(nil)); got != n/2 {
			t.Fatalf("N=%d: expected %d frequency bins, got %d", n, n/2, got)
		}
		if got := len(a.TimeDomain(nil)); got != n {
			t.Fatalf("N=%d: expected %d time domain samples, got %d", n, n, got)
		}
		if got := len(a.TimeDomainFloat(nil)); got != n {
			t.Fatalf("N=%d: expected %d float samples, got %d", n, n, got)
		}
	}
}

func TestAnalyser_Silence(t *testing.T) {
	a := NewAnalyser(Config{WindowSize: 256, MinDb: -100, MaxDb: -30})
	silence := make([]float32, 256)
	for i, v := range a.Frequencies(silence) {
		if v != 0 {
			t.Fatalf("bin %d: expected 0, got %d", i, v)
		}
	}
	for i, v := range a.TimeDomain(silence) {
		if v != 128 {
			t.Fatalf("sample %d: expected 128, got %d", i, v)
		}
	}
}

func TestAnalyser_TimeDomainBytes(t *testing.T) {
	a := NewAnalyser(Config{WindowSize: 32, MinDb: -100, MaxDb: -30})
	samples := make([]float32, 32)
	samples[0] = 1
	samples[1] = -1
	samples[2] = 0.5
	samples[3] = 2
	got := a.TimeDomain(samples)
	want := []uint8{255, 0, 192, 255}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("sample %d: expected %d, got %d", i, w, got[i])
		}
	}
}

func TestAnalyser_ShortWindowIsZeroPadded(t *testing.T) {
	a := NewAnalyser(Config{WindowSize: 32, MinDb: -100, MaxDb: -30})
	got := a.TimeDomainFloat([]float32{0.25, 0.5})
	if got[29] != 0 || got[30] != 0.25 || got[31] != 0.5 {
		t.Fatalf("expected samples right aligned, got %v", got[28:])
	}
}

func TestAnalyser_TonePeak(t *testing.T) {
	const n = 2048
	// 1000 Hz at 8192 Hz lands exactly on bin 250.
	a := NewAnalyser(Config{WindowSize: n, Smoothing: 0, MinDb: -100, MaxDb: 0})
	bins := a.Frequencies(tone(1000, n))
	if got := argmax(bins); got != 250 {
		t.Fatalf("expected peak at bin 250, got %d", got)
	}
	if bins[250] == 0 || bins[250] == 255 {
		t.Fatalf("expected peak inside the byte range, got %d", bins[250])
	}
	if bins[10] >= bins[250] || bins[900] >= bins[250] {
		t.Fatalf("expected distant bins below the peak")
	}
}

func TestAnalyser_Smoothing(t *testing.T) {
	const n = 2048
	a := NewAnalyser(Config{WindowSize: n, Smoothing: 0.5, MinDb: -100, MaxDb: 0})
	first := a.Frequencies(tone(1000, n))[250]
	decayed := a.Frequencies(make([]float32, n))[250]
	if decayed == 0 || decayed >= first {
		t.Fatalf("expected smoothed decay below %d and above 0, got %d", first, decayed)
	}

	a.Reset()
	if got := a.Frequencies(make([]float32, n))[250]; got != 0 {
		t.Fatalf("expected reset history, got %d", got)
	}
}

func TestAnalyser_ConfigureKeepsHistoryUnlessWindowChanges(t *testing.T) {
	const n = 2048
	a := NewAnalyser(Config{WindowSize: n, Smoothing: 0.5, MinDb: -100, MaxDb: 0})
	a.Frequencies(tone(1000, n))

	a.Configure(Config{WindowSize: n, Smoothing: 0.9, MinDb: -90, MaxDb: 0})
	if got := a.Frequencies(make([]float32, n))[250]; got == 0 {
		t.Fatalf("expected history kept after smoothing change")
	}

	a.Configure(Config{WindowSize: 1024, Smoothing: 0.9, MinDb: -90, MaxDb: 0})
	for i, v := range a.Frequencies(make([]float32, 1024)) {
		if v != 0 {
			t.Fatalf("bin %d: expected history dropped after window change, got %d", i, v)
		}
	}
}
