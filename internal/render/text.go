package render

import (
	"fmt"
	"image"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ewilliams-labs/visualizer/internal/geometry"
)

type fontKey struct {
	mono, bold, italic bool
}

var fontData = map[fontKey][]byte{
	{false, false, false}: goregular.TTF,
	{false, true, false}:  gobold.TTF,
	{false, false, true}:  goitalic.TTF,
	{false, true, true}:   gobolditalic.TTF,
	{true, false, false}:  gomono.TTF,
	{true, true, false}:   gomonobold.TTF,
	{true, false, true}:   gomonoitalic.TTF,
	{true, true, true}:    gomonobolditalic.TTF,
}

// fontSet lazily parses the Go font family. Named families map onto the
// sans or mono variant.
type fontSet struct {
	mu     sync.Mutex
	parsed map[fontKey]*opentype.Font
}

var (
	sharedFonts     *fontSet
	sharedFontsOnce sync.Once
)

func defaultFonts() *fontSet {
	sharedFontsOnce.Do(func() {
		sharedFonts = &fontSet{parsed: make(map[fontKey]*opentype.Font)}
	})
	return sharedFonts
}

func isMono(family string) bool {
	f := strings.ToLower(family)
	return strings.Contains(f, "mono") || strings.Contains(f, "courier") || strings.Contains(f, "code")
}

func (fs *fontSet) font(run geometry.TextRun) (*opentype.Font, error) {
	key := fontKey{mono: isMono(run.Font), bold: run.Bold, italic: run.Italic}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f, ok := fs.parsed[key]; ok {
		return f, nil
	}
	f, err := opentype.Parse(fontData[key])
	if err != nil {
		return nil, fmt.Errorf("render: parse font: %w", err)
	}
	fs.parsed[key] = f
	return f, nil
}

// drawText renders the run into a tile and maps the tile, centered on the
// local origin, through m onto dst.
func (fs *fontSet) drawText(dst *image.RGBA, m geometry.Matrix, run geometry.TextRun) error {
	if run.Size <= 0 || run.Color.A == 0 {
		return nil
	}
	f, err := fs.font(run)
	if err != nil {
		return err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    run.Size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return fmt.Errorf("render: font face: %w", err)
	}
	defer face.Close()

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	pad := int(math.Ceil(run.Size / 8))
	w := font.MeasureString(face, run.Text).Ceil() + 2*pad
	h := ascent + descent + 2*pad
	if w <= 0 || h <= 0 {
		return nil
	}

	tile := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  tile,
		Src:  image.NewUniform(run.Color),
		Face: face,
		Dot:  fixed.P(pad, pad+ascent),
	}
	d.DrawString(run.Text)

	place := m.Translate(-float64(w)/2, -float64(h)/2)
	transformOnto(dst, place, tile)
	return nil
}
