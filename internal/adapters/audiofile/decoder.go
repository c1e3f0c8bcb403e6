// Package audiofile decodes uploaded audio tracks into mono sample buffers.
package audiofile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/core/ports"
)

// Format names a container the decoder understands.
type Format string

const (
	FormatWAV    Format = "wav"
	FormatFLAC   Format = "flac"
	FormatVorbis Format = "ogg"
	FormatMP3    Format = "mp3"
)

// Decoder implements ports.AudioDecoder.
type Decoder struct {
	// MaxBytes caps the encoded input size. Zero means no limit.
	MaxBytes int64
}

var _ ports.AudioDecoder = (*Decoder)(nil)

// NewDecoder returns a decoder without an input size limit.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode reads the whole stream, sniffs its container and returns the track
// downmixed to mono.
func (d *Decoder) Decode(ctx context.Context, r io.Reader) (domain.AudioSignal, error) {
	if r == nil {
		return domain.AudioSignal{}, domain.ErrMissingAudio
	}
	if d.MaxBytes > 0 {
		r = io.LimitReader(r, d.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.AudioSignal{}, fmt.Errorf("audiofile: read input: %w", err)
	}
	if d.MaxBytes > 0 && int64(len(data)) > d.MaxBytes {
		return domain.AudioSignal{}, fmt.Errorf("%w: input larger than %d bytes", domain.ErrInvalidAudio, d.MaxBytes)
	}
	if len(data) == 0 {
		return domain.AudioSignal{}, domain.ErrMissingAudio
	}

	format := Sniff(data)
	var sig domain.AudioSignal
	switch format {
	case FormatWAV:
		sig, err = decodeWAV(ctx, data)
	case FormatFLAC:
		sig, err = decodeFLAC(ctx, data)
	case FormatVorbis:
		sig, err = decodeVorbis(ctx, data)
	default:
		sig, err = decodeMP3(ctx, data)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.AudioSignal{}, fmt.Errorf("audiofile: decode %s: %w", format, err)
		}
		return domain.AudioSignal{}, fmt.Errorf("%w: decode %s: %v", domain.ErrInvalidAudio, format, err)
	}
	if sig.Empty() {
		return domain.AudioSignal{}, fmt.Errorf("%w: %s stream has no samples", domain.ErrMissingAudio, format)
	}
	return sig, nil
}

// Sniff picks the container from the leading magic bytes. Anything that is
// not RIFF/WAVE, FLAC or Ogg is treated as MP3.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(data, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(data, []byte("OggS")):
		return FormatVorbis
	}
	return FormatMP3
}

// downmix averages interleaved channels into one.
func downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	out := make([]float32, len(interleaved)/channels)
	for i := range out {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
