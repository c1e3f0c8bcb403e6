package audiofile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/go-audio/wav"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/hajimehoshi/go-mp3"
)

const streamChunk = 4096

func decodeWAV(ctx context.Context, data []byte) (domain.AudioSignal, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return domain.AudioSignal{}, errors.New("not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return domain.AudioSignal{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.AudioSignal{}, err
	}

	channels := int(dec.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 {
		return domain.AudioSignal{}, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	scale := math.Pow(2, float64(bitDepth-1))
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		if bitDepth == 8 {
			// 8-bit PCM is unsigned.
			v -= 128
		}
		samples[i] = float32(float64(v) / scale)
	}
	return domain.AudioSignal{
		SampleRate: int(dec.SampleRate),
		Samples:    downmix(samples, channels),
	}, nil
}

func decodeMP3(ctx context.Context, data []byte) (domain.AudioSignal, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return domain.AudioSignal{}, err
	}

	// go-mp3 always yields 16-bit little-endian stereo.
	var interleaved []float32
	if n := decoder.Length(); n > 0 {
		interleaved = make([]float32, 0, n/2)
	}
	buf := make([]byte, streamChunk)
	for {
		if err := ctx.Err(); err != nil {
			return domain.AudioSignal{}, err
		}
		n, err := decoder.Read(buf)
		for i := 0; i+1 < n; i += 2 {
			sample := int16(buf[i]) | int16(buf[i+1])<<8
			interleaved = append(interleaved, float32(sample)/32768)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return domain.AudioSignal{}, err
		}
	}
	return domain.AudioSignal{
		SampleRate: decoder.SampleRate(),
		Samples:    downmix(interleaved, 2),
	}, nil
}

func decodeFLAC(ctx context.Context, data []byte) (domain.AudioSignal, error) {
	stream, format, err := flac.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.AudioSignal{}, err
	}
	return drain(ctx, stream, format)
}

func decodeVorbis(ctx context.Context, data []byte) (domain.AudioSignal, error) {
	stream, format, err := vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return domain.AudioSignal{}, err
	}
	return drain(ctx, stream, format)
}

// drain reads a beep stream to the end, averaging its two channels.
func drain(ctx context.Context, stream beep.StreamSeekCloser, format beep.Format) (domain.AudioSignal, error) {
	defer stream.Close()

	var samples []float32
	if n := stream.Len(); n > 0 {
		samples = make([]float32, 0, n)
	}
	buf := make([][2]float64, streamChunk)
	for {
		if err := ctx.Err(); err != nil {
			return domain.AudioSignal{}, err
		}
		n, ok := stream.Stream(buf)
		for _, s := range buf[:n] {
			samples = append(samples, float32((s[0]+s[1])/2))
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return domain.AudioSignal{}, err
	}
	return domain.AudioSignal{
		SampleRate: int(format.SampleRate),
		Samples:    samples,
	}, nil
}
