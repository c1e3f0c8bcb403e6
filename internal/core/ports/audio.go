package ports

import (
	"context"
	"io"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

// AudioDecoder turns an encoded audio stream (mp3, wav, flac, ogg) into a mono signal.
type AudioDecoder interface {
	Decode(ctx context.Context, r io.Reader) (domain.AudioSignal, error)
}
