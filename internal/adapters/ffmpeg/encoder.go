// Package ffmpeg muxes rendered frame sequences and the source audio into MP4.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ewilliams-labs/visualizer/internal/core/ports"
)

const (
	defaultBinary = "ffmpeg"
	stderrTail    = 2048
)

// Encoder runs an ffmpeg binary per export.
type Encoder struct {
	binary string
}

var _ ports.Encoder = (*Encoder)(nil)

// NewEncoder returns an encoder for the given binary. An empty path falls back
// to FFMPEG_PATH and then to "ffmpeg" on PATH.
func NewEncoder(binary string) *Encoder {
	if binary == "" {
		binary = os.Getenv("FFMPEG_PATH")
	}
	if binary == "" {
		binary = defaultBinary
	}
	return &Encoder{binary: binary}
}

// Binary is the executable the encoder runs.
func (e *Encoder) Binary() string { return e.binary }

// Args builds the ffmpeg argument list for job: H.264 video at the export size
// and frame rate, AAC audio, yuv420p, fast start, cut to the shorter stream.
// yuv420p needs even dimensions, so an odd width or height gets one pixel of
// padding on the right or bottom.
func Args(job ports.EncodeJob) []string {
	fps := strconv.FormatFloat(job.FPS, 'f', -1, 64)
	return []string{
		"-y",
		"-framerate", fps,
		"-i", filepath.Join(job.FramesDir, job.FramePattern),
		"-i", job.AudioPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-vf", fmt.Sprintf("scale=%d:%d,pad=ceil(iw/2)*2:ceil(ih/2)*2", job.Width, job.Height),
		"-r", fps,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-preset", "ultrafast",
		"-crf", "23",
		"-shortest",
		job.OutputPath,
	}
}

// Encode runs ffmpeg to completion. On failure the partial output file is removed.
func (e *Encoder) Encode(ctx context.Context, job ports.EncodeJob) error {
	if job.FramesDir == "" || job.FramePattern == "" || job.AudioPath == "" || job.OutputPath == "" {
		return fmt.Errorf("ffmpeg: incomplete encode job")
	}
	if job.FPS <= 0 || job.Width <= 0 || job.Height <= 0 {
		return fmt.Errorf("ffmpeg: invalid encode parameters %dx%d@%v", job.Width, job.Height, job.FPS)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, Args(job)...) // #nosec G204 -- binary comes from operator configuration
	cmd.Stderr = &stderr

	log.Printf("ffmpeg: encoding %s (%dx%d @ %v fps)", job.OutputPath, job.Width, job.Height, job.FPS)
	if err := cmd.Run(); err != nil {
		if rmErr := os.Remove(job.OutputPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("WARN ffmpeg: remove partial output %s: %v", job.OutputPath, rmErr)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg: encode canceled: %w", ctxErr)
		}
		return fmt.Errorf("ffmpeg: encode failed: %w: %s", err, tail(stderr.String()))
	}
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = s[len(s)-stderrTail:]
	}
	return s
}
