// Command render exports one visualization to an MP4 without the HTTP API.
//
//	render -scene scene.json -audio track.mp3 -out video.mp4
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ewilliams-labs/visualizer/internal/adapters/audiofile"
	"github.com/ewilliams-labs/visualizer/internal/adapters/capture"
	"github.com/ewilliams-labs/visualizer/internal/adapters/ffmpeg"
	"github.com/ewilliams-labs/visualizer/internal/adapters/framestore"
	"github.com/ewilliams-labs/visualizer/internal/adapters/imageloader"
	"github.com/ewilliams-labs/visualizer/internal/adapters/memory"
	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/core/services"
	"github.com/ewilliams-labs/visualizer/internal/render"
)

func main() {
	var (
		scenePath = flag.String("scene", "", "export request JSON (layers, size, fps, duration)")
		audioPath = flag.String("audio", "", "audio file (mp3, wav, flac, ogg)")
		outPath   = flag.String("out", "visualization.mp4", "output MP4 path")
		fps       = flag.Float64("fps", 0, "frames per second; overrides the scene file")
		duration  = flag.Float64("duration", 0, "seconds to render; defaults to the whole track")
		width     = flag.Int("width", 0, "frame width; overrides the scene file")
		height    = flag.Int("height", 0, "frame height; overrides the scene file")
		ffmpegBin = flag.String("ffmpeg", "", "ffmpeg binary; defaults to FFMPEG_PATH or ffmpeg")
	)
	flag.Parse()

	if *audioPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options{
		scenePath: *scenePath,
		audioPath: *audioPath,
		outPath:   *outPath,
		fps:       *fps,
		duration:  *duration,
		width:     *width,
		height:    *height,
		ffmpegBin: *ffmpegBin,
	}); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

type options struct {
	scenePath, audioPath, outPath string
	fps, duration                 float64
	width, height                 int
	ffmpegBin                     string
}

func run(ctx context.Context, opts options) error {
	req := domain.ExportRequest{FPS: 30, Width: domain.DefaultSceneWidth, Height: domain.DefaultSceneHeight}
	if opts.scenePath != "" {
		raw, err := os.ReadFile(opts.scenePath)
		if err != nil {
			return fmt.Errorf("read scene: %w", err)
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("parse scene: %w", err)
		}
	}
	if opts.fps > 0 {
		req.FPS = opts.fps
	}
	if opts.width > 0 {
		req.Width = opts.width
	}
	if opts.height > 0 {
		req.Height = opts.height
	}
	if opts.duration > 0 {
		req.Duration = opts.duration
	}

	audio, err := os.ReadFile(opts.audioPath)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	decoder := audiofile.NewDecoder()
	if req.Duration <= 0 {
		track, err := decoder.Decode(ctx, bytes.NewReader(audio))
		if err != nil {
			return err
		}
		req.Duration = track.Duration()
	}

	work, err := os.MkdirTemp("", "visualizer-render-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(work)

	compositor := render.NewCompositor(imageloader.New(imageloader.Options{Root: filepath.Dir(opts.scenePath)}))
	exporter := services.NewExporter(
		decoder,
		capture.NewRaster(compositor),
		framestore.NewStorage(work),
		ffmpeg.NewEncoder(opts.ffmpegBin),
		memory.NewJobs(),
		services.ExporterConfig{WorkDir: work, Background: req.Background},
	)

	log.Printf("render: %s, %.2fs at %gfps, %dx%d, %d layers",
		opts.audioPath, req.Duration, req.FPS, req.Width, req.Height, len(req.Layers))
	video, err := exporter.Export(ctx, req, bytes.NewReader(audio))
	if err != nil {
		return err
	}
	defer video.Close()

	out, err := os.Create(opts.outPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, video); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", opts.outPath, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	log.Printf("render: wrote %s (%d bytes)", opts.outPath, video.Size)
	return nil
}
