package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ewilliams-labs/visualizer/internal/adapters/audiofile"
	"github.com/ewilliams-labs/visualizer/internal/adapters/capture"
	"github.com/ewilliams-labs/visualizer/internal/adapters/ffmpeg"
	"github.com/ewilliams-labs/visualizer/internal/adapters/framestore"
	"github.com/ewilliams-labs/visualizer/internal/adapters/imageloader"
	"github.com/ewilliams-labs/visualizer/internal/adapters/memory"
	"github.com/ewilliams-labs/visualizer/internal/adapters/rest"
	"github.com/ewilliams-labs/visualizer/internal/adapters/sqlite"
	"github.com/ewilliams-labs/visualizer/internal/config"
	"github.com/ewilliams-labs/visualizer/internal/core/ports"
	"github.com/ewilliams-labs/visualizer/internal/core/services"
	"github.com/ewilliams-labs/visualizer/internal/render"
	"github.com/ewilliams-labs/visualizer/internal/worker"
)

func main() {
	// 1. Configuration (Environment Variables)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// 2. Driven adapters
	// -- Export ledger
	var jobs ports.ExportRepository
	switch cfg.StorageDriver {
	case "sqlite":
		dbAdapter, err := sqlite.NewAdapter(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize database: %v", err)
		}
		defer dbAdapter.Close()
		jobs = dbAdapter
	case "memory":
		jobs = memory.NewJobs()
	}

	// -- Audio, images and painting
	decoder := &audiofile.Decoder{MaxBytes: cfg.MaxUploadBytes}
	images := imageloader.New(imageloader.Options{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Root:       cfg.ImageRoot,
	})
	compositor := render.NewCompositor(images)

	var capturer ports.FrameCapturer
	switch cfg.CaptureMode {
	case config.CaptureRemote:
		capturer = capture.NewRemote(capture.RemoteConfig{
			BaseURL:      cfg.CaptureURL,
			ClientID:     cfg.CaptureClientID,
			ClientSecret: cfg.CaptureClientSecret,
			TokenURL:     cfg.CaptureTokenURL,
			MaxRetries:   cfg.CaptureMaxRetries,
			Backoff:      cfg.CaptureBackoff,
		})
	default:
		capturer = capture.NewRaster(compositor)
	}

	encoder := ffmpeg.NewEncoder(cfg.FFmpegPath)
	frames := framestore.NewStorage(filepath.Join(cfg.WorkDir, "frames"))

	// 3. Core services
	exporter := services.NewExporter(decoder, capturer, frames, encoder, jobs, services.ExporterConfig{
		WorkDir:    filepath.Join(cfg.WorkDir, "uploads"),
		OutputDir:  cfg.OutputDir,
		Background: cfg.Background,
	})
	editor := services.NewEditor(decoder, compositor, services.EditorConfig{
		RefreshRate: cfg.LiveRefreshHz,
		MaxSessions: cfg.MaxSessions,
		Background:  cfg.Background,
	})
	defer editor.CloseAll()

	pool := worker.NewPool(exporter, cfg.ExportQueueSize)
	pool.Start(cfg.ExportWorkers)
	defer pool.Stop()

	// 4. Driving adapter
	handler := rest.NewHandler(exporter, editor, pool, rest.WithMaxUpload(cfg.MaxUploadBytes))

	// 5. Start the Server
	log.Println("------------------------------------------------")
	log.Printf("Visualizer API is running on %s (capture=%s, storage=%s, ffmpeg=%s)",
		cfg.Addr, cfg.CaptureMode, cfg.StorageDriver, encoder.Binary())
	log.Println("------------------------------------------------")

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Printf("ERROR server: %v", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down server...")
		// Live websocket streams are hijacked connections Shutdown does not
		// wait for; closing the sessions ends them.
		editor.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}
}
