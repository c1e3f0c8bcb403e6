// Package config reads service configuration from the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Capture modes.
const (
	CaptureRaster = "raster"
	CaptureRemote = "remote"
)

// Config is the full service configuration.
type Config struct {
	Addr          string
	StorageDriver string
	DatabasePath  string
	FFmpegPath    string
	WorkDir       string
	OutputDir     string
	ImageRoot     string

	CaptureMode         string
	CaptureURL          string
	CaptureClientID     string
	CaptureClientSecret string
	CaptureTokenURL     string
	CaptureMaxRetries   int
	CaptureBackoff      time.Duration

	ExportWorkers   int
	ExportQueueSize int
	LiveRefreshHz   float64
	MaxSessions     int
	MaxUploadBytes  int64
	Background      string
}

// Load reads the environment, applying defaults for anything unset.
func Load() (Config, error) {
	work := getenv("WORK_DIR", filepath.Join(os.TempDir(), "visualizer"))
	cfg := Config{
		Addr:          getenv("ADDR", ":8080"),
		StorageDriver: strings.ToLower(getenv("STORAGE_DRIVER", "sqlite")),
		DatabasePath:  getenv("DATABASE_PATH", "visualizer.db"),
		FFmpegPath:    getenv("FFMPEG_PATH", "ffmpeg"),
		WorkDir:       work,
		OutputDir:     getenv("OUTPUT_DIR", filepath.Join(work, "videos")),
		ImageRoot:     os.Getenv("IMAGE_ROOT"),

		CaptureMode:         strings.ToLower(getenv("CAPTURE_MODE", CaptureRaster)),
		CaptureURL:          os.Getenv("CAPTURE_URL"),
		CaptureClientID:     os.Getenv("CAPTURE_CLIENT_ID"),
		CaptureClientSecret: os.Getenv("CAPTURE_CLIENT_SECRET"),
		CaptureTokenURL:     os.Getenv("CAPTURE_TOKEN_URL"),
		CaptureMaxRetries:   getInt("CAPTURE_MAX_RETRIES", 3),
		CaptureBackoff:      time.Duration(getInt("CAPTURE_RETRY_BACKOFF_MS", 500)) * time.Millisecond,

		ExportWorkers:   getInt("EXPORT_WORKERS", 2),
		ExportQueueSize: getInt("EXPORT_QUEUE_SIZE", 16),
		LiveRefreshHz:   getFloat("LIVE_REFRESH_HZ", 30),
		MaxSessions:     getInt("MAX_SESSIONS", 16),
		MaxUploadBytes:  int64(getInt("MAX_UPLOAD_MB", 200)) << 20,
		Background:      getenv("SCENE_BACKGROUND", "#000000"),
	}
	return cfg, cfg.Validate()
}

// Validate checks combinations Load cannot default away.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.CaptureMode {
	case CaptureRaster:
	case CaptureRemote:
		if c.CaptureURL == "" {
			return fmt.Errorf("config: CAPTURE_URL is required when CAPTURE_MODE=remote")
		}
		if (c.CaptureClientID == "") != (c.CaptureTokenURL == "") {
			return fmt.Errorf("config: CAPTURE_CLIENT_ID and CAPTURE_TOKEN_URL must be set together")
		}
	default:
		return fmt.Errorf("config: unknown CAPTURE_MODE %q", c.CaptureMode)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("WARN config: invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(f > 0) {
		log.Printf("WARN config: invalid %s=%q, using %g", key, raw, fallback)
		return fallback
	}
	return f
}
