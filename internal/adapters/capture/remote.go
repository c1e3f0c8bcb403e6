package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ewilliams-labs/visualizer/internal/core/ports"
	"github.com/ewilliams-labs/visualizer/internal/render"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	capturePath     = "/capture"
	maxCaptureBytes = 256 << 20
)

// RemoteConfig configures the HTTP render service client.
type RemoteConfig struct {
	BaseURL string
	// Client credentials are optional; when ClientID is empty requests go out unauthenticated.
	ClientID     string
	ClientSecret string
	TokenURL     string
	MaxRetries   int
	Backoff      time.Duration
	Timeout      time.Duration
}

// Remote posts each frame description to a render service and decodes the
// PNG it answers with.
type Remote struct {
	httpClient *http.Client
	baseURL    string
	retry      retryPolicy
}

var _ ports.FrameCapturer = (*Remote)(nil)

// NewRemote builds a client. Zero retry settings fall back to CAPTURE_MAX_RETRIES
// and CAPTURE_RETRY_BACKOFF_MS.
func NewRemote(cfg RemoteConfig) *Remote {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := &http.Client{Timeout: timeout}

	httpClient := base
	if cfg.ClientID != "" && cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = cc.Client(ctx)
		httpClient.Timeout = timeout
	}

	retry := policyFromEnv()
	if cfg.MaxRetries > 0 {
		retry.attempts = cfg.MaxRetries
	}
	if cfg.Backoff > 0 {
		retry.base = cfg.Backoff
	}
	return &Remote{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		retry:      retry,
	}
}

func (c *Remote) Capture(ctx context.Context, f render.Frame) (image.Image, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("capture: encode frame: %w", err)
	}
	newReq := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+capturePath, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "image/png")
		return req, nil
	}

	resp, err := c.retry.do(ctx, c.httpClient, newReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("capture: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	img, err := png.Decode(io.LimitReader(resp.Body, maxCaptureBytes))
	if err != nil {
		return nil, fmt.Errorf("capture: decode png: %w", err)
	}
	if b := img.Bounds(); b.Dx() != f.Width || b.Dy() != f.Height {
		return nil, fmt.Errorf("capture: got %dx%d still, want %dx%d", b.Dx(), b.Dy(), f.Width, f.Height)
	}
	return img, nil
}
