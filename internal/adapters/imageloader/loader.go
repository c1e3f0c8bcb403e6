// Package imageloader resolves image layer sources (data URLs, http(s) URLs
// and local files) to decoded images.
package imageloader

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/ewilliams-labs/visualizer/internal/render"
)

const defaultMaxBytes = 32 << 20

// ErrUnsupportedSource is returned for URL schemes the loader does not fetch.
var ErrUnsupportedSource = errors.New("imageloader: unsupported source")

// Options configures a Loader.
type Options struct {
	HTTPClient *http.Client
	// Root confines file sources; relative paths resolve against it. Empty
	// disables file sources entirely.
	Root     string
	MaxBytes int64
}

// Loader decodes and caches images by source string. Decoded images are
// shared between frames and must not be mutated.
type Loader struct {
	client   *http.Client
	root     string
	maxBytes int64

	mu    sync.Mutex
	cache map[string]image.Image
}

var _ render.ImageSource = (*Loader)(nil)

func New(opts Options) *Loader {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Loader{
		client:   client,
		root:     opts.Root,
		maxBytes: maxBytes,
		cache:    map[string]image.Image{},
	}
}

// Image returns the decoded image for src, loading it on first use.
func (l *Loader) Image(ctx context.Context, src string) (image.Image, error) {
	if src == "" {
		return nil, fmt.Errorf("%w: empty source", ErrUnsupportedSource)
	}
	l.mu.Lock()
	img, ok := l.cache[src]
	l.mu.Unlock()
	if ok {
		return img, nil
	}

	data, err := l.fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	img, _, err = image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imageloader: decode %s: %w", describe(src), err)
	}

	l.mu.Lock()
	l.cache[src] = img
	l.mu.Unlock()
	return img, nil
}

// Len is the number of cached images.
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

func (l *Loader) fetch(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return decodeDataURL(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetchHTTP(ctx, src)
	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("imageloader: parse %s: %w", describe(src), err)
		}
		return l.readFile(u.Path)
	case strings.Contains(src, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, describe(src))
	}
	return l.readFile(src)
}

func (l *Loader) fetchHTTP(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("imageloader: %w", err)
	}
	// #nosec G107 -- image URLs come from the scene author
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imageloader: fetch %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imageloader: fetch %s: status %d", src, resp.StatusCode)
	}
	return l.readLimited(resp.Body)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	if l.root == "" {
		return nil, fmt.Errorf("%w: file sources are disabled", ErrUnsupportedSource)
	}
	root, err := filepath.Abs(l.root)
	if err != nil {
		return nil, fmt.Errorf("imageloader: resolve root: %w", err)
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, full)
	}
	full = filepath.Clean(full)
	if rel, err := filepath.Rel(root, full); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s is outside %s", ErrUnsupportedSource, path, root)
	}

	f, err := os.Open(full) // #nosec G304 -- confined to root above
	if err != nil {
		return nil, fmt.Errorf("imageloader: open %s: %w", path, err)
	}
	defer f.Close()
	return l.readLimited(f)
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("imageloader: read: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("imageloader: image larger than %d bytes", l.maxBytes)
	}
	return data, nil
}

// decodeDataURL handles data:[<mediatype>][;base64],<payload>.
func decodeDataURL(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, errors.New("imageloader: malformed data url")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some encoders drop the padding.
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("imageloader: data url: %w", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("imageloader: data url: %w", err)
	}
	return []byte(data), nil
}

// describe shortens data URLs for error messages.
func describe(src string) string {
	if strings.HasPrefix(src, "data:") && len(src) > 48 {
		return src[:48] + "..."
	}
	return src
}
