// Package imageio loads basemaps and writes rendered maps
package imageio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	// Basemap decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrLoad is returned for any basemap that could not be read or decoded
var ErrLoad = errors.New("mapin: image could not be loaded")

// Loader fetches basemaps from disk or over HTTP(S)
type Loader struct {
	Client *http.Client
}

// NewLoader returns a loader with a bounded HTTP timeout
func NewLoader() *Loader {
	return &Loader{Client: &http.Client{Timeout: 60 * time.Second}}
}

// IsURL reports whether source should be fetched over HTTP
func IsURL(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Load decodes the basemap named by source and reports the detected format
func (l *Loader) Load(ctx context.Context, source string) (image.Image, string, error) {
	rc, err := l.open(ctx, source)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer rc.Close()

	img, format, err := image.Decode(rc)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrLoad, source, err)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("%w: %s: empty image", ErrLoad, source)
	}
	return img, format, nil
}

func (l *Loader) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !IsURL(source) {
		return os.Open(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: unexpected status %s", source, resp.Status)
	}
	return resp.Body, nil
}
