package cocoyolo

// Fetching of missing source images.

import (
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// DefaultFetchTimeout bounds a single image download.
const DefaultFetchTimeout = 30 * time.Second

// ErrNoImageURL is returned when an image is missing locally and has no source URL.
var ErrNoImageURL = errors.New("no source URL")

// Fetcher retrieves the content at a URL.
type Fetcher interface {
	Fetch(url string) ([]byte, error)
}

// HTTPFetcher downloads over HTTP(S), following redirects. Each download is a single attempt with a
// fixed timeout.
type HTTPFetcher struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// NewHTTPFetcher returns a fetcher with the given timeout; a non-positive timeout selects
// DefaultFetchTimeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{
		client: &fasthttp.Client{
			Name:         "cocoyolo",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		timeout: timeout,
	}
}

// Fetch downloads url. Responses with a status other than 2xx are errors.
func (f *HTTPFetcher) Fetch(url string) ([]byte, error) {
	status, body, err := f.client.GetTimeout(nil, url, f.timeout)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("GET %s: unexpected status %d", url, status)
	}
	return body, nil
}

// MaterializeStatus describes how an image came to be (or not be) present locally.
type MaterializeStatus int

// The possible outcomes of ImageMaterializer.Materialize.
const (
	ImageExisting   MaterializeStatus = iota // Already present, nothing fetched.
	ImageDownloaded                          // Fetched and written.
	ImageFailed                              // Still missing.
)

func (s MaterializeStatus) String() string {
	switch s {
	case ImageExisting:
		return "existing"
	case ImageDownloaded:
		return "downloaded"
	case ImageFailed:
		return "failed"
	}
	return fmt.Sprintf("MaterializeStatus(%d)", int(s))
}

// ImageMaterializer makes sure that image files exist locally.
type ImageMaterializer struct {
	Fetcher Fetcher
	Resize  ResizeOptions // Applied to downloaded images only.
}

// Materialize ensures that img exists at path. Existing files are never touched and cause no
// network access. Otherwise the image is fetched once from its source URL; on failure the file is
// left missing and the error is returned along with ImageFailed.
func (m *ImageMaterializer) Materialize(img COCOImage, path string) (MaterializeStatus, error) {
	if fileExists(path) {
		return ImageExisting, nil
	}

	url := img.URL()
	if url == "" {
		return ImageFailed, fmt.Errorf("image %d (%q): %w", img.ID, img.FileName, ErrNoImageURL)
	}
	if m.Fetcher == nil {
		return ImageFailed, fmt.Errorf("image %d (%q): no fetcher configured", img.ID, img.FileName)
	}

	data, err := m.Fetcher.Fetch(url)
	if err != nil {
		return ImageFailed, err
	}

	if m.Resize.Enabled() {
		if data, err = resizeEncoded(data, path, m.Resize); err != nil {
			return ImageFailed, err
		}
	}

	if err := writeFileAtomic(path, data); err != nil {
		return ImageFailed, fmt.Errorf("cannot write image %q: %w", path, err)
	}

	return ImageDownloaded, nil
}
