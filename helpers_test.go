package cocoyolo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// testDataset has one image with person and dog, one with only a cat and one without annotations.
func testDataset() COCODataset {
	return COCODataset{
		Images: []COCOImage{
			{ID: 10, FileName: "000010.jpg", CocoURL: "http://images.test/000010.jpg", Width: 640, Height: 480},
			{ID: 11, FileName: "000011.jpg", CocoURL: "http://images.test/000011.jpg", Width: 200, Height: 100},
			{ID: 12, FileName: "000012.jpg", CocoURL: "http://images.test/000012.jpg", Width: 100, Height: 100},
		},
		Annotations: []COCOAnnotation{
			{ID: 1, ImageID: 10, CategoryID: 1, BBox: []float64{100, 100, 200, 100}},
			{ID: 2, ImageID: 11, CategoryID: 17, BBox: []float64{0, 0, 100, 50}},
			{ID: 3, ImageID: 10, CategoryID: 18, BBox: []float64{0, 0, 320, 240}},
		},
		Categories: []COCOCategory{
			{ID: 1, Name: "person", Supercategory: "person"},
			{ID: 17, Name: "cat", Supercategory: "animal"},
			{ID: 18, Name: "dog", Supercategory: "animal"},
		},
	}
}

// writeJSON marshals v to a file named name in dir and returns its path.
func writeJSON(t *testing.T, dir, name string, v interface{}) string {
	t.Helper()
	enc, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, enc, 0644))
	return path
}

// encodePNG returns a PNG of the given size.
func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeFetcher serves fixed content by URL and records the requests.
type fakeFetcher struct {
	mu       sync.Mutex
	content  map[string][]byte
	requests []string
}

func (f *fakeFetcher) Fetch(url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, url)
	data, ok := f.content[url]
	if !ok {
		return nil, fmt.Errorf("GET %s: unexpected status 404", url)
	}
	return data, nil
}

func (f *fakeFetcher) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}
