package cocoyolo

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertBBox(t *testing.T) {
	tests := []struct {
		name          string
		bbox          [4]float64
		width, height float64
		want          YOLOBox
	}{
		{
			name:  "640x480 example",
			bbox:  [4]float64{100, 100, 200, 100},
			width: 640, height: 480,
			want: YOLOBox{CenterX: 0.3125, CenterY: 0.3125, Width: 0.3125, Height: 0.208333},
		},
		{
			name:  "whole image",
			bbox:  [4]float64{0, 0, 300, 200},
			width: 300, height: 200,
			want: YOLOBox{CenterX: 0.5, CenterY: 0.5, Width: 1, Height: 1},
		},
		{
			name:  "thirds are truncated not rounded",
			bbox:  [4]float64{0, 0, 2, 2},
			width: 3, height: 3,
			want: YOLOBox{CenterX: 0.333333, CenterY: 0.333333, Width: 0.666666, Height: 0.666666},
		},
		{
			name:  "fractional pixels",
			bbox:  [4]float64{10.5, 20.25, 5.5, 7.75},
			width: 100, height: 50,
			want: YOLOBox{CenterX: 0.1325, CenterY: 0.4825, Width: 0.055, Height: 0.155},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertBBox(tt.bbox, tt.width, tt.height))
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.23456789, 1.234567},
		{0.1, 0.1},
		{0.1234569, 0.123456},
		{0.9999999, 0.999999},
		{0.208333333, 0.208333},
		{1, 1},
		{0, 0},
		{1e-7, 0},
		{-0.1234569, -0.123456},
		{-1.23456789, -1.234567},
		{-1e-7, 0},
		{123456.1234567, 123456.123456},
	}

	for _, tt := range tests {
		got := Truncate(tt.in, 6)
		assert.Equal(t, tt.want, got, "Truncate(%v, 6)", tt.in)
		assert.False(t, math.Signbit(got) && got == 0, "Truncate(%v, 6) returned -0", tt.in)
	}
}

func TestTruncateOtherPrecisions(t *testing.T) {
	assert.Equal(t, 1.0, Truncate(1.99, 0))
	assert.Equal(t, -1.0, Truncate(-1.99, 0))
	assert.Equal(t, 0.12, Truncate(0.129, 2))
	assert.True(t, math.IsNaN(Truncate(math.NaN(), 6)))
	assert.True(t, math.IsInf(Truncate(math.Inf(1), 6), 1))
}

// The truncated value never exceeds the input and is less than 10^-6 below it.
func TestTruncateBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		x := rng.Float64()
		got := Truncate(x, 6)
		require.LessOrEqual(t, got, x, "Truncate(%v, 6)", x)
		require.Less(t, x-got, 1e-6, "Truncate(%v, 6)", x)
	}
}

func TestConvertBBoxRangeAndRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		width := float64(1 + rng.Intn(4000))
		height := float64(1 + rng.Intn(4000))
		xmin := rng.Float64() * width
		ymin := rng.Float64() * height
		w := rng.Float64() * (width - xmin)
		h := rng.Float64() * (height - ymin)
		bbox := [4]float64{xmin, ymin, w, h}

		got := ConvertBBox(bbox, width, height)
		for _, v := range []float64{got.CenterX, got.CenterY, got.Width, got.Height} {
			require.GreaterOrEqual(t, v, 0.0, "bbox %v in %vx%v", bbox, width, height)
			require.LessOrEqual(t, v, 1.0, "bbox %v in %vx%v", bbox, width, height)
		}

		// Each field is under-approximated by less than 10^-6.
		exact := [4]float64{
			(xmin + (xmin + w)) / 2 / width, (ymin + (ymin + h)) / 2 / height, w / width, h / height,
		}
		for j, v := range []float64{got.CenterX, got.CenterY, got.Width, got.Height} {
			require.LessOrEqual(t, v, exact[j])
			require.Less(t, exact[j]-v, 1e-6)
		}

		// Reconstructing the pixel box is accurate to the truncation error scaled by the image size.
		back := got.Pixels(width, height)
		for j, tol := range []float64{2e-6 * width, 2e-6 * height, 1e-6 * width, 1e-6 * height} {
			assert.InDelta(t, bbox[j], back[j], tol+1e-9, "bbox %v field %d", bbox, j)
		}
	}
}

func TestYOLOAnnotationString(t *testing.T) {
	tests := []struct {
		a    YOLOAnnotation
		want string
	}{
		{
			a:    YOLOAnnotation{ClassID: 3, Box: ConvertBBox([4]float64{100, 100, 200, 100}, 640, 480)},
			want: "3 0.3125 0.3125 0.3125 0.208333",
		},
		{
			a:    YOLOAnnotation{ClassID: 0, Box: YOLOBox{CenterX: 0.5, CenterY: 0.5, Width: 1, Height: 0}},
			want: "0 0.5 0.5 1.0 0.0",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.a.String())
	}
}

func TestToYOLO(t *testing.T) {
	img := COCOImage{ID: 7, FileName: "000007.jpg", Width: 640, Height: 480}
	annotations := []COCOAnnotation{
		{ID: 1, ImageID: 7, CategoryID: 3, BBox: []float64{100, 100, 200, 100}},
		{ID: 2, ImageID: 7, CategoryID: 18, BBox: []float64{0, 0, 640, 480}},
	}

	got := ToYOLO(img, annotations, img.Width, img.Height, nil)
	require.Len(t, got.Annotations, 2)
	assert.Equal(t, "000007.jpg", got.FilePath)
	assert.Equal(t, int64(3), got.Annotations[0].ClassID)
	assert.Equal(t, int64(18), got.Annotations[1].ClassID)

	remapped := ToYOLO(img, annotations, img.Width, img.Height, func(id int64) int64 { return id * 10 })
	assert.Equal(t, int64(30), remapped.Annotations[0].ClassID)
	assert.Equal(t, int64(180), remapped.Annotations[1].ClassID)
}

func TestWriteYOLOLabel(t *testing.T) {
	dir := t.TempDir()

	f := YOLOAnnotatedFile{
		Annotations: []YOLOAnnotation{
			{ClassID: 3, Box: ConvertBBox([4]float64{100, 100, 200, 100}, 640, 480)},
			{ClassID: 1, Box: ConvertBBox([4]float64{0, 0, 320, 240}, 640, 480)},
		},
		FilePath: "a.jpg",
	}
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, WriteYOLOLabel(path, f))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "3 0.3125 0.3125 0.3125 0.208333\n1 0.25 0.25 0.5 0.5\n", string(got))

	// Rewriting replaces the content instead of appending to it.
	require.NoError(t, WriteYOLOLabel(path, f))
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	// No annotations still produce a file.
	empty := filepath.Join(dir, "b.txt")
	require.NoError(t, WriteYOLOLabel(empty, YOLOAnnotatedFile{FilePath: "b.jpg"}))
	info, err := os.Stat(empty)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}
