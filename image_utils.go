package cocoyolo

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ResizeOptions describe how freshly downloaded images are resampled. A zero value disables
// resizing.
type ResizeOptions struct {
	LongerSide  int // The target length of the longer side (zero to keep the aspect ratio).
	ShorterSide int // The target length of the shorter side (zero to keep the aspect ratio).
	JPEGQuality int // The quality for JPEG outputs, [1, 100].
}

// Enabled reports whether any target side length is set.
func (o ResizeOptions) Enabled() bool {
	return o.LongerSide > 0 || o.ShorterSide > 0
}

// DefaultJPEGQuality is used when ResizeOptions.JPEGQuality is out of range.
const DefaultJPEGQuality = 90

func (o ResizeOptions) quality() int {
	if o.JPEGQuality < 1 || o.JPEGQuality > 100 {
		return DefaultJPEGQuality
	}
	return o.JPEGQuality
}

// resizeImage resamples the image to match the longer and shorter sides (one may be 0). Lanczos is
// used when shrinking and linear interpolation when growing.
func resizeImage(img image.Image, longerSide, shorterSide int) image.Image {
	imgBounds := img.Bounds()
	imgWidth := imgBounds.Dx()
	imgHeight := imgBounds.Dy()
	if imgWidth == 0 || imgHeight == 0 {
		return img
	}

	imgLonger := imgWidth
	imgShorter := imgHeight
	isLandscape := true
	if imgHeight > imgWidth {
		imgLonger = imgHeight
		imgShorter = imgWidth
		isLandscape = false
	}

	// Calculate the target dimensions.
	if longerSide <= 0 {
		longerSide = int(math.Round(float64(shorterSide) * (float64(imgLonger) / float64(imgShorter))))
	} else if shorterSide <= 0 {
		shorterSide = int(math.Round(float64(longerSide) * (float64(imgShorter) / float64(imgLonger))))
	}

	// Select the filter based on the direction of the rescaling operation.
	filter := imaging.Linear
	if longerSide*shorterSide < imgWidth*imgHeight {
		filter = imaging.Lanczos
	}

	if isLandscape {
		return imaging.Resize(img, longerSide, shorterSide, filter)
	}
	return imaging.Resize(img, shorterSide, longerSide, filter)
}

// resizeEncoded decodes the image in data, resizes it according to o and encodes it in the format
// implied by the file extension of path.
func resizeEncoded(data []byte, path string, o ResizeOptions) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot decode image for %q: %w", path, err)
	}

	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		format = imaging.JPEG
	}

	var buf bytes.Buffer
	resized := resizeImage(img, o.LongerSide, o.ShorterSide)
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(o.quality())); err != nil {
		return nil, fmt.Errorf("cannot encode image for %q: %w", path, err)
	}

	return buf.Bytes(), nil
}

// decodeImageConfig opens the file at path and returns the results of image.DecodeConfig.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()

	return image.DecodeConfig(file)
}

// saveImage saves the image to path, encoding it as PNG or JPG, depending on the file extension of
// path.
func saveImage(path string, img image.Image, jpegQuality int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return imaging.Save(img, path, imaging.JPEGQuality(jpegQuality))
}
