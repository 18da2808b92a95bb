package cocoyolo

// YOLO specific functionality.

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// LabelPrecision is the number of decimal places that normalised coordinates are truncated to.
const LabelPrecision = 6

// YOLOBox is a bounding box in YOLO notation: centre and size, normalised by the image size.
type YOLOBox struct {
	CenterX float64
	CenterY float64
	Width   float64
	Height  float64
}

// YOLOAnnotation is a single line within a YOLO label file.
type YOLOAnnotation struct {
	ClassID int64
	Box     YOLOBox
}

// String formats the annotation as a label line, without the trailing newline.
func (a YOLOAnnotation) String() string {
	return fmt.Sprintf("%d %s %s %s %s", a.ClassID, formatCoord(a.Box.CenterX),
		formatCoord(a.Box.CenterY), formatCoord(a.Box.Width), formatCoord(a.Box.Height))
}

// YOLOAnnotatedFile defines the YOLO annotation structure for a single image.
type YOLOAnnotatedFile struct {
	Annotations []YOLOAnnotation
	FilePath    string // The image file.
}

// ConvertBBox converts a COCO bounding box (xmin, ymin, width, height in pixels) of an image with the
// given pixel dimensions to a YOLO box. Every value is truncated to LabelPrecision decimal places.
func ConvertBBox(bbox [4]float64, imageWidth, imageHeight float64) YOLOBox {
	xmin, ymin, w, h := bbox[0], bbox[1], bbox[2], bbox[3]
	xmax := xmin + w
	ymax := ymin + h

	return YOLOBox{
		CenterX: Truncate((xmin+xmax)/2/imageWidth, LabelPrecision),
		CenterY: Truncate((ymin+ymax)/2/imageHeight, LabelPrecision),
		Width:   Truncate(w/imageWidth, LabelPrecision),
		Height:  Truncate(h/imageHeight, LabelPrecision),
	}
}

// Pixels converts b back to a COCO bounding box (xmin, ymin, width, height) for an image with the
// given pixel dimensions.
func (b YOLOBox) Pixels(imageWidth, imageHeight float64) [4]float64 {
	w := b.Width * imageWidth
	h := b.Height * imageHeight
	return [4]float64{b.CenterX*imageWidth - w/2, b.CenterY*imageHeight - h/2, w, h}
}

// Truncate cuts x after the given number of decimal places, towards zero. It operates on the
// shortest decimal representation of x, so Truncate(0.1, 6) is 0.1 and never 0.099999.
func Truncate(x float64, digits int) float64 {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > digits {
		s = strings.TrimSuffix(s[:i+1+digits], ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v == 0 {
		// The input was already a valid float. Zero drops the sign of -0.
		return 0
	}
	return v
}

// formatCoord formats a truncated coordinate in its shortest form, keeping a decimal point.
func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// ToYOLO converts the annotations of img to YOLO notation. The image dimensions are passed
// separately as they may have been probed from the image file. classID maps COCO category IDs to
// output class IDs; nil keeps the COCO IDs.
func ToYOLO(img COCOImage, annotations []COCOAnnotation, width, height int,
	classID func(categoryID int64) int64) YOLOAnnotatedFile {

	f := YOLOAnnotatedFile{
		Annotations: make([]YOLOAnnotation, len(annotations)),
		FilePath:    img.FileName,
	}
	for i, a := range annotations {
		id := a.CategoryID
		if classID != nil {
			id = classID(id)
		}
		f.Annotations[i] = YOLOAnnotation{
			ClassID: id,
			Box:     ConvertBBox(a.Box(), float64(width), float64(height)),
		}
	}

	return f
}

// MarshalText encodes the label file content, one line per annotation.
func (f YOLOAnnotatedFile) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	for _, a := range f.Annotations {
		buf.WriteString(a.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// WriteYOLOLabel writes the label file for f to path, replacing any previous content.
func WriteYOLOLabel(path string, f YOLOAnnotatedFile) error {
	enc, err := f.MarshalText()
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, enc); err != nil {
		return fmt.Errorf("cannot write file %q: %w", path, err)
	}
	return nil
}
