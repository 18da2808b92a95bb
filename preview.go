package cocoyolo

// Preview images with the converted bounding boxes drawn on top.

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/llgcode/draw2d/draw2dimg"
)

var previewColor = color.RGBA{255, 255, 0, 255}

// DrawPreview loads the image at imagePath, outlines the boxes of labels on it and saves the result
// to outPath. The boxes are drawn from the normalised label values, so the preview shows what a
// training pipeline will see.
func DrawPreview(imagePath, outPath string, labels YOLOAnnotatedFile) error {
	src, err := imaging.Open(imagePath)
	if err != nil {
		return fmt.Errorf("cannot load image %q: %w", imagePath, err)
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Src)

	width := float64(bounds.Dx())
	height := float64(bounds.Dy())
	lineWidth := width / 400
	if lineWidth < 1 {
		lineWidth = 1
	}

	gc := draw2dimg.NewGraphicContext(canvas)
	gc.SetStrokeColor(previewColor)
	gc.SetLineWidth(lineWidth)
	for _, a := range labels.Annotations {
		box := a.Box.Pixels(width, height)
		x1, y1 := box[0], box[1]
		x2, y2 := x1+box[2], y1+box[3]

		gc.BeginPath()
		gc.MoveTo(x1, y1)
		gc.LineTo(x2, y1)
		gc.LineTo(x2, y2)
		gc.LineTo(x1, y2)
		gc.Close()
		gc.Stroke()
	}

	return saveImage(outPath, canvas, DefaultJPEGQuality)
}
