package pipeline

import (
	"image"

	"gocv.io/x/gocv"
)

// letterbox resizes frame to the target dimensions preserving aspect
// ratio, centering the scaled image on a black canvas. The returned Mat is
// always a new allocation owned by the caller
func letterbox(frame gocv.Mat, targetWidth, targetHeight int) gocv.Mat {

	width := frame.Cols()
	height := frame.Rows()

	if width == targetWidth && height == targetHeight {
		return frame.Clone()
	}

	scaleW := float64(targetWidth) / float64(width)
	scaleH := float64(targetHeight) / float64(height)

	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)

	scaled := gocv.NewMat()
	defer scaled.Close()

	gocv.Resize(frame, &scaled, image.Pt(newWidth, newHeight), 0, 0,
		gocv.InterpolationLinear)

	canvas := gocv.Zeros(targetHeight, targetWidth, frame.Type())

	startX := (targetWidth - newWidth) / 2
	startY := (targetHeight - newHeight) / 2

	roi := canvas.Region(image.Rect(startX, startY, startX+newWidth, startY+newHeight))
	scaled.CopyTo(&roi)
	roi.Close()

	return canvas
}
