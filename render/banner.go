package render

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Banner renders the aggregate attention counts as a single line on a
// filled background in the top-right corner of the frame
func Banner(img *gocv.Mat, looking, notLooking, noFace, total int, font Font) {

	text := fmt.Sprintf("Looking at camera: %d | Not looking: %d | No face: %d | Total: %d",
		looking, notLooking, noFace, total)

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	textX := img.Cols() - textSize.X - 10
	textY := 30

	bRect := image.Rect(textX-10, textY-textSize.Y-10, img.Cols(), textY+10)

	gocv.RectangleWithParams(img, bRect, Black, -1, font.LineType, 0)
	gocv.PutTextWithParams(img, text, image.Pt(textX, textY), font.Face,
		font.Scale, White, font.Thickness, font.LineType, false)
}
