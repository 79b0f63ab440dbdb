package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"gazetrack/pose"
)

// arrowLength is the pixel length of a gaze direction arrow
const arrowLength = 30

// Person holds the per-identity data needed to draw one attention overlay
type Person struct {
	// ID is the stable track identity
	ID int
	// Box is the person's bounding box on the frame
	Box image.Rectangle
	// Status is the attention classification
	Status pose.Status
	// Confidence is the averaged attention confidence, 0 when unknown
	Confidence float64
	// HasDirection indicates DX/DY hold a valid gaze vector
	HasDirection bool
	// DX, DY is the normalized gaze direction in image coordinates
	DX, DY float64
}

// boxLabel defines a text label rendered on a filled rectangle
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// Boxes renders a status-colored bounding box, identity label and optional
// gaze direction arrow for each person
func Boxes(img *gocv.Mat, people []Person, font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(people))

	for _, p := range people {

		useClr := StatusColor(p.Status)

		gocv.Rectangle(img, p.Box, useClr, lineThickness)

		// create text for label
		var text string

		if p.Confidence > 0 {
			text = fmt.Sprintf("#%d %s (%.2f)", p.ID, p.Status, p.Confidence)
		} else {
			text = fmt.Sprintf("#%d %s", p.ID, p.Status)
		}

		textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

		// label sits above the top-left corner of the box
		bRect := image.Rect(p.Box.Min.X,
			p.Box.Min.Y-textSize.Y-font.TopPad-font.BottomPad,
			p.Box.Min.X+textSize.X+font.LeftPad+font.RightPad,
			p.Box.Min.Y)

		textPos := image.Pt(p.Box.Min.X+font.LeftPad, p.Box.Min.Y-font.BottomPad)

		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: textPos,
		})

		// gaze direction arrow starting just below the top of the box
		if p.HasDirection {

			centerX := (p.Box.Min.X + p.Box.Max.X) / 2
			centerY := p.Box.Min.Y + 20

			endX := centerX + int(p.DX*arrowLength)
			endY := centerY + int(p.DY*arrowLength)

			gocv.ArrowedLine(img,
				image.Pt(centerX, centerY),
				image.Pt(endX, endY),
				useClr, lineThickness)
		}
	}

	// draw all box labels last so they are the top most layer on the image
	for _, label := range boxLabels {
		gocv.RectangleWithParams(img, label.rect, label.clr, -1, font.LineType, 0)
		gocv.PutTextWithParams(img, label.text, label.textPos, font.Face,
			font.Scale, White, font.Thickness, font.LineType, false)
	}
}
