package render

import (
	"image/color"

	"gazetrack/pose"
)

var (
	// Green marks a person classified as looking at the camera
	Green = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	// Yellow marks a person whose head is turned away
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	// Red marks a person with no detectable face
	Red = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	// Gray is used for unknown statuses
	Gray = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	// White is the label text color
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	// Black is the banner background color
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// StatusColor returns the overlay color for an attention status
func StatusColor(s pose.Status) color.RGBA {
	switch s {
	case pose.StatusLooking:
		return Green
	case pose.StatusNotLooking:
		return Yellow
	case pose.StatusNoFace:
		return Red
	}
	return Gray
}
