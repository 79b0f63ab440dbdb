package tracker

import (
	"image"
	"math"
)

// IoU calculates the Intersection over Union of two axis-aligned
// rectangles in [x1,y1,x2,y2] form. Non-overlapping or degenerate
// rectangles return 0.
func IoU(a, b image.Rectangle) float64 {

	x1 := math.Max(float64(a.Min.X), float64(b.Min.X))
	y1 := math.Max(float64(a.Min.Y), float64(b.Min.Y))
	x2 := math.Min(float64(a.Max.X), float64(b.Max.X))
	y2 := math.Min(float64(a.Max.Y), float64(b.Max.Y))

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)

	areaA := float64(a.Dx()) * float64(a.Dy())
	areaB := float64(b.Dx()) * float64(b.Dy())
	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// Center returns the center point of a rectangle
func Center(r image.Rectangle) (float64, float64) {
	return float64(r.Min.X+r.Max.X) / 2, float64(r.Min.Y+r.Max.Y) / 2
}

// CenterDistance returns the euclidean distance between the centers of
// two rectangles
func CenterDistance(a, b image.Rectangle) float64 {

	ax, ay := Center(a)
	bx, by := Center(b)

	return math.Sqrt((ax-bx)*(ax-bx) + (ay-by)*(ay-by))
}
