package detect

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// landmarkCount is the number of facial reference points the solver
// expects, in order: nose tip, chin, left eye corner, right eye corner,
// left mouth corner, right mouth corner
const landmarkCount = 6

// modelPoints are the matching 3D reference positions on a canonical
// head, in millimetres
var modelPoints = []gocv.Point3f{
	{X: 0, Y: 0, Z: 0},
	{X: 0, Y: -330, Z: -65},
	{X: -225, Y: 170, Z: -135},
	{X: 225, Y: 170, Z: -135},
	{X: -150, Y: -150, Z: -125},
	{X: 150, Y: -150, Z: -125},
}

// HeadPose recovers yaw and pitch angles from facial landmarks by
// solving the perspective n point problem against a canonical 3D head
type HeadPose struct{}

// NewHeadPose creates a head pose solver
func NewHeadPose() *HeadPose {
	return &HeadPose{}
}

// Solve returns head yaw and pitch in degrees for the given landmark
// points within a region of the stated dimensions. It reports false
// when the landmarks are unusable
func (h *HeadPose) Solve(points []image.Point, width, height int) (float64, float64, bool) {

	if len(points) != landmarkCount || width <= 0 || height <= 0 {
		return 0, 0, false
	}

	imagePoints := make([]gocv.Point2f, landmarkCount)

	for i, p := range points {
		imagePoints[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}

	objVec := gocv.NewPoint3fVectorFromPoints(modelPoints)
	defer objVec.Close()

	imgVec := gocv.NewPoint2fVectorFromPoints(imagePoints)
	defer imgVec.Close()

	// pinhole camera with the focal length approximated by the region
	// width and no lens distortion
	camera := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer camera.Close()

	focal := float64(width)
	camera.SetDoubleAt(0, 0, focal)
	camera.SetDoubleAt(0, 2, float64(width)/2)
	camera.SetDoubleAt(1, 1, focal)
	camera.SetDoubleAt(1, 2, float64(height)/2)
	camera.SetDoubleAt(2, 2, 1)

	dist := gocv.Zeros(4, 1, gocv.MatTypeCV64F)
	defer dist.Close()

	rvec := gocv.NewMat()
	defer rvec.Close()

	tvec := gocv.NewMat()
	defer tvec.Close()

	if !gocv.SolvePnP(objVec, imgVec, camera, dist, &rvec, &tvec, false, 0) {
		return 0, 0, false
	}

	rot := gocv.NewMat()
	defer rot.Close()

	gocv.Rodrigues(rvec, &rot)

	yaw := math.Atan2(rot.GetDoubleAt(1, 0), rot.GetDoubleAt(0, 0))

	pitch := math.Atan2(-rot.GetDoubleAt(2, 0),
		math.Hypot(rot.GetDoubleAt(2, 1), rot.GetDoubleAt(2, 2)))

	return yaw * 180 / math.Pi, pitch * 180 / math.Pi, true
}
