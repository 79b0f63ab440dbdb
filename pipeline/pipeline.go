// Package pipeline implements the shared per-frame attention pipeline:
// person detection, identity tracking, head pose smoothing, attention
// classification and overlay rendering. Detection, landmark extraction and
// geometric pose solving are pluggable collaborators.
package pipeline

import (
	"errors"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"gazetrack/pose"
	"gazetrack/render"
	"gazetrack/tracker"
)

// ErrEmptyFrame is returned by Process when given an empty input Mat
var ErrEmptyFrame = errors.New("pipeline: empty input frame")

// Detector finds person bounding boxes in a frame
type Detector interface {
	Detect(frame gocv.Mat) ([]tracker.Detection, error)
}

// Landmarker extracts ordered 2D facial landmark points from a person
// region. It reports false when no face is found, which is an expected
// per-frame absence and not an error
type Landmarker interface {
	Landmarks(region gocv.Mat) ([]image.Point, bool)
}

// PoseSolver converts facial landmark points into head yaw and pitch
// angles in degrees. The region dimensions provide the camera intrinsics.
// It reports false when no solution exists for the given points
type PoseSolver interface {
	Solve(points []image.Point, width, height int) (yaw, pitch float64, ok bool)
}

// Processor is the per-frame contract consumed by camera actors, the
// fan-out executor, video jobs and recording sessions
type Processor interface {
	// Process runs one frame through the pipeline at the target
	// dimensions and returns the annotated frame with its statistics.
	// The returned Mat is owned by the caller
	Process(frame gocv.Mat, targetWidth, targetHeight int) (gocv.Mat, Stats, error)
	// Reset clears all per-identity tracker and smoothing state
	Reset()
}

// Result is the per-person outcome of processing one frame
type Result struct {
	// ID is the stable track identity
	ID int
	// Box is the person bounding box on the processed frame
	Box image.Rectangle
	// Status is the attention classification
	Status pose.Status
	// Confidence is the averaged attention confidence, 0 for no face
	Confidence float64
	// Yaw and Pitch are the smoothed head angles in degrees
	Yaw, Pitch float64
	// HasDirection indicates a gaze vector was derived
	HasDirection bool
	// DX, DY is the normalized gaze direction
	DX, DY float64
}

// Config holds the pipeline tuning parameters. Zero values select the
// package defaults of each component
type Config struct {
	// IoUThreshold is the minimum IoU for matching detections to tracks
	IoUThreshold float64
	// MaxDisappeared is the updates a track survives unmatched
	MaxDisappeared int
	// YawThreshold is the looking-at-camera yaw limit in degrees
	YawThreshold float64
	// PitchThreshold is the looking-at-camera pitch limit in degrees
	PitchThreshold float64
	// LineThickness of overlay boxes, defaults to 2
	LineThickness int
	// Log destination, defaults to the logrus standard logger
	Log *logrus.Logger
}

// Pipeline is the default Processor implementation. It is safe for
// concurrent use; frames are processed one at a time because tracker and
// smoothing state is sequential by nature
type Pipeline struct {
	detector   Detector
	landmarker Landmarker
	solver     PoseSolver

	tracker    *tracker.Tracker
	smoother   *pose.Smoother
	classifier *pose.Classifier

	font      render.Font
	thickness int
	log       *logrus.Logger

	mu sync.Mutex
}

// New creates a Pipeline around the given collaborators. The landmarker
// and solver may be nil, in which case every tracked person classifies as
// having no detectable face
func New(detector Detector, landmarker Landmarker, solver PoseSolver, cfg Config) *Pipeline {

	if cfg.LineThickness <= 0 {
		cfg.LineThickness = 2
	}

	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}

	return &Pipeline{
		detector:   detector,
		landmarker: landmarker,
		solver:     solver,
		tracker:    tracker.NewTracker(cfg.IoUThreshold, cfg.MaxDisappeared),
		smoother:   pose.NewSmoother(0),
		classifier: pose.NewClassifier(cfg.YawThreshold, cfg.PitchThreshold),
		font:       render.DefaultFont(),
		thickness:  cfg.LineThickness,
		log:        cfg.Log,
	}
}

// Process implements Processor. Detector failures degrade the frame to
// zero detections and landmark or solver absences degrade the affected
// person to StatusNoFace; neither fails the call
func (p *Pipeline) Process(frame gocv.Mat, targetWidth, targetHeight int) (gocv.Mat, Stats, error) {

	if frame.Empty() {
		return gocv.Mat{}, Stats{}, ErrEmptyFrame
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	canvas := letterbox(frame, targetWidth, targetHeight)

	var detections []tracker.Detection

	if p.detector != nil {
		var err error
		detections, err = p.detector.Detect(canvas)

		if err != nil {
			// transient detector failure, degrade to an empty frame
			p.log.WithError(err).Warn("pipeline: detection failed")
			detections = nil
		}
	}

	tracked, removed := p.tracker.Update(detections)

	// drop smoothing state of retired identities so a future identity
	// never inherits stale history
	for _, id := range removed {
		p.smoother.Clear(id)
		p.classifier.Clear(id)
	}

	bounds := image.Rect(0, 0, canvas.Cols(), canvas.Rows())
	results := make([]Result, 0, len(tracked))

	for _, det := range tracked {
		results = append(results, p.analyze(canvas, det, bounds))
	}

	stats := Count(results)

	people := make([]render.Person, len(results))

	for i, r := range results {
		people[i] = render.Person{
			ID:           r.ID,
			Box:          r.Box,
			Status:       r.Status,
			Confidence:   r.Confidence,
			HasDirection: r.HasDirection,
			DX:           r.DX,
			DY:           r.DY,
		}
	}

	render.Boxes(&canvas, people, p.font, p.thickness)
	render.Banner(&canvas, stats.Looking, stats.NotLooking, stats.NoFace,
		stats.Total, render.BannerFont())

	return canvas, stats, nil
}

// analyze classifies a single tracked person on the canvas
func (p *Pipeline) analyze(canvas gocv.Mat, det tracker.Detection, bounds image.Rectangle) Result {

	result := Result{
		ID:     det.ID,
		Box:    det.Box,
		Status: pose.StatusNoFace,
	}

	box := det.Box.Intersect(bounds)

	if p.landmarker == nil || p.solver == nil || box.Empty() {
		return result
	}

	region := canvas.Region(box)
	points, found := p.landmarker.Landmarks(region)
	region.Close()

	if !found {
		return result
	}

	yaw, pitch, ok := p.solver.Solve(points, box.Dx(), box.Dy())

	if !ok {
		return result
	}

	yaw, pitch = p.smoother.Smooth(det.ID, yaw, pitch)
	status, confidence := p.classifier.Classify(det.ID, yaw, pitch)

	dx, dy := pose.Direction(yaw, pitch)

	result.Status = status
	result.Confidence = confidence
	result.Yaw = yaw
	result.Pitch = pitch
	result.HasDirection = true
	result.DX = dx
	result.DY = dy

	return result
}

// Reset clears all per-identity tracker and smoothing state. Jobs call it
// before a run to avoid identity bleed between inputs
func (p *Pipeline) Reset() {

	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracker.Reset()
	p.smoother.ClearAll()
	p.classifier.ClearAll()
}
