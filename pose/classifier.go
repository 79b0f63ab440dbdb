package pose

import (
	"math"
	"sync"
)

// Status is the attention classification of a tracked person for one frame
type Status int

const (
	// StatusLooking indicates the head is oriented towards the camera
	// with sufficient confidence
	StatusLooking Status = iota
	// StatusNotLooking indicates a face was found but the head is turned
	// away or confidence is low
	StatusNotLooking
	// StatusNoFace indicates no facial landmarks could be extracted for
	// the person this frame
	StatusNoFace
)

// String returns the display label for a status
func (s Status) String() string {
	switch s {
	case StatusLooking:
		return "Looking at camera"
	case StatusNotLooking:
		return "Not looking at camera"
	case StatusNoFace:
		return "No face detected"
	}
	return "Unknown"
}

const (
	// DefaultYawThreshold is the maximum absolute yaw in degrees still
	// classified as looking at the camera
	DefaultYawThreshold = 25.0
	// DefaultPitchThreshold is the maximum absolute pitch in degrees
	// still classified as looking at the camera
	DefaultPitchThreshold = 20.0
	// DefaultMinConfidence is the minimum averaged attention confidence
	// required for the looking classification
	DefaultMinConfidence = 0.7
	// DefaultConfidenceHistory is the number of recent per-frame
	// confidence scores averaged per identity
	DefaultConfidenceHistory = 10
)

// Classifier turns head pose angles into an attention status using angle
// thresholds and a rolling per-identity confidence average
type Classifier struct {
	yawThreshold   float64
	pitchThreshold float64
	minConfidence  float64
	historySize    int

	mu         sync.Mutex
	confidence map[int][]float64
}

// NewClassifier returns a new Classifier. Zero thresholds select the
// package defaults
func NewClassifier(yawThreshold, pitchThreshold float64) *Classifier {

	if yawThreshold <= 0 {
		yawThreshold = DefaultYawThreshold
	}

	if pitchThreshold <= 0 {
		pitchThreshold = DefaultPitchThreshold
	}

	return &Classifier{
		yawThreshold:   yawThreshold,
		pitchThreshold: pitchThreshold,
		minConfidence:  DefaultMinConfidence,
		historySize:    DefaultConfidenceHistory,
		confidence:     make(map[int][]float64),
	}
}

// Classify scores how directly the head faces the camera, folds the score
// into the identity's bounded confidence history and returns the resulting
// status together with the averaged confidence. The angle thresholds are
// inclusive: a yaw exactly at the threshold still classifies as looking
func (c *Classifier) Classify(id int, yaw, pitch float64) (Status, float64) {

	yawConfidence := math.Max(0, 1.0-math.Abs(yaw)/90.0)
	pitchConfidence := math.Max(0, 1.0-math.Abs(pitch)/90.0)

	score := yawConfidence*0.6 + pitchConfidence*0.4

	c.mu.Lock()

	hist := append(c.confidence[id], score)

	if len(hist) > c.historySize {
		hist = hist[1:]
	}

	c.confidence[id] = hist

	avg := 0.0
	for _, v := range hist {
		avg += v
	}
	avg /= float64(len(hist))

	c.mu.Unlock()

	if math.Abs(yaw) <= c.yawThreshold &&
		math.Abs(pitch) <= c.pitchThreshold &&
		avg >= c.minConfidence {
		return StatusLooking, avg
	}

	return StatusNotLooking, avg
}

// Confidence returns the current averaged attention confidence for an
// identity, or 0 when no history exists
func (c *Classifier) Confidence(id int) float64 {

	c.mu.Lock()
	defer c.mu.Unlock()

	hist := c.confidence[id]

	if len(hist) == 0 {
		return 0
	}

	avg := 0.0
	for _, v := range hist {
		avg += v
	}

	return avg / float64(len(hist))
}

// Clear drops the confidence history for a single identity
func (c *Classifier) Clear(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.confidence, id)
}

// ClearAll drops the confidence history for every identity
func (c *Classifier) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confidence = make(map[int][]float64)
}

// Direction converts head pose angles into a normalized 2D vector suitable
// for drawing a gaze arrow on an image. Y is inverted to match image
// coordinates
func Direction(yaw, pitch float64) (float64, float64) {

	dx := math.Sin(yaw * math.Pi / 180)
	dy := -math.Sin(pitch * math.Pi / 180)

	magnitude := math.Sqrt(dx*dx + dy*dy)

	if magnitude > 0 {
		dx /= magnitude
		dy /= magnitude
	}

	return dx, dy
}
