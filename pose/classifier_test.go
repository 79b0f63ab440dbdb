package pose

import (
	"math"
	"testing"
)

func TestClassifyYawBoundaryInclusive(t *testing.T) {

	c := NewClassifier(0, 0)

	// yaw exactly at the 25 degree threshold with pitch 0:
	// confidence = 0.6*(1-25/90) + 0.4 ~= 0.833 which is above the
	// minimum, so the boundary classifies as looking
	status, conf := c.Classify(1, 25.0, 0)

	if status != StatusLooking {
		t.Errorf("Classify(25.0, 0) = %v, want StatusLooking", status)
	}

	if conf < DefaultMinConfidence {
		t.Errorf("confidence = %v, want >= %v", conf, DefaultMinConfidence)
	}
}

func TestClassifyJustOverThreshold(t *testing.T) {

	c := NewClassifier(0, 0)

	status, _ := c.Classify(1, 25.01, 0)

	if status != StatusNotLooking {
		t.Errorf("Classify(25.01, 0) = %v, want StatusNotLooking", status)
	}
}

func TestClassifyLowConfidenceHistory(t *testing.T) {

	c := NewClassifier(0, 0)

	// saturate the history with far-off poses so the rolling average
	// drops below the minimum confidence
	for i := 0; i < DefaultConfidenceHistory; i++ {
		c.Classify(1, 89, 89)
	}

	// head snaps back to center but the average is still poisoned
	status, conf := c.Classify(1, 0, 0)

	if status != StatusNotLooking {
		t.Errorf("Classify(0, 0) = %v, want StatusNotLooking while average recovers", status)
	}

	if conf >= DefaultMinConfidence {
		t.Errorf("confidence = %v, want < %v", conf, DefaultMinConfidence)
	}
}

func TestClassifyHistoryBounded(t *testing.T) {

	c := NewClassifier(0, 0)

	for i := 0; i < 50; i++ {
		c.Classify(1, 0, 0)
	}

	c.mu.Lock()
	n := len(c.confidence[1])
	c.mu.Unlock()

	if n != DefaultConfidenceHistory {
		t.Errorf("history length = %d, want %d", n, DefaultConfidenceHistory)
	}
}

func TestConfidenceUnknownIdentity(t *testing.T) {

	c := NewClassifier(0, 0)

	if got := c.Confidence(42); got != 0 {
		t.Errorf("Confidence(42) = %v, want 0", got)
	}
}

func TestClassifierClear(t *testing.T) {

	c := NewClassifier(0, 0)

	c.Classify(1, 89, 89)
	c.Clear(1)

	// fresh history, a centered pose classifies immediately
	status, _ := c.Classify(1, 0, 0)

	if status != StatusLooking {
		t.Errorf("Classify after Clear = %v, want StatusLooking", status)
	}
}

func TestDirection(t *testing.T) {

	// pure right turn gives a unit x vector
	dx, dy := Direction(90, 0)

	if math.Abs(dx-1) > 1e-9 || math.Abs(dy) > 1e-9 {
		t.Errorf("Direction(90, 0) = (%v, %v), want (1, 0)", dx, dy)
	}

	// looking up points the arrow up in image coordinates
	dx, dy = Direction(0, 45)

	if math.Abs(dx) > 1e-9 || math.Abs(dy+1) > 1e-9 {
		t.Errorf("Direction(0, 45) = (%v, %v), want (0, -1)", dx, dy)
	}

	// zero angles yield the zero vector rather than NaN
	dx, dy = Direction(0, 0)

	if dx != 0 || dy != 0 {
		t.Errorf("Direction(0, 0) = (%v, %v), want (0, 0)", dx, dy)
	}
}

func TestStatusString(t *testing.T) {

	tests := []struct {
		status Status
		want   string
	}{
		{StatusLooking, "Looking at camera"},
		{StatusNotLooking, "Not looking at camera"},
		{StatusNoFace, "No face detected"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
