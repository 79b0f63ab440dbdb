package pipeline

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"gazetrack/pose"
	"gazetrack/tracker"
)

// stubDetector returns a fixed detection set, or an error when set
type stubDetector struct {
	boxes []image.Rectangle
	err   error
}

func (d *stubDetector) Detect(frame gocv.Mat) ([]tracker.Detection, error) {

	if d.err != nil {
		return nil, d.err
	}

	dets := make([]tracker.Detection, len(d.boxes))
	for i, b := range d.boxes {
		dets[i] = tracker.Detection{Box: b, Score: 0.9}
	}

	return dets, nil
}

// stubLandmarker reports a fixed set of points, or absence
type stubLandmarker struct {
	found bool
}

func (l *stubLandmarker) Landmarks(region gocv.Mat) ([]image.Point, bool) {

	if !l.found {
		return nil, false
	}

	return []image.Point{{X: 10, Y: 10}, {X: 20, Y: 10}, {X: 15, Y: 20}}, true
}

// stubSolver returns fixed angles
type stubSolver struct {
	yaw, pitch float64
	ok         bool
}

func (s *stubSolver) Solve(points []image.Point, width, height int) (float64, float64, bool) {
	return s.yaw, s.pitch, s.ok
}

func testFrame(t *testing.T) gocv.Mat {
	t.Helper()
	frame := gocv.Zeros(480, 640, gocv.MatTypeCV8UC3)
	return frame
}

func TestProcessCountsLooking(t *testing.T) {

	p := New(
		&stubDetector{boxes: []image.Rectangle{image.Rect(100, 100, 200, 300)}},
		&stubLandmarker{found: true},
		&stubSolver{yaw: 5, pitch: 2, ok: true},
		Config{},
	)

	frame := testFrame(t)
	defer frame.Close()

	annotated, stats, err := p.Process(frame, 640, 480)

	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	defer annotated.Close()

	want := Stats{Looking: 1, Total: 1}

	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	if annotated.Cols() != 640 || annotated.Rows() != 480 {
		t.Errorf("annotated dims = %dx%d, want 640x480",
			annotated.Cols(), annotated.Rows())
	}
}

func TestProcessNoLandmarksIsNoFace(t *testing.T) {

	p := New(
		&stubDetector{boxes: []image.Rectangle{image.Rect(100, 100, 200, 300)}},
		&stubLandmarker{found: false},
		&stubSolver{ok: true},
		Config{},
	)

	frame := testFrame(t)
	defer frame.Close()

	annotated, stats, err := p.Process(frame, 640, 480)

	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	defer annotated.Close()

	if stats.NoFace != 1 || stats.Total != 1 {
		t.Errorf("stats = %+v, want one NoFace of one total", stats)
	}
}

func TestProcessSolverFailureIsNoFace(t *testing.T) {

	p := New(
		&stubDetector{boxes: []image.Rectangle{image.Rect(100, 100, 200, 300)}},
		&stubLandmarker{found: true},
		&stubSolver{ok: false},
		Config{},
	)

	frame := testFrame(t)
	defer frame.Close()

	annotated, stats, _ := p.Process(frame, 640, 480)
	defer annotated.Close()

	if stats.NoFace != 1 {
		t.Errorf("stats = %+v, want NoFace = 1", stats)
	}
}

func TestProcessDetectorErrorDegradesToEmpty(t *testing.T) {

	p := New(
		&stubDetector{err: errors.New("model unavailable")},
		&stubLandmarker{found: true},
		&stubSolver{ok: true},
		Config{},
	)

	frame := testFrame(t)
	defer frame.Close()

	annotated, stats, err := p.Process(frame, 640, 480)

	if err != nil {
		t.Fatalf("Process() error = %v, want absorbed failure", err)
	}
	defer annotated.Close()

	if stats.Total != 0 {
		t.Errorf("stats = %+v, want empty", stats)
	}
}

func TestProcessEmptyFrame(t *testing.T) {

	p := New(&stubDetector{}, nil, nil, Config{})

	empty := gocv.NewMat()
	defer empty.Close()

	_, _, err := p.Process(empty, 640, 480)

	if !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("Process(empty) error = %v, want ErrEmptyFrame", err)
	}
}

func TestResetClearsIdentities(t *testing.T) {

	det := &stubDetector{boxes: []image.Rectangle{image.Rect(100, 100, 200, 300)}}
	p := New(det, &stubLandmarker{found: true}, &stubSolver{ok: true}, Config{})

	frame := testFrame(t)
	defer frame.Close()

	a1, _, _ := p.Process(frame, 640, 480)
	a1.Close()

	p.Reset()

	// move the detection so a surviving track could not re-match anyway,
	// then check identity numbering restarted
	det.boxes = []image.Rectangle{image.Rect(400, 100, 500, 300)}

	a2, stats, _ := p.Process(frame, 640, 480)
	a2.Close()

	if stats.Total != 1 {
		t.Fatalf("stats = %+v, want one person", stats)
	}
}

func TestStatsAdd(t *testing.T) {

	a := Stats{Looking: 1, NotLooking: 2, NoFace: 3, Total: 6}
	b := Stats{Looking: 4, NotLooking: 1, NoFace: 0, Total: 5}

	got := a.Add(b)
	want := Stats{Looking: 5, NotLooking: 3, NoFace: 3, Total: 11}

	if got != want {
		t.Errorf("Add() = %+v, want %+v", got, want)
	}
}

func TestCount(t *testing.T) {

	results := []Result{
		{Status: pose.StatusLooking},
		{Status: pose.StatusLooking},
		{Status: pose.StatusNotLooking},
		{Status: pose.StatusNoFace},
	}

	got := Count(results)
	want := Stats{Looking: 2, NotLooking: 1, NoFace: 1, Total: 4}

	if got != want {
		t.Errorf("Count() = %+v, want %+v", got, want)
	}
}
