package record

import (
	"testing"

	"gocv.io/x/gocv"

	"gazetrack/media"
)

func TestGridDims(t *testing.T) {

	cases := []struct {
		cameras    int
		cols, rows int
	}{
		{1, 1, 1},
		{2, 2, 1},
		{3, 2, 2},
		{4, 2, 2},
		{5, 3, 2},
		{9, 3, 3},
		{10, 4, 3},
	}

	for _, c := range cases {
		cols, rows := gridDims(c.cameras)
		if cols != c.cols || rows != c.rows {
			t.Errorf("gridDims(%d) = %dx%d, want %dx%d",
				c.cameras, cols, rows, c.cols, c.rows)
		}
	}
}

func newTestMultiRecorder(t *testing.T) (*MultiRecorder, *captureSink) {
	t.Helper()

	r, err := NewMultiRecorder(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewMultiRecorder: %v", err)
	}

	sink := &captureSink{}

	r.newSink = func(path string, fps float64, width, height int) (media.Sink, error) {
		sink.path = path
		return sink, nil
	}

	return r, sink
}

// whiteFrame is a solid white test frame
func whiteFrame(width, height int) gocv.Mat {
	m := gocv.Zeros(height, width, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(255, 255, 255, 0))
	return m
}

func closeFrames(frames map[int]gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

func TestMultiRecorderThreeCameraGrid(t *testing.T) {

	r, sink := newTestMultiRecorder(t)
	defer sink.release()

	frames := map[int]gocv.Mat{
		1: whiteFrame(32, 24),
		2: whiteFrame(32, 24),
		3: whiteFrame(32, 24),
	}
	defer closeFrames(frames)

	if !r.Start("rec1", frames, 20, "") {
		t.Fatal("Start failed")
	}

	if !r.Write("rec1", frames, nil) {
		t.Fatal("Write failed")
	}

	if len(sink.frames) != 1 {
		t.Fatalf("sink frames = %d, want 1", len(sink.frames))
	}

	layout := sink.frames[0]

	// three cameras take a 2x2 grid
	if layout.Cols() != 64 || layout.Rows() != 48 {
		t.Fatalf("layout = %dx%d, want 64x48", layout.Cols(), layout.Rows())
	}

	// occupied cells are white
	for _, pt := range [][2]int{{8, 8}, {40, 8}, {8, 32}} {
		if v := layout.GetVecbAt(pt[1], pt[0]); v[0] != 255 {
			t.Errorf("cell pixel at (%d,%d) = %d, want 255", pt[0], pt[1], v[0])
		}
	}

	// fourth cell has no camera and stays black
	if v := layout.GetVecbAt(32, 40); v[0] != 0 || v[1] != 0 || v[2] != 0 {
		t.Errorf("empty cell pixel = %v, want black", v)
	}
}

func TestMultiRecorderMissingCameraCellBlank(t *testing.T) {

	r, sink := newTestMultiRecorder(t)
	defer sink.release()

	frames := map[int]gocv.Mat{
		1: whiteFrame(32, 24),
		2: whiteFrame(32, 24),
	}
	defer closeFrames(frames)

	if !r.Start("rec1", frames, 20, "") {
		t.Fatal("Start failed")
	}

	// camera 2 drops out for this write
	partial := map[int]gocv.Mat{1: frames[1]}

	if !r.Write("rec1", partial, nil) {
		t.Fatal("Write failed")
	}

	layout := sink.frames[0]

	if layout.Cols() != 64 || layout.Rows() != 24 {
		t.Fatalf("layout = %dx%d, want 64x24", layout.Cols(), layout.Rows())
	}

	if v := layout.GetVecbAt(12, 8); v[0] != 255 {
		t.Errorf("present cell pixel = %d, want 255", v[0])
	}

	if v := layout.GetVecbAt(12, 40); v[0] != 0 {
		t.Errorf("missing cell pixel = %d, want 0", v[0])
	}
}

func TestMultiRecorderWriteResizesCell(t *testing.T) {

	r, sink := newTestMultiRecorder(t)
	defer sink.release()

	frames := map[int]gocv.Mat{
		1: whiteFrame(32, 24),
		2: whiteFrame(32, 24),
	}
	defer closeFrames(frames)

	if !r.Start("rec1", frames, 20, "") {
		t.Fatal("Start failed")
	}

	// camera 2 delivers an oversized frame
	big := whiteFrame(100, 80)
	defer big.Close()

	if !r.Write("rec1", map[int]gocv.Mat{1: frames[1], 2: big}, nil) {
		t.Fatal("Write failed")
	}

	layout := sink.frames[0]

	if v := layout.GetVecbAt(12, 40); v[0] != 255 {
		t.Errorf("resized cell pixel = %d, want 255", v[0])
	}
}

func TestMultiRecorderStartEmptyFrames(t *testing.T) {

	r, _ := newTestMultiRecorder(t)

	if r.Start("rec1", nil, 20, "") {
		t.Error("Start with no frames succeeded")
	}
}

func TestMultiRecorderStopTwice(t *testing.T) {

	r, sink := newTestMultiRecorder(t)
	defer sink.release()

	frames := map[int]gocv.Mat{1: whiteFrame(32, 24)}
	defer closeFrames(frames)

	if !r.Start("rec1", frames, 20, "") {
		t.Fatal("Start failed")
	}

	r.Write("rec1", frames, nil)

	summary, ok := r.Stop("rec1")
	if !ok {
		t.Fatal("first Stop returned absent")
	}

	if summary.FrameCount != 1 {
		t.Errorf("summary FrameCount = %d, want 1", summary.FrameCount)
	}

	if len(summary.CameraIDs) != 1 || summary.CameraIDs[0] != 1 {
		t.Errorf("summary CameraIDs = %v, want [1]", summary.CameraIDs)
	}

	if _, ok := r.Stop("rec1"); ok {
		t.Error("second Stop returned a summary")
	}
}
