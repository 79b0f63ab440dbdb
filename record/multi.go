package record

import (
	"image"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"gazetrack/media"
	"gazetrack/pipeline"
)

// gridDims returns the grid column and row counts for n cameras
func gridDims(n int) (cols, rows int) {
	switch {
	case n <= 1:
		return 1, 1
	case n == 2:
		return 2, 1
	case n <= 4:
		return 2, 2
	default:
		cols = int(math.Ceil(math.Sqrt(float64(n))))
		rows = (n + cols - 1) / cols
		return cols, rows
	}
}

// multiSession extends a session with grid geometry. Cell positions are
// fixed by the sorted camera id order captured at start
type multiSession struct {
	session
	cellWidth  int
	cellHeight int
	cols       int
}

// MultiRecorder records several camera streams composited into a single
// grid layout video
type MultiRecorder struct {
	outputDir string
	log       *logrus.Logger
	newSink   media.SinkFactory

	mu       sync.Mutex
	sessions map[string]*multiSession
}

// NewMultiRecorder creates a multi camera recorder saving files under
// outputDir
func NewMultiRecorder(outputDir string, log *logrus.Logger) (*MultiRecorder, error) {

	if log == nil {
		log = logrus.New()
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	return &MultiRecorder{
		outputDir: outputDir,
		log:       log,
		newSink:   media.NewVideoSink,
		sessions:  make(map[string]*multiSession),
	}, nil
}

// Start opens a multi camera session. The grid layout and cell size are
// fixed from the supplied frames, with cells assigned in ascending
// camera id order. It reports false for an already active id, an empty
// frame set, or a sink that cannot be opened
func (r *MultiRecorder) Start(id string, frames map[int]gocv.Mat,
	fps float64, customName string) bool {

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		r.log.WithField("recording", id).Warn("recording already active")
		return false
	}

	if len(frames) == 0 {
		return false
	}

	cameraIDs := make([]int, 0, len(frames))

	for cid := range frames {
		cameraIDs = append(cameraIDs, cid)
	}

	sort.Ints(cameraIDs)

	first := frames[cameraIDs[0]]
	cellWidth, cellHeight := first.Cols(), first.Rows()
	cols, rows := gridDims(len(cameraIDs))
	layoutWidth, layoutHeight := cellWidth*cols, cellHeight*rows

	path := outputFilename(r.outputDir, customName, cameraIDs, time.Now())

	sink, err := r.newSink(path, fps, layoutWidth, layoutHeight)
	if err != nil {
		r.log.WithError(err).WithField("recording", id).
			Error("failed to open recording sink")
		return false
	}

	r.sessions[id] = &multiSession{
		session: session{
			id:        id,
			sink:      sink,
			path:      path,
			width:     layoutWidth,
			height:    layoutHeight,
			fps:       fps,
			cameraIDs: cameraIDs,
			start:     time.Now(),
			acc:       NewAccumulator(id, r.outputDir, customName),
		},
		cellWidth:  cellWidth,
		cellHeight: cellHeight,
		cols:       cols,
	}

	r.log.WithFields(logrus.Fields{
		"recording": id,
		"path":      path,
		"cameras":   len(cameraIDs),
		"layout":    [2]int{cols, rows},
	}).Info("multi camera recording started")

	return true
}

// Write composites the supplied camera frames into the session grid and
// appends the result to the sink. A camera missing from frames leaves
// its cell black. Unknown ids are a no-op reporting false
func (r *MultiRecorder) Write(id string, frames map[int]gocv.Mat,
	stats *pipeline.Stats) bool {

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}

	layout := r.composite(s, frames)
	defer layout.Close()

	if err := s.sink.Write(layout); err != nil {
		r.log.WithError(err).WithField("recording", id).
			Warn("failed to write recording frame")
		return false
	}

	s.frameCount++

	if stats != nil {
		s.acc.Record(*stats)
	}

	return true
}

func (r *MultiRecorder) composite(s *multiSession,
	frames map[int]gocv.Mat) gocv.Mat {

	layout := gocv.Zeros(s.height, s.width, gocv.MatTypeCV8UC3)

	for i, cid := range s.cameraIDs {

		frame, ok := frames[cid]
		if !ok || frame.Empty() {
			continue
		}

		cell := frame
		resized := false

		if frame.Cols() != s.cellWidth || frame.Rows() != s.cellHeight {
			cell = gocv.NewMat()
			gocv.Resize(frame, &cell,
				image.Pt(s.cellWidth, s.cellHeight), 0, 0,
				gocv.InterpolationLinear)
			resized = true
		}

		x := (i % s.cols) * s.cellWidth
		y := (i / s.cols) * s.cellHeight

		region := layout.Region(image.Rect(x, y, x+s.cellWidth, y+s.cellHeight))
		cell.CopyTo(&region)
		region.Close()

		if resized {
			cell.Close()
		}
	}

	return layout
}

// Stop finalizes the recording and returns its summary. A second stop
// for the same id, or an unknown id, reports false
func (r *MultiRecorder) Stop(id string) (Summary, bool) {

	r.mu.Lock()

	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return Summary{}, false
	}

	delete(r.sessions, id)
	r.mu.Unlock()

	return r.finalize(s), true
}

// StopAll stops every active recording, returning their summaries
func (r *MultiRecorder) StopAll() []Summary {

	r.mu.Lock()

	stopped := make([]*multiSession, 0, len(r.sessions))

	for id, s := range r.sessions {
		stopped = append(stopped, s)
		delete(r.sessions, id)
	}

	r.mu.Unlock()

	summaries := make([]Summary, 0, len(stopped))

	for _, s := range stopped {
		summaries = append(summaries, r.finalize(s))
	}

	return summaries
}

func (r *MultiRecorder) finalize(s *multiSession) Summary {

	if err := s.sink.Close(); err != nil {
		r.log.WithError(err).WithField("recording", s.id).
			Warn("failed to close recording sink")
	}

	reportPath, err := s.acc.Export()
	if err != nil {
		r.log.WithError(err).WithField("recording", s.id).
			Warn("failed to export attention report")
	}

	var size int64

	if fi, err := os.Stat(s.path); err == nil {
		size = fi.Size()
	}

	duration := time.Since(s.start).Seconds()

	r.log.WithFields(logrus.Fields{
		"recording": s.id,
		"duration":  duration,
		"frames":    s.frameCount,
	}).Info("multi camera recording stopped")

	return Summary{
		RecordingID: s.id,
		Path:        s.path,
		ReportPath:  reportPath,
		Duration:    duration,
		FrameCount:  s.frameCount,
		Width:       s.width,
		Height:      s.height,
		FPS:         s.fps,
		CameraIDs:   s.cameraIDs,
		FileSize:    size,
	}
}

// IsActive reports whether the recording id has an open session
func (r *MultiRecorder) IsActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[id]
	return ok
}

// Active returns the ids of all open sessions
func (r *MultiRecorder) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))

	for id := range r.sessions {
		ids = append(ids, id)
	}

	return ids
}
