package record

import (
	"image"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"gazetrack/media"
	"gazetrack/pipeline"
)

// Summary describes a finished recording
type Summary struct {
	RecordingID string  `json:"recording_id"`
	Path        string  `json:"filepath"`
	ReportPath  string  `json:"report_path,omitempty"`
	Duration    float64 `json:"duration"`
	FrameCount  int     `json:"frame_count"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	CameraIDs   []int   `json:"camera_ids,omitempty"`
	FileSize    int64   `json:"file_size"`
}

// Info is a point in time view of an active recording
type Info struct {
	RecordingID string  `json:"recording_id"`
	Path        string  `json:"filepath"`
	Duration    float64 `json:"duration"`
	FrameCount  int     `json:"frame_count"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	CameraIDs   []int   `json:"camera_ids,omitempty"`
}

// session is the state behind one active recording. It exclusively owns
// its sink and accumulator
type session struct {
	id         string
	sink       media.Sink
	path       string
	width      int
	height     int
	fps        float64
	cameraIDs  []int
	start      time.Time
	frameCount int
	acc        *Accumulator
}

// Recorder manages single stream recording sessions keyed by id
type Recorder struct {
	outputDir string
	log       *logrus.Logger
	newSink   media.SinkFactory

	mu       sync.Mutex
	sessions map[string]*session
}

// NewRecorder creates a recorder saving files under outputDir, creating
// the directory if needed
func NewRecorder(outputDir string, log *logrus.Logger) (*Recorder, error) {

	if log == nil {
		log = logrus.New()
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	return &Recorder{
		outputDir: outputDir,
		log:       log,
		newSink:   media.NewVideoSink,
		sessions:  make(map[string]*session),
	}, nil
}

// Start opens a new recording session. It reports false when the id is
// already active or the output sink cannot be opened
func (r *Recorder) Start(id string, width, height int, fps float64,
	cameraIDs []int, customName string) bool {

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		r.log.WithField("recording", id).Warn("recording already active")
		return false
	}

	path := outputFilename(r.outputDir, customName, cameraIDs, time.Now())

	sink, err := r.newSink(path, fps, width, height)
	if err != nil {
		r.log.WithError(err).WithField("recording", id).
			Error("failed to open recording sink")
		return false
	}

	r.sessions[id] = &session{
		id:        id,
		sink:      sink,
		path:      path,
		width:     width,
		height:    height,
		fps:       fps,
		cameraIDs: cameraIDs,
		start:     time.Now(),
		acc:       NewAccumulator(id, r.outputDir, customName),
	}

	r.log.WithFields(logrus.Fields{
		"recording": id,
		"path":      path,
	}).Info("recording started")

	return true
}

// Write appends one frame to the recording, resizing it to the session
// dimensions when they differ, and feeds stats to the accumulator when
// present. Unknown ids are a no-op reporting false
func (r *Recorder) Write(id string, frame gocv.Mat, stats *pipeline.Stats) bool {

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}

	out := frame

	if frame.Cols() != s.width || frame.Rows() != s.height {
		resized := gocv.NewMat()
		gocv.Resize(frame, &resized,
			image.Pt(s.width, s.height), 0, 0, gocv.InterpolationLinear)
		defer resized.Close()
		out = resized
	}

	if err := s.sink.Write(out); err != nil {
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

// Stop finalizes the recording and returns its summary. A second stop
// for the same id, or an unknown id, reports false
func (r *Recorder) Stop(id string) (Summary, bool) {

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
func (r *Recorder) StopAll() []Summary {

	r.mu.Lock()

	stopped := make([]*session, 0, len(r.sessions))

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

func (r *Recorder) finalize(s *session) Summary {

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
	}).Info("recording stopped")

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
func (r *Recorder) IsActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[id]
	return ok
}

// Active returns the ids of all open sessions
func (r *Recorder) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))

	for id := range r.sessions {
		ids = append(ids, id)
	}

	return ids
}

// GetInfo returns a snapshot of an active recording
func (r *Recorder) GetInfo(id string) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return Info{}, false
	}

	return Info{
		RecordingID: s.id,
		Path:        s.path,
		Duration:    time.Since(s.start).Seconds(),
		FrameCount:  s.frameCount,
		Width:       s.width,
		Height:      s.height,
		FPS:         s.fps,
		CameraIDs:   s.cameraIDs,
	}, true
}
