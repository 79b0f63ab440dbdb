// Package camera provides the concurrency wrappers around the shared
// attention pipeline: one isolated worker actor per camera with
// latest-wins frame handoff, a manager owning many actors, and a bounded
// fan-out executor for batch passes over many cameras at once.
package camera

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"gazetrack/pipeline"
)

const (
	// idleDelay is how long the actor loop sleeps when no frame is
	// pending
	idleDelay = 10 * time.Millisecond
	// errorDelay is the backoff after a processing failure
	errorDelay = 100 * time.Millisecond
	// stopTimeout bounds how long Stop waits for the loop to exit
	stopTimeout = 2 * time.Second
)

// Result is a processed frame together with its attention statistics
type Result struct {
	Frame gocv.Mat
	Stats pipeline.Stats
}

// frameJob is one staged frame awaiting processing
type frameJob struct {
	frame     gocv.Mat
	width     int
	height    int
	submitted time.Time
}

// Info is a diagnostic snapshot of an actor
type Info struct {
	CameraID   int  `json:"camera_id"`
	Running    bool `json:"running"`
	HasPending bool `json:"has_pending"`
	HasResult  bool `json:"has_result"`
}

// Actor is an independent worker owning the processing of a single
// camera. It holds a single-slot pending frame queue where a new submit
// overwrites any unconsumed frame, and a single-slot cache of the latest
// result. Submit and Latest never block
type Actor struct {
	id   int
	proc pipeline.Processor
	log  *logrus.Logger

	pendingMu sync.Mutex
	pending   *frameJob

	resultMu sync.Mutex
	result   *Result

	lifecycleMu sync.Mutex
	running     bool
	quit        chan struct{}
	done        chan struct{}
}

// NewActor creates a stopped actor for the given camera driving the given
// processor. A nil log selects the logrus standard logger
func NewActor(cameraID int, proc pipeline.Processor, log *logrus.Logger) *Actor {

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Actor{
		id:   cameraID,
		proc: proc,
		log:  log,
	}
}

// ID returns the camera id this actor serves
func (a *Actor) ID() int {
	return a.id
}

// Start launches the processing loop. Calling Start on a running actor is
// a no-op. An actor may be restarted after Stop
func (a *Actor) Start() {

	a.lifecycleMu.Lock()
	defer a.lifecycleMu.Unlock()

	if a.running {
		return
	}

	a.running = true
	a.quit = make(chan struct{})
	a.done = make(chan struct{})

	go a.loop(a.quit, a.done)

	a.log.WithField("camera", a.id).Info("camera actor started")
}

// Stop signals the loop to exit, waits for it with a bounded timeout and
// clears both slots. Stop is idempotent and safe to call from any
// goroutine
func (a *Actor) Stop() {

	a.lifecycleMu.Lock()

	if !a.running {
		a.lifecycleMu.Unlock()
		return
	}

	a.running = false
	quit, done := a.quit, a.done
	close(quit)

	a.lifecycleMu.Unlock()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		a.log.WithField("camera", a.id).Warn("camera actor did not exit before timeout")
	}

	a.clearSlots()

	a.log.WithField("camera", a.id).Info("camera actor stopped")
}

// Running reports whether the actor loop is active
func (a *Actor) Running() bool {
	a.lifecycleMu.Lock()
	defer a.lifecycleMu.Unlock()
	return a.running
}

// Submit stages a frame for processing at the given target dimensions,
// overwriting any unconsumed frame. The frame is copied so the caller may
// reuse or close its Mat immediately. Submit never blocks
func (a *Actor) Submit(frame gocv.Mat, width, height int) {

	staged := &frameJob{
		frame:     frame.Clone(),
		width:     width,
		height:    height,
		submitted: time.Now(),
	}

	a.pendingMu.Lock()

	if a.pending != nil {
		a.pending.frame.Close()
	}

	a.pending = staged
	a.pendingMu.Unlock()
}

// Latest returns a copy of the most recent result. It reports false when
// no frame has completed processing yet. Latest never blocks on
// processing
func (a *Actor) Latest() (Result, bool) {

	a.resultMu.Lock()
	defer a.resultMu.Unlock()

	if a.result == nil {
		return Result{}, false
	}

	return Result{
		Frame: a.result.Frame.Clone(),
		Stats: a.result.Stats,
	}, true
}

// LatestStats returns the statistics of the most recent result without
// copying the frame
func (a *Actor) LatestStats() (pipeline.Stats, bool) {

	a.resultMu.Lock()
	defer a.resultMu.Unlock()

	if a.result == nil {
		return pipeline.Stats{}, false
	}

	return a.result.Stats, true
}

// Reset clears the per-identity state of the underlying processor
func (a *Actor) Reset() {
	a.proc.Reset()
}

// Info returns a diagnostic snapshot
func (a *Actor) Info() Info {

	a.pendingMu.Lock()
	hasPending := a.pending != nil
	a.pendingMu.Unlock()

	a.resultMu.Lock()
	hasResult := a.result != nil
	a.resultMu.Unlock()

	return Info{
		CameraID:   a.id,
		Running:    a.Running(),
		HasPending: hasPending,
		HasResult:  hasResult,
	}
}

// loop consumes the pending slot until quit is closed. A frame dequeued
// before the signal completes processing; no frame starts after it
func (a *Actor) loop(quit, done chan struct{}) {

	defer close(done)

	for {
		select {
		case <-quit:
			return
		default:
		}

		a.pendingMu.Lock()
		job := a.pending
		a.pending = nil
		a.pendingMu.Unlock()

		if job == nil {
			time.Sleep(idleDelay)
			continue
		}

		annotated, stats, err := a.proc.Process(job.frame, job.width, job.height)
		job.frame.Close()

		if err != nil {
			// leave the previous result untouched and back off
			a.log.WithError(err).WithField("camera", a.id).
				Error("camera actor processing failed")
			time.Sleep(errorDelay)
			continue
		}

		a.resultMu.Lock()

		if a.result != nil {
			a.result.Frame.Close()
		}

		a.result = &Result{Frame: annotated, Stats: stats}
		a.resultMu.Unlock()
	}
}

// clearSlots drops the pending frame and latest result
func (a *Actor) clearSlots() {

	a.pendingMu.Lock()

	if a.pending != nil {
		a.pending.frame.Close()
		a.pending = nil
	}

	a.pendingMu.Unlock()

	a.resultMu.Lock()

	if a.result != nil {
		a.result.Frame.Close()
		a.result = nil
	}

	a.resultMu.Unlock()
}
