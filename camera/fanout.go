package camera

import (
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"gazetrack/pipeline"
)

// DefaultWorkers is the default size of the fan-out worker pool
const DefaultWorkers = 4

// FanOut dispatches staged camera frames to a bounded worker pool in one
// batch pass, as an alternative to running a dedicated actor per camera.
// Submit stages at most one frame per camera, latest wins; Drain takes
// the staged set and blocks until every frame in it has been processed
type FanOut struct {
	proc    pipeline.Processor
	workers int
	log     *logrus.Logger

	mu     sync.Mutex
	staged map[int]*frameJob
}

// NewFanOut creates a FanOut over a shared processor. workers of 0
// selects DefaultWorkers; a nil log selects the logrus standard logger
func NewFanOut(proc pipeline.Processor, workers int, log *logrus.Logger) *FanOut {

	if workers <= 0 {
		workers = DefaultWorkers
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &FanOut{
		proc:    proc,
		workers: workers,
		log:     log,
		staged:  make(map[int]*frameJob),
	}
}

// Submit stages one frame for a camera at the given target dimensions,
// overwriting any frame staged for that camera since the last Drain. The
// frame is copied; Submit never blocks
func (f *FanOut) Submit(cameraID int, frame gocv.Mat, width, height int) {

	job := &frameJob{
		frame:  frame.Clone(),
		width:  width,
		height: height,
	}

	f.mu.Lock()

	if prev, exists := f.staged[cameraID]; exists {
		prev.frame.Close()
	}

	f.staged[cameraID] = job
	f.mu.Unlock()
}

// Drain atomically takes the staged set, processes each camera's frame on
// the worker pool and blocks until all complete. Every submitted camera
// id has an entry in the returned map: a camera whose processing fails
// yields its original frame with zeroed statistics and does not fail the
// batch. Returned frames are owned by the caller
func (f *FanOut) Drain() map[int]Result {

	f.mu.Lock()
	taken := f.staged
	f.staged = make(map[int]*frameJob)
	f.mu.Unlock()

	results := make(map[int]Result, len(taken))

	if len(taken) == 0 {
		return results
	}

	var (
		wg       sync.WaitGroup
		resultMu sync.Mutex
	)

	sem := make(chan struct{}, f.workers)

	for cameraID, job := range taken {

		wg.Add(1)

		go func(cameraID int, job *frameJob) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			result := f.processOne(cameraID, job)

			resultMu.Lock()
			results[cameraID] = result
			resultMu.Unlock()
		}(cameraID, job)
	}

	wg.Wait()

	return results
}

// processOne runs a single staged frame, degrading a failure to the
// original frame with empty statistics
func (f *FanOut) processOne(cameraID int, job *frameJob) Result {

	annotated, stats, err := f.proc.Process(job.frame, job.width, job.height)

	if err != nil {
		f.log.WithError(err).WithField("camera", cameraID).
			Error("fan-out processing failed")
		return Result{Frame: job.frame, Stats: pipeline.Stats{}}
	}

	job.frame.Close()

	return Result{Frame: annotated, Stats: stats}
}

// Clear drops any frame staged for a camera
func (f *FanOut) Clear(cameraID int) {

	f.mu.Lock()
	defer f.mu.Unlock()

	if job, exists := f.staged[cameraID]; exists {
		job.frame.Close()
		delete(f.staged, cameraID)
	}
}

// ClearAll drops every staged frame
func (f *FanOut) ClearAll() {

	f.mu.Lock()
	defer f.mu.Unlock()

	for id, job := range f.staged {
		job.frame.Close()
		delete(f.staged, id)
	}
}

// Staged returns the number of cameras with a frame awaiting Drain
func (f *FanOut) Staged() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.staged)
}
