package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gazetrack/media"
	"gazetrack/pipeline"
)

const (
	// DefaultMaxActive caps the number of jobs that may be pending or
	// running at once
	DefaultMaxActive = 4
	// DefaultRetention is how long terminal jobs are kept before
	// Cleanup may remove them
	DefaultRetention = 24 * time.Hour
)

// ErrTooManyJobs is returned by Create when the active job limit is reached
var ErrTooManyJobs = errors.New("too many active jobs")

// Manager owns the job table and runs each job on its own goroutine.
// Jobs are isolated, a failed job never affects the others
type Manager struct {
	proc      pipeline.Processor
	outputDir string
	maxActive int
	log       *logrus.Logger

	// media IO indirection, replaced in tests
	open    media.Opener
	newSink media.SinkFactory

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewManager creates a job manager writing results under outputDir.
// The directory is created if it does not exist
func NewManager(proc pipeline.Processor, outputDir string,
	log *logrus.Logger) (*Manager, error) {

	if log == nil {
		log = logrus.New()
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &Manager{
		proc:      proc,
		outputDir: outputDir,
		maxActive: DefaultMaxActive,
		log:       log,
		open:      media.OpenVideo,
		newSink:   media.NewVideoSink,
		jobs:      make(map[string]*Job),
	}, nil
}

// SetMaxActive overrides the active job limit. Values below one are ignored
func (m *Manager) SetMaxActive(n int) {
	if n < 1 {
		return
	}

	m.mu.Lock()
	m.maxActive = n
	m.mu.Unlock()
}

// Create registers a new job for the given input file and starts
// processing it in the background, returning the job id
func (m *Manager) Create(inputPath string) (string, error) {

	m.mu.Lock()

	active := 0

	for _, j := range m.jobs {
		if !j.State.Terminal() {
			active++
		}
	}

	if active >= m.maxActive {
		m.mu.Unlock()
		return "", ErrTooManyJobs
	}

	id := uuid.NewString()

	m.jobs[id] = &Job{
		ID:         id,
		InputPath:  inputPath,
		OutputPath: filepath.Join(m.outputDir, id+"_processed.mp4"),
		State:      StatePending,
		CreatedAt:  time.Now(),
	}

	m.mu.Unlock()

	go m.run(id)

	return id, nil
}

// Status returns a snapshot of the job, or false for unknown ids
func (m *Manager) Status(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}

	return *j, true
}

// ResultPath returns the output file of a completed job. It reports
// false for unknown ids, unfinished jobs, and missing output files
func (m *Manager) ResultPath(id string) (string, bool) {

	j, ok := m.Status(id)
	if !ok || j.State != StateDone {
		return "", false
	}

	if _, err := os.Stat(j.OutputPath); err != nil {
		return "", false
	}

	return j.OutputPath, true
}

// Cleanup removes terminal jobs older than maxAge along with their
// output files, returning the number of jobs removed
func (m *Manager) Cleanup(maxAge time.Duration) int {

	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()

	var stale []*Job

	for id, j := range m.jobs {
		if j.State.Terminal() && j.CreatedAt.Before(cutoff) {
			stale = append(stale, j)
			delete(m.jobs, id)
		}
	}

	m.mu.Unlock()

	for _, j := range stale {
		if err := os.Remove(j.OutputPath); err != nil && !os.IsNotExist(err) {
			m.log.WithError(err).WithField("job", j.ID).
				Warn("failed to remove job output")
		}
	}

	return len(stale)
}

// run executes one job to completion. It is the only writer of the
// job's state after creation
func (m *Manager) run(id string) {

	m.mu.Lock()

	j, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return
	}

	j.State = StateRunning
	j.StartedAt = time.Now()
	input, output := j.InputPath, j.OutputPath

	m.mu.Unlock()

	if err := m.process(id, input, output); err != nil {
		m.log.WithError(err).WithField("job", id).Error("job failed")
		m.finish(id, StateError, err.Error())
		return
	}

	m.setProgress(id, 100)
	m.finish(id, StateDone, "")
	m.log.WithField("job", id).Info("job completed")
}

// process streams the input through the pipeline into the output sink.
// Progress is updated after every frame, the last value sticks on failure
func (m *Manager) process(id, input, output string) error {

	src, err := m.open(input)
	if err != nil {
		return fmt.Errorf("open input %s: %w", input, err)
	}
	defer src.Close()

	fps := src.FPS()
	width, height := src.FrameSize()
	total := src.TotalFrames()

	sink, err := m.newSink(output, fps, width, height)
	if err != nil {
		return fmt.Errorf("open output %s: %w", output, err)
	}
	defer sink.Close()

	// identities must not bleed in from a previous run
	m.proc.Reset()

	m.log.WithFields(logrus.Fields{
		"job":    id,
		"frames": total,
		"fps":    fps,
	}).Info("processing video")

	logEvery := int(fps) * 10
	frames := 0

	for {
		frame, ok := src.Read()
		if !ok {
			break
		}

		annotated, _, err := m.proc.Process(frame, width, height)
		frame.Close()

		if err != nil {
			return fmt.Errorf("process frame %d: %w", frames, err)
		}

		err = sink.Write(annotated)
		annotated.Close()

		if err != nil {
			return fmt.Errorf("write frame %d: %w", frames, err)
		}

		frames++

		if total > 0 {
			m.setProgress(id, frames*100/total)
		}

		if logEvery > 0 && frames%logEvery == 0 {
			m.log.WithFields(logrus.Fields{
				"job":   id,
				"frame": frames,
				"total": total,
			}).Info("job progress")
		}
	}

	return nil
}

func (m *Manager) setProgress(id string, progress int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return
	}

	// progress never moves backwards while running
	if progress > j.Progress {
		j.Progress = progress
	}
}

func (m *Manager) finish(id string, state State, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return
	}

	j.State = state
	j.Err = errMsg
	j.CompletedAt = time.Now()
}
