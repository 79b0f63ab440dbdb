package camera

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"gazetrack/pipeline"
)

// DefaultMaxCameras bounds how many camera actors a manager will create
const DefaultMaxCameras = 16

// ErrTooManyCameras is returned by Create when the camera limit is
// reached
var ErrTooManyCameras = errors.New("camera: maximum concurrent cameras reached")

// ProcessorFactory builds a dedicated processor for a camera so each
// actor owns isolated tracker and smoothing state
type ProcessorFactory func(cameraID int) pipeline.Processor

// Manager owns one actor per camera and aggregates their independently
// produced results. Aggregated statistics are an eventually consistent
// snapshot, not a synchronized barrier across cameras
type Manager struct {
	factory ProcessorFactory
	limit   int
	log     *logrus.Logger

	mu     sync.Mutex
	actors map[int]*Actor
}

// NewManager creates a Manager building per-camera processors from the
// given factory. maxCameras of 0 selects DefaultMaxCameras; a nil log
// selects the logrus standard logger
func NewManager(factory ProcessorFactory, maxCameras int, log *logrus.Logger) *Manager {

	if maxCameras <= 0 {
		maxCameras = DefaultMaxCameras
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Manager{
		factory: factory,
		limit:   maxCameras,
		log:     log,
		actors:  make(map[int]*Actor),
	}
}

// Create returns the actor for a camera, building it on first use. It
// fails once the concurrent camera limit is reached
func (m *Manager) Create(cameraID int) (*Actor, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	if actor, exists := m.actors[cameraID]; exists {
		return actor, nil
	}

	if len(m.actors) >= m.limit {
		return nil, fmt.Errorf("%w (limit %d)", ErrTooManyCameras, m.limit)
	}

	actor := NewActor(cameraID, m.factory(cameraID), m.log)
	m.actors[cameraID] = actor

	m.log.WithField("camera", cameraID).Info("created camera actor")

	return actor, nil
}

// get looks up an actor without creating it
func (m *Manager) get(cameraID int) (*Actor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	actor, exists := m.actors[cameraID]
	return actor, exists
}

// Start launches processing for a camera. Unknown ids are a no-op
func (m *Manager) Start(cameraID int) {
	if actor, exists := m.get(cameraID); exists {
		actor.Start()
	}
}

// Stop halts processing for a camera. Unknown ids are a no-op
func (m *Manager) Stop(cameraID int) {
	if actor, exists := m.get(cameraID); exists {
		actor.Stop()
	}
}

// Submit stages a frame on a camera's actor. It reports false for
// unknown ids and never blocks
func (m *Manager) Submit(cameraID int, frame gocv.Mat, width, height int) bool {

	actor, exists := m.get(cameraID)

	if !exists {
		return false
	}

	actor.Submit(frame, width, height)
	return true
}

// Latest returns a copy of a camera's most recent result
func (m *Manager) Latest(cameraID int) (Result, bool) {

	actor, exists := m.get(cameraID)

	if !exists {
		return Result{}, false
	}

	return actor.Latest()
}

// Remove stops a camera's actor and forgets it
func (m *Manager) Remove(cameraID int) {

	m.mu.Lock()
	actor, exists := m.actors[cameraID]
	delete(m.actors, cameraID)
	m.mu.Unlock()

	if exists {
		actor.Stop()
	}
}

// Active returns the ids of running cameras in ascending order
func (m *Manager) Active() []int {

	var ids []int

	for _, actor := range m.snapshot() {
		if actor.Running() {
			ids = append(ids, actor.ID())
		}
	}

	sort.Ints(ids)
	return ids
}

// Aggregated sums the latest statistics of every running camera. Each
// camera contributes its most recent independently produced result
func (m *Manager) Aggregated() pipeline.Stats {

	var total pipeline.Stats

	for _, actor := range m.snapshot() {

		if !actor.Running() {
			continue
		}

		if stats, ok := actor.LatestStats(); ok {
			total = total.Add(stats)
		}
	}

	return total
}

// Infos returns diagnostic snapshots for all cameras sorted by id
func (m *Manager) Infos() []Info {

	actors := m.snapshot()
	infos := make([]Info, 0, len(actors))

	for _, actor := range actors {
		infos = append(infos, actor.Info())
	}

	sort.Slice(infos, func(a, b int) bool {
		return infos[a].CameraID < infos[b].CameraID
	})

	return infos
}

// StopAll halts every actor
func (m *Manager) StopAll() {
	for _, actor := range m.snapshot() {
		actor.Stop()
	}
}

// ResetAll clears per-identity state on every camera's processor
func (m *Manager) ResetAll() {
	for _, actor := range m.snapshot() {
		actor.Reset()
	}
}

// snapshot copies the actor set so callers can operate without holding
// the map lock
func (m *Manager) snapshot() []*Actor {

	m.mu.Lock()
	defer m.mu.Unlock()

	actors := make([]*Actor, 0, len(m.actors))

	for _, actor := range m.actors {
		actors = append(actors, actor)
	}

	return actors
}
