// Package pose provides temporal smoothing of head orientation angles and
// confidence-weighted attention classification for tracked identities.
package pose

import (
	"sync"

	"gonum.org/v1/gonum/floats"
)

// DefaultHistorySize is the number of recent pose samples kept per
// identity for smoothing
const DefaultHistorySize = 12

// Sample is a single yaw/pitch observation in degrees
type Sample struct {
	Yaw   float64
	Pitch float64
}

// Smoother applies a linearly weighted moving average to head pose angles
// on a bounded per-identity history. More recent samples carry more weight
type Smoother struct {
	size int

	mu      sync.Mutex
	history map[int][]Sample
}

// NewSmoother returns a new Smoother keeping up to size samples per
// identity. Passing 0 selects DefaultHistorySize
func NewSmoother(size int) *Smoother {

	if size <= 0 {
		size = DefaultHistorySize
	}

	return &Smoother{
		size:    size,
		history: make(map[int][]Sample),
	}
}

// Smooth appends the given angles to the identity's history, evicting the
// oldest sample when full, and returns the weighted average where the i-th
// oldest retained sample has weight i. A single sample is returned
// unchanged
func (s *Smoother) Smooth(id int, yaw, pitch float64) (float64, float64) {

	s.mu.Lock()
	defer s.mu.Unlock()

	hist := append(s.history[id], Sample{Yaw: yaw, Pitch: pitch})

	if len(hist) > s.size {
		hist = hist[1:]
	}

	s.history[id] = hist

	if len(hist) == 1 {
		return yaw, pitch
	}

	n := len(hist)
	weights := make([]float64, n)
	yaws := make([]float64, n)
	pitches := make([]float64, n)

	for i, sample := range hist {
		weights[i] = float64(i + 1)
		yaws[i] = sample.Yaw
		pitches[i] = sample.Pitch
	}

	total := floats.Sum(weights)

	return floats.Dot(yaws, weights) / total, floats.Dot(pitches, weights) / total
}

// LastKnown returns the most recent raw sample recorded for an identity.
// It reports false when no history exists, which callers use to fall back
// gracefully when landmark extraction fails for a frame
func (s *Smoother) LastKnown(id int) (Sample, bool) {

	s.mu.Lock()
	defer s.mu.Unlock()

	hist := s.history[id]

	if len(hist) == 0 {
		return Sample{}, false
	}

	return hist[len(hist)-1], true
}

// Clear drops the history for a single identity
func (s *Smoother) Clear(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, id)
}

// ClearAll drops the history for every identity
func (s *Smoother) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = make(map[int][]Sample)
}
