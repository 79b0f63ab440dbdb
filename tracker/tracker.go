package tracker

import (
	"image"
	"math"
	"sort"
	"sync"
)

const (
	// DefaultIoUThreshold is the minimum IoU required before a detection
	// may be matched to an existing track
	DefaultIoUThreshold = 0.3
	// DefaultMaxDisappeared is the number of consecutive updates a track
	// may go unmatched before it is retired
	DefaultMaxDisappeared = 15
	// maxCenterDistance is the pixel distance at which the centroid
	// component of the match score bottoms out
	maxCenterDistance = 200.0
)

// Detection represents a single detected object passed into the tracker
// for identity assignment
type Detection struct {
	// Box is the bounding box of the detection in [x1,y1,x2,y2] form
	Box image.Rectangle
	// Score is the detector confidence of the detection
	Score float64
	// ID is the track identity assigned by Update. It is 0 until the
	// detection has been matched or given a fresh track
	ID int
}

// Track is an object followed across frames under a stable identity
type Track struct {
	// ID is the unique identity of the track. Identities increase
	// monotonically and are never reused
	ID int
	// Box is the most recent bounding box of the track
	Box image.Rectangle
	// Disappeared counts consecutive updates the track went unmatched
	Disappeared int
	// LastSeen is the update count at which the track last matched
	LastSeen int
}

// Tracker maintains stable numeric identities for detected bounding boxes
// frame to frame using greedy IoU association
type Tracker struct {
	iouThreshold   float64
	maxDisappeared int

	mu         sync.Mutex
	tracks     map[int]*Track
	nextID     int
	frameCount int
}

// NewTracker initializes and returns a new Tracker. Passing 0 for
// iouThreshold or maxDisappeared selects the package defaults
func NewTracker(iouThreshold float64, maxDisappeared int) *Tracker {

	if iouThreshold <= 0 {
		iouThreshold = DefaultIoUThreshold
	}

	if maxDisappeared <= 0 {
		maxDisappeared = DefaultMaxDisappeared
	}

	return &Tracker{
		iouThreshold:   iouThreshold,
		maxDisappeared: maxDisappeared,
		tracks:         make(map[int]*Track),
		nextID:         1,
	}
}

// candidate is a scored detection/track pairing considered for matching
type candidate struct {
	detIdx  int
	trackID int
	score   float64
}

// Update matches the given detections against existing tracks and assigns
// identities. Detections are annotated in place and returned in their
// original order. The second return value lists the ids of tracks retired
// by this update so callers can drop any per-identity state they hold.
//
// Matching is greedy: every pairing whose IoU exceeds the threshold is
// scored by 0.8*IoU + 0.2*(1 - min(centerDistance/200, 1)), candidates are
// taken best first and a detection or track is claimed at most once. An
// empty detections slice still ages and retires existing tracks.
func (t *Tracker) Update(detections []Detection) ([]Detection, []int) {

	t.mu.Lock()
	defer t.mu.Unlock()

	t.frameCount++

	if len(detections) == 0 {
		for _, track := range t.tracks {
			track.Disappeared++
		}
		return detections, t.retire()
	}

	// no existing tracks, every detection starts a fresh track
	if len(t.tracks) == 0 {
		for i := range detections {
			t.spawn(&detections[i])
		}
		return detections, nil
	}

	trackIDs := t.sortedIDs()

	// score all pairings above the IoU threshold, enumerating detections
	// in input order and tracks in ascending id order so matching is
	// reproducible across runs
	var candidates []candidate

	for i := range detections {
		for _, id := range trackIDs {

			track := t.tracks[id]
			iou := IoU(detections[i].Box, track.Box)

			if iou <= t.iouThreshold {
				continue
			}

			dist := math.Min(CenterDistance(detections[i].Box, track.Box)/maxCenterDistance, 1.0)

			candidates = append(candidates, candidate{
				detIdx:  i,
				trackID: id,
				score:   iou*0.8 + (1.0-dist)*0.2,
			})
		}
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		if candidates[a].detIdx != candidates[b].detIdx {
			return candidates[a].detIdx < candidates[b].detIdx
		}
		return candidates[a].trackID < candidates[b].trackID
	})

	matchedTracks := make(map[int]bool)
	matchedDets := make(map[int]bool)

	for _, c := range candidates {

		if matchedDets[c.detIdx] || matchedTracks[c.trackID] {
			continue
		}

		track := t.tracks[c.trackID]
		detections[c.detIdx].ID = c.trackID
		track.Box = detections[c.detIdx].Box
		track.Disappeared = 0
		track.LastSeen = t.frameCount

		matchedTracks[c.trackID] = true
		matchedDets[c.detIdx] = true
	}

	// unmatched detections start fresh tracks
	for i := range detections {
		if !matchedDets[i] {
			t.spawn(&detections[i])
		}
	}

	// unmatched tracks age
	for id, track := range t.tracks {
		if !matchedTracks[id] && track.LastSeen != t.frameCount {
			track.Disappeared++
		}
	}

	return detections, t.retire()
}

// spawn creates a new track for an unmatched detection
func (t *Tracker) spawn(det *Detection) {

	det.ID = t.nextID

	t.tracks[t.nextID] = &Track{
		ID:       t.nextID,
		Box:      det.Box,
		LastSeen: t.frameCount,
	}

	t.nextID++
}

// retire removes tracks that have gone unmatched for too long and returns
// their ids in ascending order
func (t *Tracker) retire() []int {

	var removed []int

	for id, track := range t.tracks {
		if track.Disappeared > t.maxDisappeared {
			removed = append(removed, id)
		}
	}

	sort.Ints(removed)

	for _, id := range removed {
		delete(t.tracks, id)
	}

	return removed
}

// sortedIDs returns the current track ids in ascending order
func (t *Tracker) sortedIDs() []int {

	ids := make([]int, 0, len(t.tracks))

	for id := range t.tracks {
		ids = append(ids, id)
	}

	sort.Ints(ids)
	return ids
}

// ActiveCount returns the number of tracks matched in the most recent
// update
func (t *Tracker) ActiveCount() int {

	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, track := range t.tracks {
		if track.Disappeared == 0 {
			count++
		}
	}

	return count
}

// Count returns the total number of tracks currently held, including
// those temporarily unmatched
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

// Reset clears all tracks and restarts identity assignment from 1
func (t *Tracker) Reset() {

	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracks = make(map[int]*Track)
	t.nextID = 1
	t.frameCount = 0
}
