package tracker

import (
	"image"
	"testing"
)

func TestFreshDetectionsGetSequentialIDs(t *testing.T) {

	tr := NewTracker(0, 0)

	dets := []Detection{
		{Box: image.Rect(0, 0, 100, 200), Score: 0.9},
		{Box: image.Rect(200, 0, 300, 200), Score: 0.8},
		{Box: image.Rect(400, 0, 500, 200), Score: 0.7},
	}

	out, removed := tr.Update(dets)

	if len(removed) != 0 {
		t.Errorf("unexpected removed tracks: %v", removed)
	}

	for i, det := range out {
		if det.ID != i+1 {
			t.Errorf("detection %d: got id %d, want %d", i, det.ID, i+1)
		}
	}

	if tr.ActiveCount() != 3 {
		t.Errorf("ActiveCount() = %d, want 3", tr.ActiveCount())
	}
}

func TestShiftedBoxKeepsID(t *testing.T) {

	tr := NewTracker(0, 0)

	out, _ := tr.Update([]Detection{{Box: image.Rect(100, 100, 300, 400)}})
	id := out[0].ID

	// shift the box by 10px each update, IoU with the previous box stays
	// well above the threshold
	for i := 1; i <= 5; i++ {
		shift := 10 * i
		out, _ = tr.Update([]Detection{
			{Box: image.Rect(100+shift, 100, 300+shift, 400)},
		})

		if out[0].ID != id {
			t.Fatalf("update %d: id changed from %d to %d", i, id, out[0].ID)
		}
	}
}

func TestTrackRetirementBoundary(t *testing.T) {

	const maxDisappeared = 5

	tr := NewTracker(0.3, maxDisappeared)
	tr.Update([]Detection{{Box: image.Rect(0, 0, 100, 100)}})

	// absent for exactly maxDisappeared updates the track is retained
	for i := 0; i < maxDisappeared; i++ {
		if _, removed := tr.Update(nil); len(removed) != 0 {
			t.Fatalf("track removed after %d absent updates", i+1)
		}
	}

	if tr.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", tr.Count())
	}

	// one more absent update retires it
	_, removed := tr.Update(nil)

	if len(removed) != 1 || removed[0] != 1 {
		t.Errorf("removed = %v, want [1]", removed)
	}

	if tr.Count() != 0 {
		t.Errorf("Count() = %d, want 0", tr.Count())
	}
}

func TestIdentitiesNeverReused(t *testing.T) {

	tr := NewTracker(0.3, 1)

	out, _ := tr.Update([]Detection{{Box: image.Rect(0, 0, 100, 100)}})
	first := out[0].ID

	// age the track out
	tr.Update(nil)
	tr.Update(nil)

	// a new detection in the same place gets a fresh identity
	out, _ = tr.Update([]Detection{{Box: image.Rect(0, 0, 100, 100)}})

	if out[0].ID <= first {
		t.Errorf("identity %d reused after retirement of %d", out[0].ID, first)
	}
}

func TestMatchedTrackResetsDisappeared(t *testing.T) {

	tr := NewTracker(0, 0)
	tr.Update([]Detection{{Box: image.Rect(0, 0, 100, 100)}})

	// miss a few updates, then reappear
	tr.Update(nil)
	tr.Update(nil)

	out, _ := tr.Update([]Detection{{Box: image.Rect(5, 5, 105, 105)}})

	if out[0].ID != 1 {
		t.Fatalf("got id %d, want 1", out[0].ID)
	}

	if tr.ActiveCount() != 1 {
		t.Errorf("ActiveCount() = %d, want 1", tr.ActiveCount())
	}
}

func TestGreedyMatchPrefersBestScore(t *testing.T) {

	tr := NewTracker(0, 0)

	tr.Update([]Detection{
		{Box: image.Rect(0, 0, 100, 100)},
		{Box: image.Rect(80, 0, 180, 100)},
	})

	// first detection overlaps both tracks but sits exactly on track 2,
	// second detection only overlaps track 1
	out, _ := tr.Update([]Detection{
		{Box: image.Rect(80, 0, 180, 100)},
		{Box: image.Rect(10, 0, 110, 100)},
	})

	if out[0].ID != 2 {
		t.Errorf("detection 0: got id %d, want 2", out[0].ID)
	}
	if out[1].ID != 1 {
		t.Errorf("detection 1: got id %d, want 1", out[1].ID)
	}
}

func TestUpdateIsDeterministic(t *testing.T) {

	// equal-score ambiguity: two identical detections over two identical
	// tracks must resolve the same way on every run
	run := func() [2]int {
		tr := NewTracker(0, 0)
		tr.Update([]Detection{
			{Box: image.Rect(0, 0, 100, 100)},
			{Box: image.Rect(0, 0, 100, 100)},
		})
		out, _ := tr.Update([]Detection{
			{Box: image.Rect(0, 0, 100, 100)},
			{Box: image.Rect(0, 0, 100, 100)},
		})
		return [2]int{out[0].ID, out[1].ID}
	}

	want := run()

	for i := 0; i < 20; i++ {
		if got := run(); got != want {
			t.Fatalf("run %d: got %v, want %v", i, got, want)
		}
	}
}

func TestReset(t *testing.T) {

	tr := NewTracker(0, 0)
	tr.Update([]Detection{{Box: image.Rect(0, 0, 100, 100)}})
	tr.Reset()

	if tr.Count() != 0 {
		t.Errorf("Count() after Reset = %d, want 0", tr.Count())
	}

	out, _ := tr.Update([]Detection{{Box: image.Rect(0, 0, 100, 100)}})

	if out[0].ID != 1 {
		t.Errorf("id after Reset = %d, want 1", out[0].ID)
	}
}
