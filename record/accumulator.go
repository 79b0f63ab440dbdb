package record

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"gazetrack/pipeline"
)

// frameDuration is the assumed wall time per recorded frame when
// converting per frame percentages into cumulative seconds
const frameDuration = 1.0 / 20.0

// Point is one per frame attention measurement
type Point struct {
	Timestamp     float64 `json:"timestamp"`
	RelativeTime  float64 `json:"relative_time"`
	TotalPeople   int     `json:"total_people"`
	LookingCount  int     `json:"looking_count"`
	AwayCount     int     `json:"away_count"`
	NoFaceCount   int     `json:"no_face_count"`
	LookingPct    float64 `json:"looking_percentage"`
	AwayPct       float64 `json:"away_percentage"`
	NoFacePct     float64 `json:"no_face_percentage"`
}

// SummaryStats aggregates a full recording's attention measurements
type SummaryStats struct {
	AvgLookingPct     float64 `json:"average_looking_percentage"`
	AvgAwayPct        float64 `json:"average_away_percentage"`
	AvgNoFacePct      float64 `json:"average_no_face_percentage"`
	AvgTotalPeople    float64 `json:"average_total_people"`
	MaxLookingPct     float64 `json:"max_looking_percentage"`
	MinLookingPct     float64 `json:"min_looking_percentage"`
	HighFrames        int     `json:"high_attention_frames"`
	MediumFrames      int     `json:"medium_attention_frames"`
	LowFrames         int     `json:"low_attention_frames"`
	HighFramesPct     float64 `json:"high_attention_percentage"`
	MediumFramesPct   float64 `json:"medium_attention_percentage"`
	LowFramesPct      float64 `json:"low_attention_percentage"`
	LookingSeconds    float64 `json:"total_looking_time_seconds"`
	AwaySeconds       float64 `json:"total_away_time_seconds"`
	NoFaceSeconds     float64 `json:"total_no_face_time_seconds"`
}

// Accumulator collects per frame attention stats for one recording and
// exports them as a JSON report next to the recorded video
type Accumulator struct {
	recordingID string
	customName  string
	outputDir   string
	start       time.Time

	mu          sync.Mutex
	points      []Point
	lookingSecs float64
	awaySecs    float64
	noFaceSecs  float64
}

// NewAccumulator creates an accumulator for the given recording
func NewAccumulator(recordingID, outputDir, customName string) *Accumulator {
	return &Accumulator{
		recordingID: recordingID,
		customName:  customName,
		outputDir:   outputDir,
		start:       time.Now(),
	}
}

// Record appends one frame's stats to the series
func (a *Accumulator) Record(stats pipeline.Stats) {

	now := time.Now()

	var lookingPct, awayPct, noFacePct float64

	if stats.Total > 0 {
		lookingPct = float64(stats.Looking) / float64(stats.Total) * 100
		awayPct = float64(stats.NotLooking) / float64(stats.Total) * 100
		noFacePct = float64(stats.NoFace) / float64(stats.Total) * 100
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.points = append(a.points, Point{
		Timestamp:    float64(now.UnixNano()) / 1e9,
		RelativeTime: now.Sub(a.start).Seconds(),
		TotalPeople:  stats.Total,
		LookingCount: stats.Looking,
		AwayCount:    stats.NotLooking,
		NoFaceCount:  stats.NoFace,
		LookingPct:   lookingPct,
		AwayPct:      awayPct,
		NoFacePct:    noFacePct,
	})

	a.lookingSecs += lookingPct / 100 * frameDuration
	a.awaySecs += awayPct / 100 * frameDuration
	a.noFaceSecs += noFacePct / 100 * frameDuration
}

// Frames returns the number of recorded measurements
func (a *Accumulator) Frames() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.points)
}

// Summary computes aggregate statistics over everything recorded so far
func (a *Accumulator) Summary() SummaryStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summaryLocked()
}

func (a *Accumulator) summaryLocked() SummaryStats {

	n := len(a.points)
	if n == 0 {
		return SummaryStats{}
	}

	looking := make([]float64, n)
	away := make([]float64, n)
	noFace := make([]float64, n)
	people := make([]float64, n)

	for i, p := range a.points {
		looking[i] = p.LookingPct
		away[i] = p.AwayPct
		noFace[i] = p.NoFacePct
		people[i] = float64(p.TotalPeople)
	}

	var high, medium, low int

	for _, pct := range looking {
		switch {
		case pct >= 70:
			high++
		case pct >= 30:
			medium++
		default:
			low++
		}
	}

	return SummaryStats{
		AvgLookingPct:   round2(stat.Mean(looking, nil)),
		AvgAwayPct:      round2(stat.Mean(away, nil)),
		AvgNoFacePct:    round2(stat.Mean(noFace, nil)),
		AvgTotalPeople:  round1(stat.Mean(people, nil)),
		MaxLookingPct:   round2(floats.Max(looking)),
		MinLookingPct:   round2(floats.Min(looking)),
		HighFrames:      high,
		MediumFrames:    medium,
		LowFrames:       low,
		HighFramesPct:   round2(float64(high) / float64(n) * 100),
		MediumFramesPct: round2(float64(medium) / float64(n) * 100),
		LowFramesPct:    round2(float64(low) / float64(n) * 100),
		LookingSeconds:  round2(a.lookingSecs),
		AwaySeconds:     round2(a.awaySecs),
		NoFaceSeconds:   round2(a.noFaceSecs),
	}
}

type attentionReport struct {
	RecordingID string       `json:"recording_id"`
	CustomName  string       `json:"custom_name,omitempty"`
	StartTime   float64      `json:"start_time"`
	EndTime     float64      `json:"end_time"`
	Duration    float64      `json:"total_duration"`
	TotalFrames int          `json:"total_frames"`
	Summary     SummaryStats `json:"summary_statistics"`
	Points      []Point      `json:"tracking_data"`
}

// Export writes the collected data as JSON, returning the report path.
// Nothing is written when no measurements were recorded
func (a *Accumulator) Export() (string, error) {

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.points) == 0 {
		return "", nil
	}

	end := time.Now()

	report := attentionReport{
		RecordingID: a.recordingID,
		CustomName:  a.customName,
		StartTime:   float64(a.start.UnixNano()) / 1e9,
		EndTime:     float64(end.UnixNano()) / 1e9,
		Duration:    end.Sub(a.start).Seconds(),
		TotalFrames: len(a.points),
		Summary:     a.summaryLocked(),
		Points:      a.points,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(a.outputDir, a.recordingID+"_attention_data.json")

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}

	return path, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
