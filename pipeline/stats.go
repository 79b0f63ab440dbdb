package pipeline

import "gazetrack/pose"

// Stats holds the aggregate attention counts for one processed frame
type Stats struct {
	Looking    int `json:"looking"`
	NotLooking int `json:"not_looking"`
	NoFace     int `json:"no_face"`
	Total      int `json:"total"`
}

// Add returns the element-wise sum of two stats
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Looking:    s.Looking + o.Looking,
		NotLooking: s.NotLooking + o.NotLooking,
		NoFace:     s.NoFace + o.NoFace,
		Total:      s.Total + o.Total,
	}
}

// Count tallies per-person results into frame statistics
func Count(results []Result) Stats {

	var stats Stats

	for _, r := range results {

		switch r.Status {
		case pose.StatusLooking:
			stats.Looking++
		case pose.StatusNotLooking:
			stats.NotLooking++
		case pose.StatusNoFace:
			stats.NoFace++
		}

		stats.Total++
	}

	return stats
}
