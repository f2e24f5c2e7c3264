// Package trace models frequency-domain trace captures read back from
// a spectrum analyzer.
package trace

import "time"

// Point is a single trace bin. Power is nil when the analyzer flagged
// the bin as invalid.
type Point struct {
	Frequency float64  `json:"frequency"`       // Bin center frequency in Hz
	Power     *float64 `json:"power,omitempty"` // Measured power in dBm
}

// Span is one complete trace sweep at a point in time, an ordered
// sequence of equally spaced bins across the analyzer's displayed
// frequency range.
type Span struct {
	ID             int64     `json:"ID"`
	Timestamp      time.Time `json:"timestamp"`
	FrequencyStart float64   `json:"frequencyStart"` // Hz
	FrequencyEnd   float64   `json:"frequencyEnd"`   // Hz
	Points         []Point   `json:"points,omitempty"`
}

// BinWidth returns the frequency spacing between adjacent points, or 0
// for a degenerate span.
func (s *Span) BinWidth() float64 {
	if len(s.Points) < 2 {
		return 0
	}
	return (s.FrequencyEnd - s.FrequencyStart) / float64(len(s.Points)-1)
}
