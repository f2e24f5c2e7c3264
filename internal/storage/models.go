package storage

import (
	"database/sql"
	"time"
)

// snapshotData mirrors a row of the snapshots table.
type snapshotData struct {
	ID              int64
	RunID           int64
	Timestamp       time.Time
	Frequency       float64
	Power           float64
	OutputEnabled   bool
	WLANEnabled     bool
	Standard        string
	Bandwidth       string
	MCS             string
	GuardInterval   string
	FrameDurationNs int64
	IdleTimeNs      int64
}

// pointData mirrors a row of the trace_points table. Power is NULL for
// bins the analyzer flagged invalid.
type pointData struct {
	Frequency float64
	Power     sql.NullFloat64
}
