package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rfbench/wlanbench/internal/instrument"
	"github.com/rfbench/wlanbench/internal/trace"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func toSnapshotData(runID int64, taken time.Time, s *instrument.GeneratorSettings) *snapshotData {
	return &snapshotData{
		RunID:           runID,
		Timestamp:       taken.UTC(),
		Frequency:       s.Frequency,
		Power:           s.Power,
		OutputEnabled:   s.OutputEnabled,
		WLANEnabled:     s.WLANEnabled,
		Standard:        s.Standard,
		Bandwidth:       s.Bandwidth,
		MCS:             s.MCS,
		GuardInterval:   s.GuardInterval,
		FrameDurationNs: s.FrameDuration.Nanoseconds(),
		IdleTimeNs:      s.IdleTime.Nanoseconds(),
	}
}

func fromSnapshotData(d *snapshotData) *Snapshot {
	return &Snapshot{
		ID:        d.ID,
		RunID:     d.RunID,
		Timestamp: d.Timestamp,
		Settings: instrument.GeneratorSettings{
			Frequency:     d.Frequency,
			Power:         d.Power,
			OutputEnabled: d.OutputEnabled,
			WLANEnabled:   d.WLANEnabled,
			Standard:      d.Standard,
			Bandwidth:     d.Bandwidth,
			MCS:           d.MCS,
			GuardInterval: d.GuardInterval,
			FrameDuration: time.Duration(d.FrameDurationNs),
			IdleTime:      time.Duration(d.IdleTimeNs),
		},
	}
}

func toPointData(p trace.Point) *pointData {
	var power sql.NullFloat64
	if p.Power != nil {
		power.Float64 = *p.Power
		power.Valid = true
	}

	return &pointData{
		Frequency: p.Frequency,
		Power:     power,
	}
}

func fromPointData(d *pointData) trace.Point {
	p := trace.Point{Frequency: d.Frequency}
	if d.Power.Valid {
		v := d.Power.Float64
		p.Power = &v
	}
	return p
}
