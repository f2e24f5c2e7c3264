package storage

import (
	_ "embed"
)

const (
	insertRunSQL = `
INSERT INTO runs (start_time,
                  instrument_type,
                  address,
                  model,
                  serial,
                  config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?, ?, ?)`

	selectRunSQL = `
SELECT id,
       start_time,
       instrument_type,
       address,
       model,
       serial,
       config
FROM runs
WHERE id = ?`

	selectRunsSQL = `
SELECT id,
       start_time,
       instrument_type,
       address,
       model,
       serial,
       config
FROM runs
ORDER BY start_time`

	insertSnapshotSQL = `
INSERT INTO snapshots (run_id,
                       timestamp,
                       frequency,
                       power,
                       output_enabled,
                       wlan_enabled,
                       standard,
                       bandwidth,
                       mcs,
                       guard_interval,
                       frame_duration_ns,
                       idle_time_ns)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectSnapshotsSQL = `
SELECT id,
       run_id,
       timestamp,
       frequency,
       power,
       output_enabled,
       wlan_enabled,
       standard,
       bandwidth,
       mcs,
       guard_interval,
       frame_duration_ns,
       idle_time_ns
FROM snapshots
WHERE run_id = ?
ORDER BY timestamp`

	insertSpanSQL = `
INSERT INTO trace_spans (run_id,
                         timestamp,
                         frequency_start,
                         frequency_end)
VALUES (?, ?, ?, ?)`

	selectSpansSQL = `
SELECT id,
       timestamp,
       frequency_start,
       frequency_end
FROM trace_spans
WHERE run_id = ?
ORDER BY timestamp`

	selectPointsSQL = `
SELECT frequency,
       power
FROM trace_points
WHERE span_id = ?
ORDER BY frequency`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots (run_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_spans_run ON trace_spans (run_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_points_span ON trace_points (span_id, frequency);`
)

//go:embed schema.sql
var initSchemaSQL string
