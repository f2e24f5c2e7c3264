package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rfbench/wlanbench/internal/instrument"
	"github.com/rfbench/wlanbench/internal/trace"
)

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a new database connection and initializes the
// schema using the Sqlite database
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateRun(ctx context.Context, instrumentType, address, model, serial string, config any) (runID int64, err error) {
	var configData sql.NullString

	if config != nil {
		switch config.(type) {
		case string:
			configData.Valid = true
			configData.String = config.(string)

		case []byte:
			configData.Valid = true
			configData.String = string(config.([]byte))

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, instrumentType, address, model, serial, configData)
	if err != nil {
		err = fmt.Errorf("inserting run: %w", err)
		return
	}

	runID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting run ID: %w", err)
	}
	return
}

func (s *SqliteStore) Run(ctx context.Context, id int64) (run *Run, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var r Run
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, id).Scan(&r.ID, &r.StartTime, &r.InstrumentType, &r.Address, &r.Model, &r.Serial, &config); err != nil {
		err = fmt.Errorf("scanning run: %w", err)
		return
	}
	if config.Valid {
		r.Config = &config.String
	}

	return &r, nil
}

func (s *SqliteStore) Runs(ctx context.Context) (runs []*Run, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectRunsSQL)
	if err != nil {
		err = fmt.Errorf("querying runs: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var r Run
		var config sql.NullString
		if err = rows.Scan(&r.ID, &r.StartTime, &r.InstrumentType, &r.Address, &r.Model, &r.Serial, &config); err != nil {
			err = fmt.Errorf("scanning run: %w", err)
			return
		}
		if config.Valid {
			r.Config = &config.String
		}
		runs = append(runs, &r)
	}
	return
}

func (s *SqliteStore) StoreSnapshot(ctx context.Context, runID int64, taken time.Time, settings *instrument.GeneratorSettings) (snapshotID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSnapshotSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	data := toSnapshotData(runID, taken, settings)

	result, err := stmt.ExecContext(
		ctx,
		data.RunID,
		data.Timestamp,
		data.Frequency,
		data.Power,
		data.OutputEnabled,
		data.WLANEnabled,
		data.Standard,
		data.Bandwidth,
		data.MCS,
		data.GuardInterval,
		data.FrameDurationNs,
		data.IdleTimeNs,
	)
	if err != nil {
		err = fmt.Errorf("inserting snapshot: %w", err)
		return
	}

	snapshotID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting snapshot ID: %w", err)
	}
	return
}

func (s *SqliteStore) Snapshots(ctx context.Context, runID int64) (snapshots []*Snapshot, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSnapshotsSQL, runID)
	if err != nil {
		err = fmt.Errorf("querying snapshots: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var d snapshotData
		if err = rows.Scan(
			&d.ID,
			&d.RunID,
			&d.Timestamp,
			&d.Frequency,
			&d.Power,
			&d.OutputEnabled,
			&d.WLANEnabled,
			&d.Standard,
			&d.Bandwidth,
			&d.MCS,
			&d.GuardInterval,
			&d.FrameDurationNs,
			&d.IdleTimeNs,
		); err != nil {
			err = fmt.Errorf("scanning snapshot: %w", err)
			return
		}
		snapshots = append(snapshots, fromSnapshotData(&d))
	}
	return
}

const insertPointSQL = `
    INSERT INTO trace_points (
        span_id,
        frequency,
        power
    )
    VALUES `

func (s *SqliteStore) StoreTraceSpan(ctx context.Context, runID int64, span *trace.Span) (spanID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("beginning transaction: %w", err)
		return
	}
	defer rollbackWithError(tx, &err)

	result, err := tx.ExecContext(ctx, insertSpanSQL, runID, span.Timestamp.UTC(), span.FrequencyStart, span.FrequencyEnd)
	if err != nil {
		err = fmt.Errorf("inserting span: %w", err)
		return
	}

	spanID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting span ID: %w", err)
		return
	}

	if len(span.Points) > 0 {
		values := make([]interface{}, 0, len(span.Points)*3)
		valuesPlaceholder := "(?, ?, ?)"

		var sb strings.Builder
		sb.WriteString(insertPointSQL)

		for i, point := range span.Points {
			data := toPointData(point)
			values = append(values, spanID, data.Frequency, data.Power)

			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(valuesPlaceholder)
		}

		// Single batch insert
		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			err = fmt.Errorf("batch inserting points: %w", err)
			return
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("committing transaction: %w", err)
	}
	return
}

func (s *SqliteStore) TraceSpans(ctx context.Context, runID int64) (spans []*trace.Span, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSpansSQL, runID)
	if err != nil {
		err = fmt.Errorf("querying spans: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var span trace.Span
		if err = rows.Scan(&span.ID, &span.Timestamp, &span.FrequencyStart, &span.FrequencyEnd); err != nil {
			err = fmt.Errorf("scanning span: %w", err)
			return
		}
		spans = append(spans, &span)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating spans: %w", err)
		return
	}

	for _, span := range spans {
		if span.Points, err = s.spanPoints(ctx, db, span.ID); err != nil {
			return
		}
	}
	return
}

func (s *SqliteStore) spanPoints(ctx context.Context, db *sql.DB, spanID int64) (points []trace.Point, err error) {
	rows, err := db.QueryContext(ctx, selectPointsSQL, spanID)
	if err != nil {
		err = fmt.Errorf("querying points: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var d pointData
		if err = rows.Scan(&d.Frequency, &d.Power); err != nil {
			err = fmt.Errorf("scanning point: %w", err)
			return
		}
		points = append(points, fromPointData(&d))
	}
	return
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		switch {
		case writeErr != nil && readErr != nil:
			s.closeErr = errors.Join(writeErr, readErr)
		case writeErr != nil:
			s.closeErr = writeErr
		case readErr != nil:
			s.closeErr = readErr
		}
	})

	return s.closeErr
}
