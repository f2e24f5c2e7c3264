package storage

import (
	"context"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rfbench/wlanbench/internal/instrument"
	"github.com/rfbench/wlanbench/internal/trace"
)

// Run represents a single instrument automation run. Each run captures
// which instrument was driven, over which address, and with what
// configuration.
type Run struct {
	ID             int64     `json:"ID"`
	StartTime      time.Time `json:"startTime"`
	InstrumentType string    `json:"instrumentType"` // "smw" or "fsw"
	Address        string    `json:"address"`        // VISA resource or host:port
	Model          string    `json:"model"`
	Serial         string    `json:"serial"`
	Config         *string   `json:"config,omitempty"` // Optional run configuration in JSON format
}

// Snapshot is a timestamped generator settings capture linked to a run.
type Snapshot struct {
	ID        int64                        `json:"ID"`
	RunID     int64                        `json:"runID"`
	Timestamp time.Time                    `json:"timestamp"`
	Settings  instrument.GeneratorSettings `json:"settings"`
}

// Store provides an interface for persisting instrument automation
// data: runs, generator settings snapshots, and analyzer trace sweeps.
// All write operations are atomic.
type Store interface {
	// CreateRun initializes a new run record and returns its unique
	// identifier. Config can be a string, []byte, or any
	// JSON-serializable value; nil stores no configuration.
	CreateRun(ctx context.Context, instrumentType, address, model, serial string, config any) (runID int64, err error)

	// Run retrieves a single run by ID, nil if not found.
	Run(ctx context.Context, id int64) (*Run, error)

	// Runs returns all runs ordered by start time ascending.
	Runs(ctx context.Context) ([]*Run, error)

	// StoreSnapshot saves a generator settings capture for a run and
	// returns its identifier.
	StoreSnapshot(ctx context.Context, runID int64, taken time.Time, settings *instrument.GeneratorSettings) (snapshotID int64, err error)

	// Snapshots returns all settings captures for a run ordered by
	// capture time ascending.
	Snapshots(ctx context.Context, runID int64) ([]*Snapshot, error)

	// StoreTraceSpan saves one trace sweep with all its points in a
	// single transaction and returns the span identifier.
	StoreTraceSpan(ctx context.Context, runID int64, span *trace.Span) (spanID int64, err error)

	// TraceSpans returns all sweeps for a run, points included, ordered
	// by capture time ascending.
	TraceSpans(ctx context.Context, runID int64) ([]*trace.Span, error)

	// Close releases all database connections and resources. After
	// Close the store cannot be reused. Safe to call multiple times.
	Close() error
}
