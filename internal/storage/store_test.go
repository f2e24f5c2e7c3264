package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rfbench/wlanbench/internal/instrument"
	"github.com/rfbench/wlanbench/internal/storage"
	"github.com/rfbench/wlanbench/internal/trace"
)

func newTestStore(t *testing.T) *storage.SqliteStore {
	t.Helper()

	s := storage.NewSqliteStore(filepath.Join(t.TempDir(), "wlanbench.sqlite"))
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return s
}

func TestSqliteStore_Runs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateRun(ctx, "smw", "TCPIP::192.168.200.10::hislip0", "SMW200A", "100001", map[string]string{"standard": "WBE"})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	run, err := s.Run(ctx, id)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if run.InstrumentType != "smw" || run.Model != "SMW200A" || run.Serial != "100001" {
		t.Errorf("Run = %+v", run)
	}
	if run.Config == nil || *run.Config != `{"standard":"WBE"}` {
		t.Errorf("Config = %v", run.Config)
	}

	if _, err = s.CreateRun(ctx, "fsw", "192.168.200.20:5025", "FSW-26", "100002", nil); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Got %d runs, want 2", len(runs))
	}
	if runs[1].Config != nil {
		t.Errorf("Second run config = %v, want nil", runs[1].Config)
	}
}

func TestSqliteStore_Snapshots(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	runID, err := s.CreateRun(ctx, "smw", "addr", "SMW200A", "100001", nil)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	settings := instrument.GeneratorSettings{
		Frequency:     6e9,
		Power:         -10,
		OutputEnabled: true,
		WLANEnabled:   true,
		Standard:      "WBE",
		Bandwidth:     "BW320",
		MCS:           "MCS13",
		GuardInterval: "GD08",
		FrameDuration: 4 * time.Millisecond,
		IdleTime:      4 * time.Millisecond,
	}

	if _, err = s.StoreSnapshot(ctx, runID, time.Now(), &settings); err != nil {
		t.Fatalf("StoreSnapshot failed: %v", err)
	}

	snapshots, err := s.Snapshots(ctx, runID)
	if err != nil {
		t.Fatalf("Snapshots failed: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("Got %d snapshots, want 1", len(snapshots))
	}
	if snapshots[0].Settings != settings {
		t.Errorf("Settings round-trip mismatch:\ngot  %+v\nwant %+v", snapshots[0].Settings, settings)
	}
}

func TestSqliteStore_TraceSpans(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	runID, err := s.CreateRun(ctx, "fsw", "addr", "FSW-26", "100002", nil)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	power := -52.4
	span := trace.Span{
		Timestamp:      time.Now().UTC().Truncate(time.Second),
		FrequencyStart: 5e9,
		FrequencyEnd:   5.16e9,
		Points: []trace.Point{
			{Frequency: 5e9, Power: &power},
			{Frequency: 5.08e9, Power: nil},
			{Frequency: 5.16e9, Power: &power},
		},
	}

	if _, err = s.StoreTraceSpan(ctx, runID, &span); err != nil {
		t.Fatalf("StoreTraceSpan failed: %v", err)
	}

	spans, err := s.TraceSpans(ctx, runID)
	if err != nil {
		t.Fatalf("TraceSpans failed: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("Got %d spans, want 1", len(spans))
	}

	got := spans[0]
	if got.FrequencyStart != span.FrequencyStart || got.FrequencyEnd != span.FrequencyEnd {
		t.Errorf("Span range = [%v, %v]", got.FrequencyStart, got.FrequencyEnd)
	}
	if len(got.Points) != 3 {
		t.Fatalf("Got %d points, want 3", len(got.Points))
	}
	if got.Points[0].Power == nil || *got.Points[0].Power != power {
		t.Errorf("Points[0].Power = %v, want %v", got.Points[0].Power, power)
	}
	if got.Points[1].Power != nil {
		t.Errorf("Points[1].Power = %v, want nil", *got.Points[1].Power)
	}
}
