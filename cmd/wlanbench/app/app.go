package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rfbench/wlanbench/internal/storage"
)

const storageDir = "data"

// Run connects to the configured instruments, performs the full
// measurement setup, captures a settings snapshot and one trace sweep,
// and tears everything down.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("creating storage: %w", err)
	}
	defer store.Close()

	orchestrator := NewOrchestrator(logger, WithStore(store))
	defer orchestrator.Close()

	if err := orchestrator.Connect(ctx, config); err != nil {
		return err
	}
	if err := orchestrator.FullSetup(&config.Waveform); err != nil {
		return err
	}

	settings, err := orchestrator.ExtractSettings(ctx)
	if err != nil {
		return err
	}
	if settings != nil {
		logger.Info("generator snapshot",
			slog.String("frequency", humanize.SI(settings.Frequency, "Hz")),
			slog.Float64("power", settings.Power),
			slog.String("standard", settings.Standard),
			slog.String("bandwidth", settings.Bandwidth),
			slog.String("mcs", settings.MCS),
			slog.Duration("frameDuration", settings.FrameDuration),
			slog.Duration("idleTime", settings.IdleTime))
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	span, err := orchestrator.CaptureTrace(ctx)
	if err != nil {
		return err
	}
	logger.Info("trace captured",
		slog.Int("points", len(span.Points)),
		slog.String("start", humanize.SI(span.FrequencyStart, "Hz")),
		slog.String("stop", humanize.SI(span.FrequencyEnd, "Hz")))

	return nil
}

func createStorage(config *StorageConfig) (storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current working directory: %w", err)
	}

	dbPath := filepath.Join(wd, storageDir)
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("wlanbench_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), nil
}
