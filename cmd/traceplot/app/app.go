package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/rfbench/wlanbench/internal/storage"
)

// Run reads all trace sweeps of a run from the database and renders
// them into a waterfall image.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil {
		return fmt.Errorf("database file '%s': %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	run, err := store.Run(ctx, config.RunID)
	if err != nil {
		return fmt.Errorf("reading run: %w", err)
	}

	spans, err := store.TraceSpans(ctx, config.RunID)
	if err != nil {
		return fmt.Errorf("reading trace spans: %w", err)
	}
	if len(spans) == 0 {
		return fmt.Errorf("run %d has no trace sweeps", config.RunID)
	}

	plot := NewPlotData()
	for _, span := range spans {
		plot.Update(span)
	}

	bounds := plot.Bounds()
	if config.MinPower != nil {
		bounds.Min = *config.MinPower
	}
	if config.MaxPower != nil {
		bounds.Max = *config.MaxPower
	}

	logger.Info("rendering trace waterfall",
		slog.String("instrument", run.InstrumentType),
		slog.String("model", run.Model),
		slog.Int("sweeps", plot.Height),
		slog.String("start", humanize.SI(plot.FrequencyMin, "Hz")),
		slog.String("stop", humanize.SI(plot.FrequencyMax, "Hz")),
		slog.String("minPower", fmt.Sprintf("%.2fdBm", bounds.Min)),
		slog.String("maxPower", fmt.Sprintf("%.2fdBm", bounds.Max)),
		slog.String("destination", config.OutputFile))

	renderer := NewRenderer(RenderConfig{
		FontFile:    config.FontFile,
		ColorTheme:  config.Theme,
		Annotations: !config.NoAnnotations,
	})

	img, err := renderer.Render(plot, bounds)
	if err != nil {
		return fmt.Errorf("rendering traces: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})

	default:
		err = png.Encode(out, img)
	}
	return err
}
