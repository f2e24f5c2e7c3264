package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rfbench/wlanbench/internal/instrument"
	"github.com/rfbench/wlanbench/internal/instrument/fsw"
	"github.com/rfbench/wlanbench/internal/instrument/smw"
	"github.com/rfbench/wlanbench/internal/storage"
	"github.com/rfbench/wlanbench/internal/trace"
)

// State tracks how far the measurement setup has progressed. The
// sequence only ever moves forward within a connection; a failed stage
// leaves the state where the last completed stage put it.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateConfigured
	StateSynchronized
	StateLeveled
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateConfigured:
		return "configured"
	case StateSynchronized:
		return "synchronized"
	case StateLeveled:
		return "leveled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// WithStore sets the store for persisting runs, settings snapshots and
// trace sweeps.
func WithStore(store storage.Store) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// Orchestrator manages one generator/analyzer pair through connection,
// waveform setup, synchronization and leveling. The generator is
// optional: without one the analyzer measures an externally managed
// signal source. When the orchestrator dials the generator itself it
// owns the connection and closes it on teardown.
type Orchestrator struct {
	analyzer      *fsw.Analyzer
	generator     *smw.Generator
	ownsGenerator bool

	state  State
	logger *slog.Logger
	store  storage.Store
	runIDs map[string]int64

	// open dials an instrument session, swapped out in tests.
	open func(resource string, timeout time.Duration, options ...func(*instrument.Session)) (*instrument.Session, error)

	generatorOptions []func(*smw.Generator)
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		logger: logger,
		runIDs: make(map[string]int64),
		open:   instrument.Open,
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// State returns the current setup progress.
func (o *Orchestrator) State() State {
	return o.state
}

// Connect dials the analyzer and, when configured, the generator. The
// generator comes up first so the analyzer can link it at construction
// time. Both connections identify and arm their instruments before
// Connect returns.
func (o *Orchestrator) Connect(ctx context.Context, config *Config) error {
	if o.state != StateDisconnected {
		return fmt.Errorf("connect: already %s", o.state)
	}

	timeout := time.Duration(config.Settings.ConnectTimeout)

	var analyzerOpts []func(*fsw.Analyzer)
	if config.Generator != nil {
		session, err := o.open(config.Generator.Resource, timeout, instrument.WithLogger(o.logger))
		if err != nil {
			return fmt.Errorf("connecting generator: %w", err)
		}

		o.generator = smw.New(session, o.generatorOptions...)
		o.ownsGenerator = true
		analyzerOpts = append(analyzerOpts, fsw.WithGenerator(o.generator))
	}

	session, err := o.open(config.Analyzer.Resource, timeout, instrument.WithLogger(o.logger))
	if err != nil {
		o.closeGenerator()
		return fmt.Errorf("connecting analyzer: %w", err)
	}
	o.analyzer = fsw.New(session, analyzerOpts...)

	if err := o.createRuns(ctx, config); err != nil {
		o.closeAnalyzer()
		o.closeGenerator()
		return err
	}

	o.state = StateConnected
	o.logger.Info("instruments connected", slog.String("state", o.state.String()))
	return nil
}

func (o *Orchestrator) createRuns(ctx context.Context, config *Config) error {
	if o.store == nil {
		return nil
	}

	if o.generator != nil {
		s := o.generator.Session()
		id, err := o.store.CreateRun(ctx, smw.InstrumentType, s.Address, s.Model, s.Serial, config.Waveform)
		if err != nil {
			return fmt.Errorf("creating generator run: %w", err)
		}
		o.runIDs[smw.InstrumentType] = id
	}

	s := o.analyzer.Session()
	id, err := o.store.CreateRun(ctx, fsw.InstrumentType, s.Address, s.Model, s.Serial, nil)
	if err != nil {
		return fmt.Errorf("creating analyzer run: %w", err)
	}
	o.runIDs[fsw.InstrumentType] = id
	return nil
}

// FullSetup drives the complete measurement setup: generator waveform
// and RF output first, then the analyzer's WLAN channel, then
// synchronization, with leveling last so the reference level adjusts
// against the signal actually present. A failed stage stops the
// sequence without rolling back completed stages; the returned error
// names the stage.
func (o *Orchestrator) FullSetup(waveform *WaveformConfig) error {
	if o.state == StateDisconnected {
		return fmt.Errorf("full setup: not connected")
	}

	if o.generator != nil {
		if err := o.setupGenerator(waveform); err != nil {
			return fmt.Errorf("generator setup: %w", err)
		}
	}

	if err := o.analyzer.Preset(); err != nil {
		return fmt.Errorf("analyzer preset: %w", err)
	}
	if err := o.analyzer.SetupWLANApp(waveform.Standard); err != nil {
		return fmt.Errorf("analyzer setup: %w", err)
	}
	o.state = StateConfigured

	if o.generator != nil {
		if err := o.analyzer.SyncWithGenerator(); err != nil {
			return fmt.Errorf("synchronization: %w", err)
		}
		o.state = StateSynchronized
	}

	if err := o.analyzer.AutoLevel(); err != nil {
		return fmt.Errorf("leveling: %w", err)
	}
	o.state = StateLeveled

	o.logger.Info("full setup completed", slog.String("state", o.state.String()))
	return nil
}

func (o *Orchestrator) setupGenerator(waveform *WaveformConfig) error {
	if err := o.generator.Preset(); err != nil {
		return err
	}

	plan, err := o.generator.ConfigureBurst(smw.BurstConfig{
		Standard:    waveform.Standard,
		Bandwidth:   waveform.Bandwidth,
		MCS:         waveform.MCS,
		BurstLength: time.Duration(waveform.BurstLength),
		DutyCycle:   waveform.DutyCycle,
	})
	if err != nil {
		return err
	}

	if err := o.generator.SetFrequency(waveform.Frequency); err != nil {
		return err
	}
	if err := o.generator.SetPower(waveform.Power); err != nil {
		return err
	}
	if err := o.generator.EnableWLAN(); err != nil {
		return err
	}
	if err := o.generator.EnableOutput(); err != nil {
		return err
	}

	o.logger.Info("generator transmitting",
		slog.String("frequency", humanize.SI(waveform.Frequency, "Hz")),
		slog.String("payload", humanize.Comma(int64(plan.RequiredBytes))+" B"),
		slog.Int("units", plan.UnitCount()))
	return nil
}

// AutoLevel re-runs reference level adjustment. Valid any time while
// connected, typically after the signal or cabling changed.
func (o *Orchestrator) AutoLevel() error {
	if o.state == StateDisconnected {
		return fmt.Errorf("auto level: not connected")
	}
	return o.analyzer.AutoLevel()
}

// ExtractSettings captures the generator's live settings and persists
// them under the generator run. Returns nil without error when no
// generator is linked.
func (o *Orchestrator) ExtractSettings(ctx context.Context) (*instrument.GeneratorSettings, error) {
	if o.state == StateDisconnected {
		return nil, fmt.Errorf("extract settings: not connected")
	}

	settings, err := o.analyzer.ExtractSettings()
	if err != nil || settings == nil {
		return settings, err
	}

	if o.store != nil {
		if _, err := o.store.StoreSnapshot(ctx, o.runIDs[smw.InstrumentType], time.Now(), settings); err != nil {
			return nil, fmt.Errorf("persisting snapshot: %w", err)
		}
	}
	return settings, nil
}

// CaptureTrace reads the current analyzer trace and persists it under
// the analyzer run.
func (o *Orchestrator) CaptureTrace(ctx context.Context) (*trace.Span, error) {
	if o.state == StateDisconnected {
		return nil, fmt.Errorf("capture trace: not connected")
	}

	span, err := o.analyzer.FetchTrace()
	if err != nil {
		return nil, err
	}

	if o.store != nil {
		if _, err := o.store.StoreTraceSpan(ctx, o.runIDs[fsw.InstrumentType], span); err != nil {
			return nil, fmt.Errorf("persisting trace: %w", err)
		}
	}
	return span, nil
}

// Close tears down the connections. The generator is closed only when
// the orchestrator dialed it; a borrowed generator stays open for its
// owner.
func (o *Orchestrator) Close() error {
	err := o.closeAnalyzer()
	if gErr := o.closeGenerator(); gErr != nil && err == nil {
		err = gErr
	}

	o.state = StateDisconnected
	return err
}

func (o *Orchestrator) closeAnalyzer() error {
	if o.analyzer == nil {
		return nil
	}

	err := o.analyzer.Session().Close()
	o.analyzer = nil
	return err
}

func (o *Orchestrator) closeGenerator() error {
	if o.generator == nil || !o.ownsGenerator {
		return nil
	}

	err := o.generator.Session().Close()
	o.generator = nil
	o.ownsGenerator = false
	return err
}
