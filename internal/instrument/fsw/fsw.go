// Package fsw drives an R&S FSW-class signal and spectrum analyzer for
// WLAN burst measurements. The analyzer can optionally hold a
// reference to a peer generator to derive its capture window and to
// mirror carrier settings; it never owns the peer's lifecycle.
package fsw

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rfbench/wlanbench/internal/instrument"
	"github.com/rfbench/wlanbench/internal/instrument/smw"
	"github.com/rfbench/wlanbench/internal/scpi"
	"github.com/rfbench/wlanbench/internal/trace"
	"github.com/rfbench/wlanbench/internal/wlan"
)

// InstrumentType tags analyzer runs in the store.
const InstrumentType = "fsw"

// ErrNoGenerator is returned by operations that need a linked peer
// generator when none is present.
var ErrNoGenerator = errors.New("fsw: no generator linked")

// WithGenerator links a peer generator at construction time.
func WithGenerator(g *smw.Generator) func(*Analyzer) {
	return func(a *Analyzer) {
		a.generator = g
	}
}

// Analyzer wraps a session to an FSW-class instrument.
type Analyzer struct {
	session    *instrument.Session
	translator *wlan.Translator
	generator  *smw.Generator
	logger     *slog.Logger
}

// New creates an Analyzer on an open session.
func New(session *instrument.Session, options ...func(*Analyzer)) *Analyzer {
	logger := session.Logger().With(slog.String("instrument", InstrumentType))

	a := Analyzer{
		session:    session,
		translator: wlan.NewTranslator(logger),
		logger:     logger,
	}

	for _, option := range options {
		option(&a)
	}

	return &a
}

// Session exposes the underlying session for identity and teardown.
func (a *Analyzer) Session() *instrument.Session {
	return a.session
}

// Generator returns the linked peer generator, or nil.
func (a *Analyzer) Generator() *smw.Generator {
	return a.generator
}

// LinkGenerator attaches a peer generator after construction. The
// analyzer only borrows the reference.
func (a *Analyzer) LinkGenerator(g *smw.Generator) {
	a.generator = g
}

// Preset resets the instrument to defaults and clears status.
func (a *Analyzer) Preset() error {
	if err := a.session.Exec("*RST"); err != nil {
		return err
	}
	if err := a.session.Exec("*CLS"); err != nil {
		return err
	}

	a.logger.Info("analyzer preset completed")
	return nil
}

// SetupWLANApp creates the WLAN measurement channel and configures it
// for the given standard token. Unknown tokens fall back to the
// default standard with a warning rather than failing the setup. When
// a peer generator is linked, the capture window is derived from its
// live frame timing.
func (a *Analyzer) SetupWLANApp(standard string) error {
	if err := a.session.Exec("INST:CRE:NEW WLAN, 'WLAN'"); err != nil {
		return err
	}
	if err := a.session.Exec("CONF:STAN " + a.translator.Directive(standard)); err != nil {
		return err
	}
	if err := a.session.Exec("CONF:POW:AUTO ONCE"); err != nil {
		return err
	}
	if err := a.session.Exec("INP:GAIN:STAT OFF"); err != nil {
		return err
	}
	if err := a.session.Exec("TRIG:SEQ:SOUR EXT"); err != nil {
		return err
	}

	if a.generator == nil {
		a.logger.Info("no generator linked, keeping default capture time")
		return nil
	}
	return a.applyCaptureWindow()
}

// applyCaptureWindow sizes the sweep so several full burst periods land
// in every capture, reading the timing from the peer generator.
func (a *Analyzer) applyCaptureWindow() error {
	frame, err := a.generator.FrameDuration()
	if err != nil {
		return err
	}
	idle, err := a.generator.IdleTime()
	if err != nil {
		return err
	}

	window, err := wlan.PlanCapture(frame, idle)
	if err != nil {
		return err
	}
	if window.Capped {
		a.logger.Warn("capture window capped, fewer burst periods per capture",
			slog.Duration("frame", frame),
			slog.Duration("idle", idle),
			slog.Duration("captureTime", window.Duration))
	}

	return a.session.Exec("SENS:SWE:TIME " + formatSeconds(window.Duration))
}

// SyncWithGenerator re-reads the peer generator and mirrors its
// carrier frequency and standard onto the measurement channel. Fails
// when no generator is linked.
func (a *Analyzer) SyncWithGenerator() error {
	if a.generator == nil {
		return ErrNoGenerator
	}

	settings, err := a.generator.Settings()
	if err != nil {
		return err
	}

	if err := a.session.Exec("FREQ:CENT " + strconv.FormatFloat(settings.Frequency, 'f', -1, 64)); err != nil {
		return err
	}
	if err := a.session.Exec("CONF:STAN " + a.translator.Directive(settings.Standard)); err != nil {
		return err
	}

	a.logger.Info("synchronized with generator",
		slog.Float64("frequency", settings.Frequency),
		slog.String("standard", settings.Standard))
	return nil
}

// AutoLevel runs a single reference level auto-adjustment. The signal
// must be present at the input when this runs.
func (a *Analyzer) AutoLevel() error {
	return a.session.Exec("CONF:POW:AUTO ONCE")
}

// ExtractSettings pulls a live snapshot from the peer generator. With
// no generator linked there is nothing to extract; that is reported as
// an absent snapshot, not an error.
func (a *Analyzer) ExtractSettings() (*instrument.GeneratorSettings, error) {
	if a.generator == nil {
		a.logger.Warn("settings extraction requested without a linked generator")
		return nil, nil
	}
	return a.generator.Settings()
}

// FetchTrace reads the current trace and the displayed frequency range
// and assembles them into a span with per-bin center frequencies.
func (a *Analyzer) FetchTrace() (*trace.Span, error) {
	data, err := a.session.Query("TRAC:DATA? TRACE1")
	if err != nil {
		return nil, err
	}
	start, err := a.session.QueryFloat("FREQ:STARt?")
	if err != nil {
		return nil, err
	}
	stop, err := a.session.QueryFloat("FREQ:STOP?")
	if err != nil {
		return nil, err
	}

	return parseTrace(data, start, stop)
}

// parseTrace converts the analyzer's comma-separated power list into a
// span. Bin frequencies are interpolated across the displayed range.
func parseTrace(data string, startHz, stopHz float64) (*trace.Span, error) {
	fields := strings.Split(strings.TrimSpace(data), ",")
	if len(fields) == 1 && fields[0] == "" {
		return nil, &scpi.TransportError{Cmd: "TRAC:DATA? TRACE1", Err: fmt.Errorf("empty trace data")}
	}

	span := trace.Span{
		Timestamp:      time.Now(),
		FrequencyStart: startHz,
		FrequencyEnd:   stopHz,
		Points:         make([]trace.Point, len(fields)),
	}

	step := 0.0
	if len(fields) > 1 {
		step = (stopHz - startHz) / float64(len(fields)-1)
	}

	for i, field := range fields {
		power, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, &scpi.TransportError{Cmd: "TRAC:DATA? TRACE1", Err: fmt.Errorf("parsing trace bin %d: %w", i, err)}
		}
		p := power
		span.Points[i] = trace.Point{
			Frequency: startHz + float64(i)*step,
			Power:     &p,
		}
	}

	return &span, nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
