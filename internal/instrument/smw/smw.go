// Package smw drives an R&S SMW-class vector signal generator for WLAN
// burst generation. Every state-changing directive goes through the
// completion-synchronized executor so dependent settings apply in
// order.
package smw

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rfbench/wlanbench/internal/instrument"
	"github.com/rfbench/wlanbench/internal/wlan"
)

const (
	// InstrumentType tags generator runs in the store.
	InstrumentType = "smw"

	// presetSettle gives the baseband time to finish rebuilding after a
	// WLAN preset before further directives are accepted.
	presetSettle = 3 * time.Second
)

// Waveform generation standards the generator accepts for burst
// configuration. Older standards are analyzer-side only.
const (
	StandardBE = "WBE" // 802.11be, EHT transmission modes
	StandardAX = "WAX" // 802.11ax, HE transmission modes
)

var validBandwidths = map[string]struct{}{
	"BW20":  {},
	"BW40":  {},
	"BW80":  {},
	"BW160": {},
	"BW320": {},
}

// maxMCS is the top modulation/coding scheme index per standard.
var maxMCS = map[string]int{
	StandardBE: 13,
	StandardAX: 11,
}

// WithSettle overrides the post-preset settle delay, mainly for tests.
func WithSettle(d time.Duration) func(*Generator) {
	return func(g *Generator) {
		g.settle = d
	}
}

// Generator wraps a session to an SMW-class instrument.
type Generator struct {
	session *instrument.Session
	logger  *slog.Logger
	settle  time.Duration
}

// New creates a Generator on an open session.
func New(session *instrument.Session, options ...func(*Generator)) *Generator {
	g := Generator{
		session: session,
		logger:  session.Logger().With(slog.String("instrument", InstrumentType)),
		settle:  presetSettle,
	}

	for _, option := range options {
		option(&g)
	}

	return &g
}

// Session exposes the underlying session for identity and teardown.
func (g *Generator) Session() *instrument.Session {
	return g.session
}

// Preset resets the instrument and the WLAN baseband to defaults.
func (g *Generator) Preset() error {
	for _, cmd := range []string{"*RST", "*CLS", "SOURce1:BB:WLNN:PRESet"} {
		if err := g.session.Exec(cmd); err != nil {
			return err
		}
	}
	time.Sleep(g.settle)

	g.logger.Info("generator preset completed")
	return nil
}

// BurstConfig holds the caller-facing burst parameters. Bytes per
// symbol and the per-unit byte ceiling are read from the live
// instrument, since they depend on the modulation and bandwidth just
// applied.
type BurstConfig struct {
	Standard    string
	Bandwidth   string
	MCS         string
	BurstLength time.Duration
	DutyCycle   float64
}

// ConfigureBurst applies bandwidth, standard, transmission mode and
// modulation, then derives the unit layout and idle time for the
// requested burst length and duty cycle and writes it to the
// instrument. Returns the computed plan. Nothing is written once
// planning fails.
func (g *Generator) ConfigureBurst(cfg BurstConfig) (*wlan.BurstPlan, error) {
	standard := strings.ToUpper(strings.TrimSpace(cfg.Standard))
	bandwidth := strings.ToUpper(strings.TrimSpace(cfg.Bandwidth))
	mcs := strings.ToUpper(strings.TrimSpace(cfg.MCS))

	if err := validateBurstConfig(standard, bandwidth, mcs); err != nil {
		return nil, err
	}

	if err := g.session.Exec("SOURce1:BB:WLNN:STATe 0"); err != nil {
		return nil, err
	}
	if err := g.session.Exec("SOURce1:BB:WLNN:PRESet"); err != nil {
		return nil, err
	}
	if err := g.session.Exec("SOURce1:BB:WLNN:BWidth " + bandwidth); err != nil {
		return nil, err
	}
	if err := g.session.Exec("SOURce1:BB:WLNN:FBLOck1:STANdard " + standard); err != nil {
		return nil, err
	}
	if err := g.session.Exec("SOURce1:BB:WLNN:FBLOck1:TMOde " + txMode(standard, bandwidth)); err != nil {
		return nil, err
	}
	if err := g.session.Exec("SOURce1:BB:WLNN:FBLOck1:USER1:MCS " + mcs); err != nil {
		return nil, err
	}

	// Symbol capacity depends on the configuration just applied, so it
	// must come from the instrument, not from a table.
	guard, err := g.session.Query("SOURce1:BB:WLNN:FBLOck1:GUARd?")
	if err != nil {
		return nil, err
	}
	bitsPerSymbol, err := g.session.QueryInt("SOURce1:BB:WLNN:FBLock1:USER1:DATA:BPSymbol?")
	if err != nil {
		return nil, err
	}
	maxUnitBytes, err := g.session.QueryInt("SOURce1:BB:WLNN:FBLock1:USER1:MPDU1:DATA:LENGth? MAX")
	if err != nil {
		return nil, err
	}

	plan, err := wlan.PlanBurst(wlan.BurstParams{
		BurstLength:    cfg.BurstLength,
		DutyCycle:      cfg.DutyCycle,
		Guard:          wlan.GuardInterval(strings.TrimSpace(guard)),
		Header:         headerDuration(standard),
		BytesPerSymbol: bitsPerSymbol / 8,
		MaxUnitBytes:   maxUnitBytes,
	})
	if err != nil {
		return nil, err
	}

	if err := g.session.Exec(fmt.Sprintf("SOURce1:BB:WLNN:FBLock1:USER1:MPDU1:COUNt %d", plan.UnitCount())); err != nil {
		return nil, err
	}
	for i, length := range plan.UnitLengths {
		unit := i + 1
		if err := g.session.Exec(fmt.Sprintf("SOURce1:BB:WLNN:FBLock1:USER1:MPDU%d:DATA:SOURce PN23", unit)); err != nil {
			return nil, err
		}
		if err := g.session.Exec(fmt.Sprintf("SOURce1:BB:WLNN:FBLock1:USER1:MPDU%d:DATA:LENGth %d", unit, length)); err != nil {
			return nil, err
		}
	}

	if err := g.session.Exec("SOURce1:BB:WLNN:FBLock1:ITIMe " + formatSeconds(plan.IdleTime)); err != nil {
		return nil, err
	}

	g.logger.Info("burst configured",
		slog.String("standard", standard),
		slog.String("bandwidth", bandwidth),
		slog.String("mcs", mcs),
		slog.Int("symbols", plan.SymbolCount),
		slog.Int("payloadBytes", plan.RequiredBytes),
		slog.Int("units", plan.UnitCount()),
		slog.Duration("idleTime", plan.IdleTime))

	return plan, nil
}

// SetFrequency sets the RF carrier frequency in Hz.
func (g *Generator) SetFrequency(hz float64) error {
	return g.session.Exec("FREQ:CW " + strconv.FormatFloat(hz, 'f', -1, 64))
}

// SetPower sets the RF output level in dBm.
func (g *Generator) SetPower(dbm float64) error {
	return g.session.Exec("SOURce1:POW:LEV:IMM:AMPL " + strconv.FormatFloat(dbm, 'f', -1, 64))
}

// EnableWLAN switches the WLAN baseband on.
func (g *Generator) EnableWLAN() error {
	return g.session.Exec("SOURce1:BB:WLNN:STATe 1")
}

// DisableWLAN switches the WLAN baseband off.
func (g *Generator) DisableWLAN() error {
	return g.session.Exec("SOURce1:BB:WLNN:STATe 0")
}

// EnableOutput switches the RF output on.
func (g *Generator) EnableOutput() error {
	return g.session.Exec("OUTP ON")
}

// DisableOutput switches the RF output off.
func (g *Generator) DisableOutput() error {
	return g.session.Exec("OUTP OFF")
}

// FrameDuration reads the configured frame duration. The instrument
// reports milliseconds; converted here.
func (g *Generator) FrameDuration() (time.Duration, error) {
	ms, err := g.session.QueryFloat("SOURce1:BB:WLNN:FBLock1:DATA:FDURation?")
	if err != nil {
		return 0, err
	}
	return millisToDuration(ms), nil
}

// IdleTime reads the configured idle time. The instrument reports
// milliseconds; converted here.
func (g *Generator) IdleTime() (time.Duration, error) {
	ms, err := g.session.QueryFloat("SOURce1:BB:WLNN:FBLock1:ITIMe?")
	if err != nil {
		return 0, err
	}
	return millisToDuration(ms), nil
}

// Settings pulls a live snapshot of the generator state. Never cached;
// every call reflects the instrument at read time.
func (g *Generator) Settings() (*instrument.GeneratorSettings, error) {
	var s instrument.GeneratorSettings
	var err error

	if s.Frequency, err = g.session.QueryFloat("FREQ:CW?"); err != nil {
		return nil, err
	}
	if s.Power, err = g.session.QueryFloat("SOURce1:POW:LEV:IMM:AMPL?"); err != nil {
		return nil, err
	}

	output, err := g.session.Query("OUTPut1:STATe?")
	if err != nil {
		return nil, err
	}
	s.OutputEnabled = strings.TrimSpace(output) == "1"

	wlanState, err := g.session.Query("SOURce1:BB:WLNN:STATe?")
	if err != nil {
		return nil, err
	}
	s.WLANEnabled = strings.TrimSpace(wlanState) == "1"

	if s.Standard, err = g.session.Query("SOURce1:BB:WLNN:FBLOck1:STANdard?"); err != nil {
		return nil, err
	}
	if s.Bandwidth, err = g.session.Query("SOURce1:BB:WLNN:BWidth?"); err != nil {
		return nil, err
	}
	if s.MCS, err = g.session.Query("SOURce1:BB:WLNN:FBLOck1:USER1:MCS?"); err != nil {
		return nil, err
	}
	if s.GuardInterval, err = g.session.Query("SOURce1:BB:WLNN:FBLOck1:GUARd?"); err != nil {
		return nil, err
	}
	if s.FrameDuration, err = g.FrameDuration(); err != nil {
		return nil, err
	}
	if s.IdleTime, err = g.IdleTime(); err != nil {
		return nil, err
	}

	return &s, nil
}

func validateBurstConfig(standard, bandwidth, mcs string) error {
	top, ok := maxMCS[standard]
	if !ok {
		return fmt.Errorf("%w: standard %q does not support burst generation", wlan.ErrInvalidParameter, standard)
	}
	if _, ok := validBandwidths[bandwidth]; !ok {
		return fmt.Errorf("%w: bandwidth %q", wlan.ErrInvalidParameter, bandwidth)
	}
	if standard == StandardAX && bandwidth == "BW320" {
		return fmt.Errorf("%w: 802.11ax does not support 320 MHz", wlan.ErrInvalidParameter)
	}

	index, err := strconv.Atoi(strings.TrimPrefix(mcs, "MCS"))
	if err != nil || !strings.HasPrefix(mcs, "MCS") {
		return fmt.Errorf("%w: malformed MCS %q", wlan.ErrInvalidParameter, mcs)
	}
	if index < 0 || index > top {
		return fmt.Errorf("%w: MCS index %d outside [0, %d] for %s", wlan.ErrInvalidParameter, index, top, standard)
	}

	return nil
}

// txMode derives the transmission mode directive argument, e.g. EHT320
// for 802.11be at 320 MHz or HE80 for 802.11ax at 80 MHz.
func txMode(standard, bandwidth string) string {
	prefix := "EHT"
	if standard == StandardAX {
		prefix = "HE"
	}
	return prefix + strings.TrimPrefix(bandwidth, "BW")
}

func headerDuration(standard string) time.Duration {
	if standard == StandardAX {
		return wlan.HeaderDurationHE
	}
	return wlan.HeaderDurationEHT
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
