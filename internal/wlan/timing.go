package wlan

import (
	"fmt"
	"math"
	"time"
)

const (
	// symbolCore is the OFDM symbol duration without guard interval,
	// common to 802.11ax and 802.11be.
	symbolCore = 12800 * time.Nanosecond

	// HeaderDurationEHT is the 802.11be (EHT) preamble duration.
	HeaderDurationEHT = 43200 * time.Nanosecond

	// HeaderDurationHE is the 802.11ax (HE SU) preamble duration.
	HeaderDurationHE = 40 * time.Microsecond

	// safetyMarginBytes keeps the derived payload below the device's
	// hard per-unit byte ceiling.
	safetyMarginBytes = 100

	// MaxCaptureTime is the analyzer sweep-time ceiling. Typical
	// instrument maximum without extended memory.
	MaxCaptureTime = time.Second

	// captureMargin bounds burst jitter when deriving the capture
	// window from one frame plus idle period.
	captureMargin = 4
)

// GuardInterval is the generator's guard interval token, a closed set.
type GuardInterval string

const (
	GuardShort  GuardInterval = "GD08" // 0.8 µs
	GuardMedium GuardInterval = "GD16" // 1.6 µs
	GuardLong   GuardInterval = "GD32" // 3.2 µs
)

var guardDurations = map[GuardInterval]time.Duration{
	GuardShort:  800 * time.Nanosecond,
	GuardMedium: 1600 * time.Nanosecond,
	GuardLong:   3200 * time.Nanosecond,
}

// Duration returns the guard time appended to each OFDM symbol.
func (g GuardInterval) Duration() (time.Duration, error) {
	d, ok := guardDurations[g]
	if !ok {
		return 0, fmt.Errorf("%w: unknown guard interval %q", ErrInvalidParameter, string(g))
	}
	return d, nil
}

// SymbolDuration returns the full OFDM symbol duration, core plus guard.
func (g GuardInterval) SymbolDuration() (time.Duration, error) {
	guard, err := g.Duration()
	if err != nil {
		return 0, err
	}
	return symbolCore + guard, nil
}

// BurstParams are the transmit-side planning inputs. BytesPerSymbol and
// MaxUnitBytes depend on the live modulation/bandwidth configuration
// and come from the generator, not from constants.
type BurstParams struct {
	BurstLength    time.Duration
	DutyCycle      float64
	Guard          GuardInterval
	Header         time.Duration
	BytesPerSymbol int
	MaxUnitBytes   int
}

// BurstPlan is the derived transmit timing, immutable once computed.
// The unit lengths partition RequiredBytes: all units carry the maximum
// unit size except the last, which carries the remainder.
type BurstPlan struct {
	IdleTime      time.Duration
	SymbolCount   int
	RequiredBytes int
	UnitLengths   []int
}

// UnitCount returns the number of protocol data units in the plan.
func (p *BurstPlan) UnitCount() int {
	return len(p.UnitLengths)
}

// PlanBurst derives the transmit-side timing from burst length, duty
// cycle and the device-reported symbol capacity. Pure function of its
// inputs.
func PlanBurst(params BurstParams) (*BurstPlan, error) {
	if params.DutyCycle <= 0 || params.DutyCycle > 1 {
		return nil, fmt.Errorf("%w: duty cycle %v outside (0, 1]", ErrInvalidParameter, params.DutyCycle)
	}
	if params.BurstLength <= params.Header {
		return nil, fmt.Errorf("%w: burst length %s not longer than header %s",
			ErrInvalidParameter, params.BurstLength, params.Header)
	}
	if params.BytesPerSymbol <= 0 {
		return nil, fmt.Errorf("%w: bytes per symbol %d", ErrInvalidParameter, params.BytesPerSymbol)
	}
	if params.MaxUnitBytes <= 0 {
		return nil, fmt.Errorf("%w: max unit size %d", ErrInvalidParameter, params.MaxUnitBytes)
	}

	symbolDuration, err := params.Guard.SymbolDuration()
	if err != nil {
		return nil, err
	}

	idleTime := time.Duration(float64(params.BurstLength) * (1/params.DutyCycle - 1))
	symbols := int(math.Round(float64(params.BurstLength-params.Header) / float64(symbolDuration)))

	requiredBytes := symbols*params.BytesPerSymbol - safetyMarginBytes
	if requiredBytes <= 0 {
		return nil, fmt.Errorf("%w: %d payload bytes for %d symbols after %d byte margin",
			ErrCapacity, requiredBytes, symbols, safetyMarginBytes)
	}

	return &BurstPlan{
		IdleTime:      idleTime,
		SymbolCount:   symbols,
		RequiredBytes: requiredBytes,
		UnitLengths:   partitionBytes(requiredBytes, params.MaxUnitBytes),
	}, nil
}

// partitionBytes splits total into ceil(total/unit) lengths where every
// length but the last equals unit and the last is the remainder in
// [1, unit]. An exact multiple yields a full final unit, never a
// zero-length one.
func partitionBytes(total, unit int) []int {
	count := (total + unit - 1) / unit
	lengths := make([]int, count)
	for i := 0; i < count-1; i++ {
		lengths[i] = unit
	}
	lengths[count-1] = total - (count-1)*unit
	return lengths
}

// CaptureWindow is the receive-side sweep window. Capped reports that
// the raw window exceeded the instrument ceiling and was clamped; a
// warning condition, not an error, and callers must check it.
type CaptureWindow struct {
	Duration time.Duration
	Capped   bool
}

// PlanCapture derives the analyzer sweep time from the frame duration
// and idle time reported by the generator.
func PlanCapture(frameDuration, idleTime time.Duration) (CaptureWindow, error) {
	if frameDuration < 0 || idleTime < 0 {
		return CaptureWindow{}, fmt.Errorf("%w: negative frame duration %s or idle time %s",
			ErrInvalidParameter, frameDuration, idleTime)
	}

	window := captureMargin * (frameDuration + idleTime)
	if window > MaxCaptureTime {
		return CaptureWindow{Duration: MaxCaptureTime, Capped: true}, nil
	}
	return CaptureWindow{Duration: window}, nil
}
