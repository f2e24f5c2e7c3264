package wlan

import (
	"errors"
	"testing"
	"time"
)

func validParams() BurstParams {
	return BurstParams{
		BurstLength:    4 * time.Millisecond,
		DutyCycle:      0.5,
		Guard:          GuardShort,
		Header:         HeaderDurationEHT,
		BytesPerSymbol: 256,
		MaxUnitBytes:   60000,
	}
}

func TestPlanBurst_WorkedExample(t *testing.T) {
	// 4 ms burst at 50% duty, 0.8 µs GI, 43.2 µs header, 256 B/symbol.
	plan, err := PlanBurst(validParams())
	if err != nil {
		t.Fatalf("PlanBurst failed: %v", err)
	}

	if plan.IdleTime != 4*time.Millisecond {
		t.Errorf("IdleTime = %s, want 4ms", plan.IdleTime)
	}
	if plan.SymbolCount != 291 {
		t.Errorf("SymbolCount = %d, want 291", plan.SymbolCount)
	}
	if plan.RequiredBytes != 74396 {
		t.Errorf("RequiredBytes = %d, want 74396", plan.RequiredBytes)
	}
	if plan.UnitCount() != 2 {
		t.Errorf("UnitCount = %d, want 2", plan.UnitCount())
	}
	if plan.UnitLengths[0] != 60000 || plan.UnitLengths[1] != 14396 {
		t.Errorf("UnitLengths = %v, want [60000 14396]", plan.UnitLengths)
	}
}

func TestPlanBurst_IdleTime(t *testing.T) {
	tests := []struct {
		dutyCycle float64
		idleTime  time.Duration
	}{
		{1.0, 0},
		{0.5, 4 * time.Millisecond},
		{0.25, 12 * time.Millisecond},
		{0.1, 36 * time.Millisecond},
	}

	for _, tc := range tests {
		params := validParams()
		params.DutyCycle = tc.dutyCycle

		plan, err := PlanBurst(params)
		if err != nil {
			t.Fatalf("PlanBurst(duty=%v) failed: %v", tc.dutyCycle, err)
		}
		if plan.IdleTime != tc.idleTime {
			t.Errorf("duty=%v: IdleTime = %s, want %s", tc.dutyCycle, plan.IdleTime, tc.idleTime)
		}
		if plan.IdleTime < 0 {
			t.Errorf("duty=%v: negative idle time %s", tc.dutyCycle, plan.IdleTime)
		}
	}
}

func TestPlanBurst_InvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BurstParams)
		want   error
	}{
		{"zero duty cycle", func(p *BurstParams) { p.DutyCycle = 0 }, ErrInvalidParameter},
		{"negative duty cycle", func(p *BurstParams) { p.DutyCycle = -0.5 }, ErrInvalidParameter},
		{"duty cycle above one", func(p *BurstParams) { p.DutyCycle = 1.1 }, ErrInvalidParameter},
		{"unknown guard interval", func(p *BurstParams) { p.Guard = "GD64" }, ErrInvalidParameter},
		{"burst shorter than header", func(p *BurstParams) { p.BurstLength = 40 * time.Microsecond }, ErrInvalidParameter},
		{"burst equal to header", func(p *BurstParams) { p.BurstLength = HeaderDurationEHT }, ErrInvalidParameter},
		{"zero bytes per symbol", func(p *BurstParams) { p.BytesPerSymbol = 0 }, ErrInvalidParameter},
		{"zero max unit size", func(p *BurstParams) { p.MaxUnitBytes = 0 }, ErrInvalidParameter},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)

			if _, err := PlanBurst(params); !errors.Is(err, tc.want) {
				t.Errorf("PlanBurst error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPlanBurst_CapacityError(t *testing.T) {
	// One symbol at 64 B/symbol leaves nothing after the safety margin.
	params := validParams()
	params.BurstLength = 60 * time.Microsecond
	params.BytesPerSymbol = 64

	if _, err := PlanBurst(params); !errors.Is(err, ErrCapacity) {
		t.Errorf("PlanBurst error = %v, want %v", err, ErrCapacity)
	}
}

func TestPartitionBytes_Invariants(t *testing.T) {
	tests := []struct {
		total, unit int
	}{
		{74396, 60000},
		{60000, 60000}, // exact single unit
		{120000, 60000}, // exact multiple
		{1, 60000},
		{60001, 60000},
		{180001, 60000},
		{59999, 60000},
	}

	for _, tc := range tests {
		lengths := partitionBytes(tc.total, tc.unit)

		wantCount := (tc.total + tc.unit - 1) / tc.unit
		if len(lengths) != wantCount {
			t.Errorf("partition(%d, %d): %d units, want %d", tc.total, tc.unit, len(lengths), wantCount)
		}

		var sum int
		for i, l := range lengths {
			sum += l
			if l <= 0 || l > tc.unit {
				t.Errorf("partition(%d, %d): unit %d has length %d outside [1, %d]", tc.total, tc.unit, i, l, tc.unit)
			}
			if i < len(lengths)-1 && l != tc.unit {
				t.Errorf("partition(%d, %d): non-final unit %d has length %d, want %d", tc.total, tc.unit, i, l, tc.unit)
			}
		}
		if sum != tc.total {
			t.Errorf("partition(%d, %d): lengths sum to %d", tc.total, tc.unit, sum)
		}
	}
}

func TestGuardInterval_SymbolDuration(t *testing.T) {
	tests := []struct {
		guard GuardInterval
		want  time.Duration
	}{
		{GuardShort, 13600 * time.Nanosecond},
		{GuardMedium, 14400 * time.Nanosecond},
		{GuardLong, 16 * time.Microsecond},
	}

	for _, tc := range tests {
		got, err := tc.guard.SymbolDuration()
		if err != nil {
			t.Fatalf("SymbolDuration(%s) failed: %v", tc.guard, err)
		}
		if got != tc.want {
			t.Errorf("SymbolDuration(%s) = %s, want %s", tc.guard, got, tc.want)
		}
	}

	if _, err := GuardInterval("GD99").SymbolDuration(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for unknown guard interval, got %v", err)
	}
}

func TestPlanCapture(t *testing.T) {
	t.Run("within ceiling", func(t *testing.T) {
		window, err := PlanCapture(10*time.Millisecond, 10*time.Millisecond)
		if err != nil {
			t.Fatalf("PlanCapture failed: %v", err)
		}
		if window.Duration != 80*time.Millisecond {
			t.Errorf("Duration = %s, want 80ms", window.Duration)
		}
		if window.Capped {
			t.Error("Window should not be capped")
		}
	})

	t.Run("capped at ceiling", func(t *testing.T) {
		window, err := PlanCapture(200*time.Millisecond, 100*time.Millisecond)
		if err != nil {
			t.Fatalf("PlanCapture failed: %v", err)
		}
		if window.Duration != time.Second {
			t.Errorf("Duration = %s, want 1s", window.Duration)
		}
		if !window.Capped {
			t.Error("Window should be flagged as capped")
		}
	})

	t.Run("negative input", func(t *testing.T) {
		if _, err := PlanCapture(-time.Millisecond, 0); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("Expected ErrInvalidParameter, got %v", err)
		}
	})
}
