package app

import (
	"math"
	"time"

	"github.com/rfbench/wlanbench/internal/trace"
)

const (
	defaultMinPower = -120.0 // dBm
	defaultMaxPower = -20.0  // dBm

	boundsMargin = 0.1 // fraction of the observed range added on each side
)

// PowerBounds is the power range mapped onto the color scale.
type PowerBounds struct {
	Min float64 // dBm
	Max float64 // dBm
}

func defaultPowerBounds() PowerBounds {
	return PowerBounds{Min: defaultMinPower, Max: defaultMaxPower}
}

// PlotData accumulates trace sweeps into the waterfall layout: one row
// per sweep, one column per frequency bin, power mapped to color.
type PlotData struct {
	Width, Height                int
	FrequencyMin, FrequencyMax   float64
	TimestampStart, TimestampEnd time.Time

	Rows       [][]*float64
	Timestamps []time.Time // capture time per row

	powerMin, powerMax float64
	sampleCount        int
}

func NewPlotData() *PlotData {
	return &PlotData{
		FrequencyMin: math.MaxFloat64,
		powerMin:     math.MaxFloat64,
		powerMax:     -math.MaxFloat64,
	}
}

func (p *PlotData) Update(span *trace.Span) {
	p.Width = max(p.Width, len(span.Points))
	p.Height++

	p.FrequencyMin = min(p.FrequencyMin, span.FrequencyStart)
	p.FrequencyMax = max(p.FrequencyMax, span.FrequencyEnd)

	if p.TimestampStart.IsZero() || p.TimestampStart.After(span.Timestamp) {
		p.TimestampStart = span.Timestamp
	}
	if p.TimestampEnd.IsZero() || p.TimestampEnd.Before(span.Timestamp) {
		p.TimestampEnd = span.Timestamp
	}

	powers := make([]*float64, len(span.Points))
	for i, point := range span.Points {
		powers[i] = point.Power
		if point.Power != nil {
			p.powerMin = min(p.powerMin, *point.Power)
			p.powerMax = max(p.powerMax, *point.Power)
			p.sampleCount++
		}
	}
	p.Rows = append(p.Rows, powers)
	p.Timestamps = append(p.Timestamps, span.Timestamp)
}

// Bounds returns the observed power range widened by a margin, or the
// defaults when too little valid data was seen.
func (p *PlotData) Bounds() PowerBounds {
	if p.sampleCount == 0 || p.powerMax <= p.powerMin {
		return defaultPowerBounds()
	}

	margin := (p.powerMax - p.powerMin) * boundsMargin
	return PowerBounds{
		Min: p.powerMin - margin,
		Max: p.powerMax + margin,
	}
}
