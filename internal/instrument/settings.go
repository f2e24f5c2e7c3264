package instrument

import "time"

// GeneratorSettings is a read-only snapshot of the generator state,
// pulled live on every read and never cached. Frame duration and idle
// time are converted from the instrument's milliseconds at the query
// boundary.
type GeneratorSettings struct {
	Frequency     float64 // Hz
	Power         float64 // dBm
	OutputEnabled bool
	WLANEnabled   bool
	Standard      string
	Bandwidth     string
	MCS           string
	GuardInterval string
	FrameDuration time.Duration
	IdleTime      time.Duration
}
