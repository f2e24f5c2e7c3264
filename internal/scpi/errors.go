package scpi

import (
	"fmt"
	"time"
)

// TransportError reports a failure on the command channel: the link is
// down, the device rejected the write, or a reply could not be parsed.
// It is never retried at this layer.
type TransportError struct {
	Cmd string
	Err error
}

func (e *TransportError) Error() string {
	if e.Cmd == "" {
		return fmt.Sprintf("scpi: transport failure: %s", e.Err)
	}
	return fmt.Sprintf("scpi: transport failure on %q: %s", e.Cmd, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the operation-complete bit was never raised
// within the synchronization window for the named command.
type TimeoutError struct {
	Cmd     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("scpi: operation complete timeout after %s for %q", e.Timeout, e.Cmd)
}
