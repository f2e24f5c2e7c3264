package scpi

import (
	"io"
	"log/slog"
	"time"
)

const (
	// esrOperationComplete is bit 0 of the event status register, raised
	// once every command issued before *OPC has finished executing.
	esrOperationComplete = 1

	// DefaultPollInterval paces the *ESR? polling loop so the channel is
	// not flooded while a slow configuration settles.
	DefaultPollInterval = 200 * time.Millisecond

	// DefaultOPCTimeout bounds the wall-clock window for a single
	// synchronized command.
	DefaultOPCTimeout = 10 * time.Second
)

// WithPollInterval sets the delay between completion polls.
func WithPollInterval(d time.Duration) func(*Executor) {
	return func(e *Executor) {
		e.pollInterval = d
	}
}

// WithTimeout sets the completion deadline per command.
func WithTimeout(d time.Duration) func(*Executor) {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithLogger sets the logger for the executor.
func WithLogger(logger *slog.Logger) func(*Executor) {
	return func(e *Executor) {
		e.logger = logger
	}
}

// Executor issues state-changing commands with operation-complete
// synchronization. Instrument configuration is not atomic and dependent
// settings must apply in order, so every write is confirmed before the
// next one goes out. The instrument offers no event delivery; polling
// the status register is the only synchronization there is.
type Executor struct {
	ch Channel

	pollInterval time.Duration
	timeout      time.Duration
	logger       *slog.Logger
}

// NewExecutor creates an Executor on top of a command channel.
func NewExecutor(ch Channel, options ...func(*Executor)) *Executor {
	e := Executor{
		ch:           ch,
		pollInterval: DefaultPollInterval,
		timeout:      DefaultOPCTimeout,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&e)
	}

	return &e
}

// Arm enables operation-complete reporting in the event status and
// service request registers. Called once per session after connect.
func (e *Executor) Arm() error {
	if err := e.ch.Send("*ESE 1"); err != nil {
		return err
	}
	return e.ch.Send("*SRE 32")
}

// Exec sends a command tagged with *OPC as one atomic write, then polls
// the event status register until the completion bit is set. Transport
// failures propagate immediately; a completion bit that never rises
// within the window yields a TimeoutError naming the command.
func (e *Executor) Exec(cmd string) error {
	if err := e.ch.Send(cmd + ";*OPC"); err != nil {
		return err
	}

	deadline := time.Now().Add(e.timeout)
	for {
		esr, err := queryInt(e.ch, "*ESR?")
		if err != nil {
			return err
		}
		if esr&esrOperationComplete == esrOperationComplete {
			e.logger.Debug("command completed", slog.String("cmd", cmd))
			return nil
		}

		if time.Now().After(deadline) {
			return &TimeoutError{Cmd: cmd, Timeout: e.timeout}
		}
		time.Sleep(e.pollInterval)
	}
}

// Query forwards a read-only query. Queries have no side effects that
// need confirmation, so no handshake is involved.
func (e *Executor) Query(cmd string) (string, error) {
	return e.ch.Query(cmd)
}

// QueryInt forwards a read-only integer query.
func (e *Executor) QueryInt(cmd string) (int, error) {
	return queryInt(e.ch, cmd)
}

// QueryFloat forwards a read-only float query.
func (e *Executor) QueryFloat(cmd string) (float64, error) {
	return queryFloat(e.ch, cmd)
}

// Send forwards an unsynchronized write. Reserved for commands that do
// not change device state ordering, such as per-unit data fills between
// two synchronized writes.
func (e *Executor) Send(cmd string) error {
	return e.ch.Send(cmd)
}
