// Package instrument manages the lifecycle of a single SCPI instrument
// session: identity, synchronized command execution and teardown. The
// smw and fsw subpackages put the session to work for the two
// instrument roles.
package instrument

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rfbench/wlanbench/internal/scpi"
)

// WithLogger sets the diagnostics sink for the session and its
// executor.
func WithLogger(logger *slog.Logger) func(*Session) {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithExecutorOptions forwards options to the session's executor,
// mainly to shorten polling in tests.
func WithExecutorOptions(options ...func(*scpi.Executor)) func(*Session) {
	return func(s *Session) {
		s.execOptions = append(s.execOptions, options...)
	}
}

// Session is an exclusive connection to one physical instrument. At
// most one Session per instrument; all operations are serialized by the
// caller.
type Session struct {
	Address      string
	Manufacturer string
	Model        string
	Serial       string

	ch   scpi.Channel
	exec *scpi.Executor

	execOptions []func(*scpi.Executor)
	logger      *slog.Logger
}

// Open dials the instrument at a VISA resource address and identifies
// it.
func Open(resource string, timeout time.Duration, options ...func(*Session)) (*Session, error) {
	conn, err := scpi.Dial(resource, timeout)
	if err != nil {
		return nil, err
	}

	s, err := NewSession(resource, conn, options...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// NewSession builds a session on an already connected channel,
// identifies the instrument and arms operation-complete reporting.
func NewSession(resource string, ch scpi.Channel, options ...func(*Session)) (*Session, error) {
	s := Session{
		Address: resource,
		ch:      ch,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}
	s.exec = scpi.NewExecutor(ch, append(s.execOptions, scpi.WithLogger(s.logger))...)

	idn, err := ch.Query("*IDN?")
	if err != nil {
		return nil, err
	}

	fields := strings.Split(idn, ",")
	if len(fields) < 3 {
		return nil, &scpi.TransportError{Cmd: "*IDN?", Err: fmt.Errorf("unexpected identity %q", idn)}
	}
	s.Manufacturer = strings.TrimSpace(fields[0])
	s.Model = strings.TrimSpace(fields[1])
	s.Serial = strings.TrimSpace(fields[2])

	if err := s.exec.Arm(); err != nil {
		return nil, err
	}

	s.logger.Info("instrument connected",
		slog.String("manufacturer", s.Manufacturer),
		slog.String("model", s.Model),
		slog.String("serial", s.Serial))

	return &s, nil
}

// Exec issues a state-changing command through the completion
// synchronized executor.
func (s *Session) Exec(cmd string) error {
	return s.exec.Exec(cmd)
}

// Send issues an unsynchronized write.
func (s *Session) Send(cmd string) error {
	return s.exec.Send(cmd)
}

// Query issues a read-only query.
func (s *Session) Query(cmd string) (string, error) {
	return s.exec.Query(cmd)
}

// QueryInt issues a read-only integer query.
func (s *Session) QueryInt(cmd string) (int, error) {
	return s.exec.QueryInt(cmd)
}

// QueryFloat issues a read-only float query.
func (s *Session) QueryFloat(cmd string) (float64, error) {
	return s.exec.QueryFloat(cmd)
}

// Logger returns the session's diagnostics sink.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Close tears the connection down. Safe to call more than once.
func (s *Session) Close() error {
	if s.ch == nil {
		return nil
	}

	err := s.ch.Close()
	s.ch = nil
	return err
}
