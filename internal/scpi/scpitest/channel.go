// Package scpitest provides a scripted in-memory command channel for
// driver and executor tests.
package scpitest

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rfbench/wlanbench/internal/scpi"
)

// Channel is a scripted scpi.Channel. Queries are answered from a
// per-command reply queue first, then from a steady-state reply table.
// Every write is recorded for later assertion.
type Channel struct {
	mu sync.Mutex

	sent    []string
	queued  map[string][]string
	replies map[string]string

	sendErr  map[string]error
	queryErr map[string]error

	closed bool
}

func New() *Channel {
	return &Channel{
		queued:   make(map[string][]string),
		replies:  make(map[string]string),
		sendErr:  make(map[string]error),
		queryErr: make(map[string]error),
	}
}

// Reply sets the steady-state reply for a query command.
func (c *Channel) Reply(cmd, reply string) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies[cmd] = reply
	return c
}

// Enqueue queues one-shot replies for a query command, consumed in
// order before the steady-state reply applies.
func (c *Channel) Enqueue(cmd string, replies ...string) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queued[cmd] = append(c.queued[cmd], replies...)
	return c
}

// FailSend makes Send fail for the given command.
func (c *Channel) FailSend(cmd string, err error) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr[cmd] = err
	return c
}

// FailQuery makes Query fail for the given command.
func (c *Channel) FailQuery(cmd string, err error) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queryErr[cmd] = err
	return c
}

// Sent returns a copy of all commands written so far, queries included.
func (c *Channel) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel) Send(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, cmd)
	if err := c.sendErr[cmd]; err != nil {
		return &scpi.TransportError{Cmd: cmd, Err: err}
	}
	return nil
}

func (c *Channel) Query(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, cmd)
	if err := c.queryErr[cmd]; err != nil {
		return "", &scpi.TransportError{Cmd: cmd, Err: err}
	}

	if q := c.queued[cmd]; len(q) > 0 {
		reply := q[0]
		c.queued[cmd] = q[1:]
		return reply, nil
	}
	if reply, ok := c.replies[cmd]; ok {
		return reply, nil
	}
	return "", &scpi.TransportError{Cmd: cmd, Err: fmt.Errorf("no scripted reply")}
}

func (c *Channel) QueryInt(cmd string) (int, error) {
	reply, err := c.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return 0, &scpi.TransportError{Cmd: cmd, Err: fmt.Errorf("unexpected reply %q: %w", reply, err)}
	}
	return v, nil
}

func (c *Channel) QueryFloat(cmd string) (float64, error) {
	reply, err := c.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, &scpi.TransportError{Cmd: cmd, Err: fmt.Errorf("unexpected reply %q: %w", reply, err)}
	}
	return v, nil
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
