// Package scpi implements the command channel and the completion
// synchronized executor for SCPI instruments on raw TCP sockets.
package scpi

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPort is the raw SCPI socket port used by R&S and Keysight
	// instruments alike.
	DefaultPort = "5025"

	// DefaultTimeout bounds a single send or query on the wire.
	DefaultTimeout = 10 * time.Second
)

// Channel is a request/response text channel to an instrument. Commands
// follow the SCPI grammar (hierarchical, colon-delimited, '?' marks a
// query). Implementations do not retry; retries belong to the caller.
type Channel interface {
	// Send writes a command. No reply is read.
	Send(cmd string) error

	// Query writes a command and returns the reply with line
	// terminators trimmed.
	Query(cmd string) (string, error)

	// QueryInt queries and parses the reply as an integer.
	QueryInt(cmd string) (int, error)

	// QueryFloat queries and parses the reply as a float.
	QueryFloat(cmd string) (float64, error)

	Close() error
}

// Conn is a Channel over a raw TCP socket. A single in-flight operation
// at a time; the caller serializes access.
type Conn struct {
	addr    string
	timeout time.Duration

	conn   net.Conn
	reader *bufio.Reader
}

// ResolveResource converts a VISA resource string, for example
// "TCPIP::192.168.200.20::INSTR" or "TCPIP::192.168.200.10::hislip0",
// to a host:port dial target. Plain "host" and "host:port" forms pass
// through.
func ResolveResource(resource string) string {
	if strings.Contains(resource, "::") {
		parts := strings.Split(resource, "::")
		if len(parts) >= 2 && parts[1] != "" {
			return net.JoinHostPort(parts[1], DefaultPort)
		}
	}
	if _, _, err := net.SplitHostPort(resource); err == nil {
		return resource
	}
	return net.JoinHostPort(resource, DefaultPort)
}

// Dial connects the command channel. A non-positive timeout selects
// DefaultTimeout.
func Dial(resource string, timeout time.Duration) (*Conn, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	addr := ResolveResource(resource)
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("connecting to %s: %w", addr, err)}
	}

	return &Conn{
		addr:    addr,
		timeout: timeout,
		conn:    conn,
		reader:  bufio.NewReader(conn),
	}, nil
}

func (c *Conn) Send(cmd string) error {
	if c.conn == nil {
		return &TransportError{Cmd: cmd, Err: fmt.Errorf("connection closed")}
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return &TransportError{Cmd: cmd, Err: err}
	}
	if _, err := c.conn.Write([]byte(cmd + "\n")); err != nil {
		return &TransportError{Cmd: cmd, Err: err}
	}
	return nil
}

func (c *Conn) Query(cmd string) (string, error) {
	if err := c.Send(cmd); err != nil {
		return "", err
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", &TransportError{Cmd: cmd, Err: err}
	}
	reply, err := c.reader.ReadString('\n')
	if err != nil {
		return "", &TransportError{Cmd: cmd, Err: fmt.Errorf("reading reply: %w", err)}
	}

	return strings.TrimRight(reply, "\r\n"), nil
}

func (c *Conn) QueryInt(cmd string) (int, error) {
	return queryInt(c, cmd)
}

func (c *Conn) QueryFloat(cmd string) (float64, error) {
	return queryFloat(c, cmd)
}

func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

// queryInt and queryFloat implement the numeric queries on top of any
// Channel. A reply the protocol cannot parse is a transport failure:
// the device returned something unexpected.
func queryInt(ch Channel, cmd string) (int, error) {
	reply, err := ch.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return 0, &TransportError{Cmd: cmd, Err: fmt.Errorf("unexpected reply %q: %w", reply, err)}
	}
	return v, nil
}

func queryFloat(ch Channel, cmd string) (float64, error) {
	reply, err := ch.Query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, &TransportError{Cmd: cmd, Err: fmt.Errorf("unexpected reply %q: %w", reply, err)}
	}
	return v, nil
}
