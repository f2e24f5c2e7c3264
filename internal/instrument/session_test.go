package instrument_test

import (
	"errors"
	"testing"

	"github.com/rfbench/wlanbench/internal/instrument"
	"github.com/rfbench/wlanbench/internal/scpi"
	"github.com/rfbench/wlanbench/internal/scpi/scpitest"
)

func TestNewSession_Identity(t *testing.T) {
	ch := scpitest.New().Reply("*IDN?", "Rohde&Schwarz,SMW200A,1412.0000K02/105578,5.30.047")

	s, err := instrument.NewSession("TCPIP::192.168.200.10::hislip0", ch)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	if s.Manufacturer != "Rohde&Schwarz" {
		t.Errorf("Manufacturer = %q", s.Manufacturer)
	}
	if s.Model != "SMW200A" {
		t.Errorf("Model = %q", s.Model)
	}
	if s.Serial != "1412.0000K02/105578" {
		t.Errorf("Serial = %q", s.Serial)
	}

	sent := ch.Sent()
	if len(sent) != 3 || sent[0] != "*IDN?" || sent[1] != "*ESE 1" || sent[2] != "*SRE 32" {
		t.Errorf("Expected identify then arm, got %v", sent)
	}
}

func TestNewSession_MalformedIdentity(t *testing.T) {
	ch := scpitest.New().Reply("*IDN?", "garbage")

	_, err := instrument.NewSession("addr", ch)
	var transportErr *scpi.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	ch := scpitest.New().Reply("*IDN?", "Rohde&Schwarz,FSW-26,100001,3.20")

	s, err := instrument.NewSession("addr", ch)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !ch.Closed() {
		t.Error("Channel should be closed")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}
}
