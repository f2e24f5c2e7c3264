package fsw_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/rfbench/wlanbench/internal/instrument"
	"github.com/rfbench/wlanbench/internal/instrument/fsw"
	"github.com/rfbench/wlanbench/internal/instrument/smw"
	"github.com/rfbench/wlanbench/internal/scpi/scpitest"
)

func newTestAnalyzer(t *testing.T, ch *scpitest.Channel, options ...func(*fsw.Analyzer)) *fsw.Analyzer {
	t.Helper()

	ch.Reply("*IDN?", "Rohde&Schwarz,FSW-26,1312.8000K26/100001,5.30").
		Reply("*ESR?", "1")

	s, err := instrument.NewSession("TCPIP::192.168.200.20::hislip0", ch)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	return fsw.New(s, options...)
}

func newTestPeer(t *testing.T, ch *scpitest.Channel) *smw.Generator {
	t.Helper()

	ch.Reply("*IDN?", "Rohde&Schwarz,SMW200A,1412.0000K02/100001,5.30.047").
		Reply("*ESR?", "1")

	s, err := instrument.NewSession("TCPIP::192.168.200.10::hislip0", ch)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	return smw.New(s, smw.WithSettle(0))
}

// commandsAfterArm strips the session handshake and the completion
// polls, leaving only what the driver itself issued.
func commandsAfterArm(ch *scpitest.Channel) []string {
	var cmds []string
	for _, cmd := range ch.Sent()[3:] {
		if cmd == "*ESR?" {
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func TestAnalyzer_SetupWLANApp(t *testing.T) {
	genCh := scpitest.New().
		Reply("SOURce1:BB:WLNN:FBLock1:DATA:FDURation?", "4").
		Reply("SOURce1:BB:WLNN:FBLock1:ITIMe?", "4")
	gen := newTestPeer(t, genCh)

	ch := scpitest.New()
	a := newTestAnalyzer(t, ch, fsw.WithGenerator(gen))

	if err := a.SetupWLANApp("WBE"); err != nil {
		t.Fatalf("SetupWLANApp failed: %v", err)
	}

	want := []string{
		"INST:CRE:NEW WLAN, 'WLAN';*OPC",
		"CONF:STAN 11;*OPC",
		"CONF:POW:AUTO ONCE;*OPC",
		"INP:GAIN:STAT OFF;*OPC",
		"TRIG:SEQ:SOUR EXT;*OPC",
		"SENS:SWE:TIME 0.032;*OPC",
	}
	got := commandsAfterArm(ch)
	if len(got) != len(want) {
		t.Fatalf("Sent %d commands, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Command %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAnalyzer_SetupWLANApp_CappedCapture(t *testing.T) {
	genCh := scpitest.New().
		Reply("SOURce1:BB:WLNN:FBLock1:DATA:FDURation?", "200").
		Reply("SOURce1:BB:WLNN:FBLock1:ITIMe?", "100")
	gen := newTestPeer(t, genCh)

	var log bytes.Buffer
	ch := scpitest.New().
		Reply("*IDN?", "Rohde&Schwarz,FSW-26,1312.8000K26/100001,5.30").
		Reply("*ESR?", "1")

	s, err := instrument.NewSession("addr", ch,
		instrument.WithLogger(slog.New(slog.NewTextHandler(&log, nil))))
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	a := fsw.New(s, fsw.WithGenerator(gen))

	if err := a.SetupWLANApp("WBE"); err != nil {
		t.Fatalf("SetupWLANApp failed: %v", err)
	}

	got := commandsAfterArm(ch)
	if got[len(got)-1] != "SENS:SWE:TIME 1;*OPC" {
		t.Errorf("Capture time command = %q, want capped at 1s", got[len(got)-1])
	}
	if !strings.Contains(log.String(), "capture window capped") {
		t.Errorf("Expected capped capture warning, log:\n%s", log.String())
	}
}

func TestAnalyzer_SetupWLANApp_NoGenerator(t *testing.T) {
	ch := scpitest.New()
	a := newTestAnalyzer(t, ch)

	if err := a.SetupWLANApp("WAX"); err != nil {
		t.Fatalf("SetupWLANApp failed: %v", err)
	}

	for _, cmd := range commandsAfterArm(ch) {
		if strings.HasPrefix(cmd, "SENS:SWE:TIME") {
			t.Errorf("Capture time must stay untouched without a generator, sent %q", cmd)
		}
	}
}

func TestAnalyzer_SyncWithGenerator(t *testing.T) {
	genCh := scpitest.New().
		Reply("FREQ:CW?", "6000000000").
		Reply("SOURce1:POW:LEV:IMM:AMPL?", "-10").
		Reply("OUTPut1:STATe?", "1").
		Reply("SOURce1:BB:WLNN:STATe?", "1").
		Reply("SOURce1:BB:WLNN:FBLOck1:STANdard?", "WBE").
		Reply("SOURce1:BB:WLNN:BWidth?", "BW320").
		Reply("SOURce1:BB:WLNN:FBLOck1:USER1:MCS?", "MCS13").
		Reply("SOURce1:BB:WLNN:FBLOck1:GUARd?", "GD08").
		Reply("SOURce1:BB:WLNN:FBLock1:DATA:FDURation?", "4").
		Reply("SOURce1:BB:WLNN:FBLock1:ITIMe?", "4")
	gen := newTestPeer(t, genCh)

	ch := scpitest.New()
	a := newTestAnalyzer(t, ch)
	a.LinkGenerator(gen)

	if err := a.SyncWithGenerator(); err != nil {
		t.Fatalf("SyncWithGenerator failed: %v", err)
	}

	want := []string{
		"FREQ:CENT 6000000000;*OPC",
		"CONF:STAN 11;*OPC",
	}
	got := commandsAfterArm(ch)
	if len(got) != len(want) {
		t.Fatalf("Sent %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Command %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAnalyzer_SyncWithoutGenerator(t *testing.T) {
	a := newTestAnalyzer(t, scpitest.New())

	if err := a.SyncWithGenerator(); !errors.Is(err, fsw.ErrNoGenerator) {
		t.Fatalf("Expected ErrNoGenerator, got %v", err)
	}
}

func TestAnalyzer_ExtractSettingsWithoutGenerator(t *testing.T) {
	a := newTestAnalyzer(t, scpitest.New())

	settings, err := a.ExtractSettings()
	if err != nil {
		t.Fatalf("ExtractSettings failed: %v", err)
	}
	if settings != nil {
		t.Errorf("Expected absent snapshot, got %+v", settings)
	}
}

func TestAnalyzer_FetchTrace(t *testing.T) {
	ch := scpitest.New().
		Reply("TRAC:DATA? TRACE1", "-50.1,-60.2,-55.3").
		Reply("FREQ:STARt?", "5000000000").
		Reply("FREQ:STOP?", "5160000000")
	a := newTestAnalyzer(t, ch)

	span, err := a.FetchTrace()
	if err != nil {
		t.Fatalf("FetchTrace failed: %v", err)
	}

	if len(span.Points) != 3 {
		t.Fatalf("Got %d points, want 3", len(span.Points))
	}
	if span.FrequencyStart != 5e9 || span.FrequencyEnd != 5.16e9 {
		t.Errorf("Span range = [%v, %v]", span.FrequencyStart, span.FrequencyEnd)
	}
	if span.BinWidth() != 80e6 {
		t.Errorf("BinWidth = %v, want 80 MHz", span.BinWidth())
	}
	if span.Points[1].Frequency != 5.08e9 {
		t.Errorf("Points[1].Frequency = %v, want 5.08 GHz", span.Points[1].Frequency)
	}
	if span.Points[2].Power == nil || *span.Points[2].Power != -55.3 {
		t.Errorf("Points[2].Power = %v, want -55.3", span.Points[2].Power)
	}
}
