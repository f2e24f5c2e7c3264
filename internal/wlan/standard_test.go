package wlan

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestTranslator_RoundTrip(t *testing.T) {
	tr := NewTranslator(nil)

	for _, token := range StandardTokens() {
		std, ok := tr.Lookup(token)
		if !ok {
			t.Fatalf("Lookup(%q) missed its own token", token)
		}
		if got := tr.Directive(token); got != std.Directive {
			t.Errorf("Directive(%q) = %q, want %q", token, got, std.Directive)
		}
		if got := tr.Description(token); got != std.Description {
			t.Errorf("Description(%q) = %q, want %q", token, got, std.Description)
		}
	}
}

func TestTranslator_CaseInsensitive(t *testing.T) {
	tr := NewTranslator(nil)

	tests := []struct {
		token string
		want  string
	}{
		{"wbe", ":CONF:STAN 11"},
		{"Wax", ":CONF:STAN 10"},
		{" ac ", ":CONF:STAN 8"},
		{"n_mimo", ":CONF:STAN 7"},
	}

	for _, tc := range tests {
		if got := tr.Directive(tc.token); got != tc.want {
			t.Errorf("Directive(%q) = %q, want %q", tc.token, got, tc.want)
		}
	}
}

func TestTranslator_UnknownTokenDefaults(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTranslator(slog.New(slog.NewTextHandler(&buf, nil)))

	if got := tr.Directive("WXY"); got != ":CONF:STAN 11" {
		t.Errorf("Directive(WXY) = %q, want default 802.11be directive", got)
	}
	if got := tr.Description("WXY"); got != "IEEE 802.11be (default)" {
		t.Errorf("Description(WXY) = %q, want default description", got)
	}
	if !strings.Contains(buf.String(), "unknown WLAN standard") {
		t.Error("Expected a warning for the unknown token")
	}
}
