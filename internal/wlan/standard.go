// Package wlan holds the pure WLAN domain logic: the standard
// translation table and the burst/capture timing planner. Nothing here
// talks to an instrument.
package wlan

import (
	"io"
	"log/slog"
	"strings"
)

// Standard is one entry of the closed generator-token to analyzer
// configuration mapping.
type Standard struct {
	Directive   string // analyzer configuration directive
	Description string // human-readable name
}

// DefaultStandard is the fallback for unrecognized tokens, 802.11be.
const DefaultStandard = "WBE"

const defaultDescription = "IEEE 802.11be (default)"

// standards maps generator standard tokens to analyzer directives.
// Static, process-wide, never mutated after initialization.
var standards = map[string]Standard{
	"WAX":    {":CONF:STAN 10", "IEEE 802.11ax"},
	"WBE":    {":CONF:STAN 11", "IEEE 802.11be"},
	"A":      {":CONF:STAN 0", "IEEE 802.11a"},
	"B":      {":CONF:STAN 1", "IEEE 802.11b"},
	"J10":    {":CONF:STAN 2", "IEEE 802.11j (10 MHz)"},
	"J20":    {":CONF:STAN 3", "IEEE 802.11j (20 MHz)"},
	"G":      {":CONF:STAN 4", "IEEE 802.11g"},
	"N":      {":CONF:STAN 6", "IEEE 802.11n"},
	"N_MIMO": {":CONF:STAN 7", "IEEE 802.11n (MIMO)"},
	"AC":     {":CONF:STAN 8", "IEEE 802.11ac"},
	"P":      {":CONF:STAN 9", "IEEE 802.11p"},
}

// StandardTokens returns every known generator token.
func StandardTokens() []string {
	tokens := make([]string, 0, len(standards))
	for token := range standards {
		tokens = append(tokens, token)
	}
	return tokens
}

// Translator resolves generator standard tokens to analyzer directives
// and descriptions. Lookups are case-insensitive and never fail: an
// unknown token resolves to the default standard with a logged warning.
type Translator struct {
	logger *slog.Logger
}

// NewTranslator creates a Translator with the given diagnostics sink.
// A nil logger discards warnings.
func NewTranslator(logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Translator{logger: logger}
}

// Lookup returns the mapping entry for a token and whether it is part
// of the closed set.
func (t *Translator) Lookup(token string) (Standard, bool) {
	std, ok := standards[strings.ToUpper(strings.TrimSpace(token))]
	return std, ok
}

// Directive returns the analyzer configuration directive for a token,
// falling back to the default standard on a miss.
func (t *Translator) Directive(token string) string {
	if std, ok := t.Lookup(token); ok {
		return std.Directive
	}

	t.logger.Warn("unknown WLAN standard, using default",
		slog.String("standard", token),
		slog.String("default", DefaultStandard))
	return standards[DefaultStandard].Directive
}

// Description returns the human-readable name for a token, falling back
// to the default description on a miss.
func (t *Translator) Description(token string) string {
	if std, ok := t.Lookup(token); ok {
		return std.Description
	}
	return defaultDescription
}
