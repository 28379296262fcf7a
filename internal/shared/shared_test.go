package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestFormatDuration(t *testing.T) {
	seconds := func(f float64) *float64 { return &f }

	tc := []struct {
		name    string
		seconds *float64
		want    string
	}{
		{name: "absent", seconds: nil, want: "--:--"},
		{name: "negative", seconds: seconds(-1), want: "--:--"},
		{name: "zero", seconds: seconds(0), want: "0:00"},
		{name: "minutes", seconds: seconds(215), want: "3:35"},
		{name: "rounds fractional", seconds: seconds(59.6), want: "1:00"},
		{name: "hours", seconds: seconds(3725), want: "1:02:05"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.seconds); got != tt.want {
				t.Errorf("FormatDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	SetLogLevel(logger, log.DebugLevel)

	WithLogger(logger, "playlist", "abc").Debug("merging")

	out := buf.String()
	if !strings.Contains(out, "merging") || !strings.Contains(out, "playlist=abc") {
		t.Errorf("expected log line with message and key, got %q", out)
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("expected unique non-empty IDs, got %q and %q", a, b)
	}
}
