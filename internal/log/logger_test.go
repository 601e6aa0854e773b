package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "warning": slog.LevelWarn,
		"error": slog.LevelError, "": slog.LevelInfo, "verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStructuredLoggerRecords(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})
	sl := NewStructuredLogger(l)

	sl.LogTallied(context.Background(), "42", "Kayak Rentals", "Oct 2025", "Single", 5, 3)
	out := buf.String()
	for _, want := range []string{"Booking tallied", "delivery_id=42", "month=\"Oct 2025\"", "row=5", "count=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}

	buf.Reset()
	sl.LogRejected(context.Background(), "43", "Boat Tours", "item not tracked", errors.New("item not tracked"))
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "reason=\"item not tracked\"") {
		t.Errorf("unexpected rejection record: %s", buf.String())
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != ComponentApp {
		t.Fatalf("unexpected fallback logger %+v", l)
	}
	l := New(DefaultConfig()).WithComponent(ComponentWebhook)
	if got := FromContext(NewContext(context.Background(), l)); got != l {
		t.Fatalf("logger not carried by context")
	}
}
