package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "info", want: slog.LevelInfo},
		{in: " DEBUG ", want: slog.LevelDebug},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if !tc.wantErr && got != tc.want {
				t.Fatalf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, LevelWarn)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Info("hidden")
	log.Warn("shown", "device", "leaf1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line logged at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=shown device=leaf1") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestNewDebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, LevelDebug)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Debug("wired link")
	if !strings.Contains(buf.String(), "source=") {
		t.Fatalf("debug line without source: %q", buf.String())
	}
}
