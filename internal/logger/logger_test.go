package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", false)

	log.Info("hidden")
	log.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatal("info line emitted at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Fatal("warn line missing")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestColorHandlerWrapsLine(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", true)

	log.Error("boom")
	out := buf.String()
	if !strings.HasPrefix(out, "\033[31m") {
		t.Fatalf("error line missing leading red escape: %q", out)
	}
	if !strings.HasSuffix(out, "\033[0m\n") {
		t.Fatalf("error line missing trailing reset: %q", out)
	}
	if !strings.Contains(out, "msg=boom") {
		t.Fatalf("message missing: %q", out)
	}
	// The escape bytes must stay raw, not get quoted into msg="\x1b...".
	if strings.Contains(out, `\x1b`) {
		t.Fatalf("escape bytes were quoted as text: %q", out)
	}
}

func TestColorHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", true).With("sidecar", "web")

	log.Warn("slow start")
	out := buf.String()
	if !strings.HasPrefix(out, "\033[33m") {
		t.Fatalf("warn line missing yellow escape: %q", out)
	}
	if !strings.Contains(out, "sidecar=web") {
		t.Fatalf("attr missing from derived logger: %q", out)
	}
}
