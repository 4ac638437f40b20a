package logx

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormatLine(t *testing.T) {
	t.Parallel()
	got := FormatLine([]byte(`{"level":"warn","time":"x","message":"send failed","status":401,"comp":"sender"}`))
	want := "[WARN] send failed\n- comp=sender\n- status=401"
	if got != want {
		t.Fatalf("FormatLine = %q, want %q", got, want)
	}
}

func TestFormatLineNonJSON(t *testing.T) {
	t.Parallel()
	if got := FormatLine([]byte("  plain text \n")); got != "plain text" {
		t.Fatalf("FormatLine = %q", got)
	}
}

func TestFormatLineTruncates(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("a", maxLineLen+100)
	got := FormatLine([]byte(long))
	if len(got) != maxLineLen || !strings.HasSuffix(got, "...") {
		t.Fatalf("len = %d, suffix ok = %v", len(got), strings.HasSuffix(got, "..."))
	}
}

func TestLoggerWithFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("comp", "relay"))
	log.Debug("hello", Int("n", 3))
	out := buf.String()
	for _, want := range []string{`"comp":"relay"`, `"n":3`, `"message":"hello"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %s", out, want)
		}
	}
}

func TestNopLoggerIsSilent(t *testing.T) {
	t.Parallel()
	var zero Logger
	if !zero.IsZero() {
		t.Fatal("zero Logger should report IsZero")
	}
	zero.Info("ignored")
	if Nop().IsZero() {
		t.Fatal("Nop logger should not be zero")
	}
}
