package logger

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestComponentLoggersUsableBeforeInit(t *testing.T) {
	for name, l := range map[string]*slog.Logger{
		"L": L, "DB": DB, "MIG": MIG, "BOT": BOT, "WIRE": WIRE,
		"ORD": ORD, "ACT": ACT, "API": API, "NOTIF": NOTIF,
	} {
		if l == nil {
			t.Fatalf("%s logger is nil before Init", name)
		}
	}
	// Must not panic without Init having run.
	ORD.InfoContext(context.Background(), "order.created", slog.String("order_id", "x"))
}

func TestBuildAndCompactRID(t *testing.T) {
	rid := BuildRID(42, 100200, 7)
	if rid != "42:100200:7" {
		t.Fatalf("unexpected rid: %s", rid)
	}
	compact := CompactRID(rid)
	if compact == rid {
		t.Fatalf("expected compacted rid, got %s", compact)
	}
	if CompactRID("not-a-rid") != "not-a-rid" {
		t.Fatal("malformed rid must pass through unchanged")
	}
}

func TestSanitizeLimit(t *testing.T) {
	in := "hello\x00world\x1b[0m"
	out := SanitizeLimit(in, 8)
	if out != "hellowor" {
		t.Fatalf("unexpected sanitized value: %q", out)
	}
	if SanitizeLimit("abc", 0) != "" {
		t.Fatal("zero limit must yield empty string")
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	allowed := 0
	for i := 0; i < 9; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("expected 3 of 9 samples, got %d", allowed)
	}

	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must allow everything")
	}
}

func TestParseDebugSample(t *testing.T) {
	num, den := parseDebugSample("")
	if num != 1 || den != 50 {
		t.Fatalf("default sample = %d/%d", num, den)
	}
	num, den = parseDebugSample("2/5")
	if num != 2 || den != 5 {
		t.Fatalf("ratio sample = %d/%d", num, den)
	}
	num, den = parseDebugSample("10")
	if num != 1 || den != 10 {
		t.Fatalf("scalar sample = %d/%d", num, den)
	}
}

func TestRoundMS(t *testing.T) {
	if got := RoundMS(1499 * time.Microsecond); got != time.Millisecond {
		t.Fatalf("RoundMS = %v", got)
	}
	if got := RoundMS(-time.Second); got != 0 {
		t.Fatalf("negative duration = %v", got)
	}
}
