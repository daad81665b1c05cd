package clock

import (
	"strings"
	"testing"
	"time"
)

func TestFake_SetAndAdvance(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	f := NewFake(start)
	if got := f.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	f.Advance(90 * time.Minute)
	if got, want := f.Now(), start.Add(90*time.Minute); !got.Equal(want) {
		t.Errorf("after Advance: Now() = %v, want %v", got, want)
	}

	later := start.Add(48 * time.Hour)
	f.Set(later)
	if got := f.Now(); !got.Equal(later) {
		t.Errorf("after Set: Now() = %v, want %v", got, later)
	}
}

func TestReal_KeepsMonotonicReading(t *testing.T) {
	now := Real{}.Now()
	// time.Time.String appends "m=±<seconds>" only when a monotonic
	// reading is present.
	if !strings.Contains(now.String(), " m=") {
		t.Fatalf("Real.Now() = %q has no monotonic reading", now.String())
	}

	a := Real{}.Now()
	b := Real{}.Now()
	if b.Sub(a) < 0 {
		t.Errorf("consecutive reads went backwards: %v then %v", a, b)
	}
}
