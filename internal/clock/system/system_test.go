// Package system exercises the clock adapters.
package system

import (
	"testing"
	"time"
)

// TestClockNowUTC ensures the clock returns UTC timestamps.
func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
	if got.Nanosecond()%1000 != 0 {
		t.Fatalf("expected microsecond precision, got %v", got)
	}
}

func TestFixedClock(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	clk := Fixed{At: at}
	if !clk.Now().Equal(at) || !clk.Now().Equal(clk.Now()) {
		t.Fatalf("expected frozen time %v, got %v", at, clk.Now())
	}
}
