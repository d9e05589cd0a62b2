package services

import (
	"math/rand/v2"
	"testing"
	"time"
)

func TestIsStaleNeverForMissingHeartbeat(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if IsStale(nil, now, time.Minute) {
		t.Fatalf("expected nil heartbeat to never be stale")
	}
	if (StalenessPolicy{}).IsStale(nil, now.Add(48*time.Hour)) {
		t.Fatalf("expected nil heartbeat to never be stale under default policy")
	}
}

func TestIsStaleBoundary(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	exact := now.Add(-DefaultStaleAfter)
	if IsStale(&exact, now, DefaultStaleAfter) {
		t.Fatalf("expected heartbeat exactly at threshold to be live")
	}
	past := exact.Add(-time.Nanosecond)
	if !IsStale(&past, now, DefaultStaleAfter) {
		t.Fatalf("expected heartbeat beyond threshold to be stale")
	}
}

func TestStalenessPolicyFallsBackToDefault(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	heartbeat := now.Add(-9 * time.Minute)
	if (StalenessPolicy{Threshold: -1}).IsStale(&heartbeat, now) {
		t.Fatalf("expected 9 minute old heartbeat to be live with default threshold")
	}
	if !(StalenessPolicy{Threshold: 5 * time.Minute}).IsStale(&heartbeat, now) {
		t.Fatalf("expected 9 minute old heartbeat to be stale with 5 minute threshold")
	}
}

func TestIsStaleMatchesAgeComparison(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 1000; i++ {
		threshold := time.Duration(rng.Int64N(int64(2*time.Hour))) + time.Second
		age := time.Duration(rng.Int64N(int64(4 * time.Hour)))
		heartbeat := now.Add(-age)

		got := IsStale(&heartbeat, now, threshold)
		if got != (age > threshold) {
			t.Fatalf("age=%s threshold=%s: got stale=%v", age, threshold, got)
		}
	}
}
