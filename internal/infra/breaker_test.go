package infra

import (
	"testing"
	"time"
)

func newTestBreaker(cfg BreakerConfig) (*Breaker, *time.Time) {
	b := NewBreaker(cfg)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestBreakerStaysClosedUnderThreshold(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Name: "test", TripAfter: 3, CloseAfter: 1, CoolOff: time.Second})

	b.OnFailure()
	b.OnFailure()

	if b.State() != BreakerClosed {
		t.Errorf("two failures under a threshold of three must not trip, state %s", b.State())
	}
	if !b.Allow() {
		t.Error("closed breaker must admit submissions")
	}
}

func TestBreakerTripsAndSheds(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Name: "test", TripAfter: 2, CloseAfter: 1, CoolOff: time.Minute})

	b.OnFailure()
	b.OnFailure()

	if b.State() != BreakerTripped {
		t.Fatalf("expected tripped after 2 failures, state %s", b.State())
	}
	if b.Allow() {
		t.Error("tripped breaker must shed submissions inside the cool-off")
	}
}

func TestBreakerProbesAfterCoolOff(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Name: "test", TripAfter: 1, CloseAfter: 2, CoolOff: 30 * time.Second})

	b.OnFailure()
	if b.Allow() {
		t.Fatal("must shed right after tripping")
	}

	*clock = clock.Add(31 * time.Second)
	if !b.Allow() {
		t.Fatal("cool-off elapsed, probe must be admitted")
	}
	if b.State() != BreakerProbing {
		t.Errorf("expected probing, state %s", b.State())
	}

	// One success is not enough with CloseAfter 2.
	b.OnSuccess()
	if b.State() != BreakerProbing {
		t.Error("breaker must keep probing until enough successes")
	}
	b.OnSuccess()
	if b.State() != BreakerClosed {
		t.Errorf("expected closed after 2 probe successes, state %s", b.State())
	}
}

func TestBreakerReTripsOnFailedProbe(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Name: "test", TripAfter: 1, CloseAfter: 1, CoolOff: 10 * time.Second})

	b.OnFailure()
	*clock = clock.Add(11 * time.Second)
	b.Allow()

	b.OnFailure()
	if b.State() != BreakerTripped {
		t.Fatalf("failed probe must re-trip, state %s", b.State())
	}
	if b.Allow() {
		t.Error("re-tripped breaker must shed until the next cool-off")
	}
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Name: "test", TripAfter: 2, CloseAfter: 1, CoolOff: time.Second})

	b.OnFailure()
	b.OnSuccess()
	b.OnFailure()

	if b.State() != BreakerClosed {
		t.Errorf("non-consecutive failures must not trip, state %s", b.State())
	}
}
