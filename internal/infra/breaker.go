package infra

import (
	"log/slog"
	"sync"
	"time"
)

// BreakerState is the venue breaker's admission state.
type BreakerState uint8

const (
	BreakerClosed  BreakerState = iota // venue healthy, submissions pass
	BreakerTripped                     // shedding submissions until cool-off
	BreakerProbing                     // letting probes through after cool-off
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerTripped:
		return "tripped"
	case BreakerProbing:
		return "probing"
	default:
		return "unknown"
	}
}

// BreakerConfig sets the trip and recovery thresholds, normally taken
// from StrategyParameters.
type BreakerConfig struct {
	Name       string
	TripAfter  int           // consecutive failures before tripping
	CloseAfter int           // probe successes before closing again
	CoolOff    time.Duration // wait before the first probe
}

// Breaker sheds venue submissions after repeated rejections. A venue
// that is rate limiting us gets worse under retries; tripping converts
// the retry pressure into dropped intents until a probe succeeds.
type Breaker struct {
	name       string
	tripAfter  int
	closeAfter int
	coolOff    time.Duration

	now func() time.Time

	mu        sync.Mutex
	state     BreakerState
	failures  int
	probeWins int
	trippedAt time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{
		name:       cfg.Name,
		tripAfter:  cfg.TripAfter,
		closeAfter: cfg.CloseAfter,
		coolOff:    cfg.CoolOff,
		now:        time.Now,
	}
}

// Allow reports whether a submission may go to the venue. A tripped
// breaker starts probing once the cool-off has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerTripped:
		if b.now().Sub(b.trippedAt) < b.coolOff {
			return false
		}
		b.state = BreakerProbing
		b.probeWins = 0
		slog.Info("breaker probing the venue", slog.String("name", b.name))
		return true
	default:
		return true
	}
}

// OnSuccess records an accepted submission. Enough probe successes close
// a probing breaker.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerProbing:
		b.probeWins++
		if b.probeWins >= b.closeAfter {
			b.state = BreakerClosed
			b.failures = 0
			slog.Info("breaker closed, venue recovered", slog.String("name", b.name))
		}
	}
}

// OnFailure records a venue rejection. Consecutive failures trip a
// closed breaker; any failure re-trips a probing one.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trippedAt = b.now()

	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.tripAfter {
			b.state = BreakerTripped
			slog.Warn("breaker tripped, shedding intents",
				slog.String("name", b.name),
				slog.Int("consecutive_failures", b.failures))
		}
	case BreakerProbing:
		b.state = BreakerTripped
		slog.Warn("breaker re-tripped, probe rejected", slog.String("name", b.name))
	}
}

// State returns the current admission state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
