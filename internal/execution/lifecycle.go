package execution

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/infra"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/signal"
	"github.com/hguan-dev/nu-algo-trading-competition/pkg/quant"
)

// Drop reasons reported by the lifecycle manager.
const (
	DropCooldown    = "cooldown"
	DropRateLimit   = "rate_limit"
	DropBreakerOpen = "breaker_open"
	DropVenueReject = "venue_reject"
)

// Manager carries an intent through submission: cooldown, the trailing
// one-minute rate window, bounded retries, and the breaker around the
// venue. It also tracks resting limit orders so they can be canceled
// when they go stale.
type Manager struct {
	venue   Venue
	params  domain.StrategyParameters
	breaker *infra.Breaker

	mu         sync.Mutex
	sent       []time.Time // accepted submissions inside the trailing window
	lastSubmit time.Time
	open       map[int64]*domain.Order
	submitted  int
	dropped    map[string]int

	now   func() time.Time
	sleep func(time.Duration)
}

// NewManager creates a lifecycle manager around a venue. Parameters must
// already be validated.
func NewManager(venue Venue, params domain.StrategyParameters) *Manager {
	return &Manager{
		venue:  venue,
		params: params,
		breaker: infra.NewBreaker(infra.BreakerConfig{
			Name:       "venue",
			TripAfter:  params.BreakerTripAfter,
			CloseAfter: params.BreakerCloseAfter,
			CoolOff:    params.BreakerCoolOff(),
		}),
		open:    make(map[int64]*domain.Order),
		dropped: make(map[string]int),
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Submit pushes one intent toward the venue. Returns whether the venue
// accepted it. Dropped intents are counted by reason and logged, never
// queued: the next market event produces a fresh decision anyway.
//
// The lock is not held across venue attempts or retry delays, so one
// instrument retrying never stalls the other pipelines.
func (m *Manager) Submit(intent *signal.Intent) bool {
	m.mu.Lock()
	now := m.now()

	if !m.breaker.Allow() {
		m.drop(intent, DropBreakerOpen)
		m.mu.Unlock()
		return false
	}
	if !m.lastSubmit.IsZero() && now.Sub(m.lastSubmit) < m.params.Cooldown() {
		m.drop(intent, DropCooldown)
		m.mu.Unlock()
		return false
	}

	m.prune(now)
	if len(m.sent) >= m.params.MaxOrdersPerMinute {
		m.drop(intent, DropRateLimit)
		m.mu.Unlock()
		return false
	}

	// Reserve the rate slot and the cooldown before releasing the lock,
	// so concurrent submitters cannot overshoot the trailing window while
	// this attempt is in flight. Rolled back on a final rejection.
	prevSubmit := m.lastSubmit
	m.sent = append(m.sent, now)
	m.lastSubmit = now
	m.mu.Unlock()

	attempts := m.params.MaxRetries + 1
	for i := 0; i < attempts; i++ {
		if i > 0 {
			m.sleep(m.params.RetryDelay())
		}
		id, ok := m.place(intent)
		if !ok {
			m.breaker.OnFailure()
			continue
		}
		m.breaker.OnSuccess()

		m.mu.Lock()
		m.submitted++
		if !intent.Market && !intent.IOC {
			m.open[id] = &domain.Order{
				ID:           id,
				Instrument:   intent.Instrument,
				Side:         intent.Side,
				Quantity:     intent.Quantity,
				Price:        intent.Price,
				Status:       domain.StatusNew,
				CreatedUnixM: quant.TimeStamp(m.now().UnixMicro()),
			}
		}
		m.mu.Unlock()
		return true
	}

	m.mu.Lock()
	m.unreserve(now, prevSubmit)
	m.drop(intent, DropVenueReject)
	m.mu.Unlock()
	return false
}

// unreserve gives back the slot taken before the venue attempts. Caller
// holds the lock.
func (m *Manager) unreserve(reserved, prevSubmit time.Time) {
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Equal(reserved) {
			m.sent = append(m.sent[:i], m.sent[i+1:]...)
			break
		}
	}
	if m.lastSubmit.Equal(reserved) {
		m.lastSubmit = prevSubmit
	}
}

// place runs one venue attempt. Market submissions have no venue ID.
func (m *Manager) place(intent *signal.Intent) (int64, bool) {
	if intent.Market {
		ok := m.venue.PlaceMarketOrder(intent.Side, intent.Instrument, intent.Quantity)
		return 0, ok
	}
	id := m.venue.PlaceLimitOrder(intent.Side, intent.Instrument, intent.Quantity, intent.Price, intent.IOC)
	return id, id != domain.FailedOrderID
}

// prune drops window entries older than one minute. Caller holds the lock.
func (m *Manager) prune(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(m.sent) && !m.sent[i].After(cutoff) {
		i++
	}
	if i > 0 {
		m.sent = append(m.sent[:0], m.sent[i:]...)
	}
}

func (m *Manager) drop(intent *signal.Intent, reason string) {
	m.dropped[reason]++
	slog.Warn("intent dropped",
		slog.String("reason", reason),
		slog.String("instrument", intent.Instrument.String()),
		slog.String("side", intent.Side.String()),
		slog.String("rule", intent.Rule))
}

// Cancel cancels a tracked resting order. Removing an already-gone order
// is a no-op, so cancels are idempotent from the caller's view.
func (m *Manager) Cancel(orderID int64) bool {
	m.mu.Lock()
	order, ok := m.open[orderID]
	if ok {
		delete(m.open, orderID)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	return m.venue.CancelOrder(order.Instrument, orderID)
}

// SweepStale cancels resting orders older than the configured age. Called
// from the event pipelines on book updates.
func (m *Manager) SweepStale() {
	maxAge := m.params.StaleOrderAge()
	now := m.now()

	m.mu.Lock()
	var stale []*domain.Order
	for id, order := range m.open {
		if now.Sub(order.CreatedUnixM.Time()) >= maxAge {
			stale = append(stale, order)
			delete(m.open, id)
		}
	}
	m.mu.Unlock()

	for _, order := range stale {
		slog.Info("canceling stale order",
			slog.Int64("id", order.ID),
			slog.String("instrument", order.Instrument.String()))
		m.venue.CancelOrder(order.Instrument, order.ID)
	}
}

// OnFill clears the oldest tracked resting order matching the fill's
// instrument and side. Account events carry no order ID, so this is a
// best-effort match; clearing nothing is fine when the fill came from a
// market or IOC submission.
func (m *Manager) OnFill(instr domain.Instrument, side domain.Side) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var oldest *domain.Order
	for _, order := range m.open {
		if order.Instrument != instr || order.Side != side {
			continue
		}
		if oldest == nil || order.CreatedUnixM < oldest.CreatedUnixM {
			oldest = order
		}
	}
	if oldest != nil {
		delete(m.open, oldest.ID)
	}
}

// OpenOrders returns a copy of the tracked resting orders.
func (m *Manager) OpenOrders() []domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Order, 0, len(m.open))
	for _, order := range m.open {
		out = append(out, *order)
	}
	return out
}

// Stats returns the accepted-submission count and per-reason drop counts.
func (m *Manager) Stats() (submitted int, dropped map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int, len(m.dropped))
	for reason, n := range m.dropped {
		out[reason] = n
	}
	return m.submitted, out
}
