package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
	"github.com/hguan-dev/nu-algo-trading-competition/pkg/quant"
)

// FeedCallbacks receives decoded market events. Wired to the engine's
// ingress callbacks at startup.
type FeedCallbacks struct {
	OnTrade         func(instr domain.Instrument, side domain.Side, price, quantity float64, ts quant.TimeStamp)
	OnBookDelta     func(instr domain.Instrument, side domain.Side, price, quantity float64, ts quant.TimeStamp)
	OnAccountUpdate func(instr domain.Instrument, side domain.Side, price, quantity, capitalRemaining float64, ts quant.TimeStamp)
}

// feedFrame is one wire message from the market-data feed.
type feedFrame struct {
	Type             string      `json:"type"` // trade, book, account
	Ticker           string      `json:"ticker"`
	Side             string      `json:"side"`
	Price            json.Number `json:"price"`
	Quantity         json.Number `json:"quantity"`
	CapitalRemaining json.Number `json:"capital_remaining"`
	Timestamp        int64       `json:"ts"` // milliseconds
}

// FeedWorker owns the single websocket connection to the market-data
// feed: dialing, read deadlines, keepalive pings, and reconnecting with
// backoff when the stream drops. Decoded frames go straight to the
// engine callbacks on the read goroutine, preserving arrival order.
type FeedWorker struct {
	url          string
	callbacks    FeedCallbacks
	readTimeout  time.Duration
	pingInterval time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFeedWorker creates the feed gateway worker. Zero durations fall
// back to the defaults.
func NewFeedWorker(url string, readTimeout, pingInterval time.Duration, callbacks FeedCallbacks) *FeedWorker {
	w := &FeedWorker{
		url:          url,
		callbacks:    callbacks,
		readTimeout:  60 * time.Second,
		pingInterval: 30 * time.Second,
	}
	if readTimeout > 0 {
		w.readTimeout = readTimeout
	}
	if pingInterval > 0 {
		w.pingInterval = pingInterval
	}
	return w
}

// Connect starts the stream loop. The worker keeps reconnecting until
// Disconnect is called or the context is canceled.
func (w *FeedWorker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Disconnect tears down the connection and waits for the loop to exit.
func (w *FeedWorker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.dropConn()
	w.wg.Wait()
}

func (w *FeedWorker) run(ctx context.Context) {
	defer w.wg.Done()
	attempt := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.dial(ctx); err != nil {
			delay := ReconnectDelay(attempt)
			attempt++
			slog.Warn("feed connect failed",
				slog.String("url", w.url),
				slog.Any("error", err),
				slog.Duration("retry_in", delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		attempt = 0
		slog.Info("feed connected", slog.String("url", w.url))
		w.consume(ctx)

		if ctx.Err() == nil {
			slog.Warn("feed stream dropped, reconnecting", slog.String("url", w.url))
		}
	}
}

func (w *FeedWorker) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	return nil
}

func (w *FeedWorker) current() *websocket.Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn
}

func (w *FeedWorker) dropConn() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

// consume reads frames until the stream errors out. A ping ticker keeps
// the connection alive through quiet markets.
func (w *FeedWorker) consume(ctx context.Context) {
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	w.wg.Add(1)
	go w.keepalive(pingCtx)

	for {
		conn := w.current()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(w.readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("feed read failed", slog.Any("error", err))
			}
			w.dropConn()
			return
		}
		w.decode(msg)
	}
}

func (w *FeedWorker) keepalive(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn := w.current()
			if conn == nil {
				return
			}
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				slog.Warn("feed ping failed", slog.Any("error", err))
				w.dropConn()
				return
			}
		}
	}
}

// decode routes one wire frame. Malformed frames are dropped with a
// warning; a bad message must never take the feed down.
func (w *FeedWorker) decode(msg []byte) {
	var frame feedFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		slog.Warn("feed frame decode failed", slog.Any("error", err))
		return
	}

	instr, err := domain.ParseInstrument(strings.ToUpper(frame.Ticker))
	if err != nil {
		slog.Warn("feed frame for unknown ticker", slog.String("ticker", frame.Ticker))
		return
	}
	side, err := domain.ParseSide(strings.ToUpper(frame.Side))
	if err != nil {
		slog.Warn("feed frame with unknown side", slog.String("side", frame.Side))
		return
	}

	price, err := frame.Price.Float64()
	if err != nil || price <= 0 {
		slog.Warn("feed frame with bad price", slog.String("price", frame.Price.String()))
		return
	}
	quantity, err := frame.Quantity.Float64()
	if err != nil || quantity < 0 {
		slog.Warn("feed frame with bad quantity", slog.String("quantity", frame.Quantity.String()))
		return
	}

	ts := quant.TimeStamp(frame.Timestamp * 1000)
	if frame.Timestamp == 0 {
		ts = quant.Now()
	}

	switch frame.Type {
	case "trade":
		w.callbacks.OnTrade(instr, side, price, quantity, ts)
	case "book":
		w.callbacks.OnBookDelta(instr, side, price, quantity, ts)
	case "account":
		capital, err := frame.CapitalRemaining.Float64()
		if err != nil {
			slog.Warn("account frame with bad capital", slog.String("capital", frame.CapitalRemaining.String()))
			return
		}
		w.callbacks.OnAccountUpdate(instr, side, price, quantity, capital, ts)
	default:
		slog.Warn("unknown feed frame type", slog.String("type", frame.Type))
	}
}
