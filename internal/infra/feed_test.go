package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
	"github.com/hguan-dev/nu-algo-trading-competition/pkg/quant"
)

type recordedFrame struct {
	kind    string
	instr   domain.Instrument
	side    domain.Side
	price   float64
	qty     float64
	capital float64
	ts      quant.TimeStamp
}

func newRecordingFeed() (*FeedWorker, *[]recordedFrame) {
	var frames []recordedFrame
	callbacks := FeedCallbacks{
		OnTrade: func(instr domain.Instrument, side domain.Side, price, qty float64, ts quant.TimeStamp) {
			frames = append(frames, recordedFrame{"trade", instr, side, price, qty, 0, ts})
		},
		OnBookDelta: func(instr domain.Instrument, side domain.Side, price, qty float64, ts quant.TimeStamp) {
			frames = append(frames, recordedFrame{"book", instr, side, price, qty, 0, ts})
		},
		OnAccountUpdate: func(instr domain.Instrument, side domain.Side, price, qty, capital float64, ts quant.TimeStamp) {
			frames = append(frames, recordedFrame{"account", instr, side, price, qty, capital, ts})
		},
	}
	return NewFeedWorker("ws://localhost/feed", time.Minute, time.Minute, callbacks), &frames
}

func TestFeedDecodesTradeFrame(t *testing.T) {
	w, frames := newRecordingFeed()

	w.decode([]byte(`{"type":"trade","ticker":"ETH","side":"BUY","price":"2000.5","quantity":"1.25","ts":1700000000000}`))

	if len(*frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(*frames))
	}
	f := (*frames)[0]
	if f.kind != "trade" || f.instr != domain.ETH || f.side != domain.Buy {
		t.Errorf("frame routing mismatch: %+v", f)
	}
	if f.price != 2000.5 || f.qty != 1.25 {
		t.Errorf("frame values mismatch: %+v", f)
	}
	if f.ts != quant.TimeStamp(1700000000000*1000) {
		t.Errorf("expected ms-to-micros conversion, got %d", f.ts)
	}
}

func TestFeedDecodesBookRemoval(t *testing.T) {
	w, frames := newRecordingFeed()

	// Quantity 0 is a level removal and must pass through.
	w.decode([]byte(`{"type":"book","ticker":"BTC","side":"SELL","price":"50000","quantity":"0","ts":1}`))

	if len(*frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(*frames))
	}
	if f := (*frames)[0]; f.kind != "book" || f.qty != 0 {
		t.Errorf("book removal mismatch: %+v", f)
	}
}

func TestFeedDecodesAccountFrame(t *testing.T) {
	w, frames := newRecordingFeed()

	w.decode([]byte(`{"type":"account","ticker":"LTC","side":"SELL","price":"80","quantity":"2","capital_remaining":"100159.36","ts":5}`))

	if len(*frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(*frames))
	}
	if f := (*frames)[0]; f.kind != "account" || f.capital != 100159.36 {
		t.Errorf("account frame mismatch: %+v", f)
	}
}

func TestFeedDropsMalformedFrames(t *testing.T) {
	w, frames := newRecordingFeed()

	bad := []string{
		`not json`,
		`{"type":"trade","ticker":"DOGE","side":"BUY","price":"1","quantity":"1","ts":1}`,
		`{"type":"trade","ticker":"ETH","side":"HOLD","price":"1","quantity":"1","ts":1}`,
		`{"type":"trade","ticker":"ETH","side":"BUY","price":"-5","quantity":"1","ts":1}`,
		`{"type":"account","ticker":"ETH","side":"BUY","price":"1","quantity":"1","ts":1}`,
		`{"type":"mystery","ticker":"ETH","side":"BUY","price":"1","quantity":"1","ts":1}`,
	}
	for _, msg := range bad {
		w.decode([]byte(msg))
	}

	if len(*frames) != 0 {
		t.Errorf("malformed frames must be dropped, got %d", len(*frames))
	}
}

// newStreamServer serves one websocket connection with the given handler.
func newStreamServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(httpURL string) string {
	return strings.Replace(httpURL, "http://", "ws://", 1)
}

func TestFeedConsumesStream(t *testing.T) {
	server := newStreamServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"trade","ticker":"BTC","side":"SELL","price":"50000","quantity":"0.25","ts":7}`))
		time.Sleep(200 * time.Millisecond)
	})
	defer server.Close()

	got := make(chan recordedFrame, 1)
	callbacks := FeedCallbacks{
		OnTrade: func(instr domain.Instrument, side domain.Side, price, qty float64, ts quant.TimeStamp) {
			// The server re-sends on reconnect; only the first frame matters.
			select {
			case got <- recordedFrame{"trade", instr, side, price, qty, 0, ts}:
			default:
			}
		},
	}

	w := NewFeedWorker(wsURL(server.URL), time.Second, time.Minute, callbacks)
	if err := w.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer w.Disconnect()

	select {
	case f := <-got:
		if f.instr != domain.BTC || f.side != domain.Sell || f.price != 50000 {
			t.Errorf("streamed frame mismatch: %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame arrived over the stream")
	}
}

func TestFeedDisconnectReturns(t *testing.T) {
	hold := make(chan struct{})
	server := newStreamServer(t, func(conn *websocket.Conn) {
		<-hold
	})
	defer server.Close()
	defer close(hold)

	w := NewFeedWorker(wsURL(server.URL), time.Minute, time.Minute, FeedCallbacks{})
	if err := w.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Disconnect()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Disconnect did not return")
	}
}
