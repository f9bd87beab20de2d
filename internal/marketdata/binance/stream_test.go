package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"signalbot/internal/model"
)

const closedBTC = `{"e":"kline","E":1709294460001,"s":"BTCUSDT","k":{"t":1709294400000,"T":1709294459999,"s":"BTCUSDT","i":"1m","f":1,"L":99,"o":"61000.10","c":"61020.50","h":"61050.00","l":"60990.00","v":"12.5","n":100,"x":true,"q":"762756.25","V":"6.1","Q":"372000.0","B":"0"}}`

func TestParseKlineMessage(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		wantOK bool
		err    bool
	}{
		{"closed raw", closedBTC, true, false},
		{"closed combined", `{"stream":"btcusdt@kline_1m","data":` + closedBTC + `}`, true, false},
		{"open bar", strings.Replace(closedBTC, `"x":true`, `"x":false`, 1), false, false},
		{"subscribe ack", `{"result":null,"id":1}`, false, false},
		{"garbage", `not json`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok, err := ParseKlineMessage([]byte(tt.msg))
			if (err != nil) != tt.err {
				t.Fatalf("err = %v, want error %v", err, tt.err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			// Upper-case siblings must not leak into the lower-case fields.
			if c.Low != 60990 || c.Volume != 12.5 || !c.OpenTime.Equal(time.UnixMilli(1709294400000)) {
				t.Errorf("unexpected candle %+v", c)
			}
			if c.Pair != "BTCUSDT" || c.Open != 61000.10 || c.High != 61050 || c.Close != 61020.50 {
				t.Errorf("unexpected candle %+v", c)
			}
		})
	}
}

func TestStream_URL(t *testing.T) {
	s := NewStream(StreamConfig{BaseURL: "wss://example.test:9443/", Pairs: []string{"BTCUSDT", "ETHUSDT"}, Interval: "1m"})
	want := "wss://example.test:9443/ws/btcusdt@kline_1m/ethusdt@kline_1m"
	if got := s.URL(); got != want {
		t.Errorf("URL = %s, want %s", got, want)
	}
}

// fakeExchange upgrades every connection, reads the SUBSCRIBE request and
// writes frames. Each connection stays open until the client closes it.
func fakeExchange(t *testing.T, frames []string, conns *atomic.Int32) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conns.Add(1)

		var sub subscribeRequest
		if err := conn.ReadJSON(&sub); err != nil || sub.Method != "SUBSCRIBE" {
			t.Errorf("expected SUBSCRIBE, got %+v (%v)", sub, err)
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		for _, f := range frames {
			conn.WriteMessage(websocket.TextMessage, []byte(f))
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestStream_DeliversClosedKlinesForFollowedPairs(t *testing.T) {
	var conns atomic.Int32
	frames := []string{
		strings.Replace(closedBTC, `"x":true`, `"x":false`, 1),
		strings.ReplaceAll(closedBTC, "BTCUSDT", "XRPUSDT"),
		closedBTC,
	}
	srv := fakeExchange(t, frames, &conns)
	defer srv.Close()

	s := NewStream(StreamConfig{
		BaseURL:        "ws" + strings.TrimPrefix(srv.URL, "http"),
		Pairs:          []string{"BTCUSDT"},
		ReconnectDelay: 10 * time.Millisecond,
	})
	out := make(chan model.Candle, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, out) }()

	select {
	case c := <-out:
		if c.Pair != "BTCUSDT" || c.Close != 61020.50 {
			t.Errorf("unexpected candle %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for candle")
	}
	select {
	case c := <-out:
		t.Errorf("unexpected extra candle %+v", c)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestStream_ReconnectRedials(t *testing.T) {
	var conns atomic.Int32
	srv := fakeExchange(t, []string{closedBTC}, &conns)
	defer srv.Close()

	s := NewStream(StreamConfig{
		BaseURL:        "ws" + strings.TrimPrefix(srv.URL, "http"),
		Pairs:          []string{"BTCUSDT"},
		ReconnectDelay: 10 * time.Millisecond,
	})
	var disconnects atomic.Int32
	s.OnDisconnect = func(error) { disconnects.Add(1) }

	out := make(chan model.Candle, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, out)

	for i := 0; i < 2; i++ {
		select {
		case <-out:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for candle on connection %d", i+1)
		}
		if i == 0 {
			s.Reconnect()
		}
	}
	if conns.Load() < 2 || disconnects.Load() < 1 {
		t.Errorf("connections=%d disconnects=%d, want a redial", conns.Load(), disconnects.Load())
	}
}
