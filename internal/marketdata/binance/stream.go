package binance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signalbot/internal/model"
)

// DefaultStreamURL is the production spot websocket host.
const DefaultStreamURL = "wss://stream.binance.com:9443"

// StreamConfig configures a kline Stream.
type StreamConfig struct {
	BaseURL        string        // scheme and host, e.g. DefaultStreamURL
	Pairs          []string      // symbols to follow
	Interval       string        // kline interval, e.g. "1m"
	ReconnectDelay time.Duration // pause between connection attempts
	ReadTimeout    time.Duration // max silence before the connection is considered dead
}

// Stream follows closed klines for a set of pairs on one websocket
// connection, redialing after failures until its context is cancelled.
type Stream struct {
	cfg    StreamConfig
	dialer *websocket.Dialer
	pairs  map[string]bool

	mu   sync.Mutex
	conn *websocket.Conn

	// Optional hooks (metrics, health).
	OnConnect    func()
	OnDisconnect func(err error)
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// NewStream creates a stream. Zero durations take defaults of 10s
// reconnect delay and 3m read timeout.
func NewStream(cfg StreamConfig) *Stream {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultStreamURL
	}
	if cfg.Interval == "" {
		cfg.Interval = "1m"
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 10 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 3 * time.Minute
	}
	pairs := make(map[string]bool, len(cfg.Pairs))
	for _, p := range cfg.Pairs {
		pairs[strings.ToUpper(p)] = true
	}
	return &Stream{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		pairs:  pairs,
	}
}

// Streams returns the subscribed stream names.
func (s *Stream) Streams() []string {
	out := make([]string, len(s.cfg.Pairs))
	for i, p := range s.cfg.Pairs {
		out[i] = StreamName(p, s.cfg.Interval)
	}
	return out
}

// URL is the raw-stream endpoint with every kline stream in the path.
func (s *Stream) URL() string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/ws/" + strings.Join(s.Streams(), "/")
}

// Run streams closed candles for the configured pairs into out. It blocks
// until ctx is cancelled and returns ctx.Err().
func (s *Stream) Run(ctx context.Context, out chan<- model.Candle) error {
	for {
		err := s.runOnce(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.OnDisconnect != nil {
			s.OnDisconnect(err)
		}
		log.Printf("[binance] stream closed: %v; reconnecting in %s", err, s.cfg.ReconnectDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ReconnectDelay):
		}
	}
}

// Reconnect drops the current connection. Run redials after the delay.
func (s *Stream) Reconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "resync"),
			time.Now().Add(time.Second))
		_ = s.conn.Close()
	}
}

var errForcedClose = errors.New("connection closed")

func (s *Stream) runOnce(ctx context.Context, out chan<- model.Candle) error {
	conn, _, err := s.dialer.DialContext(ctx, s.URL(), nil)
	if err != nil {
		return fmt.Errorf("dial binance ws: %w", err)
	}
	s.setConn(conn)
	defer func() {
		s.setConn(nil)
		conn.Close()
	}()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteJSON(subscribeRequest{Method: "SUBSCRIBE", Params: s.Streams(), ID: 1}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	log.Printf("[binance] connected, subscribed to %v", s.Streams())
	if s.OnConnect != nil {
		s.OnConnect()
	}

	for {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				strings.Contains(err.Error(), "use of closed network connection") {
				return errForcedClose
			}
			return fmt.Errorf("read: %w", err)
		}

		c, ok, err := ParseKlineMessage(msg)
		if err != nil {
			log.Printf("[binance] parse error: %v", err)
			continue
		}
		if !ok || !s.pairs[c.Pair] {
			continue
		}

		select {
		case out <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Stream) setConn(c *websocket.Conn) {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
}
