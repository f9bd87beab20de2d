// Package gateway pushes emitted signals to websocket subscribers.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"signalbot/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// envelope is the frame sent to clients for every signal.
type envelope struct {
	Type   string       `json:"type"`
	Seq    int64        `json:"seq"`
	Replay bool         `json:"replay,omitempty"`
	Data   model.Signal `json:"data"`
}

// Hub fans signals out to connected websocket clients and keeps a short
// replay history so a reconnecting client can catch up with ?since_seq=.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64
	replay  *ReplayBuffer
	closed  bool

	log *slog.Logger
}

// NewHub creates a hub retaining the last replaySize signals.
func NewHub(replaySize int, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]bool),
		replay:  NewReplayBuffer(replaySize),
		log:     log.With("component", "ws_hub"),
	}
}

// Name implements the signal sink contract.
func (h *Hub) Name() string { return "ws" }

// WriteSignal broadcasts sig. It never blocks on slow clients.
func (h *Hub) WriteSignal(_ context.Context, sig model.Signal) error {
	h.Broadcast(sig)
	return nil
}

// Broadcast assigns the next sequence number to sig and queues it to every
// client whose pair filter accepts it. Clients with a full queue miss it.
func (h *Hub) Broadcast(sig model.Signal) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.seq++
	seq := h.seq
	data, err := json.Marshal(envelope{Type: "signal", Seq: seq, Data: sig})
	if err != nil {
		h.mu.Unlock()
		h.log.Error("marshal signal", "error", err)
		return
	}
	h.replay.Push(seq, sig.Pair, data)
	for c := range h.clients {
		if !c.wants(sig.Pair) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.log.Warn("ws client queue full, dropping signal", "pair", sig.Pair, "seq", seq)
		}
	}
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
// Every websocket text message carries exactly one JSON envelope.
//
// Query parameters: pairs=BTCUSDT,ETHUSDT restricts the feed; since_seq=N
// replays buffered signals newer than N before live delivery.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var since int64 = -1
	if v := r.URL.Query().Get("since_seq"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "since_seq must be a non-negative integer", http.StatusBadRequest)
			return
		}
		since = n
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}

	c := newClient(h, conn, parsePairs(r.URL.Query().Get("pairs")))

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	if since >= 0 {
		for _, e := range h.replay.Since(since) {
			if !c.wants(e.Pair) {
				continue
			}
			select {
			case c.send <- markReplay(e.Data):
			default:
			}
		}
	}
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("ws client connected", "clients", n, "remote", r.RemoteAddr)

	go c.writePump()
	c.readPump()
}

// Seq returns the sequence number of the last broadcast signal.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RemoveClient unregisters c and closes its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client. Later broadcasts are ignored.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}

func markReplay(data []byte) []byte {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return data
	}
	env.Replay = true
	out, err := json.Marshal(env)
	if err != nil {
		return data
	}
	return out
}

func parsePairs(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out[p] = true
		}
	}
	return out
}
