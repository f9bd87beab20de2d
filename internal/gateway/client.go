package gateway

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// Client is a single websocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	mu    sync.RWMutex
	pairs map[string]bool // nil = all pairs
}

// clientMessage is what a client may send: a ping or a new pair filter.
type clientMessage struct {
	Type  string   `json:"type"`
	Pairs []string `json:"pairs"`
}

func newClient(h *Hub, conn *websocket.Conn, pairs map[string]bool) *Client {
	return &Client{
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		hub:   h,
		pairs: pairs,
	}
}

func (c *Client) wants(pair string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pairs == nil || c.pairs[pair]
}

func (c *Client) setPairs(pairs []string) {
	filter := parsePairs(strings.Join(pairs, ","))
	c.mu.Lock()
	c.pairs = filter
	c.mu.Unlock()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per text message.
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		c.hub.log.Debug("ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "subscribe":
			c.setPairs(msg.Pairs)
			c.reply(map[string]any{"type": "subscribed", "pairs": msg.Pairs})
		case "ping":
			c.reply(map[string]any{"type": "pong", "seq": c.hub.Seq()})
		}
	}
}

// reply queues a control frame without blocking the read loop.
func (c *Client) reply(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}
