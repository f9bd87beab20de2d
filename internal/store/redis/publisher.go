// Package redis publishes signals and indicator snapshots to Redis for
// downstream consumers (dashboards, order routers).
package redis

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"signalbot/internal/indicator"
	"signalbot/internal/model"
)

const (
	// SignalChannel carries every signal as JSON over Pub/Sub.
	SignalChannel = "signals"

	defaultStreamMaxLen = 10000
	latestSignalTTL     = 24 * time.Hour
)

// StreamKey is the per-pair signal stream, e.g. "signals:BTCUSDT".
func StreamKey(pair string) string { return "signals:" + pair }

// SnapshotKey is the hash holding the newest indicator row for pair.
func SnapshotKey(pair string) string { return "snapshot:" + pair }

// LatestSignalKey holds the newest signal JSON for pair.
func LatestSignalKey(pair string) string { return "signal:latest:" + pair }

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	StreamMaxLen int64         // approximate cap per signal stream
	MaxFailures  int           // consecutive failures before the breaker opens
	ResetTimeout time.Duration // breaker cool-down
	DialTimeout  time.Duration
}

// Publisher writes signals (XADD + SET + PUBLISH) and snapshots (HSET)
// through a circuit breaker so an outage costs one fast error per call.
type Publisher struct {
	client  *goredis.Client
	breaker *CircuitBreaker
	maxLen  int64
}

// NewPublisher creates a publisher without contacting Redis.
func NewPublisher(cfg PublisherConfig) *Publisher {
	if cfg.StreamMaxLen <= 0 {
		cfg.StreamMaxLen = defaultStreamMaxLen
	}
	opts := &goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	return &Publisher{
		client:  goredis.NewClient(opts),
		breaker: NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout),
		maxLen:  cfg.StreamMaxLen,
	}
}

// Connect creates a publisher and pings the server.
func Connect(ctx context.Context, cfg PublisherConfig) (*Publisher, error) {
	p := NewPublisher(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.client.Ping(pingCtx).Err(); err != nil {
		p.client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Printf("[redis] connected to %s", cfg.Addr)
	return p, nil
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// Breaker exposes the circuit breaker (state metrics, hooks).
func (p *Publisher) Breaker() *CircuitBreaker { return p.breaker }

// Name implements model.SignalSink.
func (p *Publisher) Name() string { return "redis" }

// WriteSignal appends sig to its pair stream, stores it as the pair's
// latest signal and publishes it on SignalChannel in one pipeline.
func (p *Publisher) WriteSignal(ctx context.Context, sig model.Signal) error {
	data := string(sig.JSON())
	return p.breaker.Execute(func() error {
		pipe := p.client.Pipeline()
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: StreamKey(sig.Pair),
			MaxLen: p.maxLen,
			Approx: true,
			Values: map[string]interface{}{
				"id":     sig.ID,
				"action": sig.Action.String(),
				"data":   data,
			},
		})
		pipe.Set(ctx, LatestSignalKey(sig.Pair), data, latestSignalTTL)
		pipe.Publish(ctx, SignalChannel, data)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis signal %s: %w", sig.ID, err)
		}
		return nil
	})
}

// WriteSnapshot stores the newest indicator row for the snapshot's pair.
func (p *Publisher) WriteSnapshot(ctx context.Context, snap indicator.Snapshot) error {
	return p.breaker.Execute(func() error {
		err := p.client.HSet(ctx, SnapshotKey(snap.Pair), SnapshotFields(snap)).Err()
		if err != nil {
			return fmt.Errorf("redis snapshot %s: %w", snap.Pair, err)
		}
		return nil
	})
}

// SnapshotFields flattens a snapshot into hash fields.
func SnapshotFields(s indicator.Snapshot) map[string]interface{} {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return map[string]interface{}{
		"open_time":    s.OpenTime.UnixMilli(),
		"close":        f(s.Close),
		"ema_50":       f(s.EMA50),
		"ema_50_slope": f(s.EMA50Slope),
		"rsi":          f(s.RSI),
		"macd":         f(s.MACD),
		"macd_signal":  f(s.MACDSignal),
		"bb_upper":     f(s.BBUpper),
		"bb_lower":     f(s.BBLower),
		"stoch_k":      f(s.StochK),
		"stoch_d":      f(s.StochD),
	}
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
