package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"signalbot/internal/indicator"
	"signalbot/internal/model"
)

func TestKeys(t *testing.T) {
	if StreamKey("BTCUSDT") != "signals:BTCUSDT" || SnapshotKey("BTCUSDT") != "snapshot:BTCUSDT" ||
		LatestSignalKey("BTCUSDT") != "signal:latest:BTCUSDT" {
		t.Error("unexpected key layout")
	}
}

func TestSnapshotFields(t *testing.T) {
	at := time.UnixMilli(1709294400000).UTC()
	f := SnapshotFields(indicator.Snapshot{Pair: "ETHUSDT", OpenTime: at, Close: 3000.5, RSI: 61.25, StochD: 80})
	if f["open_time"] != int64(1709294400000) || f["close"] != "3000.5" || f["rsi"] != "61.25" || f["stoch_d"] != "80" {
		t.Errorf("unexpected fields %v", f)
	}
	if len(f) != 11 {
		t.Errorf("expected 11 fields, got %d", len(f))
	}
}

// An unreachable server trips the breaker, after which writes fail fast.
func TestPublisher_OutageOpensBreaker(t *testing.T) {
	p := NewPublisher(PublisherConfig{
		Addr:         "127.0.0.1:1",
		MaxFailures:  2,
		ResetTimeout: time.Minute,
		DialTimeout:  100 * time.Millisecond,
	})
	defer p.Close()
	if p.Name() != "redis" {
		t.Errorf("name %q", p.Name())
	}

	ctx := context.Background()
	sig := model.Signal{ID: "x", Pair: "BTCUSDT", Action: model.ActionBuy}
	for i := 0; i < 2; i++ {
		err := p.WriteSignal(ctx, sig)
		if err == nil || errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("write %d: expected connection error, got %v", i, err)
		}
	}
	if p.Breaker().CurrentState() != StateOpen {
		t.Fatalf("expected open breaker, got %v", p.Breaker().CurrentState())
	}
	if err := p.WriteSnapshot(ctx, indicator.Snapshot{Pair: "BTCUSDT"}); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}
