package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"signalbot/internal/indicator"
	"signalbot/internal/metrics"
	"signalbot/internal/model"
)

// CandleStream delivers closed candles until ctx is cancelled.
type CandleStream interface {
	Run(ctx context.Context, out chan<- model.Candle) error

	// Reconnect tears down the current connection; Run dials again.
	Reconnect()
}

// SnapshotWriter stores the newest indicator row per pair (redis.Publisher).
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, snap indicator.Snapshot) error
}

// Service runs the live loop: stream → processor → signal bus.
type Service struct {
	Pairs     []string
	Interval  string
	History   int
	Stream    CandleStream
	Fetcher   model.HistoryFetcher
	Processor *Processor
	Registry  *Registry
	Bus       *SignalBus
	Health    *metrics.HealthStatus // optional
	Snapshots SnapshotWriter        // optional

	// SnapshotQueue bounds pending snapshot writes; 0 means 64. Writes beyond
	// it are dropped, the next bar carries a fresher row anyway.
	SnapshotQueue int

	// OnResult, when set, observes every processed candle.
	OnResult func(Result, error)

	snapshots chan indicator.Snapshot
}

// Preload seeds every configured pair from history so the first live candle
// can be evaluated immediately. Failures are logged; the pair is seeded
// again lazily by the processor.
func (s *Service) Preload(ctx context.Context) {
	for _, pair := range s.Pairs {
		pc := s.Registry.Context(pair)
		history, err := s.Fetcher.FetchHistory(ctx, pair, s.Interval, s.History)
		if err != nil {
			log.Printf("[service] preload %s failed: %v", pair, err)
			continue
		}
		if len(history) == 0 {
			log.Printf("[service] preload %s: no history", pair)
			continue
		}
		skipped := pc.Window.Reset(history)
		pc.updatedAt = time.Now()
		s.Registry.Publish(pc)
		log.Printf("[service] preloaded %s with %d candles (%d malformed skipped)", pair, pc.Window.Len(), skipped)
	}
	if s.Health != nil {
		s.Health.SetPairs(s.Registry.Pairs())
	}
}

// Run blocks until ctx is cancelled, then flushes the signal bus.
func (s *Service) Run(ctx context.Context) error {
	candles := make(chan model.Candle, 256)
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- s.Stream.Run(ctx, candles)
	}()
	s.Bus.Run(ctx)
	defer s.Bus.Close()
	if s.Snapshots != nil {
		stop := s.runSnapshots(ctx)
		defer stop()
	}

	log.Printf("[service] running for %v (interval %s, sinks %v)", s.Pairs, s.Interval, s.Bus.Sinks())

	for {
		select {
		case <-ctx.Done():
			log.Println("[service] shutdown signal received, flushing sinks...")
			return nil
		case err := <-streamErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case c := <-candles:
			s.handle(ctx, c)
		}
	}
}

func (s *Service) handle(ctx context.Context, c model.Candle) {
	res, err := s.Processor.Process(ctx, c)
	if s.OnResult != nil {
		s.OnResult(res, err)
	}
	if s.Health != nil && err == nil {
		s.Health.SetLastCandleTime(c.OpenTime)
	}
	if res.Outcome.NeedsReconnect() {
		log.Printf("[service] %s candle %.0fs old, forcing stream reconnect", c.Pair, res.Delay.Seconds())
		s.Stream.Reconnect()
	}
	if res.Evaluated {
		s.queueSnapshot(res.Snapshot)
	}
	if res.Signal != nil {
		s.Bus.Publish(*res.Signal)
	}
}

// queueSnapshot hands snap to the writer without blocking the live loop.
func (s *Service) queueSnapshot(snap indicator.Snapshot) bool {
	if s.snapshots == nil {
		return false
	}
	select {
	case s.snapshots <- snap:
		return true
	default:
		log.Printf("[service] snapshot queue full, dropped %s row", snap.Pair)
		return false
	}
}

// runSnapshots starts the single snapshot writer. The returned stop closes
// the queue and waits until the queued rows are written.
func (s *Service) runSnapshots(ctx context.Context) (stop func()) {
	size := s.SnapshotQueue
	if size <= 0 {
		size = 64
	}
	s.snapshots = make(chan indicator.Snapshot, size)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		wctx := context.WithoutCancel(ctx)
		for snap := range s.snapshots {
			c, cancel := context.WithTimeout(wctx, 2*time.Second)
			if err := s.Snapshots.WriteSnapshot(c, snap); err != nil {
				log.Printf("[service] snapshot %s: %v", snap.Pair, err)
			}
			cancel()
		}
	}()
	return func() {
		close(s.snapshots)
		wg.Wait()
		s.snapshots = nil
	}
}
