package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"signalbot/internal/model"
)

// SignalBus broadcasts emitted signals to N sinks. Each sink drains its own
// buffered channel in a dedicated goroutine. If a sink's channel is full the
// signal is dropped for that sink so a slow sink never blocks the processor.
type SignalBus struct {
	mu      sync.RWMutex
	subs    []*subscription
	bufSize int
	wg      sync.WaitGroup
	closed  bool

	// WriteTimeout bounds each sink write. Zero means 5s.
	WriteTimeout time.Duration

	// OnDrop is called when a signal is dropped for a sink.
	OnDrop func(sink string)

	// OnError is called when a sink write fails.
	OnError func(sink string, err error)
}

type subscription struct {
	sink model.SignalSink
	ch   chan model.Signal
}

// NewSignalBus creates a bus with the given per-sink buffer size.
func NewSignalBus(bufferSize int) *SignalBus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &SignalBus{bufSize: bufferSize}
}

// Attach registers a sink. Attach every sink before calling Run.
func (b *SignalBus) Attach(sink model.SignalSink) {
	b.mu.Lock()
	b.subs = append(b.subs, &subscription{sink: sink, ch: make(chan model.Signal, b.bufSize)})
	b.mu.Unlock()
}

// Sinks returns the attached sink names in attach order.
func (b *SignalBus) Sinks() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, len(b.subs))
	for i, s := range b.subs {
		names[i] = s.sink.Name()
	}
	return names
}

// Run starts one drain goroutine per sink. Drains stop once Close is called
// and their channel is empty.
func (b *SignalBus) Run(ctx context.Context) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		b.wg.Add(1)
		go b.drain(ctx, s)
	}
}

func (b *SignalBus) drain(ctx context.Context, s *subscription) {
	defer b.wg.Done()
	timeout := b.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	for sig := range s.ch {
		// Sinks get a detached context so queued signals still flush on shutdown.
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		err := s.sink.WriteSignal(wctx, sig)
		cancel()
		if err != nil {
			if b.OnError != nil {
				b.OnError(s.sink.Name(), err)
			} else {
				log.Printf("[bus] sink %s: write %s failed: %v", s.sink.Name(), sig.ID, err)
			}
		}
	}
}

// Publish offers sig to every sink without blocking.
func (b *SignalBus) Publish(sig model.Signal) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		select {
		case s.ch <- sig:
		default:
			if b.OnDrop != nil {
				b.OnDrop(s.sink.Name())
			} else {
				log.Printf("[bus] sink %s full, dropping signal %s %s", s.sink.Name(), sig.Pair, sig.ID)
			}
		}
	}
}

// Close stops accepting signals and waits for queued ones to be written.
func (b *SignalBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

// ChannelStat reports (length, capacity) of one sink queue.
type ChannelStat struct {
	Sink string
	Len  int
	Cap  int
}

// ChannelStats returns the queue saturation of every sink.
func (b *SignalBus) ChannelStats() []ChannelStat {
	b.mu.RLock()
	defer b.mu.RUnlock()
	stats := make([]ChannelStat, len(b.subs))
	for i, s := range b.subs {
		stats[i] = ChannelStat{Sink: s.sink.Name(), Len: len(s.ch), Cap: cap(s.ch)}
	}
	return stats
}
