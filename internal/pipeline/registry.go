package pipeline

import (
	"sort"
	"sync"
	"time"

	"signalbot/internal/indicator"
	"signalbot/internal/model"
	"signalbot/internal/strategy"
)

// PairView is a read-only copy of a pair's state, safe to hand to HTTP handlers.
type PairView struct {
	Pair        string              `json:"pair"`
	State       strategy.TradeState `json:"state"`
	WindowLen   int                 `json:"window_len"`
	Snapshot    *indicator.Snapshot `json:"snapshot,omitempty"`
	LastOutcome string              `json:"last_outcome"`
	DelaySec    float64             `json:"delay_sec"`
	LastSignal  *model.Signal       `json:"last_signal,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Registry holds every PairContext, created on first observation of a pair.
// Contexts are mutated only by the processor; views are published under
// the lock so the API never sees a half-updated pair.
type Registry struct {
	mu       sync.RWMutex
	capacity int
	pairs    map[string]*PairContext
	views    map[string]PairView
}

// NewRegistry creates a registry whose windows hold capacity candles.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		pairs:    make(map[string]*PairContext),
		views:    make(map[string]PairView),
	}
}

// Context returns the context for pair, creating it if needed.
func (r *Registry) Context(pair string) *PairContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	pc, ok := r.pairs[pair]
	if !ok {
		pc = NewPairContext(pair, r.capacity)
		r.pairs[pair] = pc
		r.views[pair] = pc.View()
	}
	return pc
}

// Publish records the current state of pc for readers.
func (r *Registry) Publish(pc *PairContext) {
	v := pc.View()
	r.mu.Lock()
	r.views[pc.Pair] = v
	r.mu.Unlock()
}

// View returns the last published view of pair.
func (r *Registry) View(pair string) (PairView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[pair]
	return v, ok
}

// Views returns all published views sorted by pair.
func (r *Registry) Views() []PairView {
	r.mu.RLock()
	out := make([]PairView, 0, len(r.views))
	for _, v := range r.views {
		out = append(out, v)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Pair < out[j].Pair })
	return out
}

// Pairs returns the known pair names, sorted.
func (r *Registry) Pairs() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.pairs))
	for p := range r.pairs {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
