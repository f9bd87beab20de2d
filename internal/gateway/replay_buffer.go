package gateway

import "sync"

// replayEntry holds one broadcast envelope kept for late joiners.
type replayEntry struct {
	Seq  int64
	Pair string
	Data []byte // pre-built envelope JSON
}

// ReplayBuffer is a fixed-size circular buffer of recent signal envelopes.
// Safe for concurrent use.
type ReplayBuffer struct {
	mu   sync.RWMutex
	buf  []replayEntry
	cap  int
	pos  int // next write position
	full bool
}

// NewReplayBuffer creates a replay buffer with the given capacity.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 100
	}
	return &ReplayBuffer{
		buf: make([]replayEntry, capacity),
		cap: capacity,
	}
}

// Push appends an envelope, overwriting the oldest entry when full.
func (rb *ReplayBuffer) Push(seq int64, pair string, data []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)

	rb.buf[rb.pos] = replayEntry{Seq: seq, Pair: pair, Data: cp}
	rb.pos = (rb.pos + 1) % rb.cap
	if rb.pos == 0 && !rb.full {
		rb.full = true
	}
}

// Since returns the buffered entries with seq > after, oldest first.
func (rb *ReplayBuffer) Since(after int64) []replayEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var out []replayEntry
	for i := 0; i < rb.len(); i++ {
		e := rb.buf[rb.index(i)]
		if e.Seq > after {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries currently held.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.len()
}

func (rb *ReplayBuffer) len() int {
	if rb.full {
		return rb.cap
	}
	return rb.pos
}

// index maps a logical position (0 = oldest) to a slot in buf.
func (rb *ReplayBuffer) index(i int) int {
	if !rb.full {
		return i
	}
	return (rb.pos + i) % rb.cap
}
