package insight

import "sync"

// Tracker hands out per-key request tokens so slow responses can be
// discarded when a newer request for the same key has been issued since.
// Typical keys are "suggest:<userID>" or "summary:<userID>".
type Tracker struct {
	mu  sync.Mutex
	seq map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{seq: make(map[string]uint64)}
}

// Begin registers a new request for key and returns its token. Any earlier
// token for the same key is superseded from this point on.
func (t *Tracker) Begin(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq[key]++
	return t.seq[key]
}

// Current reports whether token still identifies the latest request for key.
func (t *Tracker) Current(key string, token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq[key] == token
}
