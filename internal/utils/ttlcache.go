// internal/utils/ttlcache.go
package utils

import (
	"sync"
	"time"
)

// TTLSet is a concurrency-safe set whose entries expire after a fixed TTL.
// Used for webhook idempotency keys and inbound-message deduplication; it is
// process-scoped state, created at startup and never persisted.
type TTLSet struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewTTLSet(ttl time.Duration) *TTLSet {
	return &TTLSet{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// CheckAndSet records key and reports whether it was already present and
// unexpired. The first caller for a key gets false; concurrent duplicates
// get true.
func (s *TTLSet) CheckAndSet(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)

	if at, ok := s.entries[key]; ok && now.Sub(at) < s.ttl {
		return true
	}
	s.entries[key] = now
	return false
}

func (s *TTLSet) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.entries[key]
	return ok && s.now().Sub(at) < s.ttl
}

func (s *TTLSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evictLocked drops expired entries. Scans only once the map has grown past
// a threshold so the common path stays O(1).
func (s *TTLSet) evictLocked(now time.Time) {
	if len(s.entries) < 1000 {
		return
	}
	for k, at := range s.entries {
		if now.Sub(at) >= s.ttl {
			delete(s.entries, k)
		}
	}
}
