// Package dedup drops redelivered messages (MQTT QoS 1 may deliver twice).
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Deduper remembers keys for a TTL, holding at most max of them.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	now  func() time.Time
	seen map[string]time.Time // key -> expiry
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, now: time.Now, seen: make(map[string]time.Time)}
}

// ShouldProcess is true the first time key is seen within the TTL, and marks
// it. An empty key is always processed.
func (d *Deduper) ShouldProcess(key string) bool {
	if key == "" {
		return true
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seenLocked(key, now) {
		return false
	}
	d.markLocked(key, now)
	return true
}

// Seen reports whether key was marked within the TTL, without marking it.
func (d *Deduper) Seen(key string) bool {
	if key == "" {
		return false
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seenLocked(key, now)
}

// Mark remembers key for the TTL. Pair it with Seen when the key must only
// count once the message has been handled.
func (d *Deduper) Mark(key string) {
	if key == "" {
		return
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.markLocked(key, now)
}

func (d *Deduper) seenLocked(key string, now time.Time) bool {
	exp, ok := d.seen[key]
	return ok && now.Before(exp)
}

func (d *Deduper) markLocked(key string, now time.Time) {
	if _, ok := d.seen[key]; !ok && len(d.seen) >= d.max {
		d.evict(now)
	}
	d.seen[key] = now.Add(d.ttl)
}

// ShouldProcessPayload keys on the SHA-256 of the payload.
func (d *Deduper) ShouldProcessPayload(payload []byte) bool {
	h := sha256.Sum256(payload)
	return d.ShouldProcess(hex.EncodeToString(h[:]))
}

// Len is the number of remembered keys.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// evict drops expired keys; if none expired it drops the one closest to
// expiry so the map never exceeds max.
func (d *Deduper) evict(now time.Time) {
	var (
		oldestKey string
		oldestExp time.Time
	)
	for k, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, k)
			continue
		}
		if oldestKey == "" || exp.Before(oldestExp) {
			oldestKey, oldestExp = k, exp
		}
	}
	if len(d.seen) >= d.max && oldestKey != "" {
		delete(d.seen, oldestKey)
	}
}
