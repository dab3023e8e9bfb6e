// Package ratelimit enforces sliding-window quotas per user and
// action. Windows are held in memory; the deployment is single-node
// and windows reset naturally on process restart.
package ratelimit

import (
	"sync"
	"time"
)

// Action identifies a rate-limited operation kind.
type Action string

// Rate-limited actions.
const (
	ActionUpload   Action = "upload"
	ActionDownload Action = "download"
)

type key struct {
	userID string
	action Action
}

// window holds the recorded timestamps for one (user, action) pair.
// Each window carries its own lock so concurrent checks for different
// users never serialize against each other.
type window struct {
	mu      sync.Mutex
	entries []time.Time
}

// Limiter tracks sliding-window usage per (user, action). Construct
// one per process and inject it into request handlers.
type Limiter struct {
	mu      sync.RWMutex
	windows map[key]*window
	now     func() time.Time
}

// New creates a Limiter using the system clock.
func New() *Limiter {
	return NewWithClock(time.Now)
}

// NewWithClock creates a Limiter with an injectable clock for tests.
func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{
		windows: make(map[key]*window),
		now:     now,
	}
}

// Allow evicts entries older than windowSize, then permits the action
// iff fewer than limit entries remain, recording it on success.
// Eviction, check, and record happen atomically under the key's lock,
// so two concurrent calls never both claim the last slot.
func (l *Limiter) Allow(userID string, action Action, limit int, windowSize time.Duration) bool {
	w := l.window(userID, action)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	w.evict(now, windowSize)

	if len(w.entries) >= limit {
		return false
	}

	w.entries = append(w.entries, now)
	return true
}

// Remaining reports how many actions are left in the current window
// without recording anything.
func (l *Limiter) Remaining(userID string, action Action, limit int, windowSize time.Duration) int {
	w := l.window(userID, action)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict(l.now(), windowSize)

	remaining := limit - len(w.entries)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RetryAfter reports how long until a slot frees up. Zero means a
// slot is available now.
func (l *Limiter) RetryAfter(userID string, action Action, limit int, windowSize time.Duration) time.Duration {
	w := l.window(userID, action)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	w.evict(now, windowSize)

	if len(w.entries) < limit {
		return 0
	}

	// Entries are appended in time order; the oldest one expiring
	// frees the next slot.
	oldest := w.entries[len(w.entries)-limit]
	return oldest.Add(windowSize).Sub(now)
}

func (l *Limiter) window(userID string, action Action) *window {
	k := key{userID: userID, action: action}

	l.mu.RLock()
	w, ok := l.windows[k]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.windows[k]; ok {
		return w
	}
	w = &window{}
	l.windows[k] = w
	return w
}

func (w *window) evict(now time.Time, windowSize time.Duration) {
	cutoff := now.Add(-windowSize)

	i := 0
	for i < len(w.entries) && !w.entries[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.entries = append(w.entries[:0], w.entries[i:]...)
	}
}
