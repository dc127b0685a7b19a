package ratelimit

import (
	"sync"
	"time"
)

// Gate is the admission hook the engine consults before any mutating command.
// The chat transport may supply its own implementation; SlidingWindow is the
// in-process default.
type Gate interface {
	Allow(userID string) bool
}

// window is one user's request timestamps within the trailing period.
type window struct {
	stamps   []time.Time
	lastSeen time.Time
}

// SlidingWindow admits up to limit requests per user in any trailing 60s
// period. Idle users are evicted by a background cleanup loop.
type SlidingWindow struct {
	mu     sync.Mutex
	users  map[string]*window
	limit  int
	period time.Duration
	now    func() time.Time
}

// NewSlidingWindow creates a gate allowing limit requests per minute per user.
func NewSlidingWindow(limit int) *SlidingWindow {
	sw := &SlidingWindow{
		users:  make(map[string]*window),
		limit:  limit,
		period: time.Minute,
		now:    time.Now,
	}
	go sw.cleanupLoop()
	return sw
}

// Allow reports whether the request is admitted and, if so, records it. A
// rejected request does not count toward the window, so hammering a full
// window does not push the next admission further out.
func (sw *SlidingWindow) Allow(userID string) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	w, ok := sw.users[userID]
	if !ok {
		w = &window{}
		sw.users[userID] = w
	}
	w.lastSeen = now

	cutoff := now.Add(-sw.period)
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= sw.limit {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

func (sw *SlidingWindow) cleanupLoop() {
	for {
		time.Sleep(time.Minute)

		sw.mu.Lock()
		cutoff := sw.now().Add(-3 * time.Minute)
		for id, w := range sw.users {
			if w.lastSeen.Before(cutoff) {
				delete(sw.users, id)
			}
		}
		sw.mu.Unlock()
	}
}

// Unlimited is a Gate that admits everything, for tests and internal callers.
type Unlimited struct{}

func (Unlimited) Allow(string) bool { return true }
