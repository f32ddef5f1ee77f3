package http

import (
	"slices"
	"sync"
	"time"

	"github.com/dkeye/pitchcall/internal/domain"
)

// StartLimiter caps call starts per identity within a sliding window.
// Attempts inside one minute share a room, so hammering start only replays the same join.
// Attempts are kept oldest first.
type StartLimiter struct {
	mu       sync.Mutex
	history  map[domain.UserID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewStartLimiter(limit int, interval time.Duration) *StartLimiter {
	return &StartLimiter{
		history:  make(map[domain.UserID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// Allow records an attempt for uid. When refused, retryAfter is how long until
// the oldest attempt in the window expires.
func (rl *StartLimiter) Allow(uid domain.UserID) (ok bool, retryAfter time.Duration) {
	if rl == nil || rl.limit <= 0 {
		return true, 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)
	fresh := slices.DeleteFunc(rl.history[uid], func(t time.Time) bool { return !t.After(windowStart) })

	if len(fresh) >= rl.limit {
		rl.history[uid] = fresh
		return false, fresh[0].Sub(windowStart)
	}
	rl.history[uid] = append(fresh, now)
	return true, 0
}

