package devserver

import (
	"sync"
	"time"
)

// Default usage budget for the development server.
const (
	DefaultDailyLimit    = 20 * time.Minute
	DefaultWarnThreshold = 5 * time.Minute
)

// UsageStatus describes the result of recording voice activity.
type UsageStatus struct {
	// LimitReached means the budget is exhausted; voice must be disabled.
	LimitReached bool

	// Warn means the remaining budget just crossed the warning threshold.
	// Reported once per key.
	Warn bool

	// Remaining is the unused budget, floored at zero.
	Remaining time.Duration
}

// UsageTracker accounts voice time per user and flags the budget
// transitions the protocol reports to clients.
type UsageTracker struct {
	limit  time.Duration
	warnAt time.Duration

	mu     sync.Mutex
	used   map[string]time.Duration
	warned map[string]bool
}

// NewUsageTracker creates a tracker with the given budget. Zero values fall
// back to the defaults.
func NewUsageTracker(limit, warnAt time.Duration) *UsageTracker {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	if warnAt <= 0 {
		warnAt = DefaultWarnThreshold
	}
	return &UsageTracker{
		limit:  limit,
		warnAt: warnAt,
		used:   make(map[string]time.Duration),
		warned: make(map[string]bool),
	}
}

// Record accounts d of voice activity against key and reports the resulting
// status.
func (t *UsageTracker) Record(key string, d time.Duration) UsageStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.used[key] += d
	remaining := t.limit - t.used[key]
	if remaining < 0 {
		remaining = 0
	}

	status := UsageStatus{Remaining: remaining}
	if remaining == 0 {
		status.LimitReached = true
		return status
	}
	if remaining <= t.warnAt && !t.warned[key] {
		t.warned[key] = true
		status.Warn = true
	}
	return status
}

// Used returns the voice time accounted against key.
func (t *UsageTracker) Used(key string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used[key]
}
