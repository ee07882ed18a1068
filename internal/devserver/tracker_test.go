package devserver

import (
	"testing"
	"time"
)

func TestTrackerWarnsOnceWhenCrossingThreshold(t *testing.T) {
	tracker := NewUsageTracker(10*time.Minute, 5*time.Minute)

	status := tracker.Record("user-1", 4*time.Minute)
	if status.Warn || status.LimitReached {
		t.Errorf("Expected quiet accounting, got %+v", status)
	}

	status = tracker.Record("user-1", 2*time.Minute)
	if !status.Warn {
		t.Error("Expected a warning when crossing the threshold")
	}
	if status.Remaining != 4*time.Minute {
		t.Errorf("Expected 4 minutes remaining, got %v", status.Remaining)
	}

	status = tracker.Record("user-1", time.Minute)
	if status.Warn {
		t.Error("Expected the warning to fire only once")
	}
}

func TestTrackerReportsLimit(t *testing.T) {
	tracker := NewUsageTracker(2*time.Minute, time.Minute)

	status := tracker.Record("user-1", 3*time.Minute)
	if !status.LimitReached {
		t.Error("Expected the limit to be reached")
	}
	if status.Remaining != 0 {
		t.Errorf("Expected remaining floored at zero, got %v", status.Remaining)
	}

	// Exhausted stays exhausted.
	status = tracker.Record("user-1", time.Second)
	if !status.LimitReached {
		t.Error("Expected the limit to stay reached")
	}
}

func TestTrackerAccountsPerKey(t *testing.T) {
	tracker := NewUsageTracker(2*time.Minute, time.Minute)

	tracker.Record("user-1", 3*time.Minute)

	status := tracker.Record("user-2", time.Second)
	if status.LimitReached {
		t.Error("One user's exhaustion must not affect another")
	}
	if tracker.Used("user-2") != time.Second {
		t.Errorf("Expected 1s accounted, got %v", tracker.Used("user-2"))
	}
}

func TestTrackerDefaults(t *testing.T) {
	tracker := NewUsageTracker(0, 0)

	status := tracker.Record("user-1", time.Minute)
	if status.LimitReached || status.Warn {
		t.Errorf("Expected defaults to leave headroom, got %+v", status)
	}
	if status.Remaining != DefaultDailyLimit-time.Minute {
		t.Errorf("Unexpected remaining budget: %v", status.Remaining)
	}
}
