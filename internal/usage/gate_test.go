package usage

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestGateStartsEnabled(t *testing.T) {
	gate := NewGate(zap.NewNop())

	if !gate.Enabled() {
		t.Error("New gate should be enabled")
	}
	if err := gate.Authorize(); err != nil {
		t.Errorf("Authorize on enabled gate should succeed, got %v", err)
	}
}

func TestDisableIsPermanent(t *testing.T) {
	gate := NewGate(zap.NewNop())

	gate.Disable("daily", "daily voice limit reached")

	if gate.Enabled() {
		t.Error("Gate should be disabled after a limit event")
	}

	kind, disabled := gate.LimitKind()
	if !disabled || kind != "daily" {
		t.Errorf("Expected daily limit kind, got %q disabled=%v", kind, disabled)
	}

	if err := gate.Authorize(); !errors.Is(err, ErrVoiceDisabled) {
		t.Errorf("Expected ErrVoiceDisabled, got %v", err)
	}
}

func TestDisableFiresCallbackOnce(t *testing.T) {
	gate := NewGate(zap.NewNop())

	calls := 0
	gate.OnDisabled(func(kind, reason string) {
		calls++
		if kind != "session" {
			t.Errorf("Expected kind session, got %s", kind)
		}
	})

	gate.Disable("session", "limit")
	gate.Disable("monthly", "limit again")

	if calls != 1 {
		t.Errorf("Expected callback to fire once, got %d", calls)
	}

	// First limit kind wins.
	if kind, _ := gate.LimitKind(); kind != "session" {
		t.Errorf("Expected original limit kind to persist, got %s", kind)
	}
}

func TestWarnDoesNotDisable(t *testing.T) {
	gate := NewGate(zap.NewNop())

	gate.Warn("daily", "5 minutes remaining", 5)

	if !gate.Enabled() {
		t.Error("Warning must not alter the enabled state")
	}

	notice := gate.Notice()
	if notice == nil {
		t.Fatal("Expected an active notice")
	}
	if notice.Kind != "daily" || notice.RemainingMinutes != 5 {
		t.Errorf("Unexpected notice contents: %+v", notice)
	}
}

func TestNoticeExpires(t *testing.T) {
	gate := NewGate(zap.NewNop())

	current := time.Now()
	gate.now = func() time.Time { return current }

	gate.Warn("session", "almost out", 1)
	if gate.Notice() == nil {
		t.Fatal("Expected notice right after warning")
	}

	current = current.Add(NoticeDuration + time.Second)
	if gate.Notice() != nil {
		t.Error("Expected notice to expire after its display duration")
	}
}
