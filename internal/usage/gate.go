package usage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// NoticeDuration is how long a usage warning stays visible.
const NoticeDuration = 10 * time.Second

// ErrVoiceDisabled is returned when voice activity is attempted after the
// server declared the usage quota exhausted.
var ErrVoiceDisabled = errors.New("voice features are disabled for this session")

// Notice is a transient, auto-expiring usage warning.
type Notice struct {
	Kind             string
	Message          string
	RemainingMinutes float64
	ExpiresAt        time.Time
}

// Gate tracks server-signaled voice usage limits. It starts enabled and
// flips to disabled permanently for the session once a limit-reached or
// voice-disabled event arrives; it is never re-enabled without a new session.
type Gate struct {
	logger *zap.Logger

	mu        sync.Mutex
	enabled   bool
	limitKind string
	notice    *Notice

	onDisabled func(kind, reason string)

	now func() time.Time
}

// NewGate creates an enabled gate.
func NewGate(logger *zap.Logger) *Gate {
	return &Gate{
		logger:  logger,
		enabled: true,
		now:     time.Now,
	}
}

// OnDisabled registers a callback fired exactly once, when the gate flips to
// disabled. Used to suppress capture when the limit is reached mid-turn.
func (g *Gate) OnDisabled(fn func(kind, reason string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onDisabled = fn
}

// Enabled reports whether voice features are still available.
func (g *Gate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

// LimitKind returns the kind of limit that disabled the gate, if any.
func (g *Gate) LimitKind() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limitKind, !g.enabled
}

// Authorize returns nil while the gate is enabled, and an explicit error
// once it is not. Attempts against a disabled gate fail loudly rather than
// being silently dropped.
func (g *Gate) Authorize() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.enabled {
		return nil
	}
	if g.limitKind != "" {
		return fmt.Errorf("%w (%s limit reached)", ErrVoiceDisabled, g.limitKind)
	}
	return ErrVoiceDisabled
}

// Warn surfaces a transient usage notice without altering the enabled state.
func (g *Gate) Warn(kind, message string, remainingMinutes float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.notice = &Notice{
		Kind:             kind,
		Message:          message,
		RemainingMinutes: remainingMinutes,
		ExpiresAt:        g.now().Add(NoticeDuration),
	}

	g.logger.Warn("Voice usage warning",
		zap.String("kind", kind),
		zap.Float64("remainingMinutes", remainingMinutes))
}

// Notice returns the current warning, or nil once it has expired.
func (g *Gate) Notice() *Notice {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.notice == nil || g.now().After(g.notice.ExpiresAt) {
		return nil
	}
	n := *g.notice
	return &n
}

// Disable permanently disables voice features for this session. Calling it
// again is a no-op.
func (g *Gate) Disable(kind, reason string) {
	g.mu.Lock()
	if !g.enabled {
		g.mu.Unlock()
		return
	}
	g.enabled = false
	g.limitKind = kind
	fn := g.onDisabled
	g.mu.Unlock()

	g.logger.Warn("Voice usage limit reached, disabling voice for this session",
		zap.String("kind", kind),
		zap.String("reason", reason))

	if fn != nil {
		fn(kind, reason)
	}
}
