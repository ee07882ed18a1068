package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/embercove/voicelink/domain/entities"
)

// Default reconnection parameters.
const (
	defaultMaxRetries = 10
	defaultBackoff    = 1 * time.Second
	defaultMaxBackoff = 30 * time.Second
)

// ShouldReconnect reports whether a connection that ended with the given
// close code should be resumed under the same session token. A normal
// closure is final; everything else, including a drop without a close frame
// (code -1), is treated as transient.
func ShouldReconnect(closeCode int) bool {
	return closeCode != websocket.CloseNormalClosure
}

// Reconnector redials a dropped session with exponential backoff, keeping
// the same session token so the server resumes the conversation rather than
// starting a new one.
type Reconnector struct {
	cfg     Config
	session *entities.Session
	logger  *zap.Logger

	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewReconnector creates a reconnector for one session.
func NewReconnector(cfg Config, session *entities.Session, logger *zap.Logger) *Reconnector {
	return &Reconnector{
		cfg:        cfg,
		session:    session,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// Redial attempts to re-establish the connection. Each failed attempt waits
// twice as long as the previous one, capped at the maximum backoff. It gives
// up when the context is cancelled or the retry budget runs out.
func (r *Reconnector) Redial(ctx context.Context) (*Client, error) {
	backoff := r.backoff

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		r.logger.Info("Attempting reconnection",
			zap.String("sessionId", r.session.ID),
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", r.maxRetries))

		client, err := Dial(ctx, r.cfg, r.session, r.logger)
		if err == nil {
			r.logger.Info("Reconnection successful",
				zap.String("sessionId", r.session.ID),
				zap.Int("attempt", attempt))
			return client, nil
		}

		r.logger.Warn("Reconnection attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}

	return nil, fmt.Errorf("reconnection failed after %d attempts", r.maxRetries)
}
