package repositories

import (
	"context"
	"errors"

	"github.com/embercove/voicelink/domain/entities"
)

// ErrSessionNotFound is returned by Load when no identity has been persisted yet.
var ErrSessionNotFound = errors.New("no persisted session")

// SessionStore persists the device's session identity across restarts.
// Lifecycle: load-or-create at startup, save only on creation or explicit
// user regeneration, never elsewhere.
type SessionStore interface {
	Load(ctx context.Context) (*entities.Session, error)
	Save(ctx context.Context, session *entities.Session) error
}
