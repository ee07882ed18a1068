package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/embercove/voicelink/domain/entities"
	"github.com/embercove/voicelink/domain/repositories"
)

// IdentityService owns the device's session identity: one persistent token
// that binds every connection to the same server-side conversation.
type IdentityService struct {
	store  repositories.SessionStore
	logger *zap.Logger
}

// NewIdentityService creates the identity service.
func NewIdentityService(store repositories.SessionStore, logger *zap.Logger) *IdentityService {
	return &IdentityService{store: store, logger: logger}
}

// Current returns the persisted session identity, creating and persisting a
// fresh one on first run. The given attributes only apply to a newly created
// identity; an existing one keeps what it was created with.
func (s *IdentityService) Current(ctx context.Context, language entities.Language, role entities.Role, userID string) (*entities.Session, error) {
	session, err := s.store.Load(ctx)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, repositories.ErrSessionNotFound) {
		return nil, fmt.Errorf("loading session identity: %w", err)
	}

	session = entities.NewSession(language, role, userID)
	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting new session identity: %w", err)
	}

	s.logger.Info("Created new session identity",
		zap.String("sessionId", session.ID),
		zap.String("language", string(session.Language)))
	return session, nil
}

// Regenerate replaces the persisted identity with a fresh token carrying the
// same attributes. This abandons the server-side conversation; the next
// connection starts a new one.
func (s *IdentityService) Regenerate(ctx context.Context) (*entities.Session, error) {
	current, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading session identity: %w", err)
	}

	fresh := current.Regenerate()
	if err := s.store.Save(ctx, fresh); err != nil {
		return nil, fmt.Errorf("persisting regenerated identity: %w", err)
	}

	s.logger.Info("Regenerated session identity",
		zap.String("previous", current.ID),
		zap.String("sessionId", fresh.ID))
	return fresh, nil
}
