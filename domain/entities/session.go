package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Language is the conversation language requested for a session.
type Language string

const (
	LanguageEnglish   Language = "en"
	LanguageFrench    Language = "french"
	LanguageCantonese Language = "zh-HK"
	LanguageTaiwanese Language = "zh-TW"

	DefaultLanguage = LanguageEnglish
)

// Role is an optional persona tag the backend uses to shape responses.
type Role string

const (
	RoleLoyalBestFriend Role = "loyal_best_friend"
	RoleCaringParent    Role = "caring_parent"
	RoleCoach           Role = "coach"
	RoleFunnyFriend     Role = "funny_friend"
)

// Session is the client-side conversation identity. It is created once per
// device install, persisted locally, reused across reconnects, and replaced
// only by explicit user action. The server never mutates it.
type Session struct {
	ID        string    `json:"id"`
	Language  Language  `json:"language"`
	Role      Role      `json:"role,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSession creates a session with a fresh random token.
func NewSession(language Language, role Role, userID string) *Session {
	if language == "" {
		language = DefaultLanguage
	}
	return &Session{
		ID:        uuid.NewString(),
		Language:  language,
		Role:      role,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
}

// Regenerate returns a new session carrying the same language, role and user
// but a fresh token. This is the only way an existing identity is replaced.
func (s *Session) Regenerate() *Session {
	return NewSession(s.Language, s.Role, s.UserID)
}

// Validate validates the session identity.
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if len(s.ID) != 36 {
		return errors.New("session id must be a 36-character hyphenated token")
	}
	if _, err := uuid.Parse(s.ID); err != nil {
		return errors.New("session id is not a valid token")
	}
	if s.Language == "" {
		return errors.New("language is required")
	}
	return nil
}
