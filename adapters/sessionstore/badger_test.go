package sessionstore

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/embercove/voicelink/domain/entities"
	"github.com/embercove/voicelink/domain/repositories"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenBadger(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadWithoutSavedSession(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Load(context.Background())
	if !errors.Is(err, repositories.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)

	session := entities.NewSession(entities.LanguageCantonese, entities.RoleCaringParent, "user-7")
	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}
	if loaded.ID != session.ID {
		t.Errorf("Expected token %s, got %s", session.ID, loaded.ID)
	}
	if loaded.Language != entities.LanguageCantonese || loaded.Role != entities.RoleCaringParent {
		t.Errorf("Session attributes did not survive the round trip: %+v", loaded)
	}
}

func TestSaveReplacesPreviousSession(t *testing.T) {
	store := openTestStore(t)

	first := entities.NewSession(entities.DefaultLanguage, "", "")
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}

	second := first.Regenerate()
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}
	if loaded.ID != second.ID {
		t.Errorf("Expected the regenerated token, got %s", loaded.ID)
	}
}

func TestSaveRejectsInvalidSession(t *testing.T) {
	store := openTestStore(t)

	if err := store.Save(context.Background(), &entities.Session{ID: "short"}); err == nil {
		t.Error("Expected an invalid session to be rejected")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Load(context.Background()); !errors.Is(err, repositories.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound from empty store, got %v", err)
	}

	session := entities.NewSession(entities.DefaultLanguage, "", "user-1")
	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}
	if loaded.ID != session.ID {
		t.Errorf("Expected token %s, got %s", session.ID, loaded.ID)
	}
}
