package usecase

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/embercove/voicelink/adapters/sessionstore"
	"github.com/embercove/voicelink/domain/entities"
)

func TestCurrentCreatesIdentityOnFirstRun(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	svc := NewIdentityService(store, zap.NewNop())

	session, err := svc.Current(context.Background(), entities.LanguageFrench, entities.RoleCoach, "user-3")
	if err != nil {
		t.Fatalf("Expected identity creation, got %v", err)
	}
	if session.Language != entities.LanguageFrench || session.Role != entities.RoleCoach {
		t.Errorf("New identity did not carry the requested attributes: %+v", session)
	}

	persisted, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Expected identity to be persisted, got %v", err)
	}
	if persisted.ID != session.ID {
		t.Errorf("Persisted token %s does not match returned %s", persisted.ID, session.ID)
	}
}

func TestCurrentReusesExistingIdentity(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	svc := NewIdentityService(store, zap.NewNop())

	first, err := svc.Current(context.Background(), entities.DefaultLanguage, "", "")
	if err != nil {
		t.Fatalf("Expected identity creation, got %v", err)
	}

	// Different requested attributes must not replace an existing identity.
	second, err := svc.Current(context.Background(), entities.LanguageCantonese, entities.RoleFunnyFriend, "other")
	if err != nil {
		t.Fatalf("Expected identity load, got %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected the same token across runs, got %s and %s", first.ID, second.ID)
	}
	if second.Language != entities.DefaultLanguage {
		t.Errorf("Existing identity attributes must persist, got %+v", second)
	}
}

func TestRegenerateReplacesToken(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	svc := NewIdentityService(store, zap.NewNop())

	original, err := svc.Current(context.Background(), entities.DefaultLanguage, entities.RoleCaringParent, "user-1")
	if err != nil {
		t.Fatalf("Expected identity creation, got %v", err)
	}

	fresh, err := svc.Regenerate(context.Background())
	if err != nil {
		t.Fatalf("Expected regeneration, got %v", err)
	}
	if fresh.ID == original.ID {
		t.Error("Expected a fresh token")
	}
	if fresh.Language != original.Language || fresh.Role != original.Role || fresh.UserID != original.UserID {
		t.Errorf("Regeneration must keep attributes, got %+v", fresh)
	}

	persisted, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Expected persisted identity, got %v", err)
	}
	if persisted.ID != fresh.ID {
		t.Errorf("Expected the fresh token persisted, got %s", persisted.ID)
	}
}

func TestRegenerateWithoutIdentityFails(t *testing.T) {
	svc := NewIdentityService(sessionstore.NewMemoryStore(), zap.NewNop())

	if _, err := svc.Regenerate(context.Background()); err == nil {
		t.Error("Expected regeneration without an existing identity to fail")
	}
}
