package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDeviceTokenRoundTrip(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret"))

	token, err := issuer.DeviceToken("device-123")
	if err != nil {
		t.Fatalf("Expected token generation to succeed, got %v", err)
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Expected validation to succeed, got %v", err)
	}
	if claims.DeviceID != "device-123" || claims.Role != "device" {
		t.Errorf("Unexpected claims: %+v", claims)
	}
}

func TestUserTokenRoundTrip(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret"))

	token, err := issuer.UserToken("user-9")
	if err != nil {
		t.Fatalf("Expected token generation to succeed, got %v", err)
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Expected validation to succeed, got %v", err)
	}
	if claims.UserID != "user-9" || claims.Role != "user" {
		t.Errorf("Unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewIssuer([]byte("secret-a")).DeviceToken("device-123")
	if err != nil {
		t.Fatalf("Expected token generation to succeed, got %v", err)
	}

	if _, err := NewIssuer([]byte("secret-b")).Validate(token); err == nil {
		t.Error("Expected validation with a different secret to fail")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if _, err := NewIssuer([]byte("secret")).Validate("not.a.token"); err == nil {
		t.Error("Expected validation of garbage to fail")
	}
}

func TestAuthenticateExchangesCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/device/auth" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var cred DeviceCredential
		if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
			t.Errorf("Failed to decode credentials: %v", err)
		}
		if cred.SerialNumber != "SN-001" || cred.SecretKey != "key" {
			t.Errorf("Unexpected credentials: %+v", cred)
		}
		json.NewEncoder(w).Encode(DeviceToken{
			Token:     "signed-token",
			ExpiresAt: time.Now().Add(DeviceTokenTTL),
			DeviceID:  "device-123",
		})
	}))
	defer server.Close()

	token, err := Authenticate(context.Background(), server.URL, DeviceCredential{
		SerialNumber: "SN-001",
		SecretKey:    "key",
	})
	if err != nil {
		t.Fatalf("Expected authentication to succeed, got %v", err)
	}
	if token.Token != "signed-token" || token.DeviceID != "device-123" {
		t.Errorf("Unexpected token: %+v", token)
	}
}

func TestAuthenticateSurfacesRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	if _, err := Authenticate(context.Background(), server.URL, DeviceCredential{
		SerialNumber: "SN-001",
		SecretKey:    "wrong",
	}); err == nil {
		t.Error("Expected a rejected credential to surface an error")
	}
}
