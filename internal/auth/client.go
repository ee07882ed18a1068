package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DeviceCredential is what a device presents to obtain a session token.
type DeviceCredential struct {
	SerialNumber string `json:"serial_number"`
	SecretKey    string `json:"secret_key"`
}

// DeviceToken is the token material returned by the auth endpoint.
type DeviceToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	DeviceID  string    `json:"device_id"`
}

// Authenticate exchanges device credentials for a bearer token at the
// backend's device auth endpoint.
func Authenticate(ctx context.Context, baseURL string, cred DeviceCredential) (*DeviceToken, error) {
	body, err := json.Marshal(cred)
	if err != nil {
		return nil, fmt.Errorf("encoding credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL+"/api/v1/device/auth", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting device token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("device auth failed with status %d", resp.StatusCode)
	}

	var token DeviceToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decoding device token: %w", err)
	}
	if token.Token == "" {
		return nil, fmt.Errorf("device auth returned an empty token")
	}
	return &token, nil
}
