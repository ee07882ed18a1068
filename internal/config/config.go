package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/embercove/voicelink/domain/entities"
)

// Config holds everything the agent needs to run, loaded from the
// environment with an optional .env file on top.
type Config struct {
	// ServerURL is the backend origin the agent connects to.
	ServerURL string

	// Source identifies this client kind to the backend: web, device or phone.
	Source string

	// Language the session is created with on first run.
	Language entities.Language

	// Role is the optional persona tag for a new session.
	Role entities.Role

	// UserID is the optional account the session belongs to.
	UserID string

	// DataDir is where the session identity database lives.
	DataDir string

	// DeviceSerial and DeviceSecret are the credentials exchanged for a
	// bearer token. Leave empty to connect unauthenticated.
	DeviceSerial string
	DeviceSecret string

	// JWTSecret signs tokens on the development server.
	JWTSecret string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		ServerURL:    getEnv("VOICELINK_SERVER_URL", "http://localhost:8080"),
		Source:       getEnv("VOICELINK_SOURCE", "device"),
		Language:     entities.Language(getEnv("VOICELINK_LANGUAGE", string(entities.DefaultLanguage))),
		Role:         entities.Role(os.Getenv("VOICELINK_ROLE")),
		UserID:       os.Getenv("VOICELINK_USER_ID"),
		DeviceSerial: os.Getenv("VOICELINK_DEVICE_SERIAL"),
		DeviceSecret: os.Getenv("VOICELINK_DEVICE_SECRET"),
		JWTSecret:    getEnv("VOICELINK_JWT_SECRET", "development-only-secret"),
	}

	dataDir := os.Getenv("VOICELINK_DATA_DIR")
	if dataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("determining data directory: %w", err)
		}
		dataDir = filepath.Join(base, "voicelink")
	}
	cfg.DataDir = dataDir

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Source {
	case "web", "device", "phone":
	default:
		return fmt.Errorf("invalid source %q: must be web, device or phone", c.Source)
	}
	if c.ServerURL == "" {
		return fmt.Errorf("server URL is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
