package config

import (
	"fmt"
	"os"
	"time"

	"roomchat/internal/session"
)

// Config holds the chat client settings.
type Config struct {
	Host           string
	Room           string
	Scheme         string
	PathPrefix     string
	Token          string
	ReconnectDelay time.Duration
	RosterPolicy   session.RosterPolicy
}

// ServerConfig holds the development room server settings.
type ServerConfig struct {
	Addr      string
	AdminAddr string
}

func Load() (*Config, error) {
	reconnectDelay, err := time.ParseDuration(getEnv("ROOMCHAT_RECONNECT_DELAY", "2s"))
	if err != nil {
		return nil, fmt.Errorf("ROOMCHAT_RECONNECT_DELAY: %w", err)
	}

	policy, err := session.ParseRosterPolicy(getEnv("ROOMCHAT_ROSTER_POLICY", "clear"))
	if err != nil {
		return nil, fmt.Errorf("ROOMCHAT_ROSTER_POLICY: %w", err)
	}

	cfg := &Config{
		Host:           os.Getenv("ROOMCHAT_HOST"),
		Room:           os.Getenv("ROOMCHAT_ROOM"),
		Scheme:         getEnv("ROOMCHAT_SCHEME", session.DefaultScheme),
		PathPrefix:     getEnv("ROOMCHAT_PATH_PREFIX", session.DefaultPathPrefix),
		Token:          os.Getenv("ROOMCHAT_TOKEN"),
		ReconnectDelay: reconnectDelay,
		RosterPolicy:   policy,
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("ROOMCHAT_HOST is required")
	}

	if c.Room == "" {
		return fmt.Errorf("ROOMCHAT_ROOM or -room is required")
	}

	if c.Scheme != "ws" && c.Scheme != "wss" {
		return fmt.Errorf("ROOMCHAT_SCHEME must be ws or wss, got %q", c.Scheme)
	}

	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("ROOMCHAT_RECONNECT_DELAY must be greater than 0")
	}

	return nil
}

func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{
		Addr:      getEnv("DEVROOM_ADDR", ":8000"),
		AdminAddr: getEnv("DEVROOM_ADMIN_ADDR", "localhost:8001"),
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("DEVROOM_ADDR must not be empty")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
