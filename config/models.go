package config

import (
	"fmt"
	"time"
)

// Config is the full application configuration
type Config struct {
	Logging LoggingConfig
	Server  ServerConfig
	Redis   RedisConfig
	Session SessionConfig
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level string
}

// ServerConfig controls the HTTP/websocket listener
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig controls the shared backend connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SessionConfig controls session behavior
type SessionConfig struct {
	// TTL is the sliding session lifetime
	TTL time.Duration
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive, got %s", c.Session.TTL)
	}

	return nil
}

// ListenAddr returns the host:port the server binds to
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
