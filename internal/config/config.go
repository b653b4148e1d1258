// Package config loads the server configuration from the environment.
package config

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config is the server configuration.
type Config struct {
	Port            int
	DatabaseURL     string
	SecretKey       []byte
	GeneratedSecret bool
	SessionDuration time.Duration
	SecureCookie    bool
	RedisAddr       string
	LogLevel        string

	AdminUser     string
	AdminEmail    string
	AdminPassword string
}

// Load reads the configuration through getenv, usually os.Getenv.
func Load(getenv func(string) string) (*Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		DatabaseURL:   env("DATABASE_URL", env("DB_PATH", "data.sqlite")),
		RedisAddr:     env("REDIS_ADDR", ""),
		LogLevel:      env("LOG_LEVEL", "info"),
		AdminUser:     env("ADMIN_USER", ""),
		AdminEmail:    env("ADMIN_EMAIL", ""),
		AdminPassword: getenv("ADMIN_PASSWORD"),
	}

	port, err := strconv.Atoi(env("PORT", "8080"))
	if err != nil || port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", getenv("PORT"))
	}
	cfg.Port = port

	cfg.SessionDuration, err = time.ParseDuration(env("SESSION_DURATION", "720h"))
	if err != nil || cfg.SessionDuration <= 0 {
		return nil, fmt.Errorf("invalid SESSION_DURATION %q", getenv("SESSION_DURATION"))
	}

	if raw := env("SECURE_COOKIE", ""); raw != "" {
		if cfg.SecureCookie, err = strconv.ParseBool(raw); err != nil {
			return nil, fmt.Errorf("invalid SECURE_COOKIE %q", raw)
		}
	}

	if secret := getenv("SECRET_KEY"); secret != "" {
		cfg.SecretKey = []byte(secret)
	} else {
		cfg.SecretKey = make([]byte, 32)
		if _, err := rand.Read(cfg.SecretKey); err != nil {
			return nil, fmt.Errorf("failed to generate secret key: %w", err)
		}
		cfg.GeneratedSecret = true
	}

	return cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SeedAdmin reports whether an admin account should be created at startup.
func (c *Config) SeedAdmin() bool {
	return c.AdminUser != "" && c.AdminEmail != "" && c.AdminPassword != ""
}
