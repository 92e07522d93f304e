package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures the runtime configuration for the Feedwall backend service.
type Config struct {
	AppPort  int
	LogLevel string

	Redis    RedisConfig
	Keycloak KeycloakConfig

	AuthRateLimit RateLimitConfig
}

// RedisConfig holds connection settings for the feed store and token cache.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// KeycloakConfig holds identity-provider settings. Admin credentials are only
// used by the registration flow.
type KeycloakConfig struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string

	AdminRealm    string
	AdminUsername string
	AdminPassword string
}

// RateLimitConfig tunes the per-IP limiter guarding credential endpoints.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
	TTL      time.Duration
}

// Load reads configuration from environment variables, applying sensible defaults
// for local development while allowing overrides through environment variables.
func Load() (Config, error) {
	cfg := Config{
		AppPort:  getInt("FEEDWALL_PORT", 8080),
		LogLevel: getString("FEEDWALL_LOG_LEVEL", "info"),
		Redis: RedisConfig{
			Addr:        getString("FEEDWALL_REDIS_ADDR", "localhost:6379"),
			Password:    getString("FEEDWALL_REDIS_PASSWORD", ""),
			DB:          getInt("FEEDWALL_REDIS_DB", 0),
			DialTimeout: getDuration("FEEDWALL_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout: getDuration("FEEDWALL_REDIS_READ_TIMEOUT", 3*time.Second),
		},
		Keycloak: KeycloakConfig{
			BaseURL:       getString("FEEDWALL_KEYCLOAK_URL", "http://localhost:8180"),
			Realm:         getString("FEEDWALL_KEYCLOAK_REALM", "feedwall"),
			ClientID:      getString("FEEDWALL_KEYCLOAK_CLIENT_ID", "feedwall-backend"),
			ClientSecret:  getString("FEEDWALL_KEYCLOAK_CLIENT_SECRET", ""),
			AdminRealm:    getString("FEEDWALL_KEYCLOAK_ADMIN_REALM", "master"),
			AdminUsername: getString("FEEDWALL_KEYCLOAK_ADMIN_USERNAME", "admin"),
			AdminPassword: getString("FEEDWALL_KEYCLOAK_ADMIN_PASSWORD", "admin"),
		},
		AuthRateLimit: RateLimitConfig{
			Requests: getInt("FEEDWALL_AUTH_RATE_LIMIT", 10),
			Window:   getDuration("FEEDWALL_AUTH_RATE_WINDOW", time.Minute),
			Burst:    getInt("FEEDWALL_AUTH_RATE_BURST", 5),
			TTL:      getDuration("FEEDWALL_AUTH_RATE_TTL", 10*time.Minute),
		},
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
