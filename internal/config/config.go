package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP Configuration
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Session Configuration
	Session SessionConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ListenAddr string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// SessionConfig holds session-token and cookie configuration
type SessionConfig struct {
	// Keys maps key id -> signing secret. Verification uses the key a token
	// names, so old keys stay in the set until their tokens have expired.
	Keys map[string]string

	// ActiveKeyID names the key used to sign newly issued tokens.
	ActiveKeyID string

	// TokenTTL bounds how long an issued token verifies.
	TokenTTL time.Duration

	// UserCacheTTL enables the access-gate user cache when > 0.
	UserCacheTTL time.Duration

	CookieSecure bool
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// keyFile is the on-disk YAML layout for a rotatable signing key set.
type keyFile struct {
	Active string            `yaml:"active"`
	Keys   map[string]string `yaml:"keys"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	// Database URL - default to a local sqlite file, allow override for dev
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "roostd.sqlite"
	}

	keys, activeKeyID, err := loadSessionKeys()
	if err != nil {
		return nil, err
	}

	tokenTTL, err := durationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	userCacheTTL, err := durationEnv("USER_CACHE_TTL", 0)
	if err != nil {
		return nil, err
	}

	cookieSecure, err := boolEnv("COOKIE_SECURE", false)
	if err != nil {
		return nil, err
	}

	// Logging configuration - defaults suitable for production
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}

	return &Config{
		Server: ServerConfig{
			ListenAddr: listenAddr,
		},
		Database: DatabaseConfig{
			URL: dbURL,
		},
		Session: SessionConfig{
			Keys:         keys,
			ActiveKeyID:  activeKeyID,
			TokenTTL:     tokenTTL,
			UserCacheTTL: userCacheTTL,
			CookieSecure: cookieSecure,
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}

// loadSessionKeys resolves the signing key set. A SESSION_KEYS_FILE gives a
// rotatable multi-key set; a bare SESSION_SECRET gives a single-key set under
// the id "k0". One of the two is required - there is no built-in default.
func loadSessionKeys() (map[string]string, string, error) {
	if path := os.Getenv("SESSION_KEYS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read session keys file: %w", err)
		}

		var kf keyFile
		if err := yaml.Unmarshal(data, &kf); err != nil {
			return nil, "", fmt.Errorf("failed to parse session keys file: %w", err)
		}

		if len(kf.Keys) == 0 {
			return nil, "", fmt.Errorf("session keys file %s defines no keys", path)
		}

		active := kf.Active
		if override := os.Getenv("SESSION_ACTIVE_KEY"); override != "" {
			active = override
		}
		if _, ok := kf.Keys[active]; !ok {
			return nil, "", fmt.Errorf("active session key %q not present in key set", active)
		}

		return kf.Keys, active, nil
	}

	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		return map[string]string{"k0": secret}, "k0", nil
	}

	return nil, "", fmt.Errorf("no session secret configured: set SESSION_SECRET or SESSION_KEYS_FILE")
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func boolEnv(name string, fallback bool) (bool, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
