package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel string

	// Sourcebook service
	SourcebookURL         string
	SourcebookInsecureTLS bool
	PushTimeout           time.Duration

	// Inbound auth
	APIKey           string
	JWTPublicKeyFile string

	// Auth backend (refresh + login redirect)
	AuthBackendURL      string
	ClientVersion       string
	ClientVersionHeader string

	// Sync scheduling
	SyncDebounce time.Duration
	WorkerCount  int
	MaxQueueSize int

	// Request limits
	MaxBodyBytes int64

	// Job state
	JobTTL      time.Duration
	StatsWindow time.Duration

	// Document store; empty URL selects the in-memory store.
	CouchDBURL  string
	CouchDBName string
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Variables already set win over the file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:     envOr("PORT", "8091"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		SourcebookURL:         envOr("SOURCEBOOK_URL", "http://localhost:3000"),
		SourcebookInsecureTLS: envBool("SOURCEBOOK_INSECURE_TLS", true),
		PushTimeout:           envDuration("PUSH_TIMEOUT", 30*time.Second),

		APIKey:           os.Getenv("API_KEY"),
		JWTPublicKeyFile: os.Getenv("JWT_PUBLIC_KEY_FILE"),

		AuthBackendURL:      os.Getenv("AUTH_BACKEND_URL"),
		ClientVersion:       envOr("CLIENT_VERSION", "dev"),
		ClientVersionHeader: envOr("CLIENT_VERSION_HEADER", "X-Client-Version"),

		SyncDebounce: envDuration("SYNC_DEBOUNCE", 15*time.Second),
		WorkerCount:  envInt("SYNC_WORKERS", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxBodyBytes: envInt64("MAX_BODY_BYTES", 10<<20), // 10MB

		JobTTL:      envDuration("JOB_TTL", 1*time.Hour),
		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),

		CouchDBURL:  os.Getenv("COUCHDB_URL"),
		CouchDBName: envOr("COUCHDB_DB", "brews"),
	}

	if cfg.SyncDebounce <= 0 {
		cfg.SyncDebounce = 15 * time.Second
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 30 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if err := checkURL("SOURCEBOOK_URL", c.SourcebookURL); err != nil {
		return err
	}
	if c.AuthBackendURL != "" {
		if err := checkURL("AUTH_BACKEND_URL", c.AuthBackendURL); err != nil {
			return err
		}
	}
	if c.CouchDBURL != "" {
		if err := checkURL("COUCHDB_URL", c.CouchDBURL); err != nil {
			return err
		}
	}
	if c.JWTPublicKeyFile != "" {
		if _, err := os.Stat(c.JWTPublicKeyFile); err != nil {
			return fmt.Errorf("JWT_PUBLIC_KEY_FILE: %w", err)
		}
	}
	if c.APIKey == "" && c.JWTPublicKeyFile == "" {
		return fmt.Errorf("one of API_KEY or JWT_PUBLIC_KEY_FILE is required")
	}
	return nil
}

// SlogLevel parses LogLevel, falling back to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func checkURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: unsupported scheme %q", key, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: missing host", key)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
