// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the service.
type Config struct {
	ListenAddr string
	AppEnv     string

	// Metadata store (any redis-compatible server)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Blob storage root; finished blobs live in DataDir/upload,
	// in-progress transfers in DataDir/partial.
	DataDir string

	// AdminToken authorizes size-cap changes and overrides revocation
	// tokens. Empty disables admin operations entirely.
	AdminToken string
	// StatusToken, when set, gates GET /status.
	StatusToken string

	// MaxFileSize is the boot default for the shared size cap, accepting
	// K/M/G/T suffixes. The live value is kept in the metadata store.
	MaxFileSize string

	// IDSize is the starting length of public file identifiers.
	IDSize int

	SessionTTL     time.Duration
	DefaultFileTTL time.Duration
	GCInterval     time.Duration
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		AppEnv:     getEnv("APP_ENV", "development"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DataDir: getEnv("DATA_DIR", "/mount"),

		AdminToken:  getEnv("ADMIN_TOKEN", ""),
		StatusToken: getEnv("STATUS_TOKEN", ""),

		MaxFileSize: getEnv("MAX_FILE_SIZE", "500M"),
		IDSize:      getEnvInt("UUID_SIZE", 5),

		SessionTTL:     getEnvDuration("SESSION_TTL", 2*time.Hour),
		DefaultFileTTL: getEnvDuration("DEFAULT_FILE_TTL", 30*24*time.Hour),
		GCInterval:     getEnvDuration("GC_INTERVAL", time.Hour),
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("invalid %s=%q, using default %d", key, v, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid %s=%q, using default %s", key, v, fallback)
	}
	return fallback
}
