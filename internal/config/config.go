package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the client reads from the environment.
type Config struct {
	ServerURL     string
	TokenFile     string
	HistoryDB     string
	HTTPTimeout   time.Duration
	NormalizeText bool
}

// Load reads a .env file when one is present, then fills the config from
// the environment with sensible defaults. Missing .env is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ServerURL:     getEnv("MEDATLAS_SERVER_URL", "http://127.0.0.1:8080"),
		TokenFile:     getEnv("MEDATLAS_TOKEN_FILE", defaultStatePath("token")),
		HistoryDB:     getEnv("MEDATLAS_HISTORY_DB", defaultStatePath("history.db")),
		HTTPTimeout:   getEnvDuration("MEDATLAS_HTTP_TIMEOUT", 10*time.Second),
		NormalizeText: getEnvBool("MEDATLAS_NORMALIZE_TEXT", false),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func defaultStatePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".medatlas", name)
}
