package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	// Storage
	DataDir        string // Root for the sqlite database and the images directory
	StorageBackend string // "sqlite", "postgres" or "memory"
	DatabaseURL    string
	TablePrefix    string
	// LLM fallbacks, used when the persisted settings carry no key
	GeminiAPIKey    string
	AnthropicAPIKey string
	// Generation
	GenerationTimeout time.Duration
	// Logging
	LogDir      string
	LogMaxFiles int
	Debug       bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:              getEnv("PORT", "8787"),
		Environment:       env,
		CORSOrigins:       getEnv("CORS_ORIGINS", "http://localhost:5173"),
		DataDir:           getEnv("DATA_DIR", defaultDataDir()),
		StorageBackend:    getEnv("STORAGE_BACKEND", "sqlite"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		TablePrefix:       getTablePrefix(env),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		GenerationTimeout: getDuration("GENERATION_TIMEOUT", 3*time.Minute),
		LogDir:            getEnv("LOG_DIR", ""),
		LogMaxFiles:       getInt("LOG_MAX_FILES", 5),
		Debug:             getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// ImagesDir is where image bytes live, keyed by image id + extension.
func (c *Config) ImagesDir() string {
	return filepath.Join(c.DataDir, "images")
}

// SQLitePath is the database file used by the sqlite backend.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "aireporter.db")
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "data")
	}
	return filepath.Join(dir, "aireporter")
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix for the postgres backend
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
