package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	Secret            string
	DatabasePath      string
	BackupDir         string
	LogDir            string
	BackupRetention   int
	SessionTimeoutMin int
	HTTPPort          string
}

// Load reads configuration from environment variables with reasonable
// defaults. A missing .env file is not an error; the market machines run
// on defaults.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Secret:            getenv("SECRET", "dev_secret"),
		DatabasePath:      getenv("MERCADO_DB_PATH", "mercado.db"),
		BackupDir:         getenv("MERCADO_BACKUP_DIR", "backups"),
		LogDir:            getenv("MERCADO_LOG_DIR", "logs"),
		BackupRetention:   getint("MERCADO_BACKUP_RETENTION", 30),
		SessionTimeoutMin: getint("MERCADO_SESSION_TIMEOUT_MIN", 30),
		HTTPPort:          getenv("HTTP_PORT", "8080"),
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", cfg.HTTPPort)
		cfg.HTTPPort = "8080"
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("invalid %s value %q, defaulting to %d", key, v, fallback)
		return fallback
	}
	return n
}
