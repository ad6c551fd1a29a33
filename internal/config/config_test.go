package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SECRET", "MERCADO_DB_PATH", "MERCADO_BACKUP_DIR", "MERCADO_LOG_DIR",
		"MERCADO_BACKUP_RETENTION", "MERCADO_SESSION_TIMEOUT_MIN", "HTTP_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "mercado.db", cfg.DatabasePath)
	assert.Equal(t, "backups", cfg.BackupDir)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, 30, cfg.BackupRetention)
	assert.Equal(t, 30, cfg.SessionTimeoutMin)
	assert.Equal(t, "8080", cfg.HTTPPort)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MERCADO_DB_PATH", "/var/lib/mercado/store.db")
	t.Setenv("MERCADO_BACKUP_RETENTION", "7")
	t.Setenv("HTTP_PORT", "9090")

	cfg := Load()
	assert.Equal(t, "/var/lib/mercado/store.db", cfg.DatabasePath)
	assert.Equal(t, 7, cfg.BackupRetention)
	assert.Equal(t, "9090", cfg.HTTPPort)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("MERCADO_BACKUP_RETENTION", "-3")
	t.Setenv("MERCADO_SESSION_TIMEOUT_MIN", "soon")
	t.Setenv("HTTP_PORT", "not-a-port")

	cfg := Load()
	assert.Equal(t, 30, cfg.BackupRetention)
	assert.Equal(t, 30, cfg.SessionTimeoutMin)
	assert.Equal(t, "8080", cfg.HTTPPort)
}
