package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"PARCIAL", "ASIGNACION", "PORTAFOLIO", "SEMESTRAL", "ASISTENCIA"}, cfg.Grading.Components)
	assert.Equal(t, 10*time.Minute, cfg.Summary.CacheTTL)
	assert.Equal(t, "@hourly", cfg.Maintenance.TokenCleanupSchedule)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("GRADING_COMPONENTS", "parcial, asignacion ,semestral")
	t.Setenv("SUMMARY_CACHE_TTL", "not-a-duration")
	t.Setenv("IDENTITY_PROVIDER_URL", "https://auth.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"parcial", "asignacion", "semestral"}, cfg.Grading.Components)
	assert.Equal(t, 10*time.Minute, cfg.Summary.CacheTTL)
	assert.Equal(t, "https://auth.example.com", cfg.Identity.URL)
}
