package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DEFAULT_PHONE_REGION", "")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "SA", cfg.DefaultPhoneRegion)
	assert.Equal(t, 10*time.Second, cfg.ReportTimeout)
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("RATE_LIMIT_BURST", "50")
	t.Setenv("JOBS_ENABLED", "false")
	t.Setenv("REPORT_TIMEOUT", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("API_ENVIRONMENT", "production")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 50, cfg.RateLimitBurst)
	assert.False(t, cfg.JobsEnabled)
	assert.Equal(t, 30*time.Second, cfg.ReportTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "many")
	t.Setenv("JOBS_ENABLED", "sometimes")
	t.Setenv("REPORT_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.True(t, cfg.JobsEnabled)
	assert.Equal(t, 10*time.Second, cfg.ReportTimeout)
}
