package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CORRELATION_POLL_INTERVALS", "")
	t.Setenv("CORRELATION_MAX_READS", "")
	cfg := Load()
	assert.Equal(t, "speech-gen-ai", cfg.DynamoTable)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, cfg.Correlation.PollIntervals)
	assert.Equal(t, 2, cfg.Correlation.MaxReads)
	assert.Equal(t, 10*time.Minute, cfg.Correlation.FreshnessWindow)
	assert.Equal(t, 15*time.Minute, cfg.Correlation.TempRecordTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CORRELATION_POLL_INTERVALS", "1s, 2s,3s")
	t.Setenv("CORRELATION_MAX_READS", "4")
	t.Setenv("PROFILE_UPDATE_FRESHNESS", "5m")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, cfg.Correlation.PollIntervals)
	assert.Equal(t, 4, cfg.Correlation.MaxReads)
	assert.Equal(t, 5*time.Minute, cfg.Correlation.FreshnessWindow)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_BadDurationListFallsBack(t *testing.T) {
	t.Setenv("CORRELATION_POLL_INTERVALS", "10s,soon")
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, Load().Correlation.PollIntervals)
}
