package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromConfigFile(t *testing.T) {
	assert := require.New(t)
	t.Setenv("ENV", "test")

	cfg, err := Load()
	assert.NoError(err, "could not load config")

	assert.Equal("8081", cfg.GetPort())
	assert.Equal("http://127.0.0.1:8001", cfg.GetSiteBaseURL())
	assert.Equal("/documents.json", cfg.GetIndexPath())
	assert.Equal(2*time.Second, cfg.GetFetchTimeout())
	assert.Equal(4, cfg.GetMaxInFlight())
	assert.Equal(50, cfg.GetSearchMaxResults())
	assert.Equal(20, cfg.GetQueryHistory())
	assert.Equal("debug", cfg.GetLogLevel())
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	assert := require.New(t)
	t.Setenv("ENV", "test")
	t.Setenv("PORT", "9999")
	t.Setenv("SITE_BASE_URL", "https://example.org")
	t.Setenv("MAX_IN_FLIGHT", "3")
	t.Setenv("FETCH_TIMEOUT", "750ms")

	cfg, err := Load()
	assert.NoError(err, "could not load config")

	assert.Equal("9999", cfg.GetPort())
	assert.Equal("https://example.org", cfg.GetSiteBaseURL())
	assert.Equal(3, cfg.GetMaxInFlight())
	assert.Equal(750*time.Millisecond, cfg.GetFetchTimeout())
}

func TestDefaultsWithoutConfigFile(t *testing.T) {
	assert := require.New(t)
	t.Setenv("ENV", "missing")

	cfg, err := Load()
	assert.NoError(err, "could not load config")

	assert.Equal(defaultPort, cfg.GetPort())
	assert.Equal(defaultIndexPath, cfg.GetIndexPath())
	assert.Equal(defaultFetchTimeout, cfg.GetFetchTimeout())
	assert.Equal(defaultMaxInFlight, cfg.GetMaxInFlight())
	assert.Equal(0, cfg.GetSearchMaxResults())
	assert.Equal(defaultQueryHistory, cfg.GetQueryHistory())
	assert.Empty(cfg.GetSiteBaseURL())
}
