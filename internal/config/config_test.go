// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.ServerTimeout)
	assert.Equal(t, 60*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, 30*time.Minute, cfg.CacheTreeTTL)
	assert.Equal(t, 10*time.Minute, cfg.CacheListTTL)
	assert.Equal(t, 5*time.Minute, cfg.CacheDetailTTL)
	assert.Equal(t, 32, cfg.MaxCategoryDepth)
	assert.Equal(t, "@daily", cfg.StatsReconcileJobSchedule)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("CACHE_TREE_TTL_SECONDS", "ten minutes")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_TREE_TTL_SECONDS")
}

func TestLoadRejectsNonPositiveDuration(t *testing.T) {
	t.Setenv("CACHE_LIST_TTL_SECONDS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_LIST_TTL_SECONDS")
}
