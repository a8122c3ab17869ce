package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("APP_CONFIG_FILE", path)
}

func TestNew_LoadsCatalogAndConcurrency(t *testing.T) {
	writeConfig(t, `
env: prod
server:
  port: 9000
pack_templates:
  - id: pt12
    name: "12 PT sessions"
    total_sessions: 12
    price_total: 480000
    currency: USD
    validity_days: 90
  - id: open10
    name: "10 open gym visits"
    total_sessions: 10
    price_total: 15000
concurrency:
  max_attempts: 3
  backoff_base: 2ms
`)

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, EnvProd, cfg.Env)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, 3, cfg.Concurrency.MaxAttempts)
	require.Equal(t, 2*time.Millisecond, cfg.Concurrency.BackoffBase)
	require.Equal(t, 200*time.Millisecond, cfg.Concurrency.BackoffCap)
	require.True(t, cfg.Housekeeping.Enabled)

	pt := cfg.GetPackTemplateByID("pt12")
	require.NotNil(t, pt)
	require.Equal(t, 12, pt.TotalSessions)
	require.NotNil(t, pt.ValidityDays)
	require.Equal(t, 90, *pt.ValidityDays)

	open := cfg.GetPackTemplateByID("open10")
	require.NotNil(t, open)
	require.Nil(t, open.ValidityDays)

	require.Nil(t, cfg.GetPackTemplateByID("missing"))
}

func TestNew_RejectsInvalidTemplate(t *testing.T) {
	writeConfig(t, `
pack_templates:
  - id: broken
    total_sessions: 0
`)
	_, err := New()
	require.Error(t, err)
	require.Contains(t, err.Error(), "total_sessions")
}

func TestNew_RejectsDuplicateTemplateIDs(t *testing.T) {
	writeConfig(t, `
pack_templates:
  - id: a
    total_sessions: 1
  - id: a
    total_sessions: 2
`)
	_, err := New()
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}
