package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "outreach.db", cfg.Store.DatabaseURL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"indeed", "linkedin", "zip_recruiter", "glassdoor"}, cfg.JobSearch.Sites)
	assert.InDelta(t, 50, cfg.Clearout.MinConfidence, 0.001)
	assert.False(t, cfg.Clearout.SynthFallback)
	assert.Equal(t, 3, cfg.LinkedIn.MaxPages)
	assert.Equal(t, "https://api.hunter.io/v2", cfg.Hunter.BaseURL)
	assert.Equal(t, 5, cfg.Pipeline.MaxConcurrentCompanies)
	assert.InDelta(t, 4, cfg.Pipeline.MinDecisionMakerScore, 0.001)
	assert.Equal(t, 100, cfg.Pipeline.MaxEmployeeCount)
	assert.Equal(t, 24, cfg.Pipeline.HoursOld)
	assert.Equal(t, 3, cfg.Pipeline.TopContacts)
	assert.Equal(t, "global", cfg.Pipeline.FingerprintScope)
	assert.Equal(t, 15*time.Minute, cfg.Pipeline.StaleClaimAfter())
	assert.Equal(t, time.Duration(0), cfg.Blacklist.RecheckAfter())
	assert.Equal(t, 10, cfg.Analyzer.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Analyzer.MaxWait())
	assert.Equal(t, 1000, cfg.RateLimit.Default.MinIntervalMS)
	assert.Equal(t, 1, cfg.RateLimit.Default.Burst)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/outreach
pipeline:
  max_concurrent_companies: 10
  max_employee_count: 250
blacklist:
  recheck_after_hours: 720
  enterprise_names: [amazon, google]
ratelimit:
  providers:
    hunter:
      min_interval_ms: 2000
      burst: 2
log:
  level: debug
  format: console
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Pipeline.MaxConcurrentCompanies)
	assert.Equal(t, 250, cfg.Pipeline.MaxEmployeeCount)
	assert.Equal(t, 720*time.Hour, cfg.Blacklist.RecheckAfter())
	assert.Equal(t, []string{"amazon", "google"}, cfg.Blacklist.EnterpriseNames)
	require.Contains(t, cfg.RateLimit.Providers, "hunter")
	assert.Equal(t, 2000, cfg.RateLimit.Providers["hunter"].MinIntervalMS)
	assert.Equal(t, 2, cfg.RateLimit.Providers["hunter"].Burst)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 24, cfg.Pipeline.HoursOld)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
server:
  port: 9090
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("OUTREACH_SERVER_PORT", "7070")
	t.Setenv("OUTREACH_HUNTER_KEY", "hk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "hk-test", cfg.Hunter.Key)
}

func TestLoadSecretsFromEnv(t *testing.T) {
	chTempDir(t)

	t.Setenv("OUTREACH_JOBSEARCH_KEY", "js-test")
	t.Setenv("OUTREACH_CLEAROUT_KEY", "co-test")
	t.Setenv("OUTREACH_LINKEDIN_KEY", "li-test")
	t.Setenv("OUTREACH_HUNTER_KEY", "hk-test")
	t.Setenv("OUTREACH_INSTANTLY_KEY", "in-test")
	t.Setenv("OUTREACH_ANTHROPIC_KEY", "an-test")
	t.Setenv("OUTREACH_REDIS_PASSWORD", "rd-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "js-test", cfg.JobSearch.Key)
	assert.Equal(t, "co-test", cfg.Clearout.Key)
	assert.Equal(t, "li-test", cfg.LinkedIn.Key)
	assert.Equal(t, "hk-test", cfg.Hunter.Key)
	assert.Equal(t, "in-test", cfg.Instantly.Key)
	assert.Equal(t, "an-test", cfg.Anthropic.Key)
	assert.Equal(t, "rd-test", cfg.Redis.Password)
}

func TestLoadMalformedYAML(t *testing.T) {
	chTempDir(t)

	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [not a map"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	defer zap.ReplaceGlobals(zap.NewNop())

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	assert.Error(t, err)
}
