package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "PERSIST_BACKEND", "ENERGY_COST_PER_KWH", "CORS_ALLOWED_ORIGINS", "AUTH_API_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "file", cfg.PersistBackend)
	assert.Equal(t, 0.15, cfg.EnergyCostPerKWh)
	assert.Empty(t, cfg.AuthAPIURL)
	assert.Len(t, cfg.CORSOrigins, 2)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PERSIST_BACKEND", "redis")
	t.Setenv("ENERGY_COST_PER_KWH", "0.21")
	t.Setenv("ANALYSIS_PHASE_DELAY", "750ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, ,https://admin.example.com")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := Load()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "redis", cfg.PersistBackend)
	assert.Equal(t, 0.21, cfg.EnergyCostPerKWh)
	assert.Equal(t, 750*time.Millisecond, cfg.AnalysisPhaseDelay)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 2, cfg.MaxRetries, "unparseable values fall back to the default")
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nFIALO_TEST_A=from-file\nFIALO_TEST_B=\"quoted\"\n"), 0o600))
	t.Setenv("FIALO_TEST_A", "from-env")
	t.Setenv("FIALO_TEST_B", "")
	os.Unsetenv("FIALO_TEST_B")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("FIALO_TEST_A"), "existing env wins")
	assert.Equal(t, "quoted", os.Getenv("FIALO_TEST_B"))
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}
