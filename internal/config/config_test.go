package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  mode: debug
database:
  type: sqlite
  sqlite:
    path: ./litscope.db
    auto_migrate: true
  postgresql:
    max_connections: 25
    max_idle: 10
nats:
  url: nats://localhost:4222
adapters:
  bibliographic:
    enabled: true
    base_url: https://eutils.ncbi.nlm.nih.gov/entrez/eutils
    timeout: 20s
  citation:
    primary_base_url: https://api.crossref.org
    fallback_base_url: https://api.openalex.org
    timeout: 15s
  vocabulary:
    enabled: true
    base_url: https://id.nlm.nih.gov/mesh
    timeout: 10s
  embedder:
    base_url: http://localhost:9000
    timeout: 10s
    dimension: 256
pipeline:
  ingest_concurrency: 8
  fetch_timeout: 20s
  recency_tau_years: 5.0
  cluster_min_size: 5
  max_results_cap: 500
logging:
  level: info
  format: json
  output: stdout
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigFromPath_ValidConfig(t *testing.T) {
	path := writeTempConfig(t, validConfigYAML)

	cfg, err := LoadConfigFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "./litscope.db", cfg.Database.SQLite.Path)
	assert.Equal(t, 256, cfg.Adapters.Embedder.Dimension)
	assert.Equal(t, 0.4, cfg.Pipeline.ScoreWeights.Novelty)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromPath_MissingExplicitFileErrors(t *testing.T) {
	_, err := LoadConfigFromPath(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigFromPath_InvalidModeFailsValidation(t *testing.T) {
	bad := `
server:
  mode: bogus
database:
  type: sqlite
adapters:
  embedder:
    dimension: 256
pipeline:
  ingest_concurrency: 8
  recency_tau_years: 5.0
  cluster_min_size: 5
  max_results_cap: 500
logging:
  level: info
  format: json
  output: stdout
`
	path := writeTempConfig(t, bad)

	_, err := LoadConfigFromPath(path)
	assert.Error(t, err)
}

func TestLoadConfigFromPath_InvalidYAMLErrors(t *testing.T) {
	path := writeTempConfig(t, "not: [valid yaml")
	_, err := LoadConfigFromPath(path)
	assert.Error(t, err)
}

func TestConfig_GetTimeoutConfig(t *testing.T) {
	path := writeTempConfig(t, validConfigYAML)
	cfg, err := LoadConfigFromPath(path)
	require.NoError(t, err)

	tc, err := cfg.GetTimeoutConfig()
	require.NoError(t, err)
	assert.Equal(t, 20e9, float64(tc.ExternalAPI))
}

func TestConfig_GetDatabaseConnectionString(t *testing.T) {
	path := writeTempConfig(t, validConfigYAML)
	cfg, err := LoadConfigFromPath(path)
	require.NoError(t, err)

	dsn, err := cfg.GetDatabaseConnectionString()
	require.NoError(t, err)
	assert.Equal(t, "./litscope.db", dsn)

	cfg.Database.Type = "mysql"
	_, err = cfg.GetDatabaseConnectionString()
	assert.Error(t, err)
}
