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
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 0.95, cfg.Drift.Threshold)
	assert.Equal(t, "baseline_stats.json", cfg.Drift.BaselinePath)
	assert.Equal(t, 10*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, 2000, cfg.Visualization.MaxPoints)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
drift:
  threshold: 0.9
  baseline_store: badger
embedding:
  provider: openai-compatible
  model: bge-m3
  base_url: http://localhost:8081/v1
  dimensions: 1024
visualization:
  max_points: 500
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "badger", cfg.Drift.BaselineStore)
	assert.Equal(t, 0.9, cfg.Drift.Threshold)
	assert.Equal(t, "bge-m3", cfg.Embedding.Model)
	assert.Equal(t, 500, cfg.Visualization.MaxPoints)
}

func TestEmbeddingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EmbeddingConfig
		wantErr bool
	}{
		{"hash", EmbeddingConfig{Provider: "hash", Dimensions: 64}, false},
		{"no provider", EmbeddingConfig{Dimensions: 64}, true},
		{"zero dims", EmbeddingConfig{Provider: "hash"}, true},
		{"http missing url", EmbeddingConfig{Provider: "openai-compatible", Model: "m", Dimensions: 8}, true},
		{"http ok", EmbeddingConfig{Provider: "openai-compatible", Model: "m", BaseURL: "http://x", Dimensions: 8}, false},
		{"unknown", EmbeddingConfig{Provider: "jina", Dimensions: 8}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEmbeddingConfig_ResolveEnvVars(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "secret")
	cfg := EmbeddingConfig{APIKeyEnv: "TEST_EMBED_KEY"}
	cfg.ResolveEnvVars()
	assert.Equal(t, "secret", cfg.APIKey)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./data/x.db"}
	assert.Equal(t, "./data/x.db", sqlite.DSN())

	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", pg.DSN())
}
