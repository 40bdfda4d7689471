package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "./repos", cfg.Storage.ReposDir)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "llama3-8b-8192", cfg.LLM.Model)
	assert.Equal(t, 0.0, cfg.LLM.Temperature)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, "http://localhost:11434", cfg.Embedding.ServerURL)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 0.6, cfg.Index.ResetThreshold)
	assert.Equal(t, 256, cfg.Index.AssessBatchSize)
	assert.Equal(t, 1000, cfg.Index.MaxChunkChars)
	assert.Equal(t, 5, cfg.Index.TopK)
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repoassist.toml")
	content := `
[server]
port = 9000

[llm]
api_key = "file-key"

[index]
reset_threshold = 0.8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "file-key", cfg.LLM.APIKey)
	assert.Equal(t, 0.8, cfg.Index.ResetThreshold)
	// Untouched keys keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "llama3-8b-8192", cfg.LLM.Model)
}

func TestLoadConfig_MissingFileIsAnError(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("REPOASSIST_SERVER_PORT", "7777")
	t.Setenv("REPOASSIST_LLM_MODEL", "llama3-70b-8192")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "llama3-70b-8192", cfg.LLM.Model)
}

func TestLoadConfig_LegacyEnvNames(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "legacy-key")
	t.Setenv("DATABASE_URL", "postgres://legacy/db")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "1234")
	t.Setenv("RESET_THRESHOLD", "0.75")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "legacy-key", cfg.LLM.APIKey)
	assert.Equal(t, "postgres://legacy/db", cfg.Database.URL)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 1234, cfg.Server.Port)
	assert.Equal(t, 0.75, cfg.Index.ResetThreshold)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		cfg.LLM.APIKey = "key"
		cfg.Database.URL = "postgres://localhost/repoassist"
		return cfg
	}

	assert.NoError(t, Validate(valid()))

	cfg := valid()
	cfg.LLM.APIKey = ""
	assert.ErrorContains(t, Validate(cfg), "api_key")

	cfg = valid()
	cfg.Database.URL = ""
	assert.ErrorContains(t, Validate(cfg), "database url")

	cfg = valid()
	cfg.Index.ResetThreshold = 1.5
	assert.ErrorContains(t, Validate(cfg), "reset_threshold")

	cfg = valid()
	cfg.Index.AssessBatchSize = 0
	assert.ErrorContains(t, Validate(cfg), "assess_batch_size")
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repoassist.toml")

	require.NoError(t, InitConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[server]")
	assert.Contains(t, string(data), "[llm]")

	// A second init must not overwrite the existing file.
	assert.Error(t, InitConfig(path))
}
