package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docsd/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	require.Len(t, cfg.Categories, 9)
	assert.Equal(t, "Getting Started", cfg.Categories[0].Name)
	assert.Equal(t, "Contributing", cfg.Categories[8].Name)

	assert.Equal(t, ".", cfg.Storage.BaseDir)
	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
categories:
  - name: API Reference
    path: docs/api
    description: API docs
  - name: Guides
    path: docs/guides
    description: Guides and how-tos
storage:
  base_dir: /var/lib/docsd
embeddings:
  provider: openai
  model: text-embedding-3-small
llm:
  model: gpt-4
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Categories, 2)
	assert.Equal(t, "API Reference", cfg.Categories[0].Name)
	assert.Equal(t, "/var/lib/docsd", cfg.Storage.BaseDir)
	assert.Equal(t, "openai", cfg.Embeddings.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embeddings.Model)
	assert.Equal(t, "gpt-4", cfg.LLM.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	cats := reg.Categories()
	assert.Equal(t, "api_reference", cats[0].Key())
	assert.Equal(t, "guides", cats[1].Key())
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file")
}

func TestLoad_PartialStorageKeepsCompress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  compress: true\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Storage.BaseDir)
	assert.True(t, cfg.Storage.Compress)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: gpt-4\n"), 0o600))

	t.Setenv("DOCSD_LLM_MODEL", "gpt-4o")
	t.Setenv("DOCSD_STORAGE_BASE_DIR", "/tmp/docsd-idx")
	t.Setenv("DOCSD_LOGGING_LEVEL", "warn")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "/tmp/docsd-idx", cfg.Storage.BaseDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_RejectsDuplicateCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
categories:
  - name: Guides
    path: docs/a
    description: a
  - name: guides
    path: docs/b
    description: b
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoad_RejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("DOCSD_LOGGING_LEVEL", "loud")
	_, err := config.Load("")
	require.Error(t, err)
}
