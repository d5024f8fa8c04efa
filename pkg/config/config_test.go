package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "./data", cfg.DataDir)
	assert.False(t, cfg.InMemory)
	assert.False(t, cfg.SyncWrites)
	assert.Equal(t, 32, cfg.MaxRetries)
	assert.Equal(t, "default", cfg.DefaultGraph)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("YGG_DATA_DIR", "/var/lib/ygg")
	t.Setenv("YGG_IN_MEMORY", "true")
	t.Setenv("YGG_SYNC_WRITES", "1")
	t.Setenv("YGG_MAX_RETRIES", "5")
	t.Setenv("YGG_GRAPH", "social")

	cfg := LoadFromEnv()
	assert.Equal(t, "/var/lib/ygg", cfg.DataDir)
	assert.True(t, cfg.InMemory)
	assert.True(t, cfg.SyncWrites)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "social", cfg.DefaultGraph)
}

func TestLoadFromEnv_Malformed(t *testing.T) {
	t.Setenv("YGG_IN_MEMORY", "yep")
	t.Setenv("YGG_MAX_RETRIES", "lots")

	cfg := LoadFromEnv()
	assert.False(t, cfg.InMemory)
	assert.Equal(t, 32, cfg.MaxRetries)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ygg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /mnt/graph\nmax_retries: 8\n"), 0o644))

	cfg, err := LoadFile(Default(), path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/graph", cfg.DataDir)
	assert.Equal(t, 8, cfg.MaxRetries)
	// Fields absent from the file keep their prior values.
	assert.Equal(t, "default", cfg.DefaultGraph)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(Default(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))
	_, err = LoadFile(Default(), path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DataDir = ""
	assert.Error(t, cfg.Validate())
	cfg.InMemory = true
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.MaxRetries = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.DefaultGraph = ""
	assert.Error(t, cfg.Validate())
}
