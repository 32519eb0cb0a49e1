package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkyai/forky/internal/configfile"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, defaultModel, cfg.Model)
	assert.Equal(t, defaultBusyDeadline, cfg.BusyDeadline)
	assert.NotEmpty(t, cfg.StorageDSN)
}

func TestLoadPrefersProjectConfigFile(t *testing.T) {
	root := t.TempDir()
	fileCfg := &configfile.Config{DSN: "mysql://root@tcp(localhost:3307)/forky", DefaultModel: "claude-opus-4-1"}
	require.NoError(t, fileCfg.Save(root))

	cfg, err := Load(root, nil)
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-1", cfg.Model)
	assert.Equal(t, "mysql://root@tcp(localhost:3307)/forky", cfg.StorageDSN)
}
