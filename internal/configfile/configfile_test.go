package configfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsNilNil(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{Backend: BackendDoltServer, DSN: "mysql://root@tcp(localhost:3307)/forky", DefaultModel: "claude-sonnet-4-5"}
	require.NoError(t, cfg.Save(root))

	loaded, err := Load(root)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, cfg.Backend, loaded.GetBackend())
	assert.Equal(t, cfg.DSN, loaded.DSN)
	assert.Equal(t, cfg.DefaultModel, loaded.DefaultModel)
}

func TestGetBackendDefaultsToEmbeddedDolt(t *testing.T) {
	var cfg Config
	assert.Equal(t, BackendDoltEmbedded, cfg.GetBackend())
}
