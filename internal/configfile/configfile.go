// Package configfile reads and writes the per-project ".forky/config.toml"
// file: the storage backend and DSN a given project directory uses, plus
// its default model. It mirrors the teacher's per-workspace metadata file
// (internal/configfile, loaded from cmd/bd/doctor/fix/config_values.go's
// configfile.Load/cfg.GetBackend/cfg.Save calls) but serialized as TOML,
// the format the teacher's go.mod already declares BurntSushi/toml for.
package configfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Backend names a storage.Store implementation a project is configured to
// use.
type Backend string

const (
	BackendDoltEmbedded Backend = "dolt"
	BackendDoltServer   Backend = "mysql"
)

// dirName is the per-project directory holding config.toml, analogous to
// the teacher's ".beads" directory.
const dirName = ".forky"
const fileName = "config.toml"

// Config is the persisted shape of .forky/config.toml.
type Config struct {
	Backend      Backend `toml:"backend"`
	DSN          string  `toml:"dsn"`
	DefaultModel string  `toml:"default_model"`
}

// GetBackend returns cfg.Backend, defaulting to the embedded Dolt backend
// when unset (a freshly-initialized workspace has no config file at all).
func (c *Config) GetBackend() Backend {
	if c.Backend == "" {
		return BackendDoltEmbedded
	}
	return c.Backend
}

// path returns the config file path under root.
func path(root string) string {
	return filepath.Join(root, dirName, fileName)
}

// Load reads root/.forky/config.toml. It returns (nil, nil) if no config
// file exists yet — callers fall back to defaults rather than treating an
// uninitialized workspace as an error.
func Load(root string) (*Config, error) {
	p := path(root)
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("configfile: reading %s: %w", p, err)
	}
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("configfile: parsing %s: %w", p, err)
	}
	return &cfg, nil
}

// Save writes cfg to root/.forky/config.toml, creating the directory if
// needed.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("configfile: creating %s: %w", dir, err)
	}
	f, err := os.Create(path(root))
	if err != nil {
		return fmt.Errorf("configfile: creating config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("configfile: encoding config: %w", err)
	}
	return nil
}
