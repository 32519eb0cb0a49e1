// Package config resolves Forky's process-level configuration: flags, the
// FORKY_* environment, and the current project's .forky/config.toml
// (internal/configfile), layered the way the teacher layers cobra flags
// over viper over a config file for its own command-line settings.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/forkyai/forky/internal/configfile"
	"github.com/forkyai/forky/internal/storage/forkydb"
)

const (
	defaultModel        = "claude-sonnet-4-5"
	defaultBusyDeadline = 5 * time.Second
)

// Config is the fully-resolved configuration cmd/forky builds its service
// from.
type Config struct {
	AnthropicAPIKey string
	Model           string
	StorageDSN      string
	BusyDeadline    time.Duration
	JSON            bool
	WorkspaceRoot   string
}

// Load resolves configuration for a command running against
// workspaceRoot, binding flags (may be nil) over the FORKY_ environment
// over workspaceRoot's .forky/config.toml over built-in defaults.
func Load(workspaceRoot string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FORKY")
	v.AutomaticEnv()

	v.SetDefault("model", defaultModel)
	v.SetDefault("busy_deadline", defaultBusyDeadline.String())
	v.SetDefault("storage_dsn", forkydb.DefaultEmbeddedDSN(workspaceRoot, "forky"))
	v.SetDefault("json", false)

	if fileCfg, err := configfile.Load(workspaceRoot); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	} else if fileCfg != nil {
		if fileCfg.DSN != "" {
			v.SetDefault("storage_dsn", fileCfg.DSN)
		}
		if fileCfg.DefaultModel != "" {
			v.SetDefault("model", fileCfg.DefaultModel)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: binding flags: %w", err)
		}
	}

	deadline, err := time.ParseDuration(v.GetString("busy_deadline"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid busy_deadline %q: %w", v.GetString("busy_deadline"), err)
	}

	return &Config{
		AnthropicAPIKey: v.GetString("anthropic_api_key"),
		Model:           v.GetString("model"),
		StorageDSN:      v.GetString("storage_dsn"),
		BusyDeadline:    deadline,
		JSON:            v.GetBool("json"),
		WorkspaceRoot:   workspaceRoot,
	}, nil
}
