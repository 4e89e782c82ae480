// Package config loads agentree's two configuration layers.
//
// User configuration lives at $XDG_CONFIG_HOME/agentree/config.yaml and
// controls machine-wide settings: the registry file location, the port
// allocation range, and tmux integration. Every key can be overridden
// with an AGENTREE_* environment variable.
//
// Project configuration lives in an optional agentree.jsonc at the
// repository root (see project.go) and describes the repository itself:
// which env template to scan for port variables, which compose file and
// services to label, and what command to launch in the workspace.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/shinji-kodama/agentree/internal/model"
	"github.com/shinji-kodama/agentree/internal/registry"
)

// Config holds the resolved user-level settings.
type Config struct {
	// RegistryPath is the port registry file location. Default:
	// <user config dir>/agentree/ports.json.
	RegistryPath string

	// PortRange is the inclusive range new ports are drawn from.
	// Default 30000-39999. Shrinking the range later does not
	// invalidate ports allocated under the old one.
	PortRange registry.Range

	// WorktreeDir is the parent directory for new worktrees. Empty
	// means "sibling of the repository", the git-conventional layout.
	WorktreeDir string

	// TmuxEnabled controls whether create launches a tmux session for
	// the workspace.
	TmuxEnabled bool
}

// Load resolves user configuration from the standard per-user location.
func Load() (*Config, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "cannot determine user config directory", err)
	}
	return loadFrom(dir)
}

// loadFrom resolves configuration rooted at the given config directory.
// Split from Load so tests can point it at a temporary directory.
func loadFrom(configDir string) (*Config, error) {
	v := viper.New()
	v.SetDefault("ports.min", registry.DefaultRange().Min)
	v.SetDefault("ports.max", registry.DefaultRange().Max)
	v.SetDefault("registry.path", filepath.Join(configDir, "agentree", "ports.json"))
	v.SetDefault("worktrees.dir", "")
	v.SetDefault("tmux.enabled", true)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(configDir, "agentree"))

	v.SetEnvPrefix("AGENTREE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file means "all defaults"; anything else
		// (unreadable file, bad YAML) is a real configuration error.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, model.WrapCLIError(model.ExitConfigError, "cannot read config file", err)
		}
	}

	cfg := &Config{
		RegistryPath: v.GetString("registry.path"),
		PortRange: registry.Range{
			Min: v.GetInt("ports.min"),
			Max: v.GetInt("ports.max"),
		},
		WorktreeDir: v.GetString("worktrees.dir"),
		TmuxEnabled: v.GetBool("tmux.enabled"),
	}

	if err := validateRange(cfg.PortRange); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid port range", err)
	}
	return cfg, nil
}

// validateRange enforces the allocation range contract at the one place
// ranges enter the system: min ≤ max, both within the TCP port space.
func validateRange(r registry.Range) error {
	if r.Min < 1 || r.Max > 65535 {
		return fmt.Errorf("range %d-%d outside 1-65535", r.Min, r.Max)
	}
	if r.Min > r.Max {
		return fmt.Errorf("range minimum %d exceeds maximum %d", r.Min, r.Max)
	}
	return nil
}
