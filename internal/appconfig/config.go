// File: internal/appconfig/config.go
// Brief: User and repository level defaults for bake.

package appconfig

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Defaults are fallbacks for command flags. Flags and BAKE_* variables win over them.
type Defaults struct {
	WorkDir     string            `yaml:"workDir,omitempty"`
	BuildDir    string            `yaml:"buildDir,omitempty"`
	RepoRefDir  string            `yaml:"repoRefDir,omitempty"`
	KasCommand  string            `yaml:"kasCommand,omitempty"`
	LogLevel    string            `yaml:"logLevel,omitempty"`
	Lenient     *bool             `yaml:"lenient,omitempty"`
	Parallel    *bool             `yaml:"parallelIncludes,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
}

type Config struct {
	Defaults Defaults `yaml:"defaults,omitempty"`
}

func DefaultGlobalPath() string {
	home, err := homedir.Dir()
	if err != nil || strings.TrimSpace(home) == "" {
		return ""
	}
	return filepath.Join(home, ".bake", "config.yaml")
}

func DefaultRepoPath(repoRoot string) string {
	repoRoot = strings.TrimSpace(repoRoot)
	if repoRoot == "" {
		return ""
	}
	return filepath.Join(repoRoot, RepoConfigName)
}

// Load reads the global file then the repo file; values from the repo file win.
// Missing files are not an error.
func Load(ctx context.Context, globalPath, repoPath string) (Config, error) {
	_ = ctx
	cfg := Config{}
	if strings.TrimSpace(globalPath) != "" {
		if c, err := loadOne(globalPath); err != nil {
			return Config{}, fmt.Errorf("load global config: %w", err)
		} else {
			cfg = merge(cfg, c)
		}
	}
	if strings.TrimSpace(repoPath) != "" {
		if c, err := loadOne(repoPath); err != nil {
			return Config{}, fmt.Errorf("load repo config: %w", err)
		} else {
			cfg = merge(cfg, c)
		}
	}
	return cfg, nil
}

func loadOne(path string) (Config, error) {
	path, err := homedir.Expand(strings.TrimSpace(path))
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		return Config{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, err
	}
	raw = []byte(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return Config{}, nil
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func merge(a, b Config) Config {
	out := a
	out.Defaults = mergeDefaults(a.Defaults, b.Defaults)
	return out
}

func mergeDefaults(a, b Defaults) Defaults {
	out := a
	if b.WorkDir != "" {
		out.WorkDir = b.WorkDir
	}
	if b.BuildDir != "" {
		out.BuildDir = b.BuildDir
	}
	if b.RepoRefDir != "" {
		out.RepoRefDir = b.RepoRefDir
	}
	if b.KasCommand != "" {
		out.KasCommand = b.KasCommand
	}
	if b.LogLevel != "" {
		out.LogLevel = b.LogLevel
	}
	if b.Lenient != nil {
		out.Lenient = b.Lenient
	}
	if b.Parallel != nil {
		out.Parallel = b.Parallel
	}
	if len(b.Environment) > 0 {
		if out.Environment == nil {
			out.Environment = map[string]string{}
		} else {
			out.Environment = maps.Clone(out.Environment)
		}
		maps.Copy(out.Environment, b.Environment)
	}
	return out
}
