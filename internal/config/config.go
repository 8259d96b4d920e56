package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultGitThrottle is the default parallelism budget for git operations.
const DefaultGitThrottle = 4

// Config is the merged tool configuration.
type Config struct {
	// Database is the directory holding bare mirrors and checkouts.
	Database string
	// Git is the git command name.
	Git string
	// Overrides forces bindings for package names, superseding all
	// discovered requirements.
	Overrides map[string]Dependency
	// Plugins maps command names to script paths. Deprecated.
	Plugins map[string]string
	// GitThrottle bounds concurrent git subprocesses.
	GitThrottle int
	// GitLfs toggles git-lfs handling for checkouts.
	GitLfs bool
}

// partialConfig is one configuration layer as read from disk. Pointer and
// map fields distinguish absent keys from explicit zero values.
type partialConfig struct {
	Database    *string               `yaml:"database"`
	Git         *string               `yaml:"git"`
	Overrides   map[string]Dependency `yaml:"overrides"`
	Plugins     map[string]string     `yaml:"plugins"`
	GitThrottle *int                  `yaml:"git_throttle"`
	GitLfs      *bool                 `yaml:"git_lfs"`
}

// LoadConfig assembles the configuration chain for a package rooted at
// root, with the process working directory cwd. The chain is, earliest
// first: /etc/bender.yml, the user's config directory, every .bender.yml on
// the path from the filesystem root down to cwd, and Bender.local adjacent
// to the root manifest. Later layers overlay earlier ones.
func LoadConfig(root, cwd string) (*Config, error) {
	var paths []string
	paths = append(paths, "/etc/bender.yml")
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "bender", "bender.yml"))
	}
	paths = append(paths, chainDown(cwd, ".bender.yml")...)
	paths = append(paths, filepath.Join(root, "Bender.local"))

	cfg := &Config{
		Database:    filepath.Join(root, ".bender"),
		Git:         "git",
		Overrides:   map[string]Dependency{},
		Plugins:     map[string]string{},
		GitThrottle: DefaultGitThrottle,
		GitLfs:      true,
	}
	for _, p := range paths {
		layer, err := loadConfigLayer(p)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		applyLayer(cfg, layer, filepath.Dir(p))
	}
	return cfg, nil
}

// chainDown lists <dir>/<name> for every directory from the filesystem root
// down to dir, topmost first.
func chainDown(dir, name string) []string {
	var dirs []string
	for d := filepath.Clean(dir); ; d = filepath.Dir(d) {
		dirs = append(dirs, filepath.Join(d, name))
		if d == filepath.Dir(d) {
			break
		}
	}
	// Reverse so the file closest to cwd overlays the ones above it.
	for i, j := 0, len(dirs)-1; i < j; i, j = i+1, j-1 {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	}
	return dirs
}

func loadConfigLayer(path string) (*partialConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var layer partialConfig
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &layer, nil
}

// applyLayer overlays one configuration layer. Scalar keys overwrite; the
// overrides and plugins maps merge by key; relative paths are anchored at
// the layer's own directory.
func applyLayer(cfg *Config, layer *partialConfig, dir string) {
	if layer.Database != nil {
		cfg.Database = prefixPath(*layer.Database, dir)
	}
	if layer.Git != nil {
		cfg.Git = *layer.Git
	}
	if layer.GitThrottle != nil {
		cfg.GitThrottle = *layer.GitThrottle
	}
	if layer.GitLfs != nil {
		cfg.GitLfs = *layer.GitLfs
	}
	for name, dep := range layer.Overrides {
		name = strings.ToLower(name)
		if dep.Kind == DepPath {
			dep.Path = prefixPath(dep.Path, dir)
		}
		cfg.Overrides[name] = dep
	}
	for name, script := range layer.Plugins {
		cfg.Plugins[name] = prefixPath(script, dir)
	}
}

// MarshalYAML dumps the merged configuration, for the `config` command.
func (c *Config) MarshalYAML() (any, error) {
	return map[string]any{
		"database":     c.Database,
		"git":          c.Git,
		"overrides":    c.Overrides,
		"plugins":      c.Plugins,
		"git_throttle": c.GitThrottle,
		"git_lfs":      c.GitLfs,
	}, nil
}
