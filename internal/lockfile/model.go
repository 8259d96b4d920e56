package lockfile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LockFile is the name the lockfile goes by, adjacent to Bender.yml.
const LockFile = "Bender.lock"

// Locked represents a Bender.lock file.
type Locked struct {
	Packages map[string]*Package `yaml:"packages"`
}

// Package records the frozen state of a single package.
type Package struct {
	// Revision is the resolved commit hash. Empty for path sources.
	Revision string `yaml:"revision"`
	// Version is the semver tag the revision corresponds to, if any.
	Version string `yaml:"version"`
	// Source locates the package.
	Source Source `yaml:"source"`
	// Dependencies are the names of the package's own dependencies.
	Dependencies []string `yaml:"dependencies"`
}

// Source is the frozen source of a package: either a filesystem path or a
// git URL. Exactly one field is set.
type Source struct {
	Path string
	Git  string
}

// IsPath reports whether the source is a filesystem path.
func (s Source) IsPath() bool { return s.Path != "" }

// MarshalYAML writes the source in its tagged form, `Path: <p>` or
// `Git: <url>`.
func (s Source) MarshalYAML() (any, error) {
	if s.Path != "" {
		return map[string]string{"Path": s.Path}, nil
	}
	return map[string]string{"Git": s.Git}, nil
}

// UnmarshalYAML reads the tagged source form.
func (s *Source) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("parsing locked source: %w", err)
	}
	if p, ok := raw["Path"]; ok {
		s.Path = p
		return nil
	}
	if u, ok := raw["Git"]; ok {
		s.Git = u
		return nil
	}
	return fmt.Errorf("locked source must be `Path` or `Git`")
}

func (s Source) String() string {
	if s.Path != "" {
		return s.Path
	}
	return s.Git
}
