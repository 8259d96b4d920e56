package config

import (
	"github.com/pulp-platform/bender/internal/target"
)

// Manifest is the typed contents of a Bender.yml file.
type Manifest struct {
	Package           Package               `yaml:"package"`
	Frozen            bool                  `yaml:"frozen,omitempty"`
	Remotes           map[string]string     `yaml:"remotes,omitempty"`
	Dependencies      map[string]Dependency `yaml:"dependencies,omitempty"`
	Sources           []SourceNode          `yaml:"sources,omitempty"`
	ExportIncludeDirs []string              `yaml:"export_include_dirs,omitempty"`
	Workspace         Workspace             `yaml:"workspace,omitempty"`
	Plugins           map[string]string     `yaml:"plugins,omitempty"`
	VendorPackages    []VendorPackage       `yaml:"vendor_package,omitempty"`

	// Dir is the absolute directory the manifest was loaded from. Relative
	// paths in the manifest are anchored here.
	Dir string `yaml:"-"`
}

// Package holds the metadata of an individual package.
type Package struct {
	Name        string   `yaml:"name"`
	Authors     []string `yaml:"authors,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

// Workspace configures the workspace behavior of the root package.
type Workspace struct {
	CheckoutDir  string            `yaml:"checkout_dir,omitempty"`
	PackageLinks map[string]string `yaml:"package_links,omitempty"`
}

// VendorPackage is carried through for the vendoring collaborator. The core
// does not interpret it.
type VendorPackage struct {
	Name       string `yaml:"name"`
	TargetDir  string `yaml:"target_dir,omitempty"`
	Upstream   any    `yaml:"upstream,omitempty"`
	MappingRaw any    `yaml:"mapping,omitempty"`
	PatchDir   string `yaml:"patch_dir,omitempty"`
}

// DependencyKind discriminates the variants of a Dependency.
type DependencyKind int

const (
	// DepPath is a dependency at a fixed filesystem path. Not versioned.
	DepPath DependencyKind = iota
	// DepGitVersion is a git dependency constrained by a semver range.
	DepGitVersion
	// DepGitRevision is a git dependency pinned to a commit-ish.
	DepGitRevision
)

// Dependency is a tagged variant over the dependency kinds. Exactly the
// fields matching Kind are meaningful.
type Dependency struct {
	Kind DependencyKind

	// Path is the absolute filesystem path for DepPath.
	Path string
	// URL is the git remote for DepGitVersion and DepGitRevision.
	URL string
	// Version is the raw semver requirement string for DepGitVersion.
	Version string
	// Revision is the commit-ish for DepGitRevision.
	Revision string
	// Remote is the remote alias the URL was derived from, if any.
	Remote string

	// Target gates inclusion of the dependency in source assembly only.
	// Resolution never consults it.
	Target target.Spec
	// PassTargets are additional targets injected into the dependency's
	// source assembly, each optionally conditional on the parent's targets.
	PassTargets []PassTarget
}

// PassTarget injects a target atom into a dependency's subtree. When is
// evaluated against the parent package's effective target set; the wildcard
// makes the injection unconditional.
type PassTarget struct {
	Name string
	When target.Spec
}

func (d Dependency) String() string {
	switch d.Kind {
	case DepPath:
		return "path " + d.Path
	case DepGitVersion:
		return d.Version
	case DepGitRevision:
		return "rev " + d.Revision
	}
	return "?"
}
