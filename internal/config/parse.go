package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pulp-platform/bender/internal/diag"
)

// ManifestFile is the name a package manifest goes by.
const ManifestFile = "Bender.yml"

// manifestKeys are the recognized top-level keys of a manifest.
var manifestKeys = map[string]bool{
	"package":             true,
	"frozen":              true,
	"remotes":             true,
	"dependencies":        true,
	"sources":             true,
	"export_include_dirs": true,
	"workspace":           true,
	"plugins":             true,
	"vendor_package":      true,
}

// LoadManifest reads and validates the manifest at path. strict controls
// unknown top-level key handling: the root package's own manifest fails on
// unknown keys, third-party manifests warn and skip them.
func LoadManifest(path string, strict bool) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving manifest directory: %w", err)
	}
	m, err := ParseManifest(data, dir, strict)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest parses manifest content. dir anchors relative paths.
func ParseManifest(data []byte, dir string, strict bool) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest YAML: %w", err)
	}
	if len(doc.Content) > 0 {
		if err := checkKeys(doc.Content[0], strict); err != nil {
			return nil, err
		}
	}

	var m Manifest
	if err := doc.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest YAML: %w", err)
	}
	m.Dir = dir
	if err := validateManifest(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func checkKeys(root *yaml.Node, strict bool) error {
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest must be a mapping")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if manifestKeys[key] {
			continue
		}
		if strict {
			return fmt.Errorf("unknown manifest key %q", key)
		}
		diag.Warnf("ignoring unknown manifest key %q", key)
	}
	return nil
}

func validateManifest(m *Manifest) error {
	if m.Package.Name == "" {
		return fmt.Errorf("package name is required")
	}
	m.Package.Name = strings.ToLower(m.Package.Name)

	// Normalize dependency keys and resolve remote aliases.
	deps := make(map[string]Dependency, len(m.Dependencies))
	for name, dep := range m.Dependencies {
		name = strings.ToLower(name)
		if err := dep.ResolveRemote(name, m.Remotes); err != nil {
			return err
		}
		if dep.Kind == DepPath {
			dep.Path = prefixPath(dep.Path, m.Dir)
		}
		deps[name] = dep
	}
	m.Dependencies = deps

	// Anchor every relative path at the manifest's directory.
	for i := range m.Sources {
		prefixSourceNode(&m.Sources[i], m.Dir)
	}
	for i, p := range m.ExportIncludeDirs {
		m.ExportIncludeDirs[i] = prefixPath(p, m.Dir)
	}
	if m.Workspace.CheckoutDir != "" {
		m.Workspace.CheckoutDir = prefixPath(m.Workspace.CheckoutDir, m.Dir)
	}
	if len(m.Workspace.PackageLinks) > 0 {
		links := make(map[string]string, len(m.Workspace.PackageLinks))
		for link, pkg := range m.Workspace.PackageLinks {
			links[prefixPath(link, m.Dir)] = strings.ToLower(pkg)
		}
		m.Workspace.PackageLinks = links
	}
	for k, p := range m.Plugins {
		m.Plugins[k] = prefixPath(p, m.Dir)
	}
	return nil
}

func prefixSourceNode(n *SourceNode, dir string) {
	if n.IsFile() {
		n.File = prefixPath(n.File, dir)
		return
	}
	for i, p := range n.IncludeDirs {
		n.IncludeDirs[i] = prefixPath(p, dir)
	}
	for i, p := range n.Flists {
		n.Flists[i] = prefixPath(p, dir)
	}
	for i := range n.Children {
		prefixSourceNode(&n.Children[i], dir)
	}
}

// prefixPath makes p absolute using dir as the anchor, and cleans it.
func prefixPath(p, dir string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(dir, p))
}
