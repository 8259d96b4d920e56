package sess

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pulp-platform/bender/internal/config"
	"github.com/pulp-platform/bender/internal/diag"
)

// ManifestAt loads the manifest of a git dependency at a specific revision.
// The checkout is materialized first so that the manifest's relative paths
// anchor at a real directory. A missing manifest yields (nil, nil): the
// package is treated as having no sources and no dependencies, with a
// warning.
func (s *Session) ManifestAt(ctx context.Context, name, url, hash string) (*config.Manifest, error) {
	dir, err := s.Checkout(ctx, url, hash)
	if err != nil {
		return nil, err
	}
	return s.PathManifest(name, dir)
}

// PathManifest loads the manifest of a package rooted at dir, memoized by
// absolute path. Third-party manifests parse tolerantly: unknown keys warn
// and are skipped. A missing manifest warns and yields nil.
func (s *Session) PathManifest(name, dir string) (*config.Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	m, ok := s.manifests[abs]
	s.mu.Unlock()
	if ok {
		return m, nil
	}

	path := filepath.Join(abs, config.ManifestFile)
	if _, err := os.Stat(path); err != nil {
		diag.Warnf("package %q has no manifest at %s; treating it as empty", name, abs)
		s.mu.Lock()
		s.manifests[abs] = nil
		s.mu.Unlock()
		return nil, nil
	}
	m, err = config.LoadManifest(path, false)
	if err != nil {
		return nil, err
	}
	if name != "" && !strings.EqualFold(m.Package.Name, name) {
		diag.WarnNameMismatch(name, m.Package.Name)
	}
	s.mu.Lock()
	s.manifests[abs] = m
	s.mu.Unlock()
	return m, nil
}
