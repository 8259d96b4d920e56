package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pulp-platform/bender/internal/config"
	"github.com/pulp-platform/bender/internal/diag"
	"github.com/pulp-platform/bender/internal/graph"
	"github.com/pulp-platform/bender/internal/lockfile"
	"github.com/pulp-platform/bender/internal/resolver"
	"github.com/pulp-platform/bender/internal/sess"
	"github.com/pulp-platform/bender/internal/srcs"
)

// Context holds the resolved paths and loaded configuration of the root
// package.
type Context struct {
	Root         string
	ManifestPath string
	LockPath     string
	Manifest     *config.Manifest
	Config       *config.Config
	Lock         *lockfile.Locked // may be nil
}

// Load finds the root package at or above dir, loads its manifest
// strictly, assembles the configuration chain, and reads the lockfile if
// present.
func Load(dir string) (*Context, error) {
	root, err := findRoot(dir)
	if err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(root, config.ManifestFile)
	lockPath := filepath.Join(root, lockfile.LockFile)

	m, err := config.LoadManifest(manifestPath, true)
	if err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(root, cwd)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		Root:         root,
		ManifestPath: manifestPath,
		LockPath:     lockPath,
		Manifest:     m,
		Config:       cfg,
	}
	if _, statErr := os.Stat(lockPath); statErr == nil {
		lf, err := lockfile.Load(lockPath, root)
		if err != nil {
			return nil, err
		}
		ctx.Lock = lf
	}
	return ctx, nil
}

// findRoot walks from dir upwards until a directory containing Bender.yml
// is found.
func findRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	for d := abs; ; d = filepath.Dir(d) {
		if _, err := os.Stat(filepath.Join(d, config.ManifestFile)); err == nil {
			return d, nil
		}
		if d == filepath.Dir(d) {
			return "", fmt.Errorf("no %s found in %s or any parent directory", config.ManifestFile, abs)
		}
	}
}

// Session creates the session I/O layer for this context.
func (c *Context) Session() *sess.Session {
	return sess.New(c.Root, c.Manifest, c.Config)
}

// EnsureLock makes sure the lockfile is current and returns it. With
// update set, everything is re-resolved from scratch. Otherwise a fresh
// lockfile is left untouched; a stale one is topped up: existing bindings
// are treated as forced and only newly added dependencies are resolved.
// The lockfile is rewritten only after resolution succeeds.
func (c *Context) EnsureLock(ctx context.Context, s *sess.Session, arb resolver.Arbiter, update bool) (*lockfile.Locked, error) {
	rootDeps := rootDepNames(c.Manifest)

	if !update && c.Lock != nil {
		manifestPaths := c.manifestPathsInClosure()
		if !lockfile.Stale(c.LockPath, c.Lock, manifestPaths, rootDeps) {
			return c.Lock, nil
		}
	}

	var keepLocked []string
	if !update && c.Lock != nil {
		for name := range c.Lock.Packages {
			keepLocked = append(keepLocked, name)
		}
	}

	r := resolver.New(s, arb)
	locked, err := r.Resolve(ctx, c.Lock, keepLocked)
	if err != nil {
		return nil, err
	}
	if err := lockfile.Save(c.LockPath, c.Root, locked); err != nil {
		return nil, err
	}
	c.Lock = locked
	diag.Logger.Debug("lockfile refreshed", "packages", len(locked.Packages))
	return locked, nil
}

// manifestPathsInClosure lists the manifest files whose mtimes gate the
// lockfile's freshness: the root manifest and the manifests of locked
// path dependencies.
func (c *Context) manifestPathsInClosure() []string {
	paths := []string{c.ManifestPath}
	if c.Lock == nil {
		return paths
	}
	for _, pkg := range c.Lock.Packages {
		if pkg.Source.IsPath() {
			paths = append(paths, filepath.Join(pkg.Source.Path, config.ManifestFile))
		}
	}
	return paths
}

// Graph builds the package DAG from the lockfile and the root manifest.
// The root package is part of the graph; its name may not collide with a
// locked package.
func (c *Context) Graph(locked *lockfile.Locked) (*graph.Graph, error) {
	rootName := c.Manifest.Package.Name
	if _, ok := locked.Packages[rootName]; ok {
		return nil, fmt.Errorf("the root package name %q is reused by a dependency", rootName)
	}
	g := graph.New()
	g.Add(rootName)
	for _, dep := range rootDepNames(c.Manifest) {
		g.AddEdge(rootName, dep)
	}
	for name, pkg := range locked.Packages {
		g.Add(name)
		for _, dep := range pkg.Dependencies {
			g.AddEdge(name, dep)
		}
	}
	return g, nil
}

// Packages loads every locked package's manifest and returns the packages
// in topological order, leaves first, root last — the order source
// assembly consumes.
func (c *Context) Packages(ctx context.Context, s *sess.Session, locked *lockfile.Locked) ([]srcs.PackageInfo, error) {
	g, err := c.Graph(locked)
	if err != nil {
		return nil, err
	}
	order, err := g.TopoSort()
	if err != nil {
		return nil, err
	}
	infos := make([]srcs.PackageInfo, 0, len(order))
	for _, name := range order {
		if name == c.Manifest.Package.Name {
			infos = append(infos, srcs.PackageInfo{Name: name, Manifest: c.Manifest})
			continue
		}
		pkg := locked.Packages[name]
		var m *config.Manifest
		if pkg.Source.IsPath() {
			m, err = s.PathManifest(name, pkg.Source.Path)
		} else {
			m, err = s.ManifestAt(ctx, name, pkg.Source.Git, pkg.Revision)
		}
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", name, err)
		}
		infos = append(infos, srcs.PackageInfo{Name: name, Manifest: m})
	}
	return infos, nil
}

// PackagePath returns the on-disk location of a locked package,
// materializing a checkout when needed.
func (c *Context) PackagePath(ctx context.Context, s *sess.Session, locked *lockfile.Locked, name string) (string, error) {
	pkg, ok := locked.Packages[name]
	if !ok {
		return "", fmt.Errorf("package %q is not a dependency of this workspace", name)
	}
	if pkg.Source.IsPath() {
		return pkg.Source.Path, nil
	}
	return s.Checkout(ctx, pkg.Source.Git, pkg.Revision)
}

func rootDepNames(m *config.Manifest) []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	return names
}
