package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/pulp-platform/bender/internal/config"
	"github.com/pulp-platform/bender/internal/diag"
	"github.com/pulp-platform/bender/internal/git"
	"github.com/pulp-platform/bender/internal/lockfile"
	"github.com/pulp-platform/bender/internal/sess"
	"github.com/pulp-platform/bender/internal/target"
)

// requirement is one dependency statement together with the package that
// made it.
type requirement struct {
	parent string
	dep    config.Dependency
}

// binding is the resolved source of a package.
type binding struct {
	// path is set for path-bound packages.
	path string
	// url and hash are set for git-bound packages.
	url  string
	hash string
	// version is the tag the hash corresponds to, if any.
	version *semver.Version
	// forced bindings (overrides, kept-locked entries, arbitration
	// decisions) are not re-resolved.
	forced bool
}

func (b *binding) describe() string {
	if b.path != "" {
		return "path " + b.path
	}
	if b.version != nil {
		return "v" + b.version.String()
	}
	return b.hash
}

// Resolver computes a lockfile from the root manifest.
type Resolver struct {
	sess    *sess.Session
	arbiter Arbiter

	// reqs accumulates the requirements per package name.
	reqs map[string][]requirement
	// bindings holds the currently selected source per package name.
	bindings map[string]*binding
	// manifests holds the loaded manifest of each bound package. A nil
	// entry means the bound revision carries no manifest.
	manifests map[string]*config.Manifest
	// expanded marks packages whose dependencies were already registered.
	expanded map[string]bool
	// firstParent records who first required each package, for cycle
	// reports.
	firstParent map[string]string
	// edges is the requirement graph, parent name to child names.
	edges map[string]map[string]bool
	// checkedOut substitutes workspace checkout_dir packages that are not
	// clean git checkouts.
	checkedOut map[string]config.Dependency
	// frozen names packages whose lockfile entry may not change because a
	// manifest depending on them is frozen.
	frozen map[string]bool
	// previous is the existing lockfile, if any.
	previous *lockfile.Locked
}

// New creates a resolver for the given session. arbiter decides conflicts;
// nil installs the non-interactive default.
func New(s *sess.Session, arbiter Arbiter) *Resolver {
	if arbiter == nil {
		arbiter = FailArbiter{}
	}
	return &Resolver{
		sess:        s,
		arbiter:     arbiter,
		reqs:        map[string][]requirement{},
		bindings:    map[string]*binding{},
		manifests:   map[string]*config.Manifest{},
		expanded:    map[string]bool{},
		firstParent: map[string]string{},
		edges:       map[string]map[string]bool{},
		checkedOut:  map[string]config.Dependency{},
		frozen:      map[string]bool{},
	}
}

// Resolve runs the constraint loop to a fixpoint and returns the resulting
// lockfile content. previous seeds forced bindings for the names in
// keepLocked; on any error no lockfile data is produced, so the caller's
// existing lockfile stays untouched.
func (r *Resolver) Resolve(ctx context.Context, previous *lockfile.Locked, keepLocked []string) (*lockfile.Locked, error) {
	root := r.sess.Manifest
	r.previous = previous

	if err := r.scanCheckoutDir(ctx); err != nil {
		return nil, err
	}
	if previous != nil {
		keep := map[string]bool{}
		for _, name := range keepLocked {
			keep[strings.ToLower(name)] = true
		}
		for name, pkg := range previous.Packages {
			if !keep[name] {
				continue
			}
			b, err := r.bindingFromLock(ctx, pkg)
			if err != nil {
				diag.Warnf("locked revision for %q is no longer available; re-resolving", name)
				continue
			}
			b.forced = true
			r.bindings[name] = b
		}
	}
	if root.Frozen {
		for _, name := range sortedDepNames(root.Dependencies) {
			r.frozen[name] = true
		}
	}

	if err := r.registerManifestDeps(ctx, root.Package.Name, root.Dependencies); err != nil {
		return nil, err
	}

	for {
		changed, err := r.step(ctx)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
	}

	return r.freeze()
}

// step performs one resolution pass: bind every open package, then expand
// the manifests of newly bound ones. Reports whether anything changed.
func (r *Resolver) step(ctx context.Context) (bool, error) {
	changed := false
	for _, name := range r.openNames() {
		b, err := r.bind(ctx, name)
		if err != nil {
			return false, err
		}
		if err := r.checkFrozen(name, b); err != nil {
			return false, err
		}
		r.bindings[name] = b
		changed = true
	}
	for _, name := range r.boundNames() {
		if r.expanded[name] {
			continue
		}
		if err := r.expand(ctx, name); err != nil {
			return false, err
		}
		r.expanded[name] = true
		changed = true
	}
	return changed, nil
}

func (r *Resolver) openNames() []string {
	var names []string
	for name := range r.reqs {
		if _, ok := r.bindings[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (r *Resolver) boundNames() []string {
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// registerManifestDeps records the dependencies of one manifest as
// requirements, substituting checked-out workspace packages, config
// overrides, and BENDER_IP_REPO_PATH matches, in that order of precedence.
func (r *Resolver) registerManifestDeps(ctx context.Context, parent string, deps map[string]config.Dependency) error {
	root := r.sess.Manifest.Package.Name
	for _, name := range sortedDepNames(deps) {
		dep := deps[name]
		if name == root {
			return fmt.Errorf("the root package name %q may not be reused as a dependency (required by %q)", name, parent)
		}
		if name == parent {
			return &diag.CycleError{Path: r.cyclePath(parent, name)}
		}
		if co, ok := r.checkedOut[name]; ok {
			dep = co
		} else if ov, ok := r.sess.Config.Overrides[name]; ok {
			dep = ov
		} else if dep.Kind != config.DepPath {
			if pd, ok := config.LookupRepoPath(name); ok {
				pd.Target = dep.Target
				pd.PassTargets = dep.PassTargets
				dep = pd
			}
		}
		if err := r.addRequirement(parent, name, dep); err != nil {
			return err
		}
	}
	return nil
}

// addRequirement records a requirement edge and detects cycles: requiring a
// name from which the parent is itself reachable closes a loop.
func (r *Resolver) addRequirement(parent, name string, dep config.Dependency) error {
	if r.reachable(name, parent) {
		return &diag.CycleError{Path: r.cyclePath(parent, name)}
	}
	if _, ok := r.firstParent[name]; !ok {
		r.firstParent[name] = parent
	}
	if r.edges[parent] == nil {
		r.edges[parent] = map[string]bool{}
	}
	r.edges[parent][name] = true

	// Re-expansion restates requirements; an identical one changes nothing.
	for _, existing := range r.reqs[name] {
		if existing.parent == parent && sameConstraint(existing.dep, dep) {
			return nil
		}
	}
	r.reqs[name] = append(r.reqs[name], requirement{parent: parent, dep: dep})

	// A new requirement may invalidate a non-forced binding; reopen it.
	if b, ok := r.bindings[name]; ok && !b.forced {
		delete(r.bindings, name)
		r.expanded[name] = false
	}
	return nil
}

// reachable reports whether `to` can be reached from `from` along
// requirement edges.
func (r *Resolver) reachable(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range r.edges[cur] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// cyclePath reconstructs the chain from the root to parent, then the
// offending name, for the cycle report.
func (r *Resolver) cyclePath(parent, name string) []string {
	var chain []string
	for cur := parent; cur != ""; cur = r.firstParent[cur] {
		chain = append([]string{cur}, chain...)
		if cur == r.sess.Manifest.Package.Name {
			break
		}
	}
	if len(chain) == 0 || chain[0] != r.sess.Manifest.Package.Name {
		chain = append([]string{r.sess.Manifest.Package.Name}, chain...)
	}
	return append(chain, name)
}

// expand loads the manifest of a bound package and registers its
// dependencies. Dependencies appearing in the overrides map are still
// substituted globally by registerManifestDeps.
func (r *Resolver) expand(ctx context.Context, name string) error {
	b := r.bindings[name]
	var m *config.Manifest
	var err error
	if b.path != "" {
		m, err = r.sess.PathManifest(name, b.path)
	} else {
		m, err = r.sess.ManifestAt(ctx, name, b.url, b.hash)
	}
	if err != nil {
		return err
	}
	r.manifests[name] = m
	if m == nil {
		return nil
	}
	if m.Frozen {
		for _, dep := range sortedDepNames(m.Dependencies) {
			r.frozen[dep] = true
		}
	}
	return r.registerManifestDeps(ctx, name, m.Dependencies)
}

// checkFrozen enforces the frozen discipline: the binding of a frozen
// package must equal its previous lockfile entry.
func (r *Resolver) checkFrozen(name string, b *binding) error {
	if !r.frozen[name] || r.previous == nil {
		return nil
	}
	prev, ok := r.previous.Packages[name]
	if !ok {
		return nil
	}
	if prev.Source.IsPath() {
		if b.path != prev.Source.Path {
			return &diag.FrozenViolationError{Package: name, Locked: prev.Source.Path, Wanted: b.describe()}
		}
		return nil
	}
	if b.hash != prev.Revision {
		locked := prev.Revision
		if prev.Version != "" {
			locked = "v" + strings.TrimPrefix(prev.Version, "v")
		}
		return &diag.FrozenViolationError{Package: name, Locked: locked, Wanted: b.describe()}
	}
	return nil
}

// bindingFromLock revives a lockfile entry as a forced binding, verifying
// the revision still exists.
func (r *Resolver) bindingFromLock(ctx context.Context, pkg *lockfile.Package) (*binding, error) {
	if pkg.Source.IsPath() {
		return &binding{path: pkg.Source.Path}, nil
	}
	var version *semver.Version
	if pkg.Version != "" {
		v, err := semver.NewVersion(strings.TrimPrefix(pkg.Version, "v"))
		if err == nil {
			version = v
		}
	}
	if pkg.Revision == "" {
		return nil, fmt.Errorf("lockfile entry has no revision")
	}
	hash, err := r.sess.ResolveCommitish(ctx, pkg.Source.Git, pkg.Revision)
	if err != nil {
		return nil, err
	}
	return &binding{url: pkg.Source.Git, hash: hash, version: version}, nil
}

// scanCheckoutDir inspects the workspace checkout directory. Entries that
// are not git repositories, or whose working tree is dirty, are pinned as
// path dependencies so local modifications survive resolution.
func (r *Resolver) scanCheckoutDir(ctx context.Context) error {
	dir := r.sess.Manifest.Workspace.CheckoutDir
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading checkout directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		path := filepath.Join(dir, e.Name())
		dep := config.Dependency{Kind: config.DepPath, Path: path, Target: target.WildcardSpec()}
		if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
			diag.Warnf("checkout_dir entry %q is not a git checkout; using it as a path dependency", name)
			r.checkedOut[name] = dep
			continue
		}
		g := git.New(path, r.sess.Config.Git)
		out, err := g.Output(ctx, "status", "--porcelain")
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) != "" {
			diag.Warnf("checkout_dir entry %q has local modifications; using it as a path dependency", name)
			r.checkedOut[name] = dep
		}
	}
	return nil
}

// freeze converts the fixpoint state into lockfile content.
func (r *Resolver) freeze() (*lockfile.Locked, error) {
	locked := &lockfile.Locked{Packages: map[string]*lockfile.Package{}}
	for name, b := range r.bindings {
		deps := []string{}
		if m := r.manifests[name]; m != nil {
			deps = sortedDepNames(m.Dependencies)
		}
		pkg := &lockfile.Package{Dependencies: deps}
		if b.path != "" {
			pkg.Source = lockfile.Source{Path: b.path}
		} else {
			pkg.Source = lockfile.Source{Git: b.url}
			pkg.Revision = b.hash
			if b.version != nil {
				pkg.Version = b.version.String()
			}
		}
		locked.Packages[name] = pkg
	}
	return locked, nil
}

// sameConstraint compares the resolution-relevant fields of two dependency
// specs. Target and pass_targets do not participate in resolution.
func sameConstraint(a, b config.Dependency) bool {
	return a.Kind == b.Kind && a.Path == b.Path && a.URL == b.URL &&
		a.Version == b.Version && a.Revision == b.Revision
}

func sortedDepNames(deps map[string]config.Dependency) []string {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)
	return names
}
