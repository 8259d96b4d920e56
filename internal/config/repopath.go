package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pulp-platform/bender/internal/target"
)

// RepoPathEnv is the environment variable naming a colon-separated list of
// search directories checked before any network operation when resolving a
// dependency by name.
const RepoPathEnv = "BENDER_IP_REPO_PATH"

// LookupRepoPath searches the BENDER_IP_REPO_PATH directories for a package.
// The accepted layouts are <dir>/<name>/Bender.yml and <dir>/Bender.yml
// whose manifest names the dependency. The first match wins; empty
// components and non-existent directories are silently ignored. Returns a
// path dependency, or ok=false on a miss.
func LookupRepoPath(name string) (Dependency, bool) {
	return lookupRepoPathIn(os.Getenv(RepoPathEnv), name)
}

func lookupRepoPathIn(env, name string) (Dependency, bool) {
	name = strings.ToLower(name)
	for _, dir := range strings.Split(env, ":") {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		nested := filepath.Join(dir, name)
		if _, err := os.Stat(filepath.Join(nested, ManifestFile)); err == nil {
			return pathDependency(nested), true
		}
		if manifestNames(filepath.Join(dir, ManifestFile), name) {
			return pathDependency(dir), true
		}
	}
	return Dependency{}, false
}

// manifestNames reports whether the manifest at path exists and declares the
// given package name.
func manifestNames(path, name string) bool {
	m, err := LoadManifest(path, false)
	if err != nil {
		return false
	}
	return m.Package.Name == name
}

func pathDependency(dir string) Dependency {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return Dependency{
		Kind:   DepPath,
		Path:   abs,
		Target: target.WildcardSpec(),
	}
}
