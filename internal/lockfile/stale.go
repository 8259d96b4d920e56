package lockfile

import (
	"os"
)

// Stale reports whether the lockfile at path must be refreshed: it is
// missing, its mtime is older than any of the given manifest files, or it
// omits any of the dependencies named in the root manifest.
func Stale(path string, lf *Locked, manifestPaths []string, rootDeps []string) bool {
	if lf == nil {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	for _, mp := range manifestPaths {
		mi, err := os.Stat(mp)
		if err != nil {
			continue
		}
		if mi.ModTime().After(info.ModTime()) {
			return true
		}
	}
	for _, name := range rootDeps {
		if _, ok := lf.Packages[name]; !ok {
			return true
		}
	}
	return false
}

// MissingDeps returns the root dependencies that have no lockfile entry.
// Commands that do not explicitly request an update top these up while
// treating every existing binding as forced.
func MissingDeps(lf *Locked, rootDeps []string) []string {
	var missing []string
	for _, name := range rootDeps {
		if lf == nil {
			missing = append(missing, name)
			continue
		}
		if _, ok := lf.Packages[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
