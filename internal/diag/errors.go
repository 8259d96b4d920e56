package diag

import (
	"fmt"
	"sort"
	"strings"
)

// PathConflictError reports that multiple manifests disagree on the location
// of a path dependency.
type PathConflictError struct {
	Package string
	// Paths maps each requiring package to the path it declared.
	Paths map[string]string
}

func (e *PathConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "path dependency %q is declared with conflicting paths:", e.Package)
	for _, parent := range sortedKeys(e.Paths) {
		fmt.Fprintf(&b, "\n- package %s requires path %s", parent, e.Paths[parent])
	}
	return b.String()
}

// Requirement is one version requirement together with the package that
// stated it. Used in conflict reports.
type Requirement struct {
	Parent     string
	Constraint string
	Source     string
}

// VersionConflictError reports that the intersection of all version
// requirements for a package is empty.
type VersionConflictError struct {
	Package      string
	Requirements []Requirement
}

func (e *VersionConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dependency requirements conflict with each other on dependency %q:", e.Package)
	for _, r := range e.Requirements {
		fmt.Fprintf(&b, "\n- package %s requires %s at %s", r.Parent, r.Constraint, r.Source)
	}
	return b.String()
}

// RevisionNotFoundError reports a commit-ish that cannot be resolved in a
// repository.
type RevisionNotFoundError struct {
	URL      string
	Revision string
}

func (e *RevisionNotFoundError) Error() string {
	return fmt.Sprintf("cannot satisfy requirement %q for repository %s", e.Revision, e.URL)
}

// CycleError reports a dependency cycle. Path holds the package names along
// the cycle, starting at the root.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

// FrozenViolationError reports that resolution would change the lockfile
// entry of a frozen package.
type FrozenViolationError struct {
	Package string
	Locked  string
	Wanted  string
}

func (e *FrozenViolationError) Error() string {
	return fmt.Sprintf("package %q is frozen at %s but resolution requires %s", e.Package, e.Locked, e.Wanted)
}

// GitError reports a failed git invocation together with its captured
// stderr.
type GitError struct {
	Dir    string
	Args   []string
	Stderr string
	Err    error
}

func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s in %s: %v", strings.Join(e.Args, " "), e.Dir, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *GitError) Unwrap() error { return e.Err }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
