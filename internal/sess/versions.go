package sess

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/pulp-platform/bender/internal/diag"
	"github.com/pulp-platform/bender/internal/git"
)

// Version pairs a semver tag with the commit hash it points at.
type Version struct {
	Version *semver.Version
	Hash    string
}

// versionTag matches tags eligible for version resolution. The `v` prefix
// is required; tags without it are invisible to version requirements.
var versionTag = regexp.MustCompile(`^v\d+(\.\d+)*(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

// ListVersions enumerates the package versions of a git URL: its tags of
// the form `v<semver>`, sorted ascending. Memoized per session.
func (s *Session) ListVersions(ctx context.Context, url string) ([]Version, error) {
	s.mu.Lock()
	cached, ok := s.versions[url]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}
	refs, err := s.listRefs(ctx, url)
	if err != nil {
		return nil, err
	}
	var versions []Version
	for _, r := range refs {
		name, ok := strings.CutPrefix(r.Name, "refs/tags/")
		if !ok || !versionTag.MatchString(name) {
			continue
		}
		v, err := semver.NewVersion(strings.TrimPrefix(name, "v"))
		if err != nil {
			diag.Warnf("ignoring malformed version tag %q in %s", name, url)
			continue
		}
		versions = append(versions, Version{Version: v, Hash: r.Hash})
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version.LessThan(versions[j].Version)
	})
	s.mu.Lock()
	s.versions[url] = versions
	s.mu.Unlock()
	return versions, nil
}

// VersionOfHash returns the highest version tag pointing at the given
// commit, if any.
func (s *Session) VersionOfHash(ctx context.Context, url, hash string) (*semver.Version, error) {
	versions, err := s.ListVersions(ctx, url)
	if err != nil {
		return nil, err
	}
	var best *semver.Version
	for _, v := range versions {
		if v.Hash == hash && (best == nil || v.Version.GreaterThan(best)) {
			best = v.Version
		}
	}
	return best, nil
}

const fullHashLen = 40

// ResolveCommitish resolves a commit-ish — a full hash, a hash prefix, or
// the prefix of a tag or branch name — to a commit hash in the repository:
//
//  1. A full hash present in the mirror is taken as is.
//  2. Otherwise a tag or branch whose name starts with the input is
//     eligible; branches are preferred over tags, and among equals the
//     lexicographically latest name wins.
//  3. Otherwise a revision whose hash starts with the input is taken.
//
// If nothing matches after a forced refetch, the requirement cannot be
// satisfied.
func (s *Session) ResolveCommitish(ctx context.Context, url, rev string) (string, error) {
	hash, err := s.resolveCommitish(ctx, url, rev)
	if err == nil || s.Local {
		return hash, err
	}
	// The revision may have appeared upstream since the last fetch.
	var rnf *diag.RevisionNotFoundError
	if !errors.As(err, &rnf) {
		return "", err
	}
	if ferr := s.FetchMirror(ctx, url); ferr != nil {
		return "", ferr
	}
	return s.resolveCommitish(ctx, url, rev)
}

func (s *Session) resolveCommitish(ctx context.Context, url, rev string) (string, error) {
	g, err := s.EnsureMirror(ctx, url)
	if err != nil {
		return "", err
	}
	if len(rev) == fullHashLen && isHex(rev) {
		var present bool
		err := s.throttled(ctx, func() error {
			present = g.HasCommit(ctx, rev)
			return nil
		})
		if err != nil {
			return "", err
		}
		if present {
			return rev, nil
		}
	}

	refs, err := s.listRefs(ctx, url)
	if err != nil {
		return "", err
	}
	if hash := matchRef(refs, rev); hash != "" {
		return hash, nil
	}

	var revs []string
	err = s.throttled(ctx, func() error {
		var inner error
		revs, inner = g.ListRevs(ctx)
		return inner
	})
	if err != nil {
		return "", err
	}
	for _, r := range revs {
		if strings.HasPrefix(r, rev) {
			return r, nil
		}
	}
	return "", &diag.RevisionNotFoundError{URL: url, Revision: rev}
}

// matchRef picks the ref for a commit-ish among the repository's refs. A
// tag or branch whose name starts with the input is eligible; branches win
// over tags, and among equals the newest name — the lexicographically
// latest one that starts with the indicated revision — wins.
func matchRef(refs []git.Ref, rev string) string {
	var bestName, bestHash string
	bestBranch := false
	for _, r := range refs {
		name, isBranch := shortRefName(r.Name)
		if name == "" || !strings.HasPrefix(name, rev) {
			continue
		}
		better := false
		switch {
		case bestName == "":
			better = true
		case isBranch != bestBranch:
			better = isBranch
		default:
			better = name > bestName
		}
		if better {
			bestName, bestHash, bestBranch = name, r.Hash, isBranch
		}
	}
	return bestHash
}

// shortRefName strips the ref namespace and reports whether the ref is a
// branch. Refs outside the tag and branch namespaces are ignored.
func shortRefName(ref string) (string, bool) {
	if name, ok := strings.CutPrefix(ref, "refs/heads/"); ok {
		return name, true
	}
	if name, ok := strings.CutPrefix(ref, "refs/remotes/origin/"); ok {
		if name == "HEAD" {
			return "", false
		}
		return name, true
	}
	if name, ok := strings.CutPrefix(ref, "refs/tags/"); ok {
		return name, false
	}
	return "", false
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
