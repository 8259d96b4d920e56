package sess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pulp-platform/bender/internal/diag"
	"github.com/pulp-platform/bender/internal/git"
)

// sentinelFile marks a checkout directory as completely materialized. A
// directory without it is a partial checkout and is redone.
const sentinelFile = ".bender-checkout"

// Checkout materializes a working tree for the given (url, hash) in the
// checkout database and returns its directory. The tree is produced by
// piping `git archive` into tar, then recursively materializing
// submodules and running LFS smudge where applicable. Checkouts are
// content-addressed by commit hash, created once per session, and
// coalesced across concurrent callers.
func (s *Session) Checkout(ctx context.Context, url, hash string) (string, error) {
	key := url + "|" + hash
	s.mu.Lock()
	dir, ok := s.checkouts[key]
	s.mu.Unlock()
	if ok {
		return dir, nil
	}
	v, err, _ := s.sf.Do("checkout:"+key, func() (any, error) {
		dir := filepath.Join(s.Config.Database, "git", "checkouts", hash)
		if err := s.materialize(ctx, url, hash, dir); err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.checkouts[key] = dir
		s.mu.Unlock()
		return dir, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Session) materialize(ctx context.Context, url, hash, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, sentinelFile)); err == nil {
		return nil
	}
	// A directory without the sentinel is a leftover partial checkout.
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing partial checkout %s: %w", dir, err)
	}

	g, err := s.EnsureMirror(ctx, url)
	if err != nil {
		return err
	}
	if err := s.ensurePresent(ctx, g, url, hash); err != nil {
		return err
	}

	diag.Logger.Debug("materializing checkout", "url", url, "rev", hash, "dir", dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating checkout directory %s: %w", dir, err)
	}
	if err := s.throttled(ctx, func() error { return g.Archive(ctx, hash, dir) }); err != nil {
		return err
	}

	if err := s.checkoutSubmodules(ctx, g, hash, dir); err != nil {
		return err
	}
	if err := s.smudgeLfs(ctx, g, url, hash, dir); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, sentinelFile), []byte(url+" "+hash+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing checkout sentinel: %w", err)
	}
	return nil
}

// ensurePresent makes sure the revision exists in the mirror, fetching once
// if it does not.
func (s *Session) ensurePresent(ctx context.Context, g git.Git, url, hash string) error {
	var present bool
	if err := s.throttled(ctx, func() error { present = g.HasCommit(ctx, hash); return nil }); err != nil {
		return err
	}
	if present {
		return nil
	}
	if err := s.FetchMirror(ctx, url); err != nil {
		return err
	}
	if err := s.throttled(ctx, func() error { present = g.HasCommit(ctx, hash); return nil }); err != nil {
		return err
	}
	if !present {
		return &diag.RevisionNotFoundError{URL: url, Revision: hash}
	}
	return nil
}

// checkoutSubmodules reads .gitmodules at the revision and recursively
// materializes each submodule at its recorded gitlink commit.
func (s *Session) checkoutSubmodules(ctx context.Context, g git.Git, hash, dir string) error {
	var raw string
	err := s.throttled(ctx, func() error {
		var inner error
		raw, inner = g.CatFile(ctx, hash+":.gitmodules")
		return inner
	})
	if err != nil {
		// No .gitmodules, nothing to do.
		return nil
	}
	for _, sub := range parseGitmodules(raw) {
		subHash, err := s.gitlinkHash(ctx, g, hash, sub.path)
		if err != nil {
			return fmt.Errorf("submodule %s: %w", sub.path, err)
		}
		if subHash == "" {
			diag.Warnf("submodule %q has no gitlink at the checked out revision; skipping", sub.path)
			continue
		}
		subURL := resolveSubmoduleURL(g, sub.url)
		subGit, err := s.EnsureMirror(ctx, subURL)
		if err != nil {
			return fmt.Errorf("submodule %s: %w", sub.path, err)
		}
		subDir := filepath.Join(dir, filepath.FromSlash(sub.path))
		if err := s.ensurePresent(ctx, subGit, subURL, subHash); err != nil {
			return fmt.Errorf("submodule %s: %w", sub.path, err)
		}
		if err := os.MkdirAll(subDir, 0o755); err != nil {
			return fmt.Errorf("creating submodule directory %s: %w", subDir, err)
		}
		if err := s.throttled(ctx, func() error { return subGit.Archive(ctx, subHash, subDir) }); err != nil {
			return err
		}
		if err := s.checkoutSubmodules(ctx, subGit, subHash, subDir); err != nil {
			return err
		}
	}
	return nil
}

// gitlinkHash finds the commit recorded for a submodule path in the parent
// tree.
func (s *Session) gitlinkHash(ctx context.Context, g git.Git, rev, subPath string) (string, error) {
	dir := ""
	name := subPath
	if i := strings.LastIndex(subPath, "/"); i >= 0 {
		dir, name = subPath[:i+1], subPath[i+1:]
	}
	var entries []git.TreeEntry
	err := s.throttled(ctx, func() error {
		var inner error
		entries, inner = g.LsTree(ctx, rev+":"+dir)
		return inner
	})
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Name == name && e.Kind == "commit" {
			return e.Hash, nil
		}
	}
	return "", nil
}

type submodule struct {
	path string
	url  string
}

// parseGitmodules extracts the path and url of every submodule section of a
// .gitmodules file.
func parseGitmodules(raw string) []submodule {
	var subs []submodule
	var cur *submodule
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[submodule") {
			if cur != nil && cur.path != "" && cur.url != "" {
				subs = append(subs, *cur)
			}
			cur = &submodule{}
			continue
		}
		if cur == nil {
			continue
		}
		if key, val, ok := strings.Cut(line, "="); ok {
			switch strings.TrimSpace(key) {
			case "path":
				cur.path = strings.TrimSpace(val)
			case "url":
				cur.url = strings.TrimSpace(val)
			}
		}
	}
	if cur != nil && cur.path != "" && cur.url != "" {
		subs = append(subs, *cur)
	}
	return subs
}

// resolveSubmoduleURL resolves relative submodule URLs against the parent
// mirror's origin.
func resolveSubmoduleURL(g git.Git, url string) string {
	if !strings.HasPrefix(url, "./") && !strings.HasPrefix(url, "../") {
		return url
	}
	origin, err := g.Output(context.Background(), "remote", "get-url", "origin")
	if err != nil {
		return url
	}
	base := strings.TrimSuffix(strings.TrimSpace(origin), "/")
	for {
		if rest, ok := strings.CutPrefix(url, "../"); ok {
			url = rest
			if i := strings.LastIndex(base, "/"); i >= 0 {
				base = base[:i]
			}
			continue
		}
		if rest, ok := strings.CutPrefix(url, "./"); ok {
			url = rest
			continue
		}
		break
	}
	return base + "/" + url
}

// smudgeLfs runs the LFS smudge for a checkout when the repository uses
// git-lfs, the toggle is on, and the binary is available. A missing binary
// is a warning; pointer files then remain in place.
func (s *Session) smudgeLfs(ctx context.Context, g git.Git, url, hash, dir string) error {
	if !s.Config.GitLfs {
		return nil
	}
	var uses bool
	if err := s.throttled(ctx, func() error { uses = g.UsesLfs(ctx, hash); return nil }); err != nil {
		return err
	}
	if !uses {
		return nil
	}
	if !git.IsInstalled("git-lfs") {
		diag.WarnLfsMissing(url)
		return nil
	}
	return s.throttled(ctx, func() error {
		if !s.Local {
			if err := g.LfsFetch(ctx, hash); err != nil {
				return err
			}
		}
		return g.LfsCheckout(ctx, dir)
	})
}
