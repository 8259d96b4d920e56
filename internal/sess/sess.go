package sess

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/pulp-platform/bender/internal/config"
	"github.com/pulp-platform/bender/internal/diag"
	"github.com/pulp-platform/bender/internal/git"
)

// Session owns the checkout database for one command invocation. It caches
// everything it learns: ensured mirrors, version lists, resolved manifests,
// and materialized checkouts live for the session's lifetime.
type Session struct {
	// Root is the directory of the root package.
	Root string
	// Manifest is the root package's manifest.
	Manifest *config.Manifest
	// Config is the merged tool configuration.
	Config *config.Config
	// Local disables all network access. Fetches are skipped and missing
	// data fails fast.
	Local bool
	// Refetch forces remotes to be fetched even if already current.
	Refetch bool

	sem *semaphore.Weighted
	sf  singleflight.Group

	mu        sync.Mutex
	fetched   map[string]bool
	versions  map[string][]Version
	refs      map[string][]git.Ref
	manifests map[string]*config.Manifest
	checkouts map[string]string
}

// New creates a session for the given root package.
func New(root string, manifest *config.Manifest, cfg *config.Config) *Session {
	throttle := cfg.GitThrottle
	if throttle < 1 {
		throttle = config.DefaultGitThrottle
	}
	return &Session{
		Root:      root,
		Manifest:  manifest,
		Config:    cfg,
		sem:       semaphore.NewWeighted(int64(throttle)),
		fetched:   map[string]bool{},
		versions:  map[string][]Version{},
		refs:      map[string][]git.Ref{},
		manifests: map[string]*config.Manifest{},
		checkouts: map[string]string{},
	}
}

// throttled runs fn under the session's git subprocess budget.
func (s *Session) throttled(ctx context.Context, fn func() error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	return fn()
}

// DatabaseDir is the root of the checkout database.
func (s *Session) DatabaseDir() string {
	return s.Config.Database
}

// mirrorDir returns the directory of the bare mirror for a URL: the last
// path component of the URL plus a stable digest of the full URL.
func (s *Session) mirrorDir(url string) string {
	sum := sha256.Sum256([]byte(url))
	digest := hex.EncodeToString(sum[:])[:16]
	name := strings.TrimSuffix(path.Base(strings.ReplaceAll(url, ":", "/")), ".git")
	if name == "" || name == "." || name == "/" {
		name = "repo"
	}
	return filepath.Join(s.Config.Database, "git", "db", fmt.Sprintf("%s-%s", name, digest))
}

// EnsureMirror guarantees a current bare mirror of the URL exists in the
// database and returns a git context for it. Concurrent callers for the
// same URL coalesce. The fetch is skipped if the mirror was already
// brought up to date this session, unless Refetch is set or a needed
// revision turns out to be absent (callers then retry with Refetch
// semantics via FetchMirror).
func (s *Session) EnsureMirror(ctx context.Context, url string) (git.Git, error) {
	dir := s.mirrorDir(url)
	_, err, _ := s.sf.Do("mirror:"+url, func() (any, error) {
		s.mu.Lock()
		done := s.fetched[url]
		s.mu.Unlock()
		if done && !s.Refetch {
			return nil, nil
		}
		diag.Logger.Debug("ensuring mirror", "url", url, "dir", dir)
		return nil, s.throttled(ctx, func() error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating git database directory %s: %w", dir, err)
			}
			g := git.New(dir, s.Config.Git)
			if err := g.InitBare(ctx, url); err != nil {
				return err
			}
			if !s.Local {
				if err := g.Fetch(ctx); err != nil {
					return fmt.Errorf("fetching %s: %w", url, err)
				}
			}
			s.mu.Lock()
			s.fetched[url] = true
			s.mu.Unlock()
			return nil
		})
	})
	if err != nil {
		return git.Git{}, err
	}
	return git.New(dir, s.Config.Git), nil
}

// FetchMirror forces a fetch of the mirror, used when a required revision
// is not locally present. In local mode it fails fast instead.
func (s *Session) FetchMirror(ctx context.Context, url string) error {
	if s.Local {
		return fmt.Errorf("revision data for %s is missing and network access is disabled", url)
	}
	g, err := s.EnsureMirror(ctx, url)
	if err != nil {
		return err
	}
	_, err, _ = s.sf.Do("refetch:"+url, func() (any, error) {
		err := s.throttled(ctx, func() error { return g.Fetch(ctx) })
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", url, err)
		}
		s.mu.Lock()
		s.invalidate(url)
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

// invalidate drops memoized ref and version data for a URL. Caller holds mu.
func (s *Session) invalidate(url string) {
	delete(s.versions, url)
	delete(s.refs, url)
}

func (s *Session) cachedRefs(url string) ([]git.Ref, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs, ok := s.refs[url]
	return refs, ok
}

// listRefs enumerates the refs of a mirror, memoized per session.
func (s *Session) listRefs(ctx context.Context, url string) ([]git.Ref, error) {
	if refs, ok := s.cachedRefs(url); ok {
		return refs, nil
	}
	v, err, _ := s.sf.Do("refs:"+url, func() (any, error) {
		if refs, ok := s.cachedRefs(url); ok {
			return refs, nil
		}
		g, err := s.EnsureMirror(ctx, url)
		if err != nil {
			return nil, err
		}
		var refs []git.Ref
		err = s.throttled(ctx, func() error {
			var inner error
			refs, inner = g.ListRefs(ctx)
			return inner
		})
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.refs[url] = refs
		s.mu.Unlock()
		return refs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]git.Ref), nil
}
