package resolver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/pulp-platform/bender/internal/config"
	"github.com/pulp-platform/bender/internal/diag"
	"github.com/pulp-platform/bender/internal/sess"
)

// bind selects a source for one package from its accumulated requirements.
func (r *Resolver) bind(ctx context.Context, name string) (*binding, error) {
	reqs := r.reqs[name]

	var paths, versions, revisions []requirement
	for _, req := range reqs {
		switch req.dep.Kind {
		case config.DepPath:
			paths = append(paths, req)
		case config.DepGitVersion:
			versions = append(versions, req)
		case config.DepGitRevision:
			revisions = append(revisions, req)
		}
	}

	// A path requirement forces path consensus: every requirement must name
	// the identical canonical path.
	if len(paths) > 0 {
		if len(paths) != len(reqs) {
			return nil, &diag.PathConflictError{Package: name, Paths: describeAll(reqs)}
		}
		canonical := canonicalPath(paths[0].dep.Path)
		for _, req := range paths[1:] {
			if canonicalPath(req.dep.Path) != canonical {
				return nil, &diag.PathConflictError{Package: name, Paths: describeAll(reqs)}
			}
		}
		return &binding{path: canonical}, nil
	}

	// Resolve every pinned revision; all must agree on the hash.
	var pinnedHash, pinnedURL string
	for _, req := range revisions {
		hash, err := r.sess.ResolveCommitish(ctx, req.dep.URL, req.dep.Revision)
		if err != nil {
			return nil, err
		}
		if pinnedHash == "" {
			pinnedHash, pinnedURL = hash, req.dep.URL
			continue
		}
		if hash != pinnedHash {
			return r.arbitrate(ctx, name, reqs)
		}
	}

	// Parse the version ranges.
	constraints := make([]*semver.Constraints, len(versions))
	for i, req := range versions {
		c, err := semver.NewConstraint(req.dep.Version)
		if err != nil {
			return nil, fmt.Errorf("package %q: invalid version requirement %q from %q: %w", name, req.dep.Version, req.parent, err)
		}
		constraints[i] = c
	}

	// A pinned revision is incompatible with version ranges unless one of
	// the hash's tags satisfies every range.
	if pinnedHash != "" {
		if len(versions) == 0 {
			return &binding{url: pinnedURL, hash: pinnedHash}, nil
		}
		tagged, err := r.sess.ListVersions(ctx, pinnedURL)
		if err != nil {
			return nil, err
		}
		var tag *semver.Version
		for _, v := range tagged {
			if v.Hash == pinnedHash && satisfiesAll(v.Version, constraints) {
				tag = v.Version
			}
		}
		if tag != nil {
			return &binding{url: pinnedURL, hash: pinnedHash, version: tag}, nil
		}
		return r.arbitrate(ctx, name, reqs)
	}

	// Version ranges only: intersect over the tag set and take the highest
	// satisfying version.
	url := versions[0].dep.URL
	avail, err := r.sess.ListVersions(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(avail) == 0 {
		return nil, fmt.Errorf("no version tags found for dependency %q at %s; ensure git tags are formatted as `vX.Y.Z`", name, url)
	}
	var best *sess.Version
	for i := range avail {
		v := &avail[i]
		if satisfiesAll(v.Version, constraints) {
			best = v
		}
	}
	if best == nil {
		return r.arbitrate(ctx, name, reqs)
	}
	return &binding{url: url, hash: best.Hash, version: best.Version}, nil
}

// arbitrate asks the Arbiter to pick among the individually satisfiable
// candidates. The previous lockfile's entry, when present, is offered
// first. A successful choice becomes a forced binding.
func (r *Resolver) arbitrate(ctx context.Context, name string, reqs []requirement) (*binding, error) {
	report := make([]diag.Requirement, 0, len(reqs))
	reported := map[string]bool{}
	for _, req := range reqs {
		entry := diag.Requirement{
			Parent:     req.parent,
			Constraint: req.dep.String(),
			Source:     reqSource(req),
		}
		key := entry.Parent + "|" + entry.Constraint
		if reported[key] {
			continue
		}
		reported[key] = true
		report = append(report, entry)
	}

	var candidates []Candidate
	seen := map[string]bool{}
	add := func(c Candidate) {
		key := c.Hash + "|" + c.Path
		if !seen[key] {
			seen[key] = true
			candidates = append(candidates, c)
		}
	}
	if r.previous != nil {
		if prev, ok := r.previous.Packages[name]; ok && !prev.Source.IsPath() && prev.Revision != "" {
			desc := prev.Revision
			if prev.Version != "" {
				desc = "v" + strings.TrimPrefix(prev.Version, "v") + " (previous lockfile)"
			}
			add(Candidate{Description: desc, Version: prev.Version, Hash: prev.Revision})
		}
	}
	for _, req := range reqs {
		switch req.dep.Kind {
		case config.DepGitVersion:
			c, err := semver.NewConstraint(req.dep.Version)
			if err != nil {
				continue
			}
			avail, err := r.sess.ListVersions(ctx, req.dep.URL)
			if err != nil {
				return nil, err
			}
			for i := len(avail) - 1; i >= 0; i-- {
				if c.Check(avail[i].Version) {
					add(Candidate{
						Description: "v" + avail[i].Version.String(),
						Version:     avail[i].Version.String(),
						Hash:        avail[i].Hash,
					})
					break
				}
			}
		case config.DepGitRevision:
			hash, err := r.sess.ResolveCommitish(ctx, req.dep.URL, req.dep.Revision)
			if err != nil {
				continue
			}
			add(Candidate{Description: hash, Hash: hash})
		}
	}

	choice, err := r.arbiter.Choose(name, report, candidates)
	if err != nil {
		return nil, err
	}
	b := &binding{forced: true}
	if choice.Path != "" {
		b.path = choice.Path
		return b, nil
	}
	b.hash = choice.Hash
	b.url = firstGitURL(reqs)
	if choice.Version != "" {
		if v, err := semver.NewVersion(strings.TrimPrefix(choice.Version, "v")); err == nil {
			b.version = v
		}
	}
	return b, nil
}

func satisfiesAll(v *semver.Version, constraints []*semver.Constraints) bool {
	for _, c := range constraints {
		if !c.Check(v) {
			return false
		}
	}
	return true
}

func firstGitURL(reqs []requirement) string {
	for _, req := range reqs {
		if req.dep.URL != "" {
			return req.dep.URL
		}
	}
	return ""
}

func reqSource(req requirement) string {
	switch req.dep.Kind {
	case config.DepPath:
		return req.dep.Path
	default:
		return req.dep.URL
	}
}

func describeAll(reqs []requirement) map[string]string {
	m := make(map[string]string, len(reqs))
	for _, req := range reqs {
		m[req.parent] = req.dep.String()
	}
	return m
}

func canonicalPath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
