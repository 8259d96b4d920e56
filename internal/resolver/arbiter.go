package resolver

import (
	"github.com/pulp-platform/bender/internal/diag"
)

// Candidate is one choice offered to the user during conflict arbitration.
type Candidate struct {
	// Description is the human-readable form, e.g. "v2.0.0" or a hash.
	Description string
	// Version is the semver string when the candidate is a tagged version.
	Version string
	// Hash is the commit hash the candidate binds to. Empty for path
	// candidates.
	Hash string
	// Path is the filesystem path for path candidates.
	Path string
}

// Arbiter decides version conflicts that have no satisfying intersection.
// Implementations present the requirements and candidates and return the
// candidate to bind, or an error to abort resolution.
type Arbiter interface {
	Choose(pkg string, reqs []diag.Requirement, candidates []Candidate) (Candidate, error)
}

// FailArbiter is the non-interactive default: it rejects every conflict
// with a structured report listing each requirement and its originating
// parent.
type FailArbiter struct{}

// Choose implements Arbiter by always failing.
func (FailArbiter) Choose(pkg string, reqs []diag.Requirement, _ []Candidate) (Candidate, error) {
	return Candidate{}, &diag.VersionConflictError{Package: pkg, Requirements: reqs}
}

// ScriptedArbiter answers conflicts from a fixed sequence of candidate
// indices. Tests inject it in place of the terminal prompt.
type ScriptedArbiter struct {
	// Picks are consumed front to back, one per conflict.
	Picks []int
	// Asked records the packages arbitration was requested for.
	Asked []string
}

// Choose implements Arbiter from the scripted picks.
func (a *ScriptedArbiter) Choose(pkg string, reqs []diag.Requirement, candidates []Candidate) (Candidate, error) {
	a.Asked = append(a.Asked, pkg)
	if len(a.Picks) == 0 {
		return Candidate{}, &diag.VersionConflictError{Package: pkg, Requirements: reqs}
	}
	pick := a.Picks[0]
	a.Picks = a.Picks[1:]
	if pick < 0 || pick >= len(candidates) {
		return Candidate{}, &diag.VersionConflictError{Package: pkg, Requirements: reqs}
	}
	return candidates[pick], nil
}
