package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/pulp-platform/bender/internal/diag"
)

// Git runs git commands in a fixed repository directory.
type Git struct {
	// Dir is the repository directory commands run in.
	Dir string
	// Command is the git command name, usually "git".
	Command string
}

// New creates a git context for the given directory.
func New(dir, command string) Git {
	if command == "" {
		command = "git"
	}
	return Git{Dir: dir, Command: command}
}

// Output runs a git command and returns its stdout. A non-zero exit yields
// a *diag.GitError carrying the captured stderr.
func (g Git) Output(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.Command, args...)
	cmd.Dir = g.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &diag.GitError{Dir: g.Dir, Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// Run runs a git command for its side effect.
func (g Git) Run(ctx context.Context, args ...string) error {
	_, err := g.Output(ctx, args...)
	return err
}

// IsExitError reports whether err is a command exiting non-zero, as opposed
// to a spawn failure.
func IsExitError(err error) bool {
	var ge *diag.GitError
	if !errors.As(err, &ge) {
		return false
	}
	var xe *exec.ExitError
	return errors.As(ge.Err, &xe)
}

// InitBare initializes the directory as a bare repository with the given
// remote, unless it already is one.
func (g Git) InitBare(ctx context.Context, url string) error {
	if out, err := g.Output(ctx, "rev-parse", "--is-bare-repository"); err == nil && strings.TrimSpace(out) == "true" {
		return nil
	}
	if err := g.Run(ctx, "init", "--bare"); err != nil {
		return fmt.Errorf("initializing bare repository: %w", err)
	}
	if err := g.Run(ctx, "remote", "add", "origin", url); err != nil {
		return fmt.Errorf("adding remote %s: %w", url, err)
	}
	return nil
}

// Fetch updates the remote's refs and tags.
func (g Git) Fetch(ctx context.Context) error {
	if err := g.Run(ctx, "fetch", "--prune", "origin"); err != nil {
		return err
	}
	return g.Run(ctx, "fetch", "--tags", "--prune", "origin")
}

// Ref is one entry of `git show-ref`: a ref name and the commit hash it
// points at.
type Ref struct {
	Name string
	Hash string
}

// ListRefs enumerates all refs with `git show-ref --dereference`. Annotated
// tags are folded onto their dereferenced commit: the peeled `<ref>^{}`
// hash replaces the tag object hash.
func (g Git) ListRefs(ctx context.Context) ([]Ref, error) {
	out, err := g.Output(ctx, "show-ref", "--dereference")
	if err != nil {
		// show-ref exits non-zero on a repository without refs.
		if IsExitError(err) {
			return nil, nil
		}
		return nil, err
	}
	peeled := map[string]string{}
	var refs []Ref
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		hash, name := fields[0], fields[1]
		if peeledName, ok := strings.CutSuffix(name, "^{}"); ok {
			peeled[peeledName] = hash
			continue
		}
		refs = append(refs, Ref{Name: name, Hash: hash})
	}
	for i, r := range refs {
		if hash, ok := peeled[r.Name]; ok {
			refs[i].Hash = hash
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// ListRevs lists all revisions in the repository, most recent first.
func (g Git) ListRevs(ctx context.Context) ([]string, error) {
	out, err := g.Output(ctx, "rev-list", "--all", "--date-order")
	if err != nil {
		return nil, err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// HasCommit reports whether the given full hash names a commit present in
// the repository.
func (g Git) HasCommit(ctx context.Context, hash string) bool {
	out, err := g.Output(ctx, "cat-file", "-t", hash)
	return err == nil && strings.TrimSpace(out) == "commit"
}

// CatFile reads the content of a `<rev>:<path>` spec or blob hash.
func (g Git) CatFile(ctx context.Context, spec string) (string, error) {
	return g.Output(ctx, "cat-file", "blob", spec)
}

// IsInstalled reports whether the command is available on PATH.
func IsInstalled(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}
