package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pulp-platform/bender/internal/diag"
)

// Archive extracts the tree of the given revision into dest by piping
// `git archive <rev>` into `tar -x`. This avoids a full working clone.
func (g Git) Archive(ctx context.Context, rev, dest string) error {
	archive := exec.CommandContext(ctx, g.Command, "archive", "--format", "tar", rev)
	archive.Dir = g.Dir
	var archiveErr bytes.Buffer
	archive.Stderr = &archiveErr

	tar := exec.CommandContext(ctx, "tar", "-x", "-C", dest)
	var tarErr bytes.Buffer
	tar.Stderr = &tarErr

	pipe, err := archive.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating archive pipe: %w", err)
	}
	tar.Stdin = pipe

	if err := archive.Start(); err != nil {
		return &diag.GitError{Dir: g.Dir, Args: []string{"archive", rev}, Err: err}
	}
	if err := tar.Start(); err != nil {
		_ = archive.Process.Kill()
		_ = archive.Wait()
		return fmt.Errorf("spawning tar: %w", err)
	}
	tarWait := tar.Wait()
	if err := archive.Wait(); err != nil {
		return &diag.GitError{Dir: g.Dir, Args: []string{"archive", rev}, Stderr: archiveErr.String(), Err: err}
	}
	if tarWait != nil {
		return fmt.Errorf("extracting archive into %s: %w: %s", dest, tarWait, strings.TrimSpace(tarErr.String()))
	}
	return nil
}

// UsesLfs reports whether the revision's .gitattributes requests git-lfs
// filtering for any path.
func (g Git) UsesLfs(ctx context.Context, rev string) bool {
	out, err := g.CatFile(ctx, rev+":.gitattributes")
	if err != nil {
		return false
	}
	return strings.Contains(out, "filter=lfs")
}

// LfsFetch downloads the LFS objects referenced by rev into the mirror's
// LFS storage.
func (g Git) LfsFetch(ctx context.Context, rev string) error {
	return g.Run(ctx, "lfs", "fetch", "origin", rev)
}

// LfsCheckout replaces LFS pointer files in the given work tree with the
// fetched content. The smudge runs against the mirror's object store.
func (g Git) LfsCheckout(ctx context.Context, workTree string) error {
	return g.Run(ctx, "--work-tree="+workTree, "lfs", "checkout")
}

// TreeEntry is one line of `git ls-tree`.
type TreeEntry struct {
	Mode string
	Kind string
	Hash string
	Name string
}

// LsTree lists the entries of a tree at the given revision.
func (g Git) LsTree(ctx context.Context, rev string) ([]TreeEntry, error) {
	out, err := g.Output(ctx, "ls-tree", rev)
	if err != nil {
		return nil, err
	}
	var entries []TreeEntry
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		meta, name, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 {
			continue
		}
		entries = append(entries, TreeEntry{Mode: fields[0], Kind: fields[1], Hash: fields[2], Name: name})
	}
	return entries, nil
}
