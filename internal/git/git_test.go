package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pulp-platform/bender/internal/testutil"
)

func TestListRefs_dereferencesAnnotatedTags(t *testing.T) {
	repo := testutil.NewRepo(t)
	head := repo.Head()
	repo.Tag("v1.0.0")

	// An annotated tag points at a tag object; show-ref must fold it onto
	// the commit via the ^{} line.
	run := func(args ...string) {
		cmd := New(repo.Dir, "git")
		if err := cmd.Run(context.Background(), args...); err != nil {
			t.Fatal(err)
		}
	}
	run("tag", "-a", "v2.0.0", "-m", "release")

	g := New(repo.Dir, "git")
	refs, err := g.ListRefs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]string{}
	for _, r := range refs {
		byName[r.Name] = r.Hash
	}
	if byName["refs/tags/v1.0.0"] != head {
		t.Errorf("lightweight tag hash = %q, want %q", byName["refs/tags/v1.0.0"], head)
	}
	if byName["refs/tags/v2.0.0"] != head {
		t.Errorf("annotated tag not dereferenced: %q, want %q", byName["refs/tags/v2.0.0"], head)
	}
}

func TestHasCommit(t *testing.T) {
	repo := testutil.NewRepo(t)
	head := repo.Head()
	g := New(repo.Dir, "git")
	if !g.HasCommit(context.Background(), head) {
		t.Error("HEAD should be present")
	}
	if g.HasCommit(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef") {
		t.Error("bogus hash should be absent")
	}
}

func TestArchive(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("src/top.sv", "module top; endmodule\n")
	head := repo.Commit("add source")

	dest := t.TempDir()
	g := New(repo.Dir, "git")
	if err := g.Archive(context.Background(), head, dest); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "src", "top.sv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "module top; endmodule\n" {
		t.Errorf("extracted content = %q", data)
	}
}

func TestOutput_capturesStderrOnFailure(t *testing.T) {
	g := New(t.TempDir(), "git")
	_, err := g.Output(context.Background(), "rev-parse", "HEAD")
	if err == nil {
		t.Fatal("expected error outside a repository")
	}
	if !IsExitError(err) {
		t.Errorf("expected exit error, got %v", err)
	}
}
