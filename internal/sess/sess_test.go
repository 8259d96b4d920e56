package sess

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pulp-platform/bender/internal/config"
	"github.com/pulp-platform/bender/internal/testutil"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	root := t.TempDir()
	m := &config.Manifest{Package: config.Package{Name: "root"}, Dir: root}
	cfg := &config.Config{
		Database:    filepath.Join(root, ".bender"),
		Git:         "git",
		GitThrottle: 2,
		Overrides:   map[string]config.Dependency{},
		Plugins:     map[string]string{},
	}
	return New(root, m, cfg)
}

func TestListVersions_vPrefixRule(t *testing.T) {
	repo := testutil.NewRepo(t)
	v1 := repo.CommitVersion("v1.0.0")
	repo.CommitVersion("v1.1.0")
	repo.Tag("1.2.0")    // no v prefix: invisible
	repo.Tag("rel-2.0")  // not a version tag
	repo.Tag("v2.0.0-x") // prerelease is a valid version

	s := newTestSession(t)
	versions, err := s.ListVersions(context.Background(), repo.Dir)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, len(versions))
	for i, v := range versions {
		got[i] = v.Version.String()
	}
	want := []string{"1.0.0", "1.1.0", "2.0.0-x"}
	if len(got) != len(want) {
		t.Fatalf("versions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("versions[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if versions[0].Hash != v1 {
		t.Errorf("v1.0.0 hash = %q, want %q", versions[0].Hash, v1)
	}
}

func TestResolveCommitish_fullHash(t *testing.T) {
	repo := testutil.NewRepo(t)
	head := repo.Head()
	s := newTestSession(t)
	got, err := s.ResolveCommitish(context.Background(), repo.Dir, head)
	if err != nil {
		t.Fatal(err)
	}
	if got != head {
		t.Errorf("resolved = %q, want %q", got, head)
	}
}

func TestResolveCommitish_branchPreferredOverTag(t *testing.T) {
	repo := testutil.NewRepo(t)
	old := repo.Head()
	repo.Tag("release")
	repo.WriteFile("next.txt", "next\n")
	newer := repo.Commit("next")
	repo.Branch("release-branch")

	s := newTestSession(t)
	// Prefix "release" matches both the tag and the branch; the branch
	// wins.
	got, err := s.ResolveCommitish(context.Background(), repo.Dir, "release")
	if err != nil {
		t.Fatal(err)
	}
	if got != newer {
		t.Errorf("resolved = %q, want branch commit %q (tag was %q)", got, newer, old)
	}
}

func TestResolveCommitish_lexicographicallyLatestWins(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.Tag("rel-a")
	repo.WriteFile("b.txt", "b\n")
	second := repo.Commit("second")
	repo.Tag("rel-b")

	s := newTestSession(t)
	got, err := s.ResolveCommitish(context.Background(), repo.Dir, "rel-")
	if err != nil {
		t.Fatal(err)
	}
	if got != second {
		t.Errorf("resolved = %q, want the newest name rel-b at %q", got, second)
	}
}

func TestResolveCommitish_hashPrefix(t *testing.T) {
	repo := testutil.NewRepo(t)
	head := repo.Head()
	s := newTestSession(t)
	got, err := s.ResolveCommitish(context.Background(), repo.Dir, head[:10])
	if err != nil {
		t.Fatal(err)
	}
	if got != head {
		t.Errorf("resolved = %q, want %q", got, head)
	}
}

func TestResolveCommitish_notFound(t *testing.T) {
	repo := testutil.NewRepo(t)
	s := newTestSession(t)
	_, err := s.ResolveCommitish(context.Background(), repo.Dir, "zzz-no-such-rev")
	if err == nil {
		t.Fatal("expected RevisionNotFound")
	}
}

func TestCheckout_materializesAndRedoesPartial(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("rtl/top.sv", "module top; endmodule\n")
	head := repo.Commit("add rtl")

	s := newTestSession(t)
	dir, err := s.Checkout(context.Background(), repo.Dir, head)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "rtl", "top.sv")); err != nil {
		t.Fatalf("checkout incomplete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, sentinelFile)); err != nil {
		t.Fatalf("missing sentinel: %v", err)
	}

	// Remove the sentinel to simulate a crashed checkout; a fresh session
	// must redo it.
	if err := os.Remove(filepath.Join(dir, sentinelFile)); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "rtl", "top.sv")); err != nil {
		t.Fatal(err)
	}
	s2 := New(s.Root, s.Manifest, s.Config)
	dir2, err := s2.Checkout(context.Background(), repo.Dir, head)
	if err != nil {
		t.Fatal(err)
	}
	if dir2 != dir {
		t.Errorf("checkout moved: %q vs %q", dir2, dir)
	}
	if _, err := os.Stat(filepath.Join(dir, "rtl", "top.sv")); err != nil {
		t.Errorf("partial checkout not redone: %v", err)
	}
}

func TestManifestAt_missingManifestIsEmpty(t *testing.T) {
	repo := testutil.NewRepo(t)
	head := repo.Head()
	s := newTestSession(t)
	m, err := s.ManifestAt(context.Background(), "dep", repo.Dir, head)
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Errorf("expected nil manifest for repo without Bender.yml, got %+v", m)
	}
}

func TestManifestAt_loadsManifest(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteManifest(testutil.Manifest("dep"))
	head := repo.Commit("add manifest")
	s := newTestSession(t)
	m, err := s.ManifestAt(context.Background(), "dep", repo.Dir, head)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Package.Name != "dep" {
		t.Fatalf("manifest = %+v", m)
	}
}
