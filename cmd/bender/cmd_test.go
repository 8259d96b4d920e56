package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pulp-platform/bender/internal/testutil"
)

// execute runs the CLI with the given arguments and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setupWorkspace(t *testing.T) (string, *testutil.Repo) {
	t.Helper()
	repo := testutil.NewRepo(t)
	repo.WriteManifest(testutil.Manifest("a") + "sources:\n  - rtl/a.sv\n")
	repo.WriteFile("rtl/a.sv", "module a; endmodule\n")
	repo.Commit("sources")
	repo.Tag("v1.0.0")

	root := t.TempDir()
	manifest := fmt.Sprintf(`
package:
  name: chip
dependencies:
  a: { git: %q, version: "^1.0" }
sources:
  - rtl/chip.sv
`, repo.Dir)
	if err := os.WriteFile(filepath.Join(root, "Bender.yml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, repo
}

func TestUpdateAndPackages(t *testing.T) {
	root, _ := setupWorkspace(t)

	out, err := execute(t, "--dir", root, "update")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Resolved 1 packages.") {
		t.Errorf("update output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(root, "Bender.lock")); err != nil {
		t.Fatalf("lockfile not written: %v", err)
	}

	out, err = execute(t, "--dir", root, "packages")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "a" {
		t.Errorf("packages output = %q", out)
	}
}

func TestSourcesFlatten(t *testing.T) {
	root, _ := setupWorkspace(t)
	if _, err := execute(t, "--dir", root, "update"); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--dir", root, "sources", "--flatten")
	if err != nil {
		t.Fatal(err)
	}
	var files []map[string]any
	if err := json.Unmarshal([]byte(out), &files); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(files) != 2 {
		t.Fatalf("file count = %d: %s", len(files), out)
	}
	// Dependency sources come before the root package's.
	if files[0]["package"] != "a" || files[1]["package"] != "chip" {
		t.Errorf("package order = %v, %v", files[0]["package"], files[1]["package"])
	}
}

func TestPath(t *testing.T) {
	root, _ := setupWorkspace(t)
	if _, err := execute(t, "--dir", root, "update"); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--dir", root, "path", "a")
	if err != nil {
		t.Fatal(err)
	}
	dir := strings.TrimSpace(out)
	if _, err := os.Stat(filepath.Join(dir, "rtl", "a.sv")); err != nil {
		t.Errorf("checkout at %q incomplete: %v", dir, err)
	}
}

func TestParents(t *testing.T) {
	root, _ := setupWorkspace(t)
	if _, err := execute(t, "--dir", root, "update"); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--dir", root, "parents", "a")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "chip") {
		t.Errorf("parents output = %q", out)
	}
}
