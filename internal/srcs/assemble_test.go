package srcs

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pulp-platform/bender/internal/config"
	"github.com/pulp-platform/bender/internal/target"
)

func parseManifest(t *testing.T, dir, data string) *config.Manifest {
	t.Helper()
	m, err := config.ParseManifest([]byte(data), dir, true)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func flatPaths(files []FlatFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = filepath.Base(f.Path)
	}
	return paths
}

// Target-gated groups appear only when their predicate holds.
func TestAssemble_targetFiltering(t *testing.T) {
	m := parseManifest(t, "/work", `
package:
  name: chip
sources:
  - rtl.sv
  - target: all(simulation, not(gate))
    files:
      - tb.sv
`)
	pkgs := []PackageInfo{{Name: "chip", Manifest: m}}

	groups, err := Assemble(pkgs, "chip", Params{BaseTargets: target.NewSet("simulation")})
	if err != nil {
		t.Fatal(err)
	}
	got := flatPaths(Flatten(groups))
	if !reflect.DeepEqual(got, []string{"rtl.sv", "tb.sv"}) {
		t.Errorf("simulation files = %v, want [rtl.sv tb.sv]", got)
	}

	groups, err = Assemble(pkgs, "chip", Params{BaseTargets: target.NewSet("simulation", "gate")})
	if err != nil {
		t.Fatal(err)
	}
	got = flatPaths(Flatten(groups))
	if !reflect.DeepEqual(got, []string{"rtl.sv"}) {
		t.Errorf("gate files = %v, want [rtl.sv]", got)
	}
}

// Include dirs and defines inherit from ancestors into descendants.
func TestAssemble_inheritance(t *testing.T) {
	m := parseManifest(t, "/work", `
package:
  name: chip
sources:
  - include_dirs: [outer]
    defines:
      OUTER: ~
    files:
      - a.sv
      - include_dirs: [inner]
        defines:
          INNER: "1"
        files:
          - b.sv
`)
	groups, err := Assemble([]PackageInfo{{Name: "chip", Manifest: m}}, "chip", Params{BaseTargets: target.NewSet()})
	if err != nil {
		t.Fatal(err)
	}
	flat := Flatten(groups)
	if len(flat) != 2 {
		t.Fatalf("flat files = %v", flatPaths(flat))
	}
	a, b := flat[0], flat[1]
	if filepath.Base(a.Path) != "a.sv" || filepath.Base(b.Path) != "b.sv" {
		t.Fatalf("order = %v", flatPaths(flat))
	}
	if len(a.IncludeDirs) != 1 || filepath.Base(a.IncludeDirs[0]) != "outer" {
		t.Errorf("a include dirs = %v", a.IncludeDirs)
	}
	if len(b.IncludeDirs) != 2 {
		t.Errorf("b include dirs = %v, want outer then inner", b.IncludeDirs)
	}
	if _, ok := b.Defines["OUTER"]; !ok {
		t.Error("b should inherit OUTER")
	}
	if v := b.Defines["INNER"]; v == nil || *v != "1" {
		t.Errorf("b INNER = %v", v)
	}
	if _, ok := a.Defines["INNER"]; ok {
		t.Error("a must not see the inner group's define")
	}
}

// export_include_dirs are visible exactly one hop.
func TestAssemble_exportIncludeDirsOneHop(t *testing.T) {
	mExp1 := parseManifest(t, "/exp1", `
package:
  name: exp1
export_include_dirs: [include]
sources: [e1.sv]
`)
	mExp2 := parseManifest(t, "/exp2", `
package:
  name: exp2
export_include_dirs: [include]
sources: [e2.sv]
`)
	mThird := parseManifest(t, "/third", `
package:
  name: third
dependencies:
  exp1: { path: /exp1 }
  exp2: { path: /exp2 }
sources: [t.sv]
`)
	mFourth := parseManifest(t, "/fourth", `
package:
  name: fourth
dependencies:
  third: { path: /third }
sources: [f.sv]
`)
	pkgs := []PackageInfo{
		{Name: "exp1", Manifest: mExp1},
		{Name: "exp2", Manifest: mExp2},
		{Name: "third", Manifest: mThird},
		{Name: "fourth", Manifest: mFourth},
	}
	groups, err := Assemble(pkgs, "fourth", Params{BaseTargets: target.NewSet()})
	if err != nil {
		t.Fatal(err)
	}
	dirs := map[string][]string{}
	for _, f := range Flatten(groups) {
		dirs[f.Package] = f.IncludeDirs
	}
	third := dirs["third"]
	if len(third) != 2 {
		t.Errorf("third include dirs = %v, want both exported dirs", third)
	}
	fourth := dirs["fourth"]
	for _, d := range fourth {
		if filepath.Dir(d) == "/exp1" || filepath.Dir(d) == "/exp2" {
			t.Errorf("fourth sees transitively exported dir %q", d)
		}
	}
}

// After override_files, no two output files share a basename; an
// override file without a twin is dropped.
func TestAssemble_overrideFiles(t *testing.T) {
	m := parseManifest(t, "/work", `
package:
  name: chip
sources:
  - rtl/mem.sv
  - rtl/core.sv
  - override_files: true
    files:
      - patched/mem.sv
      - patched/unrelated.sv
`)
	groups, err := Assemble([]PackageInfo{{Name: "chip", Manifest: m}}, "chip", Params{BaseTargets: target.NewSet()})
	if err != nil {
		t.Fatal(err)
	}
	flat := Flatten(groups)
	seen := map[string]string{}
	for _, f := range flat {
		base := filepath.Base(f.Path)
		if prev, ok := seen[base]; ok {
			t.Errorf("duplicate basename %q: %q and %q", base, prev, f.Path)
		}
		seen[base] = f.Path
	}
	if got := seen["mem.sv"]; filepath.Dir(got) != filepath.Join("/work", "patched") {
		t.Errorf("mem.sv = %q, want the override group's copy", got)
	}
	if _, ok := seen["unrelated.sv"]; ok {
		t.Error("override file without a twin must be dropped")
	}
	if _, ok := seen["core.sv"]; !ok {
		t.Error("core.sv should survive")
	}
}

// pass_targets inject atoms into the dependency's subtree only.
func TestAssemble_passTargets(t *testing.T) {
	mDep := parseManifest(t, "/dep", `
package:
  name: dep
sources:
  - base.sv
  - target: extra
    files: [extra.sv]
`)
	mRoot := parseManifest(t, "/root", `
package:
  name: root
dependencies:
  dep:
    path: /dep
    pass_targets:
      - extra
sources:
  - target: extra
    files: [never.sv]
  - root.sv
`)
	pkgs := []PackageInfo{
		{Name: "dep", Manifest: mDep},
		{Name: "root", Manifest: mRoot},
	}
	groups, err := Assemble(pkgs, "root", Params{BaseTargets: target.NewSet()})
	if err != nil {
		t.Fatal(err)
	}
	got := flatPaths(Flatten(groups))
	want := []string{"base.sv", "extra.sv", "root.sv"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
}

// A dependency's target predicate gates its inclusion in source assembly.
func TestAssemble_dependencyTargetGating(t *testing.T) {
	mDep := parseManifest(t, "/dep", `
package:
  name: dep
sources: [tb_util.sv]
`)
	mRoot := parseManifest(t, "/root", `
package:
  name: root
dependencies:
  dep:
    path: /dep
    target: simulation
sources: [root.sv]
`)
	pkgs := []PackageInfo{
		{Name: "dep", Manifest: mDep},
		{Name: "root", Manifest: mRoot},
	}

	groups, err := Assemble(pkgs, "root", Params{BaseTargets: target.NewSet()})
	if err != nil {
		t.Fatal(err)
	}
	if got := flatPaths(Flatten(groups)); !reflect.DeepEqual(got, []string{"root.sv"}) {
		t.Errorf("without simulation: %v", got)
	}

	groups, err = Assemble(pkgs, "root", Params{BaseTargets: target.NewSet("simulation")})
	if err != nil {
		t.Fatal(err)
	}
	if got := flatPaths(Flatten(groups)); !reflect.DeepEqual(got, []string{"tb_util.sv", "root.sv"}) {
		t.Errorf("with simulation: %v", got)
	}
}

// Assembly output is deterministic across runs.
func TestAssemble_deterministic(t *testing.T) {
	m := parseManifest(t, "/work", `
package:
  name: chip
sources:
  - a.sv
  - defines: {X: ~, Y: "2", Z: ~}
    include_dirs: [i1, i2, i3]
    files: [b.sv, c.sv]
  - d.sv
`)
	pkgs := []PackageInfo{{Name: "chip", Manifest: m}}
	first, err := Assemble(pkgs, "chip", Params{BaseTargets: target.NewSet()})
	if err != nil {
		t.Fatal(err)
	}
	flatFirst := Flatten(first)
	for i := 0; i < 10; i++ {
		again, err := Assemble(pkgs, "chip", Params{BaseTargets: target.NewSet()})
		if err != nil {
			t.Fatal(err)
		}
		flatAgain := Flatten(again)
		if !reflect.DeepEqual(flatPaths(flatFirst), flatPaths(flatAgain)) {
			t.Fatalf("order changed: %v vs %v", flatPaths(flatFirst), flatPaths(flatAgain))
		}
		for j := range flatFirst {
			if !reflect.DeepEqual(flatFirst[j].IncludeDirs, flatAgain[j].IncludeDirs) {
				t.Fatalf("include dirs changed for %s", flatFirst[j].Path)
			}
		}
	}
	// Declaration order survives.
	want := []string{"a.sv", "b.sv", "c.sv", "d.sv"}
	if !reflect.DeepEqual(flatPaths(flatFirst), want) {
		t.Errorf("order = %v, want %v", flatPaths(flatFirst), want)
	}
}

func TestAssemble_flistExpansion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "files.f"), []byte(`
// comment
+incdir+include
+define+SYNTH=1
+define+BARE
sub/impl.sv
`), 0o644); err != nil {
		t.Fatal(err)
	}

	m := parseManifest(t, dir, `
package:
  name: chip
sources:
  - flist: [files.f]
    files:
      - top.sv
`)
	groups, err := Assemble([]PackageInfo{{Name: "chip", Manifest: m}}, "chip", Params{BaseTargets: target.NewSet()})
	if err != nil {
		t.Fatal(err)
	}
	flat := Flatten(groups)
	got := flatPaths(flat)
	want := []string{"impl.sv", "top.sv"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	top := flat[1]
	if len(top.IncludeDirs) != 1 || filepath.Base(top.IncludeDirs[0]) != "include" {
		t.Errorf("include dirs = %v", top.IncludeDirs)
	}
	if v := top.Defines["SYNTH"]; v == nil || *v != "1" {
		t.Errorf("SYNTH = %v", v)
	}
	if v, ok := top.Defines["BARE"]; !ok || v != nil {
		t.Errorf("BARE = %v, %v", v, ok)
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		path string
		want config.FileType
	}{
		{"a.sv", config.FileTypeVerilog},
		{"a.v", config.FileTypeVerilog},
		{"a.vhd", config.FileTypeVhdl},
		{"a.VHDL", config.FileTypeVhdl},
		{"a.txt", config.FileTypeUnknown},
	}
	for _, tt := range tests {
		if got := inferType(tt.path, config.FileTypeUnknown); got != tt.want {
			t.Errorf("inferType(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
	if got := inferType("a.bin", config.FileTypeVerilog); got != config.FileTypeVerilog {
		t.Errorf("override not honored: %q", got)
	}
}
