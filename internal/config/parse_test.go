package config

import (
	"path/filepath"
	"testing"
)

func TestParseManifest_dependencyForms(t *testing.T) {
	data := []byte(`
package:
  name: MyChip
remotes:
  default: "https://github.com/acme"
  lab: "git@lab.example.com:ips/{}.git"
dependencies:
  bare: "1.2.3"
  by_path: { path: deps/common }
  by_rev: { git: "https://example.com/a.git", rev: master }
  by_version: { git: "https://example.com/b.git", version: "^0.3" }
  aliased: { version: "~2.0", remote: lab }
`)
	m, err := ParseManifest(data, "/work/chip", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Package.Name != "mychip" {
		t.Errorf("package name = %q, want lowercase %q", m.Package.Name, "mychip")
	}

	bare := m.Dependencies["bare"]
	if bare.Kind != DepGitVersion || bare.Version != "1.2.3" {
		t.Errorf("bare dependency = %+v", bare)
	}
	if bare.URL != "https://github.com/acme/bare.git" {
		t.Errorf("bare URL = %q, want default remote expansion", bare.URL)
	}

	byPath := m.Dependencies["by_path"]
	if byPath.Kind != DepPath {
		t.Fatalf("by_path kind = %v", byPath.Kind)
	}
	if want := filepath.Join("/work/chip", "deps", "common"); byPath.Path != want {
		t.Errorf("by_path path = %q, want %q", byPath.Path, want)
	}

	byRev := m.Dependencies["by_rev"]
	if byRev.Kind != DepGitRevision || byRev.Revision != "master" || byRev.URL != "https://example.com/a.git" {
		t.Errorf("by_rev = %+v", byRev)
	}

	byVersion := m.Dependencies["by_version"]
	if byVersion.Kind != DepGitVersion || byVersion.Version != "^0.3" {
		t.Errorf("by_version = %+v", byVersion)
	}

	aliased := m.Dependencies["aliased"]
	if aliased.URL != "git@lab.example.com:ips/aliased.git" {
		t.Errorf("aliased URL = %q, want {} template substitution", aliased.URL)
	}
}

func TestParseManifest_dependencyTarget(t *testing.T) {
	data := []byte(`
package:
  name: chip
dependencies:
  tb_lib:
    git: "https://example.com/tb.git"
    version: "1.0"
    target: all(simulation, not(gate))
    pass_targets:
      - rtl
      - { name: post_layout, when: gate }
`)
	m, err := ParseManifest(data, "/work", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dep := m.Dependencies["tb_lib"]
	if dep.Target.String() != "all(simulation, not(gate))" {
		t.Errorf("target = %q", dep.Target.String())
	}
	if len(dep.PassTargets) != 2 {
		t.Fatalf("pass_targets count = %d", len(dep.PassTargets))
	}
	if dep.PassTargets[0].Name != "rtl" || !dep.PassTargets[0].When.IsWildcard() {
		t.Errorf("pass_targets[0] = %+v", dep.PassTargets[0])
	}
	if dep.PassTargets[1].Name != "post_layout" || dep.PassTargets[1].When.String() != "gate" {
		t.Errorf("pass_targets[1] = %+v", dep.PassTargets[1])
	}
}

func TestParseManifest_unknownKeys(t *testing.T) {
	data := []byte(`
package:
  name: chip
bogus_key: 1
`)
	if _, err := ParseManifest(data, "/work", true); err == nil {
		t.Error("strict parse should fail on unknown top-level key")
	}
	if _, err := ParseManifest(data, "/work", false); err != nil {
		t.Errorf("tolerant parse should warn, not fail: %v", err)
	}
}

func TestParseManifest_missingName(t *testing.T) {
	data := []byte(`
package:
  authors: ["A B <a@b.c>"]
`)
	if _, err := ParseManifest(data, "/work", true); err == nil {
		t.Error("expected error for missing package name")
	}
}

func TestParseManifest_sources(t *testing.T) {
	data := []byte(`
package:
  name: chip
sources:
  - src/pkg.sv
  - target: simulation
    include_dirs: [include]
    defines:
      VERBOSE: ~
      WIDTH: "8"
    files:
      - test/tb.sv
  - { sv: src/encrypted.bin }
export_include_dirs:
  - include
`)
	m, err := ParseManifest(data, "/work", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Sources) != 3 {
		t.Fatalf("sources count = %d", len(m.Sources))
	}
	if m.Sources[0].File != filepath.Join("/work", "src", "pkg.sv") {
		t.Errorf("sources[0] = %q", m.Sources[0].File)
	}
	grp := m.Sources[1]
	if grp.IsFile() {
		t.Fatal("sources[1] should be a group")
	}
	if grp.Target.String() != "simulation" {
		t.Errorf("group target = %q", grp.Target.String())
	}
	if len(grp.IncludeDirs) != 1 || grp.IncludeDirs[0] != filepath.Join("/work", "include") {
		t.Errorf("group include_dirs = %v", grp.IncludeDirs)
	}
	if v, ok := grp.Defines["VERBOSE"]; !ok || v != nil {
		t.Errorf("VERBOSE define = %v, %v", v, ok)
	}
	if v := grp.Defines["WIDTH"]; v == nil || *v != "8" {
		t.Errorf("WIDTH define = %v", v)
	}
	typed := m.Sources[2]
	if !typed.IsFile() || typed.FileType != FileTypeVerilog {
		t.Errorf("sources[2] = %+v", typed)
	}
	if m.ExportIncludeDirs[0] != filepath.Join("/work", "include") {
		t.Errorf("export_include_dirs = %v", m.ExportIncludeDirs)
	}
}

func TestParseManifest_missingRemote(t *testing.T) {
	data := []byte(`
package:
  name: chip
dependencies:
  a: "1.0.0"
`)
	if _, err := ParseManifest(data, "/work", true); err == nil {
		t.Error("expected error for undeclared default remote")
	}
}
