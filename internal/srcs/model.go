package srcs

import (
	"path/filepath"
	"strings"

	"github.com/pulp-platform/bender/internal/config"
)

// File is one source file with its resolved language.
type File struct {
	Path string          `json:"path" yaml:"path"`
	Type config.FileType `json:"type" yaml:"type"`
}

// Group is a filtered, materialized source group: the include directories
// and defines declared on it (not yet merged with ancestors), and its
// ordered children.
type Group struct {
	Package     string             `json:"package,omitempty" yaml:"package,omitempty"`
	IncludeDirs []string           `json:"include_dirs,omitempty" yaml:"include_dirs,omitempty"`
	Defines     map[string]*string `json:"defines,omitempty" yaml:"defines,omitempty"`
	Files       []File             `json:"files,omitempty" yaml:"files,omitempty"`
	Groups      []*Group           `json:"groups,omitempty" yaml:"groups,omitempty"`

	// override marks groups declared with override_files.
	override bool
	// tail marks synthetic groups that keep files declared after a
	// subgroup in their original position.
	tail bool
}

// FlatFile pairs one file with its fully inherited include directories and
// defines.
type FlatFile struct {
	Package     string             `json:"package" yaml:"package"`
	Path        string             `json:"path" yaml:"path"`
	Type        config.FileType    `json:"type" yaml:"type"`
	IncludeDirs []string           `json:"include_dirs,omitempty" yaml:"include_dirs,omitempty"`
	Defines     map[string]*string `json:"defines,omitempty" yaml:"defines,omitempty"`
}

// inferType derives the language from the file extension. The per-file
// override in the manifest wins.
func inferType(path string, override config.FileType) config.FileType {
	if override != config.FileTypeUnknown {
		return override
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sv", ".svh", ".v", ".vh":
		return config.FileTypeVerilog
	case ".vhd", ".vhdl":
		return config.FileTypeVhdl
	}
	return config.FileTypeUnknown
}

// mergeDefines overlays child defines on a copy of the parent's.
func mergeDefines(parent, child map[string]*string) map[string]*string {
	if len(parent) == 0 && len(child) == 0 {
		return nil
	}
	merged := make(map[string]*string, len(parent)+len(child))
	for k, v := range parent {
		merged[k] = v
	}
	for k, v := range child {
		merged[k] = v
	}
	return merged
}

// mergeDirs appends child include dirs to the parent's, deduplicated,
// parent first.
func mergeDirs(parent, child []string) []string {
	if len(parent) == 0 && len(child) == 0 {
		return nil
	}
	merged := make([]string, 0, len(parent)+len(child))
	seen := map[string]bool{}
	for _, d := range parent {
		if !seen[d] {
			seen[d] = true
			merged = append(merged, d)
		}
	}
	for _, d := range child {
		if !seen[d] {
			seen[d] = true
			merged = append(merged, d)
		}
	}
	return merged
}
