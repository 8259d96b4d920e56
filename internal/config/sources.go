package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pulp-platform/bender/internal/target"
)

// FileType identifies the language of a source file.
type FileType string

const (
	// FileTypeUnknown means the extension did not identify a language.
	FileTypeUnknown FileType = ""
	// FileTypeVerilog covers SystemVerilog and Verilog sources.
	FileTypeVerilog FileType = "verilog"
	// FileTypeVhdl covers VHDL sources.
	FileTypeVhdl FileType = "vhdl"
)

// SourceNode is one node of a package's source tree: either a terminal file
// or a group with an optional target predicate, include directories,
// defines, and child nodes.
type SourceNode struct {
	// File is the path of a terminal file node. Empty for groups.
	File string
	// FileType overrides the language inferred from the file extension.
	FileType FileType

	// Group fields.
	Target        target.Spec
	IncludeDirs   []string
	Defines       map[string]*string
	OverrideFiles bool
	Flists        []string
	Children      []SourceNode
}

// IsFile reports whether the node is a terminal file.
func (n SourceNode) IsFile() bool { return n.File != "" }

// rawSourceGroup mirrors the YAML mapping form of a group node.
type rawSourceGroup struct {
	Target        *yaml.Node         `yaml:"target"`
	IncludeDirs   []string           `yaml:"include_dirs"`
	Defines       map[string]*string `yaml:"defines"`
	OverrideFiles bool               `yaml:"override_files"`
	Flists        []string           `yaml:"flist"`
	Files         []SourceNode       `yaml:"files"`
}

// fileTypeKeys are the per-file override keys that let unusually suffixed or
// encrypted files declare their language.
var fileTypeKeys = map[string]FileType{
	"sv":  FileTypeVerilog,
	"v":   FileTypeVerilog,
	"vhd": FileTypeVhdl,
}

// UnmarshalYAML accepts the three entry forms of a source tree:
//
//	- path/to/file.sv
//	- { sv: path/to/encrypted.bin }
//	- { target: ..., include_dirs: [...], defines: {...}, files: [...] }
func (n *SourceNode) UnmarshalYAML(node *yaml.Node) error {
	n.Target = target.WildcardSpec()

	if node.Kind == yaml.ScalarNode {
		return node.Decode(&n.File)
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("source entry must be a file path or a mapping")
	}

	// A mapping with a single file-type key is a typed file entry.
	if len(node.Content) == 2 {
		key := node.Content[0].Value
		if ft, ok := fileTypeKeys[key]; ok {
			if err := node.Content[1].Decode(&n.File); err != nil {
				return err
			}
			n.FileType = ft
			return nil
		}
	}

	var raw rawSourceGroup
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("invalid source group: %w", err)
	}
	if raw.Target != nil {
		if err := raw.Target.Decode(&n.Target); err != nil {
			return err
		}
	}
	n.IncludeDirs = raw.IncludeDirs
	n.Defines = raw.Defines
	n.OverrideFiles = raw.OverrideFiles
	n.Flists = raw.Flists
	n.Children = raw.Files
	return nil
}

// MarshalYAML serializes file nodes as scalars and groups as mappings.
func (n SourceNode) MarshalYAML() (any, error) {
	if n.IsFile() {
		if n.FileType != FileTypeUnknown {
			key := "sv"
			if n.FileType == FileTypeVhdl {
				key = "vhd"
			}
			return map[string]string{key: n.File}, nil
		}
		return n.File, nil
	}
	m := map[string]any{"files": n.Children}
	if !n.Target.IsWildcard() {
		m["target"] = n.Target.String()
	}
	if len(n.IncludeDirs) > 0 {
		m["include_dirs"] = n.IncludeDirs
	}
	if len(n.Defines) > 0 {
		m["defines"] = n.Defines
	}
	if n.OverrideFiles {
		m["override_files"] = true
	}
	if len(n.Flists) > 0 {
		m["flist"] = n.Flists
	}
	return m, nil
}
