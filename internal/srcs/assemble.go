package srcs

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pulp-platform/bender/internal/config"
	"github.com/pulp-platform/bender/internal/target"
)

// PackageInfo is one locked package handed to the assembler: its name and
// its loaded manifest, which may be nil for packages without one.
type PackageInfo struct {
	Name     string
	Manifest *config.Manifest
}

// Params control one assembly run.
type Params struct {
	// BaseTargets is the command-default target set.
	BaseTargets target.Set
	// Modifiers are the parsed -t command line entries.
	Modifiers []target.Modifier
	// Only restricts the output to the named packages, when non-empty.
	Only []string
	// Exclude removes the named packages from the output.
	Exclude []string
	// NoDeps restricts the output to the root package.
	NoDeps bool
}

// Assemble walks every package's source tree under the active target set
// and produces one group per package, in the order given — which must be
// topological, leaves first, with the root package last.
func Assemble(order []PackageInfo, rootName string, p Params) ([]*Group, error) {
	manifests := make(map[string]*config.Manifest, len(order))
	for _, pkg := range order {
		manifests[pkg.Name] = pkg.Manifest
	}

	sets, included := propagateTargets(order, manifests, rootName, p)

	only := toSet(p.Only)
	exclude := toSet(p.Exclude)

	var out []*Group
	for _, pkg := range order {
		if !included[pkg.Name] || exclude[pkg.Name] {
			continue
		}
		if len(only) > 0 && !only[pkg.Name] {
			continue
		}
		if p.NoDeps && pkg.Name != rootName {
			continue
		}
		if pkg.Manifest == nil || len(pkg.Manifest.Sources) == 0 {
			continue
		}
		g, err := assemblePackage(pkg.Name, pkg.Manifest, manifests, sets[pkg.Name], included)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", pkg.Name, err)
		}
		if g != nil {
			out = append(out, g)
		}
	}
	return out, nil
}

// propagateTargets computes each package's effective target set and the set
// of packages reachable from the root through edges whose target predicate
// holds. The order must be topological leaves-first; iterating it in
// reverse visits every parent before its children, so injected
// pass-targets are complete when a package's set is built.
func propagateTargets(order []PackageInfo, manifests map[string]*config.Manifest, rootName string, p Params) (map[string]target.Set, map[string]bool) {
	sets := make(map[string]target.Set, len(order))
	passed := map[string][]string{}
	included := map[string]bool{rootName: true}

	for i := len(order) - 1; i >= 0; i-- {
		name := order[i].Name
		set := target.Apply(p.BaseTargets, p.Modifiers, name)
		for _, atom := range passed[name] {
			set.Add(atom)
		}
		sets[name] = set

		m := manifests[name]
		if m == nil || !included[name] {
			continue
		}
		for dep, spec := range m.Dependencies {
			if !spec.Target.Matches(set) {
				continue
			}
			included[dep] = true
			for _, pt := range spec.PassTargets {
				if pt.When.Matches(set) {
					passed[dep] = append(passed[dep], pt.Name)
				}
			}
		}
	}
	return sets, included
}

// assemblePackage builds the filtered group tree of one package.
func assemblePackage(name string, m *config.Manifest, manifests map[string]*config.Manifest, set target.Set, included map[string]bool) (*Group, error) {
	root := &Group{
		Package:     name,
		IncludeDirs: exportedIncludeDirs(name, m, manifests, set, included),
	}
	for _, node := range m.Sources {
		child, err := buildNode(name, node, set)
		if err != nil {
			return nil, err
		}
		appendNode(root, child)
	}
	applyOverrides(root)
	prune(root)
	if len(root.Files) == 0 && len(root.Groups) == 0 {
		return nil, nil
	}
	return root, nil
}

// exportedIncludeDirs collects the package's own export_include_dirs plus
// those of the packages it directly depends on. The export is one hop:
// transitive dependents do not see them.
func exportedIncludeDirs(name string, m *config.Manifest, manifests map[string]*config.Manifest, set target.Set, included map[string]bool) []string {
	dirs := append([]string{}, m.ExportIncludeDirs...)
	for _, dep := range sortedKeys(m.Dependencies) {
		spec := m.Dependencies[dep]
		if !spec.Target.Matches(set) || !included[dep] {
			continue
		}
		if dm := manifests[dep]; dm != nil {
			dirs = append(dirs, dm.ExportIncludeDirs...)
		}
	}
	return mergeDirs(dirs, nil)
}

// builtNode is either a file or a group produced by buildNode; both nil
// means the node was dropped by target filtering.
type builtNode struct {
	file  *File
	group *Group
}

// buildNode converts one manifest source node into an output node,
// dropping subtrees whose target predicate does not hold.
func buildNode(pkg string, node config.SourceNode, set target.Set) (builtNode, error) {
	if node.IsFile() {
		return builtNode{file: &File{Path: node.File, Type: inferType(node.File, node.FileType)}}, nil
	}
	if !node.Target.Matches(set) {
		return builtNode{}, nil
	}
	g := &Group{
		IncludeDirs: append([]string{}, node.IncludeDirs...),
		Defines:     node.Defines,
		override:    node.OverrideFiles,
	}
	// External flist files contribute to the group's scope; their file
	// entries come before the group's declared children.
	for _, fl := range node.Flists {
		content, err := parseFlist(fl)
		if err != nil {
			return builtNode{}, fmt.Errorf("flist %s: %w", fl, err)
		}
		g.IncludeDirs = mergeDirs(g.IncludeDirs, content.includeDirs)
		g.Defines = mergeDefines(content.defines, g.Defines)
		for _, f := range content.files {
			g.Files = append(g.Files, File{Path: f, Type: inferType(f, config.FileTypeUnknown)})
		}
	}
	for _, child := range node.Children {
		built, err := buildNode(pkg, child, set)
		if err != nil {
			return builtNode{}, err
		}
		appendNode(g, built)
	}
	return builtNode{group: g}, nil
}

// appendNode adds a built child to a group, preserving declaration order.
// Interleaved files and groups keep their relative order by wrapping file
// runs that follow a subgroup in a synthetic trailing group.
func appendNode(g *Group, b builtNode) {
	switch {
	case b.file != nil:
		// A file declared after a subgroup must not be reordered before
		// it; wrap it in a trailing group to keep the stream ordered.
		if len(g.Groups) > 0 {
			last := g.Groups[len(g.Groups)-1]
			if last.tail {
				last.Files = append(last.Files, *b.file)
				return
			}
			g.Groups = append(g.Groups, &Group{Files: []File{*b.file}, tail: true})
			return
		}
		g.Files = append(g.Files, *b.file)
	case b.group != nil:
		g.Groups = append(g.Groups, b.group)
	}
}

// applyOverrides implements override_files: within one package, a file in
// an override group deletes every occurrence of its basename outside
// override groups; an override file with no such twin is itself dropped.
// Files sharing a basename across two override groups are all kept.
func applyOverrides(root *Group) {
	overrides := map[string]bool{}
	collectOverrideBasenames(root, &overrides)
	if len(overrides) == 0 {
		return
	}
	matched := map[string]bool{}
	deleteShadowed(root, overrides, matched)
	dropUnmatched(root, matched)
}

func collectOverrideBasenames(g *Group, out *map[string]bool) {
	if g.override {
		for _, f := range g.Files {
			(*out)[filepath.Base(f.Path)] = true
		}
	}
	for _, sub := range g.Groups {
		collectOverrideBasenames(sub, out)
	}
}

func deleteShadowed(g *Group, overrides, matched map[string]bool) {
	if !g.override {
		kept := g.Files[:0]
		for _, f := range g.Files {
			base := filepath.Base(f.Path)
			if overrides[base] {
				matched[base] = true
				continue
			}
			kept = append(kept, f)
		}
		g.Files = kept
	}
	for _, sub := range g.Groups {
		deleteShadowed(sub, overrides, matched)
	}
}

func dropUnmatched(g *Group, matched map[string]bool) {
	if g.override {
		kept := g.Files[:0]
		for _, f := range g.Files {
			if matched[filepath.Base(f.Path)] {
				kept = append(kept, f)
			}
		}
		g.Files = kept
	}
	for _, sub := range g.Groups {
		dropUnmatched(sub, matched)
	}
}

// prune removes empty subgroups.
func prune(g *Group) {
	kept := g.Groups[:0]
	for _, sub := range g.Groups {
		prune(sub)
		if len(sub.Files) > 0 || len(sub.Groups) > 0 {
			kept = append(kept, sub)
		}
	}
	g.Groups = kept
}

// Flatten produces the flat stream: each file paired with the fully
// inherited include directories and defines of its enclosing groups.
func Flatten(groups []*Group) []FlatFile {
	var out []FlatFile
	for _, g := range groups {
		flattenInto(g, g.Package, nil, nil, &out)
	}
	return out
}

func flattenInto(g *Group, pkg string, dirs []string, defines map[string]*string, out *[]FlatFile) {
	if g.Package != "" {
		pkg = g.Package
	}
	dirs = mergeDirs(dirs, g.IncludeDirs)
	defines = mergeDefines(defines, g.Defines)
	for _, f := range g.Files {
		*out = append(*out, FlatFile{
			Package:     pkg,
			Path:        f.Path,
			Type:        f.Type,
			IncludeDirs: dirs,
			Defines:     defines,
		})
	}
	for _, sub := range g.Groups {
		flattenInto(sub, pkg, dirs, defines, out)
	}
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = true
	}
	return m
}

func sortedKeys(deps map[string]config.Dependency) []string {
	keys := make([]string, 0, len(deps))
	for k := range deps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
