package target

import (
	"fmt"
	"strings"
)

// Modifier is one `-t` command line entry: an atom to add or remove, either
// globally or scoped to a single package's subtree.
type Modifier struct {
	Package string // empty for global modifiers
	Atom    string
	Remove  bool
}

// ParseModifier parses a single `-t` value. Accepted forms are `NAME`,
// `-NAME`, `PKG:NAME` and `PKG:-NAME`.
func ParseModifier(input string) (Modifier, error) {
	m := Modifier{}
	rest := input
	if pkg, atom, ok := strings.Cut(rest, ":"); ok {
		if pkg == "" {
			return Modifier{}, fmt.Errorf("invalid target modifier %q: empty package name", input)
		}
		m.Package = strings.ToLower(pkg)
		rest = atom
	}
	if strings.HasPrefix(rest, "-") {
		m.Remove = true
		rest = rest[1:]
	}
	if rest == "" {
		return Modifier{}, fmt.Errorf("invalid target modifier %q: empty target name", input)
	}
	m.Atom = strings.ToLower(rest)
	return m, nil
}

// ParseModifiers parses a list of `-t` values.
func ParseModifiers(inputs []string) ([]Modifier, error) {
	mods := make([]Modifier, 0, len(inputs))
	for _, in := range inputs {
		m, err := ParseModifier(in)
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, nil
}

// Apply builds the effective target set for a package: the base set plus all
// global modifiers, then the modifiers scoped to the given package. Removal
// also drops atoms present in the base set.
func Apply(base Set, mods []Modifier, pkg string) Set {
	set := base.Clone()
	pkg = strings.ToLower(pkg)
	for _, m := range mods {
		if m.Package != "" {
			continue
		}
		if m.Remove {
			set.Remove(m.Atom)
		} else {
			set.Add(m.Atom)
		}
	}
	for _, m := range mods {
		if m.Package != pkg || m.Package == "" {
			continue
		}
		if m.Remove {
			set.Remove(m.Atom)
		} else {
			set.Add(m.Atom)
		}
	}
	return set
}
