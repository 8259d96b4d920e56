package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pulp-platform/bender/internal/target"
)

// rawDependency mirrors the YAML forms a dependency spec may take. A bare
// scalar is a version requirement against the default remote.
type rawDependency struct {
	Path        string      `yaml:"path"`
	Git         string      `yaml:"git"`
	Rev         string      `yaml:"rev"`
	Version     string      `yaml:"version"`
	Remote      string      `yaml:"remote"`
	Target      yaml.Node   `yaml:"target"`
	PassTargets []yaml.Node `yaml:"pass_targets"`
}

// UnmarshalYAML accepts every dependency spec form of the manifest format:
//
//	dep: "^1.0"
//	dep: { path: ../dep }
//	dep: { git: <url>, rev: <commit-ish> }
//	dep: { git: <url>, version: "^1.0" }
//	dep: { version: "^1.0", remote: <alias> }
//
// plus optional `target` and `pass_targets` on the mapping forms. Remote
// aliases (including the implied default of the bare form) are resolved
// against the manifest's remotes map during validation.
func (d *Dependency) UnmarshalYAML(node *yaml.Node) error {
	d.Target = target.WildcardSpec()

	if node.Kind == yaml.ScalarNode {
		var version string
		if err := node.Decode(&version); err != nil {
			return err
		}
		*d = Dependency{
			Kind:    DepGitVersion,
			Version: version,
			Remote:  "default",
			Target:  target.WildcardSpec(),
		}
		return nil
	}

	var raw rawDependency
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("invalid dependency spec: %w", err)
	}

	switch {
	case raw.Path != "":
		if raw.Git != "" || raw.Rev != "" || raw.Version != "" {
			return fmt.Errorf("dependency spec mixes `path` with git fields")
		}
		d.Kind = DepPath
		d.Path = raw.Path
	case raw.Git != "" && raw.Rev != "":
		d.Kind = DepGitRevision
		d.URL = raw.Git
		d.Revision = raw.Rev
	case raw.Git != "" && raw.Version != "":
		d.Kind = DepGitVersion
		d.URL = raw.Git
		d.Version = raw.Version
	case raw.Version != "":
		d.Kind = DepGitVersion
		d.Version = raw.Version
		d.Remote = raw.Remote
		if d.Remote == "" {
			d.Remote = "default"
		}
	default:
		return fmt.Errorf("dependency spec needs one of `path`, `git`+`rev`, `git`+`version`, or `version`")
	}

	if raw.Target.Kind != 0 {
		if err := raw.Target.Decode(&d.Target); err != nil {
			return err
		}
	}
	for _, n := range raw.PassTargets {
		pt, err := decodePassTarget(&n)
		if err != nil {
			return err
		}
		d.PassTargets = append(d.PassTargets, pt)
	}
	return nil
}

// decodePassTarget accepts either a bare atom name or a mapping
// `{ name: <atom>, when: <target expression> }`.
func decodePassTarget(node *yaml.Node) (PassTarget, error) {
	if node.Kind == yaml.ScalarNode {
		var name string
		if err := node.Decode(&name); err != nil {
			return PassTarget{}, err
		}
		return PassTarget{Name: strings.ToLower(name), When: target.WildcardSpec()}, nil
	}
	var raw struct {
		Name string      `yaml:"name"`
		When target.Spec `yaml:"when"`
	}
	raw.When = target.WildcardSpec()
	if err := node.Decode(&raw); err != nil {
		return PassTarget{}, fmt.Errorf("invalid pass_targets entry: %w", err)
	}
	if raw.Name == "" {
		return PassTarget{}, fmt.Errorf("pass_targets entry needs a `name`")
	}
	return PassTarget{Name: strings.ToLower(raw.Name), When: raw.When}, nil
}

// MarshalYAML serializes the dependency in its canonical mapping form.
func (d Dependency) MarshalYAML() (any, error) {
	m := map[string]any{}
	switch d.Kind {
	case DepPath:
		m["path"] = d.Path
	case DepGitVersion:
		if d.URL != "" {
			m["git"] = d.URL
		}
		m["version"] = d.Version
	case DepGitRevision:
		m["git"] = d.URL
		m["rev"] = d.Revision
	}
	if !d.Target.IsWildcard() {
		m["target"] = d.Target.String()
	}
	return m, nil
}

// ResolveRemote derives the git URL of a remote-aliased dependency from the
// remotes map of the declaring manifest. A `{}` in the template is replaced
// by the dependency name; a template without `{}` gets `/<name>.git`
// appended.
func (d *Dependency) ResolveRemote(name string, remotes map[string]string) error {
	if d.Kind == DepPath || d.URL != "" {
		return nil
	}
	tmpl, ok := remotes[d.Remote]
	if !ok {
		return fmt.Errorf("dependency %q references remote %q, which is not declared in `remotes`", name, d.Remote)
	}
	if strings.Contains(tmpl, "{}") {
		d.URL = strings.ReplaceAll(tmpl, "{}", name)
	} else {
		d.URL = strings.TrimSuffix(tmpl, "/") + "/" + name + ".git"
	}
	return nil
}
