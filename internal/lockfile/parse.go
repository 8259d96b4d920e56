package lockfile

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a Bender.lock file. Relative path sources are made absolute
// using rootDir as the anchor.
func Load(path, rootDir string) (*Locked, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lockfile %s: %w", path, err)
	}
	lf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("lockfile %s: %w", path, err)
	}
	for _, pkg := range lf.Packages {
		if pkg.Source.IsPath() && !filepath.IsAbs(pkg.Source.Path) {
			pkg.Source.Path = filepath.Join(rootDir, pkg.Source.Path)
		}
	}
	return lf, nil
}

// Parse parses Bender.lock content.
func Parse(data []byte) (*Locked, error) {
	var lf Locked
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing lock YAML: %w", err)
	}
	if lf.Packages == nil {
		lf.Packages = map[string]*Package{}
	}
	return &lf, nil
}

// Save writes the lockfile atomically: the content goes to a temporary file
// in the same directory which is then renamed over the target, so a crash
// mid-write leaves the previous lockfile intact. Path sources under rootDir
// are stored relative.
func Save(path, rootDir string, lf *Locked) error {
	adapted := &Locked{Packages: make(map[string]*Package, len(lf.Packages))}
	for name, pkg := range lf.Packages {
		p := *pkg
		if p.Source.IsPath() {
			if rel, err := filepath.Rel(rootDir, p.Source.Path); err == nil && !isOutside(rel) {
				p.Source.Path = rel
			}
		}
		adapted.Packages[name] = &p
	}

	data, err := yaml.Marshal(adapted)
	if err != nil {
		return fmt.Errorf("marshaling lockfile: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".bender-lock-*")
	if err != nil {
		return fmt.Errorf("creating temporary lockfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing lockfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing lockfile: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing lockfile: %w", err)
	}
	return nil
}

func isOutside(rel string) bool {
	return rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)
}
