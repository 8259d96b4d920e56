package srcs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// flistContent is the parsed contribution of one flist file: extra include
// directories and defines for the enclosing group's scope, and file
// entries inserted as siblings.
type flistContent struct {
	includeDirs []string
	defines     map[string]*string
	files       []string
}

// parseFlist reads an flist file. Recognized entries are `+incdir+<dir>`,
// `+define+<name>[=<value>]`, `-f <file>` (expanded recursively), comments
// starting with `//` or `#`, and plain file paths. Relative paths anchor
// at the flist file's own directory.
func parseFlist(path string) (*flistContent, error) {
	return parseFlistRec(path, map[string]bool{})
}

func parseFlistRec(path string, active map[string]bool) (*flistContent, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if active[abs] {
		return nil, fmt.Errorf("flist file %s includes itself", path)
	}
	active[abs] = true
	defer delete(active, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading flist file: %w", err)
	}
	dir := filepath.Dir(abs)
	content := &flistContent{defines: map[string]*string{}}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+incdir+"):
			for _, d := range strings.Split(strings.TrimPrefix(line, "+incdir+"), "+") {
				if d != "" {
					content.includeDirs = append(content.includeDirs, anchor(d, dir))
				}
			}
		case strings.HasPrefix(line, "+define+"):
			for _, def := range strings.Split(strings.TrimPrefix(line, "+define+"), "+") {
				if def == "" {
					continue
				}
				if name, value, ok := strings.Cut(def, "="); ok {
					v := value
					content.defines[name] = &v
				} else {
					content.defines[def] = nil
				}
			}
		case strings.HasPrefix(line, "-f "):
			sub, err := parseFlistRec(anchor(strings.TrimSpace(strings.TrimPrefix(line, "-f ")), dir), active)
			if err != nil {
				return nil, err
			}
			content.includeDirs = append(content.includeDirs, sub.includeDirs...)
			for k, v := range sub.defines {
				content.defines[k] = v
			}
			content.files = append(content.files, sub.files...)
		default:
			content.files = append(content.files, anchor(line, dir))
		}
	}
	return content, nil
}

func anchor(p, dir string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(dir, p))
}
