// Package config provides the typed in-memory form of Bender.yml manifests
// and the tool configuration files (bender.yml, .bender.yml, Bender.local).
// It normalizes package names to lowercase, anchors relative paths at the
// directory of the file that declared them, and merges configuration layers
// along the directory chain.
package config
