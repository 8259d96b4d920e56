// Package resolver implements the iterative constraint solver that turns a
// root manifest, the configured overrides, and an optional previous
// lockfile into a frozen mapping from package name to source. Conflicts
// are delegated to an Arbiter; the non-interactive default fails with a
// structured report.
package resolver
