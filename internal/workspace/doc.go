// Package workspace integrates manifest, configuration, and lockfile
// loading with path resolution. It provides the Context type commands
// start from, the lockfile refresh discipline, and the construction of
// the package graph from a lockfile.
package workspace
