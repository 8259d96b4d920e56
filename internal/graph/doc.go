// Package graph builds the dependency DAG over the locked packages and
// yields deterministic topological orderings, leaves first. A cycle at
// this stage means the lockfile is inconsistent with the manifests and
// must be regenerated.
package graph
