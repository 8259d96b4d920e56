// Package sess implements the session I/O layer: a content-addressed store
// of bare git mirrors and working-tree checkouts, commit-ish resolution,
// version enumeration, and manifest loading at arbitrary revisions. All git
// subprocesses are gated by a bounded semaphore, and duplicate concurrent
// requests for the same logical operation coalesce onto a single running
// call.
package sess
