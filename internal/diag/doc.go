// Package diag defines the error kinds the core distinguishes and a
// deduplicating warning emitter. Errors wrap with %w throughout so callers
// can detect kinds with errors.As.
package diag
