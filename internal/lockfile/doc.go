// Package lockfile handles parsing and writing of Bender.lock files. Lock
// files record the exact revision resolved for each package, enabling
// reproducible builds. Writes are atomic: the previous lockfile survives
// any failure.
package lockfile
