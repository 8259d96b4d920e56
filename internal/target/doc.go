// Package target implements the boolean expressions that gate source file
// groups on target configurations, and the sets of target atoms they are
// evaluated against.
package target
