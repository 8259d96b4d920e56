// Package srcs implements the source assembler: it walks each package's
// source tree under the active target set, inherits include directories
// and preprocessor defines along the group hierarchy, applies file
// overrides and flist expansion, and produces a hierarchical or flattened
// ordered stream of source files for tool emitters to consume verbatim.
package srcs
