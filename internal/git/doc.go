// Package git provides a wrapper around Git CLI commands used by the
// session I/O layer. It handles bare mirror maintenance, ref and revision
// enumeration, archive extraction, and submodule and LFS handling without
// depending on other internal packages except diag.
package git
