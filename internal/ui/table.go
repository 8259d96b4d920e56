package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table renders rows of data in aligned columns.
type Table struct {
	w       *tabwriter.Writer
	headers []string
}

// NewTable creates a table writer with the given column headers.
func NewTable(out io.Writer, headers ...string) *Table {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	t := &Table{w: tw, headers: headers}
	if len(headers) > 0 {
		_, _ = fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}
	return t
}

// NewPlainTable creates a headerless table, for aligned free-form output
// such as conflict reports.
func NewPlainTable(out io.Writer) *Table {
	return NewTable(out)
}

// Row appends a row of values. The number of values should match the
// number of headers.
func (t *Table) Row(values ...any) {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%v", v)
	}
	_, _ = fmt.Fprintln(t.w, strings.Join(parts, "\t"))
}

// Flush writes the buffered output.
func (t *Table) Flush() error {
	return t.w.Flush()
}

// RenderRows is a convenience that aligns the given rows into a string.
func RenderRows(rows [][]any) string {
	var b strings.Builder
	t := NewPlainTable(&b)
	for _, row := range rows {
		t.Row(row...)
	}
	_ = t.Flush()
	return b.String()
}
