package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable_render(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "PACKAGE", "REQUIRES")
	tbl.Row("axi", "^0.29")
	tbl.Row("common_cells", "1.21.0")
	if err := tbl.Flush(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Errorf("expected 3 lines (header + 2 rows), got %d", len(lines))
	}
	if !strings.Contains(lines[0], "PACKAGE") {
		t.Errorf("header missing PACKAGE: %q", lines[0])
	}
	if !strings.Contains(lines[1], "axi") {
		t.Errorf("row 1 missing axi: %q", lines[1])
	}
}

func TestRenderRows(t *testing.T) {
	out := RenderRows([][]any{
		{"- package root", "requires ^1.0"},
		{"- package b", "requires ^2.0"},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	// Columns align: the second column starts at the same offset.
	if strings.Index(lines[0], "requires") != strings.Index(lines[1], "requires") {
		t.Errorf("columns not aligned:\n%s", out)
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 2)
	p.Done("axi at /db/checkouts/abc")
	p.Log("warning: %s", "slow fetch")
	p.Done("apb at /db/checkouts/def")

	out := buf.String()
	if !strings.Contains(out, "[1/2] axi") {
		t.Errorf("missing first progress line: %s", out)
	}
	if !strings.Contains(out, "[2/2] apb") {
		t.Errorf("missing second progress line: %s", out)
	}
	if !strings.Contains(out, "warning: slow fetch") {
		t.Errorf("missing log line: %s", out)
	}
}

func TestValidateIndex(t *testing.T) {
	if err := validateIndex("1", 3); err != nil {
		t.Errorf("1 of 3 should be valid: %v", err)
	}
	if err := validateIndex("3", 3); err == nil {
		t.Error("3 of 3 should be out of bounds")
	}
	if err := validateIndex("x", 3); err == nil {
		t.Error("non-numeric input should fail")
	}
}
