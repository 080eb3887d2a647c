package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "ID", "TYPE", "NAME")

	table.AddRow("http://x/users/1", "user", "john")
	table.AddRow("http://x/users/22", "user")

	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}

	if lines[0] != "ID"+strings.Repeat(" ", 17)+"TYPE  NAME" {
		t.Errorf("unexpected header line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "─") {
		t.Errorf("expected separator line, got %q", lines[1])
	}
	if lines[2] != "http://x/users/1   user  john" {
		t.Errorf("unexpected row %q", lines[2])
	}
	if lines[3] != "http://x/users/22  user" {
		t.Errorf("short rows must not leave trailing padding, got %q", lines[3])
	}
	if table.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", table.Len())
	}
}

func TestTableWithoutHeaders(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true)
	table.AddRow("a")
	table.Render()

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight() = %q", got)
	}
	if got := padRight("abcdef", 4); got != "abcdef" {
		t.Errorf("padRight() = %q", got)
	}
}
