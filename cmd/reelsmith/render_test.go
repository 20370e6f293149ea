package main

import (
	"strings"
	"testing"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Status", statusOK, "completed", false)
	if !strings.Contains(line, "Status:") || !strings.Contains(line, "[OK] completed") {
		t.Fatalf("line = %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("plain line contains ANSI codes: %q", line)
	}
}

func TestRenderStatusLineColorized(t *testing.T) {
	line := renderStatusLine("Error", statusError, "boom", true)
	if !strings.HasPrefix(line, ansiRed) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("line = %q", line)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Jobs", false)
	if len(lines) != 2 {
		t.Fatalf("lines = %v", lines)
	}
	if lines[0] != "== Jobs ==" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Fatalf("rule length %d does not match header length %d", len(lines[1]), len(lines[0]))
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Progress"},
		[][]string{{"abc12345", "42%"}, {"def67890", "100%"}},
		1)
	for _, want := range []string{"ID", "Progress", "abc12345", "42%", "def67890", "100%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Status", "Stage"},
		[][]string{{"abc12345", "pending"}})
	if !strings.Contains(out, "abc12345") || !strings.Contains(out, "pending") {
		t.Fatalf("table output = %q", out)
	}
}

func TestShortJobID(t *testing.T) {
	if got := shortJobID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("shortJobID = %q", got)
	}
	if got := shortJobID("short"); got != "short" {
		t.Fatalf("shortJobID = %q", got)
	}
}
