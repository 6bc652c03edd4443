package report

import (
	"strings"
	"testing"

	"pciagent/internal/detector"
)

func TestRenderCSVHasHeaderAndRows(t *testing.T) {
	b := New(false, true)
	rep := b.Build(BuildParams{Matches: []detector.Match{sampleMatch()}})

	data, err := RenderCSV(rep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "file_path,line_number") {
		t.Errorf("unexpected header: %s", lines[0])
	}
}
