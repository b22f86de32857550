package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a status message
	w.Status("🔗", "Linking artifacts")

	// Then: output contains icon and message
	assert.Equal(t, "🔗 Linking artifacts\n", buf.String())
}

func TestWriter_Status_NoIconIndents(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Status("", "detail")

	assert.Equal(t, "   detail\n", buf.String())
}

func TestWriter_Levels(t *testing.T) {
	tests := []struct {
		name  string
		print func(w *Writer)
		icon  string
		msg   string
	}{
		{"success", func(w *Writer) { w.Successf("Configured %d rules", 3) }, "✅", "Configured 3 rules"},
		{"warning", func(w *Writer) { w.Warningf("%s kept", "CLAUDE.md") }, "⚠️", "CLAUDE.md kept"},
		{"error", func(w *Writer) { w.Errorf("exit %d", 2) }, "❌", "exit 2"},
		{"statusf", func(w *Writer) { w.Statusf("📦", "catalog %s", "1.0.0") }, "📦", "catalog 1.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a writer with a buffer
			buf := &bytes.Buffer{}

			// When: printing
			tt.print(New(buf))

			// Then: icon and message are present
			assert.Contains(t, buf.String(), tt.icon)
			assert.Contains(t, buf.String(), tt.msg)
		})
	}
}

func TestWriter_Code_IndentsEachLine(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a multi-line block with a trailing newline
	w.Code("line1\nline2\n")

	// Then: each line is indented and no empty indented line is added
	assert.Equal(t, "\n  line1\n  line2\n\n", buf.String())
}

func TestWriter_Newline(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Newline()

	assert.Equal(t, "\n", buf.String())
}

func TestWriter_Table_AlignsColumns(t *testing.T) {
	// Given: rows of different widths
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a table
	w.Table([]string{"ID", "KIND"}, [][]string{
		{"cq-001", "rule"},
		{"review-pr", "command"},
	})

	// Then: every cell appears and the second column starts at one offset
	out := buf.String()
	for _, cell := range []string{"ID", "KIND", "cq-001", "rule", "review-pr", "command"} {
		assert.Contains(t, out, cell)
	}
	var offsets []int
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		for _, word := range []string{"KIND", "rule", "command"} {
			if i := strings.Index(line, word); i > 0 {
				offsets = append(offsets, i)
			}
		}
	}
	if assert.Len(t, offsets, 3) {
		assert.Equal(t, offsets[0], offsets[1])
		assert.Equal(t, offsets[1], offsets[2])
	}
}

func TestWriter_Table_EmptyPrintsNothing(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Table([]string{"ID"}, nil)

	assert.Empty(t, buf.String())
}

func TestWriter_KeyValue(t *testing.T) {
	buf := &bytes.Buffer{}

	New(buf).KeyValue([][2]string{{"catalog", "/c"}, {"state dir", "/s"}})

	assert.Equal(t, "  catalog:    /c\n  state dir:  /s\n", buf.String())
}
