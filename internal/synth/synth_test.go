package synth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/region"
)

func TestSynthesize_ReplacesRegionAndCollapsesBlankLines(t *testing.T) {
	// Given: a file with one region and user notes separated by three blank lines
	current := "<!-- RULES_START -->old<!-- RULES_END -->\n\nMy custom notes\n\n\n\nMore notes"

	// When: synthesizing a new RULES body
	got, err := Synthesize(current, true, Regions{"RULES": "new"})

	// Then: only the body changes and the blank run collapses to one line
	require.NoError(t, err)
	assert.Equal(t, "<!-- RULES_START -->new<!-- RULES_END -->\n\nMy custom notes\n\nMore notes", got)
}

func TestSynthesize_FreshDocument(t *testing.T) {
	regions := Regions{
		region.LabelGuidelines: "\ng\n",
		region.LabelRules:      "\nr\n",
		region.LabelHeader:     "\nh\n",
	}

	got, err := Synthesize("ignored", false, regions)

	require.NoError(t, err)
	want := DocumentTitle +
		"\n<!-- HEADER_START -->\nh\n<!-- HEADER_END -->\n" +
		"\n<!-- RULES_START -->\nr\n<!-- RULES_END -->\n" +
		"\n<!-- GUIDELINES_START -->\ng\n<!-- GUIDELINES_END -->\n"
	assert.Equal(t, want, got)
}

func TestSynthesize_AppendsMissingRegionsInCanonicalOrder(t *testing.T) {
	current := "# My project\n\nHand-written intro.\n"

	got, err := Synthesize(current, true, Regions{
		region.LabelGuidelines: "G",
		region.LabelRules:      "R",
	})

	require.NoError(t, err)
	assert.Equal(t, "# My project\n\nHand-written intro.\n\n"+
		"<!-- RULES_START -->R<!-- RULES_END -->\n\n"+
		"<!-- GUIDELINES_START -->G<!-- GUIDELINES_END -->\n", got)
}

func TestSynthesize_LeavesUnrequestedRegionsAlone(t *testing.T) {
	current := "<!-- HEADER_START -->keep me<!-- HEADER_END -->\n<!-- RULES_START -->old<!-- RULES_END -->\n"

	got, err := Synthesize(current, true, Regions{region.LabelRules: "new"})

	require.NoError(t, err)
	assert.Equal(t, "<!-- HEADER_START -->keep me<!-- HEADER_END -->\n<!-- RULES_START -->new<!-- RULES_END -->\n", got)
}

func TestSynthesize_Idempotent(t *testing.T) {
	regions := Regions{
		region.LabelHeader: "\nheader\n",
		region.LabelRules:  "\n- a\n- b\n",
	}

	inputs := map[string]string{
		"empty":            "",
		"no trailing nl":   "notes",
		"blank runs":       "\n\n\n\nintro\n\n\n\n",
		"existing region":  "top\n\n\n<!-- RULES_START -->x<!-- RULES_END -->\n\n\n\nbottom\n",
		"foreign region":   "<!-- CUSTOM_START -->\n\n\n\nmine\n<!-- CUSTOM_END -->\n\n\n",
		"whitespace lines": "a\n  \n\t\n\nb\n",
		"crlf":             "a\r\n\r\n\r\nb\r\n",
		"adjacent regions": "<!-- HEADER_START --><!-- HEADER_END --><!-- RULES_START --><!-- RULES_END -->",
		"only newline":     "\n",
		"only whitespace":  "  \n\t",
		"trailing ws line": "notes\n  \n",
		"ws after region":  "<!-- HEADER_START -->h<!-- HEADER_END -->\n \n\t\n",
	}

	for name, current := range inputs {
		t.Run(name, func(t *testing.T) {
			once, err := Synthesize(current, true, regions)
			require.NoError(t, err)

			twice, err := Synthesize(once, true, regions)
			require.NoError(t, err)

			assert.Equal(t, once, twice)
		})
	}

	t.Run("fresh", func(t *testing.T) {
		once, err := Synthesize("", false, regions)
		require.NoError(t, err)
		twice, err := Synthesize(once, true, regions)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	})
}

func TestSynthesize_AppendSeparatorIsOneBlankLine(t *testing.T) {
	tests := []struct {
		name    string
		current string
		want    string
	}{
		{"only newline", "\n", "<!-- RULES_START -->r<!-- RULES_END -->\n"},
		{"trailing whitespace line", "notes\n  \n", "notes\n\n<!-- RULES_START -->r<!-- RULES_END -->\n"},
		{"no trailing newline", "notes", "notes\n\n<!-- RULES_START -->r<!-- RULES_END -->\n"},
		{"crlf blank tail", "notes\r\n\r\n", "notes\r\n\n<!-- RULES_START -->r<!-- RULES_END -->\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Synthesize(tt.current, true, Regions{region.LabelRules: "r"})

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// FuzzSynthesize checks that a second run never changes the output and that
// every non-blank line of a marker-free file survives in order.
func FuzzSynthesize(f *testing.F) {
	seeds := []string{
		"", "\n", "notes", "notes\n  \n", "\n\n\n\nintro\n\n\n\n", "a\r\n\r\n\r\nb\r\n",
		"top\n\n\n<!-- RULES_START -->x<!-- RULES_END -->\n\n\n\nbottom\n",
		"<!-- CUSTOM_START -->\n\n\n\nmine\n<!-- CUSTOM_END -->\n \n\t",
		"<!-- HEADER_START -->h<!-- HEADER_END -->  ",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	regions := Regions{
		region.LabelHeader:    "\nheader\n",
		region.LabelRules:     "\n- a\n\n\n- b\n",
		region.LabelArtifacts: "",
	}

	f.Fuzz(func(t *testing.T, current string) {
		once, err := Synthesize(current, true, regions)
		if err != nil {
			var me *region.MarkerError
			require.True(t, errors.As(err, &me), "unexpected error: %v", err)
			return
		}

		twice, err := Synthesize(once, true, regions)
		require.NoError(t, err)
		assert.Equal(t, once, twice)

		if region.ContainsMarker(current) {
			return
		}
		spans, err := region.Parse(once)
		require.NoError(t, err)
		require.Len(t, spans, len(regions))
		assert.Equal(t, nonBlankLines(current), nonBlankLines(once[:spans[0].Start]))
	})
}

func nonBlankLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func TestSynthesize_PreservesOutsideContent(t *testing.T) {
	// Given: user text with no blank-line runs around two regions
	outside := []string{"# Title\nintro line\n", "\nbetween\n\n", "\ntrailer without newline"}
	current := outside[0] +
		"<!-- HEADER_START -->h<!-- HEADER_END -->" + outside[1] +
		"<!-- RULES_START -->r<!-- RULES_END -->" + outside[2]

	// When: replacing both bodies
	got, err := Synthesize(current, true, Regions{region.LabelHeader: "H2", region.LabelRules: "R2"})
	require.NoError(t, err)

	// Then: every outside byte survives in order
	spans, err := region.Parse(got)
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, outside[0], got[:spans[0].Start])
	assert.Equal(t, outside[1], got[spans[0].End:spans[1].Start])
	assert.Equal(t, outside[2], got[spans[1].End:])
	assert.Equal(t, "H2", spans[0].Body(got))
	assert.Equal(t, "R2", spans[1].Body(got))
}

func TestSynthesize_MalformedMarkersRefuse(t *testing.T) {
	current := "intro\n\n<!-- RULES_START -->\nunterminated\n"

	got, err := Synthesize(current, true, Regions{region.LabelRules: "x"})

	assert.Empty(t, got)
	var me *region.MarkerError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, 3, me.Line)
	assert.Equal(t, rserrors.ErrCodeMalformedMarker, rserrors.GetCode(err))
}

func TestSynthesize_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		regions Regions
	}{
		{"body with marker", Regions{region.LabelRules: "x <!-- HEADER_END --> y"}},
		{"lowercase label", Regions{"rules": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Synthesize("", true, tt.regions)
			assert.Equal(t, rserrors.ErrCodeInvalidInput, rserrors.GetCode(err))
		})
	}
}

func TestStrip(t *testing.T) {
	tests := []struct {
		name    string
		current string
		want    string
	}{
		{
			name:    "only generated content",
			current: DocumentTitle + "\n" + region.Wrap("HEADER", "\nh\n") + "\n\n" + region.Wrap("RULES", "r") + "\n",
			want:    "",
		},
		{
			name:    "keeps user text and foreign regions",
			current: "# Mine\n\n" + region.Wrap("RULES", "r") + "\n\n\nnotes\n" + region.Wrap("CUSTOM", "c") + "\n",
			want:    "# Mine\n\nnotes\n" + region.Wrap("CUSTOM", "c") + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Strip(tt.current, region.CanonicalLabels...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollapseBlankLines(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		atFileStart bool
		want        string
	}{
		{"single blank kept", "a\n\nb", true, "a\n\nb"},
		{"run collapsed", "a\n\n\n\nb", true, "a\n\nb"},
		{"leading run at file start", "\n\n\nb", true, "\nb"},
		{"anchored start", "\n\n\nb", false, "\n\nb"},
		{"whitespace-only lines count", "a\n \n\t\nb", true, "a\n \nb"},
		{"single whitespace line untouched", "a\n  \nb", true, "a\n  \nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collapseBlankLines(tt.in, tt.atFileStart)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, collapseBlankLines(got, tt.atFileStart))
		})
	}
}

func TestDiff(t *testing.T) {
	assert.Empty(t, Diff("CLAUDE.md", "same\n", "same\n"))

	d := Diff("/p/CLAUDE.md", "a\nb\n", "a\nc\n")
	assert.True(t, strings.HasPrefix(d, "--- a/CLAUDE.md\n+++ b/CLAUDE.md\n"), d)
	assert.Contains(t, d, "-b\n")
	assert.Contains(t, d, "+c\n")
}
