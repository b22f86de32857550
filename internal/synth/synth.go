// Package synth merges generated region bodies into guidance files while
// preserving everything the user wrote outside the managed regions.
package synth

import (
	"slices"
	"strings"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/region"
)

// Regions maps a region label to its generated body. Bodies are inserted
// verbatim between the markers.
type Regions map[string]string

// DocumentTitle opens every newly created guidance file.
const DocumentTitle = "# Project guidance\n"

// Synthesize returns the new file content for the given regions.
//
// When exists is false a fresh document is built. Otherwise requested regions
// are replaced in place, missing ones are appended, unrequested ones are left
// alone, and outside text is copied through with runs of blank lines
// collapsed to one. Malformed markers yield a *region.MarkerError and no
// content. Synthesize is idempotent.
func Synthesize(current string, exists bool, regions Regions) (string, error) {
	if err := validate(regions); err != nil {
		return "", err
	}

	if !exists {
		return fresh(regions), nil
	}

	spans, err := region.Parse(current)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(len(current))

	pos := 0
	for _, s := range spans {
		sb.WriteString(collapseBlankLines(current[pos:s.Start], pos == 0))
		if body, ok := regions[s.Label]; ok {
			sb.WriteString(current[s.Start:s.BodyStart])
			sb.WriteString(body)
			sb.WriteString(current[s.BodyEnd:s.End])
		} else {
			sb.WriteString(current[s.Start:s.End])
		}
		pos = s.End
	}
	sb.WriteString(collapseBlankLines(current[pos:], pos == 0))

	out := sb.String()
	for _, label := range orderedLabels(regions) {
		if _, found := region.Find(spans, label); found {
			continue
		}
		out = appendRegion(out, label, regions[label])
	}
	return out, nil
}

// Strip removes every managed region with one of the given labels and
// returns what remains. An empty result means nothing but the generated
// scaffolding was left.
func Strip(current string, labels ...string) (string, error) {
	spans, err := region.Parse(current)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	pos := 0
	for _, s := range spans {
		if !slices.Contains(labels, s.Label) {
			continue
		}
		sb.WriteString(current[pos:s.Start])
		pos = s.End
	}
	sb.WriteString(current[pos:])

	out := strings.Trim(collapseBlankLines(sb.String(), true), "\n")
	if out == "" || out+"\n" == DocumentTitle {
		return "", nil
	}
	return out + "\n", nil
}

func validate(regions Regions) error {
	for label, body := range regions {
		if !region.ValidLabel(label) {
			return rserrors.ValidationError("invalid region label "+label, nil)
		}
		if region.ContainsMarker(body) {
			return rserrors.ValidationError("region "+label+" body contains a region marker", nil)
		}
	}
	return nil
}

func fresh(regions Regions) string {
	var sb strings.Builder
	sb.WriteString(DocumentTitle)
	for _, label := range orderedLabels(regions) {
		sb.WriteString("\n")
		sb.WriteString(region.Wrap(label, regions[label]))
		sb.WriteString("\n")
	}
	return sb.String()
}

// appendRegion adds a region at the end of content, separated by exactly one
// blank line. Trailing blank lines of content, including whitespace-only
// ones, are dropped first so the separator is stable across runs.
func appendRegion(content, label, body string) string {
	content = trimTrailingBlankLines(content)
	if content != "" {
		content += "\n\n"
	}
	return content + region.Wrap(label, body) + "\n"
}

// trimTrailingBlankLines removes trailing lines that are empty or hold only
// whitespace, along with the final newline.
func trimTrailingBlankLines(content string) string {
	lines := strings.Split(content, "\n")
	n := len(lines)
	for n > 0 && isBlank(lines[n-1]) {
		n--
	}
	return strings.Join(lines[:n], "\n")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// orderedLabels returns the requested labels in canonical order, followed
// by any other labels sorted.
func orderedLabels(regions Regions) []string {
	out := make([]string, 0, len(regions))
	for _, l := range region.CanonicalLabels {
		if _, ok := regions[l]; ok {
			out = append(out, l)
		}
	}
	var extra []string
	for l := range regions {
		if !slices.Contains(region.CanonicalLabels, l) {
			extra = append(extra, l)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// collapseBlankLines replaces every run of two or more blank lines with a
// single blank line. The last element of the segment is always the head of
// a line continued elsewhere (or the empty tail after a final newline), and
// the first element is too unless the segment starts the file; neither is
// counted as a blank line.
func collapseBlankLines(segment string, atFileStart bool) string {
	if strings.Count(segment, "\n") < 2 {
		return segment
	}

	lines := strings.Split(segment, "\n")
	first, last := 1, len(lines)-1
	if atFileStart {
		first = 0
	}

	out := make([]string, 0, len(lines))
	out = append(out, lines[:first]...)

	run := 0
	for i := first; i < last; i++ {
		if isBlank(lines[i]) {
			run++
			continue
		}
		out = appendRun(out, lines[i-run:i])
		run = 0
		out = append(out, lines[i])
	}
	out = appendRun(out, lines[last-run:last])
	out = append(out, lines[last])

	return strings.Join(out, "\n")
}

// appendRun appends a run of blank lines, keeping only the first when it
// has two or more.
func appendRun(out, run []string) []string {
	if len(run) >= 2 {
		return append(out, run[0])
	}
	return append(out, run...)
}
