// Package region parses marker-delimited managed regions in text files.
//
// A region is a labeled span:
//
//	<!-- RULES_START -->
//	generated text
//	<!-- RULES_END -->
//
// Regions never nest or overlap and a label appears at most once per file.
// Any violation is reported as a *MarkerError carrying the 1-based line of
// the offending marker. Everything that reads or writes regions goes through
// Parse so that all callers agree on what a region is.
package region

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
)

// Canonical labels.
const (
	LabelHeader     = "HEADER"
	LabelRules      = "RULES"
	LabelArtifacts  = "DISTRIBUTED_ARTIFACTS"
	LabelGuidelines = "GUIDELINES"
)

// CanonicalLabels lists the labels in the order they are written to a new
// file.
var CanonicalLabels = []string{LabelHeader, LabelRules, LabelArtifacts, LabelGuidelines}

var (
	labelPattern  = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	markerPattern = regexp.MustCompile(`<!--\s*([A-Z][A-Z0-9_]*)_(START|END)\s*-->`)
)

// Span locates one region by byte offsets into the parsed content.
type Span struct {
	Label     string
	Start     int // first byte of the START marker
	BodyStart int // first byte after the START marker
	BodyEnd   int // first byte of the END marker
	End       int // first byte after the END marker
	StartLine int
	EndLine   int
}

// Body returns the text strictly between the markers.
func (s Span) Body(content string) string {
	return content[s.BodyStart:s.BodyEnd]
}

// MarkerError reports a malformed marker.
type MarkerError struct {
	Line   int
	Label  string
	Reason string
}

func (e *MarkerError) Error() string {
	return fmt.Sprintf("line %d: %s marker %q", e.Line, e.Reason, e.Label)
}

// Unwrap exposes the structured error so callers can match on its code.
func (e *MarkerError) Unwrap() error {
	return rserrors.New(rserrors.ErrCodeMalformedMarker, e.Error(), nil).
		WithDetail("line", strconv.Itoa(e.Line)).
		WithDetail("label", e.Label).
		WithSuggestion("Fix or remove the marker by hand; rulesmith will not guess region boundaries")
}

// StartMarker returns the begin marker for label.
func StartMarker(label string) string {
	return "<!-- " + label + "_START -->"
}

// EndMarker returns the end marker for label.
func EndMarker(label string) string {
	return "<!-- " + label + "_END -->"
}

// Wrap surrounds body with the markers for label.
func Wrap(label, body string) string {
	return StartMarker(label) + body + EndMarker(label)
}

// ValidLabel reports whether label can be used in a marker.
func ValidLabel(label string) bool {
	return labelPattern.MatchString(label)
}

// ContainsMarker reports whether s contains anything that parses as a marker.
func ContainsMarker(s string) bool {
	return markerPattern.MatchString(s)
}

// Parse returns the regions of content in file order.
func Parse(content string) ([]Span, error) {
	var (
		spans []Span
		open  *Span
		seen  = make(map[string]int)
	)

	for _, m := range markerPattern.FindAllStringSubmatchIndex(content, -1) {
		label := content[m[2]:m[3]]
		kind := content[m[4]:m[5]]
		line := lineAt(content, m[0])

		switch kind {
		case "START":
			if open != nil {
				return nil, &MarkerError{Line: line, Label: label, Reason: fmt.Sprintf("nested (inside %s)", open.Label)}
			}
			if first, dup := seen[label]; dup {
				return nil, &MarkerError{Line: line, Label: label, Reason: fmt.Sprintf("duplicate (first at line %d)", first)}
			}
			seen[label] = line
			open = &Span{Label: label, Start: m[0], BodyStart: m[1], StartLine: line}
		case "END":
			if open == nil {
				return nil, &MarkerError{Line: line, Label: label, Reason: "END without START"}
			}
			if open.Label != label {
				return nil, &MarkerError{Line: line, Label: label, Reason: fmt.Sprintf("mismatched END (open region %s)", open.Label)}
			}
			open.BodyEnd = m[0]
			open.End = m[1]
			open.EndLine = line
			spans = append(spans, *open)
			open = nil
		}
	}

	if open != nil {
		return nil, &MarkerError{Line: open.StartLine, Label: open.Label, Reason: "unterminated START"}
	}
	return spans, nil
}

// Find returns the span with the given label.
func Find(spans []Span, label string) (Span, bool) {
	for _, s := range spans {
		if s.Label == label {
			return s, true
		}
	}
	return Span{}, false
}

// Labels returns the labels of spans in file order.
func Labels(spans []Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Label
	}
	return out
}

func lineAt(content string, offset int) int {
	return strings.Count(content[:offset], "\n") + 1
}
