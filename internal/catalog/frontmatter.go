package catalog

import (
	"fmt"
	"strings"
)

const delimiter = "---"

// splitFrontMatter separates the YAML header from the free-text body.
// The header must open on the first line and close with a "---" line.
func splitFrontMatter(content string) (header, body string, err error) {
	content = strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(content, delimiter) {
		return "", "", fmt.Errorf("missing YAML header")
	}

	start := len(delimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) <= start || content[start] != '\n' {
		return "", "", fmt.Errorf("missing YAML header")
	}
	start++

	rest := content[start:]
	var closeIdx, bodyStart int
	switch {
	case strings.HasPrefix(rest, delimiter):
		closeIdx, bodyStart = 0, len(delimiter)
	default:
		i := strings.Index(rest, "\n"+delimiter)
		if i == -1 {
			return "", "", fmt.Errorf("no closing header delimiter")
		}
		closeIdx, bodyStart = i, i+1+len(delimiter)
	}

	header = strings.TrimSuffix(rest[:closeIdx], "\r")
	for bodyStart < len(rest) && (rest[bodyStart] == '\n' || rest[bodyStart] == '\r') {
		bodyStart++
	}
	if bodyStart < len(rest) {
		body = strings.TrimRight(rest[bodyStart:], "\n\r\t ")
	}
	return header, body, nil
}
