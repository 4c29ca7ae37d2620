package logsearch

import (
	"html"
	"strings"
)

// Highlight markers. The active marker wraps the occurrence the cursor is
// on; the frontend styles both classes.
const (
	markStart       = `<mark class="log-match">`
	markActiveStart = `<mark class="log-match log-match-active">`
	markEnd         = `</mark>`
)

// Highlight returns text with every query occurrence wrapped in a highlight
// marker, the cursor's occurrence in the active marker. Text is HTML-escaped
// segment by segment before markers are inserted, so the markers survive
// escaping. The occurrence scan matches Update's policy (case-insensitive,
// non-overlapping, left to right), so the active occurrence lines up with
// the stored match set even though this re-scans the line.
func (ix *Index) Highlight(text string, line int, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return html.EscapeString(text)
	}
	offsets := findOccurrences(text, query)
	if len(offsets) == 0 {
		return html.EscapeString(text)
	}

	activeOcc := -1
	if cur, ok := ix.Current(); ok && cur.Line == line {
		activeOcc = cur.Occurrence
	}

	var b strings.Builder
	prev := 0
	for occ, off := range offsets {
		b.WriteString(html.EscapeString(text[prev:off]))
		if occ == activeOcc {
			b.WriteString(markActiveStart)
		} else {
			b.WriteString(markStart)
		}
		b.WriteString(html.EscapeString(text[off : off+len(query)]))
		b.WriteString(markEnd)
		prev = off + len(query)
	}
	b.WriteString(html.EscapeString(text[prev:]))
	return b.String()
}
