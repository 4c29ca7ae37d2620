// Package logsearch maintains a searchable index over a sequence of log
// lines for the log viewer's find bar: case-insensitive substring matching,
// cyclic next/previous navigation, and highlight markup generation.
package logsearch

import (
	"regexp"
	"strings"
)

// timestampRe matches the ISO-8601 timestamp token the K8s log API prefixes
// to each line (optional fractional seconds, trailing Z) plus the following
// whitespace.
var timestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z\s+`)

// StripTimestamp splits a log line into its timestamp token (trailing
// whitespace trimmed, empty if absent) and the remaining content. Matching
// and match offsets operate on the content only.
func StripTimestamp(line string) (timestamp, content string) {
	loc := timestampRe.FindStringIndex(line)
	if loc == nil {
		return "", line
	}
	return strings.TrimRight(line[:loc[1]], " \t"), line[loc[1]:]
}

// Match locates one query occurrence: the line it is on and its 0-based
// ordinal among that line's occurrences.
type Match struct {
	Line       int `json:"line"`
	Occurrence int `json:"occurrence"`
}

// Index holds the current match set and the navigation cursor. Update
// replaces all state; there is no incremental path. Not safe for concurrent
// use; each consuming view owns its index.
type Index struct {
	matches []Match
	current int
	byLine  map[int]int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{byLine: make(map[int]int)}
}

// Update rebuilds the match set from scratch and resets the cursor to the
// first match. An empty or whitespace-only query yields no matches.
func (ix *Index) Update(lines []string, query string) {
	ix.Clear()
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	for i, line := range lines {
		_, content := StripTimestamp(line)
		n := len(findOccurrences(content, query))
		for occ := 0; occ < n; occ++ {
			ix.matches = append(ix.matches, Match{Line: i, Occurrence: occ})
		}
		if n > 0 {
			ix.byLine[i] += n
		}
	}
}

// Clear drops all matches and resets the cursor.
func (ix *Index) Clear() {
	ix.matches = nil
	ix.current = 0
	ix.byLine = make(map[int]int)
}

// Len returns the number of matches.
func (ix *Index) Len() int {
	return len(ix.matches)
}

// Matches returns the ordered match set.
func (ix *Index) Matches() []Match {
	out := make([]Match, len(ix.matches))
	copy(out, ix.matches)
	return out
}

// Current returns the match under the cursor, or false when empty.
func (ix *Index) Current() (Match, bool) {
	if len(ix.matches) == 0 {
		return Match{}, false
	}
	return ix.matches[ix.current], true
}

// CurrentIndex returns the cursor position; meaningful only when Len() > 0.
func (ix *Index) CurrentIndex() int {
	return ix.current
}

// Next advances the cursor with wraparound and returns the new current
// match. No-op when empty.
func (ix *Index) Next() (Match, bool) {
	if len(ix.matches) == 0 {
		return Match{}, false
	}
	ix.current = (ix.current + 1) % len(ix.matches)
	return ix.matches[ix.current], true
}

// Prev retreats the cursor with wraparound and returns the new current
// match. No-op when empty.
func (ix *Index) Prev() (Match, bool) {
	if len(ix.matches) == 0 {
		return Match{}, false
	}
	if ix.current == 0 {
		ix.current = len(ix.matches) - 1
	} else {
		ix.current--
	}
	return ix.matches[ix.current], true
}

// IsMatchingLine reports whether any match references the line, so renderers
// skip highlight work for non-matching lines.
func (ix *Index) IsMatchingLine(line int) bool {
	return ix.byLine[line] > 0
}

// findOccurrences returns the byte offsets of non-overlapping occurrences of
// query in text, scanning left to right and advancing past each match by the
// query's full length. Matching is case-insensitive over ASCII; folding is
// length-preserving so offsets index the original text.
func findOccurrences(text, query string) []int {
	if query == "" || len(query) > len(text) {
		return nil
	}
	haystack := foldASCII(text)
	needle := foldASCII(query)

	var offsets []int
	from := 0
	for {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return offsets
		}
		offsets = append(offsets, from+i)
		from += i + len(needle)
	}
}

// foldASCII lowercases ASCII letters only, preserving byte length.
func foldASCII(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
