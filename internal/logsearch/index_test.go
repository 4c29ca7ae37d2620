package logsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateEmptyInputs(t *testing.T) {
	ix := NewIndex()

	ix.Update(nil, "x")
	assert.Zero(t, ix.Len())

	ix.Update([]string{}, "x")
	assert.Zero(t, ix.Len())

	ix.Update([]string{"hello"}, "")
	assert.Zero(t, ix.Len())

	ix.Update([]string{"hello"}, "   ")
	assert.Zero(t, ix.Len())

	_, ok := ix.Current()
	assert.False(t, ok)
	_, ok = ix.Next()
	assert.False(t, ok)
	_, ok = ix.Prev()
	assert.False(t, ok)
}

func TestUpdateSingleCharQuery(t *testing.T) {
	ix := NewIndex()
	ix.Update([]string{"abaaba"}, "a")

	// "a" occurs at offsets 0, 2, 3, 5; single-char matches cannot overlap.
	require.Equal(t, 4, ix.Len())
	assert.Equal(t, []Match{
		{Line: 0, Occurrence: 0},
		{Line: 0, Occurrence: 1},
		{Line: 0, Occurrence: 2},
		{Line: 0, Occurrence: 3},
	}, ix.Matches())
}

func TestNonOverlappingGreedyScan(t *testing.T) {
	ix := NewIndex()

	// The scan advances past each match by the query length: "aaa" holds
	// exactly one non-overlapping "aa".
	ix.Update([]string{"aaa"}, "aa")
	assert.Equal(t, 1, ix.Len())

	ix.Update([]string{"aaaa"}, "aa")
	assert.Equal(t, 2, ix.Len())

	ix.Update([]string{"abab"}, "ab")
	assert.Equal(t, 2, ix.Len())
}

func TestCaseInsensitiveMatching(t *testing.T) {
	ix := NewIndex()
	ix.Update([]string{"Error: connection refused", "ERROR again", "no problems"}, "error")

	require.Equal(t, 2, ix.Len())
	assert.Equal(t, []Match{{Line: 0, Occurrence: 0}, {Line: 1, Occurrence: 0}}, ix.Matches())
	assert.True(t, ix.IsMatchingLine(0))
	assert.True(t, ix.IsMatchingLine(1))
	assert.False(t, ix.IsMatchingLine(2))
}

func TestTimestampPrefixExcludedFromMatching(t *testing.T) {
	ix := NewIndex()
	ix.Update([]string{"2025-08-05T04:51:15.136893673Z hello hello"}, "hello")

	require.Equal(t, 2, ix.Len())
	assert.Equal(t, []Match{{Line: 0, Occurrence: 0}, {Line: 0, Occurrence: 1}}, ix.Matches())

	// A query matching only inside the timestamp token yields nothing.
	ix.Update([]string{"2025-08-05T04:51:15.136893673Z hello"}, "2025")
	assert.Zero(t, ix.Len())

	// Without fractional seconds the prefix still strips.
	ix.Update([]string{"2025-08-05T04:51:15Z warn warn"}, "warn")
	assert.Equal(t, 2, ix.Len())
}

func TestStripTimestamp(t *testing.T) {
	ts, content := StripTimestamp("2025-08-05T04:51:15.136893673Z hello")
	assert.Equal(t, "2025-08-05T04:51:15.136893673Z", ts)
	assert.Equal(t, "hello", content)

	ts, content = StripTimestamp("no timestamp here")
	assert.Empty(t, ts)
	assert.Equal(t, "no timestamp here", content)

	// A date-like token mid-line is not a prefix and stays in the content.
	ts, content = StripTimestamp("at 2025-08-05T04:51:15Z it happened")
	assert.Empty(t, ts)
	assert.Equal(t, "at 2025-08-05T04:51:15Z it happened", content)
}

func TestNavigationWrapsCyclically(t *testing.T) {
	ix := NewIndex()
	ix.Update([]string{"x", "x", "x"}, "x")
	require.Equal(t, 3, ix.Len())
	assert.Equal(t, 0, ix.CurrentIndex())

	// Three nexts from index 0 return to index 0.
	ix.Next()
	assert.Equal(t, 1, ix.CurrentIndex())
	ix.Next()
	assert.Equal(t, 2, ix.CurrentIndex())
	ix.Next()
	assert.Equal(t, 0, ix.CurrentIndex())

	// Prev from 0 wraps to the last match.
	m, ok := ix.Prev()
	require.True(t, ok)
	assert.Equal(t, 2, ix.CurrentIndex())
	assert.Equal(t, Match{Line: 2, Occurrence: 0}, m)
}

func TestUpdateResetsCursor(t *testing.T) {
	ix := NewIndex()
	ix.Update([]string{"x x x"}, "x")
	ix.Next()
	ix.Next()
	require.Equal(t, 2, ix.CurrentIndex())

	ix.Update([]string{"x x"}, "x")
	assert.Equal(t, 0, ix.CurrentIndex())
	assert.Equal(t, 2, ix.Len())
}

func TestClear(t *testing.T) {
	ix := NewIndex()
	ix.Update([]string{"hello"}, "hello")
	require.Equal(t, 1, ix.Len())

	ix.Clear()
	assert.Zero(t, ix.Len())
	assert.False(t, ix.IsMatchingLine(0))
	_, ok := ix.Current()
	assert.False(t, ok)
}

func TestMatchesAcrossLines(t *testing.T) {
	ix := NewIndex()
	ix.Update([]string{"err err", "ok", "err"}, "err")

	assert.Equal(t, []Match{
		{Line: 0, Occurrence: 0},
		{Line: 0, Occurrence: 1},
		{Line: 2, Occurrence: 0},
	}, ix.Matches())

	cur, ok := ix.Current()
	require.True(t, ok)
	assert.Equal(t, Match{Line: 0, Occurrence: 0}, cur)
}

func TestQueryLongerThanLine(t *testing.T) {
	ix := NewIndex()
	ix.Update([]string{"ab"}, "abc")
	assert.Zero(t, ix.Len())
}
