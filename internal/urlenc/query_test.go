package urlenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPathQuery(t *testing.T) {
	path, q := SplitPathQuery("/c/test/+/42?tab=checks&forceReload")
	require.Equal(t, "/c/test/+/42", path)
	require.Equal(t, 2, q.Len())

	tab, ok := q.Get("tab")
	require.True(t, ok)
	require.Equal(t, "checks", tab)
	require.True(t, q.Has("forceReload"))
	require.False(t, q.Has("attempt"))
}

func TestSplitPathQuery_NoQuery(t *testing.T) {
	path, q := SplitPathQuery("/c/test/+/42")
	require.Equal(t, "/c/test/+/42", path)
	require.Equal(t, 0, q.Len())
}

func TestSplitPathQuery_SplitsAtFirstQuestionMark(t *testing.T) {
	path, q := SplitPathQuery("/q/a?b=c?d")
	require.Equal(t, "/q/a", path)
	v, _ := q.Get("b")
	require.Equal(t, "c?d", v)
}

func TestParseQuery_KeepsOrder(t *testing.T) {
	q := ParseQuery("?section%201=query%201&section+2=query+2&title=Mine")
	assert.Equal(t, []Param{
		{Name: "section 1", Value: "query 1"},
		{Name: "section 2", Value: "query 2"},
		{Name: "title", Value: "Mine"},
	}, q.Pairs())
}

func TestParseQuery_SkipsMalformed(t *testing.T) {
	q := ParseQuery("a=%zz&b=1&&")
	require.Equal(t, []Param{{Name: "b", Value: "1"}}, q.Pairs())
}

func TestQuery_WithWithout(t *testing.T) {
	q := ParseQuery("usp=email&tab=files")
	q2 := q.Without("usp").With("attempt", "2")
	require.Equal(t, "tab=files&attempt=2", q2.Encode())
	require.Equal(t, 2, q.Len(), "original is untouched")
}

func TestParseLocation(t *testing.T) {
	loc := ParseLocation("/c/test/+/42/1/a.go?x=1#b12#c")
	require.Equal(t, "/c/test/+/42/1/a.go", loc.Path)
	require.Equal(t, "b12#c", loc.Hash)
	v, _ := loc.Query.Get("x")
	require.Equal(t, "1", v)
	require.Equal(t, "/c/test/+/42/1/a.go?x=1#b12#c", loc.String())
}
