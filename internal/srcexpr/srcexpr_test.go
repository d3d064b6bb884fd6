package srcexpr

import (
	"go/ast"
	"go/parser"
	"go/token"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func sum(a, b int) int { return a + b }

// V stands in for the real package's value marker during this test.
func V(v int) int { return v }

// fakeCheck mimics the shape assert.Check uses: it reports its own
// call site so Lookup can find the condition text at that position.
func fakeCheck(cond bool) (pc uintptr, file string, line int, ok bool) {
	pc, file, line, ok = runtime.Caller(1)
	return
}

func TestLookupRecoversRawTextAndMarkers(t *testing.T) {
	a, b := 2, 3
	pc, file, line, ok := fakeCheck(sum(V(a), V(b)) == 5)
	require.True(t, ok)

	site, err := Lookup(pc, file, line, "fakeCheck")
	require.NoError(t, err)
	require.Equal(t, "sum(V(a), V(b)) == 5", site.RawText)
	require.Len(t, site.Markers, 2)
	require.Equal(t, "a", site.RawText[site.Markers[0].ExprOffset:site.Markers[0].ExprOffset+site.Markers[0].ExprLength])
	require.Equal(t, "b", site.RawText[site.Markers[1].ExprOffset:site.Markers[1].ExprOffset+site.Markers[1].ExprLength])
	require.False(t, site.Markers[0].NeedBracket)
}

func TestLookupSameLineDistinctSitesDoNotCollide(t *testing.T) {
	a := 1
	pc1, file1, line1, _ := fakeCheck(V(a) == 1); pc2, file2, line2, _ := fakeCheck(V(a) == 2)
	require.Equal(t, line1, line2, "both calls must be on the same source line for this test to be meaningful")

	s1, err := Lookup(pc1, file1, line1, "fakeCheck")
	require.NoError(t, err)
	s2, err := Lookup(pc2, file2, line2, "fakeCheck")
	require.NoError(t, err)
	require.NotEqual(t, s1.RawText, s2.RawText)
}

func TestLookupCachesRepeatedCallsFromTheSameSite(t *testing.T) {
	for i := 0; i < 3; i++ {
		a := i
		pc, file, line, _ := fakeCheck(V(a) == 0)
		site, err := Lookup(pc, file, line, "fakeCheck")
		require.NoError(t, err)
		require.Equal(t, "V(a) == 0", site.RawText)
	}
}

func TestNeedsBracketDistinguishesSingleTokenFromExpression(t *testing.T) {
	identNode := exprOf(t, "a")
	binNode := exprOf(t, "a + b")
	require.False(t, needsBracket(identNode))
	require.True(t, needsBracket(binNode))
}

func exprOf(t *testing.T, src string) ast.Expr {
	t.Helper()
	e, err := parser.ParseExprFrom(token.NewFileSet(), "", src, 0)
	require.NoError(t, err)
	return e
}
