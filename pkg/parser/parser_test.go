package parser

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/praetorian-inc/bfc/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loc(line, col int) types.Location {
	return types.Location{File: "t.bf", Line: line, Column: col}
}

func parse(t *testing.T, src string) []types.Node {
	t.Helper()
	tree, err := ParseBytes("t.bf", []byte(src))
	require.NoError(t, err)
	return tree
}

func parseErrs(t *testing.T, src string) types.ParseErrors {
	t.Helper()
	tree, err := ParseBytes("t.bf", []byte(src))
	require.Error(t, err)
	assert.Nil(t, tree)
	errs, ok := err.(types.ParseErrors)
	require.True(t, ok, "error should be types.ParseErrors, got %T", err)
	return errs
}

func TestParse_Example(t *testing.T) {
	tree := parse(t, "++[,.]")

	want := []types.Node{
		{Kind: types.Increment, Count: 2, Loc: loc(1, 1)},
		{Kind: types.Loop, Loc: loc(1, 3), Children: []types.Node{
			{Kind: types.Read, Loc: loc(1, 4)},
			{Kind: types.Write, Loc: loc(1, 5)},
		}},
	}
	assert.Equal(t, want, tree)
}

func TestParse_Empty(t *testing.T) {
	tree := parse(t, "")
	assert.NotNil(t, tree)
	assert.Empty(t, tree)

	tree = parse(t, "this is only a comment\n")
	assert.Empty(t, tree)
}

func TestParse_CommentsAndLocations(t *testing.T) {
	tree := parse(t, "inc: ++\nmove >> back <\n  [-]")

	require.Len(t, tree, 4)
	assert.Equal(t, types.Node{Kind: types.Increment, Count: 2, Loc: loc(1, 6)}, tree[0])
	assert.Equal(t, types.Node{Kind: types.MoveForward, Count: 2, Loc: loc(2, 6)}, tree[1])
	assert.Equal(t, types.Node{Kind: types.MoveBackward, Count: 1, Loc: loc(2, 14)}, tree[2])
	assert.Equal(t, types.Loop, tree[3].Kind)
	assert.Equal(t, loc(3, 3), tree[3].Loc)
	assert.Equal(t, []types.Node{{Kind: types.Decrement, Count: 1, Loc: loc(3, 4)}}, tree[3].Children)
}

func TestParse_RunsBrokenByOtherBytes(t *testing.T) {
	tree := parse(t, "++ ++")
	require.Len(t, tree, 2)
	assert.Equal(t, 2, tree[0].Count)
	assert.Equal(t, 2, tree[1].Count)

	tree = parse(t, "+-+")
	require.Len(t, tree, 3)
}

func TestParse_WriteAndReadNotCoalesced(t *testing.T) {
	tree := parse(t, "...,,")
	require.Len(t, tree, 5)
	for _, n := range tree {
		assert.Zero(t, n.Count)
	}
}

func TestParse_Coalescing(t *testing.T) {
	for _, ch := range []byte("+-><") {
		for _, k := range []int{1, 2, 3, 17, 256, 1000} {
			tree := parse(t, strings.Repeat(string(ch), k))
			require.Len(t, tree, 1, "run of %d %q", k, ch)
			kind, _ := types.KindOf(ch)
			assert.Equal(t, kind, tree[0].Kind)
			assert.Equal(t, k, tree[0].Count)
			assert.Equal(t, loc(1, 1), tree[0].Loc)
		}
	}
}

func TestParse_Nested(t *testing.T) {
	tree := parse(t, "[[[]]>]")
	require.Len(t, tree, 1)
	outer := tree[0]
	require.Len(t, outer.Children, 2)
	assert.Equal(t, loc(1, 2), outer.Children[0].Loc)
	require.Len(t, outer.Children[0].Children, 1)
	assert.Equal(t, loc(1, 3), outer.Children[0].Children[0].Loc)
	assert.Empty(t, outer.Children[0].Children[0].Children)
}

func TestParse_UnterminatedLoop(t *testing.T) {
	errs := parseErrs(t, "[")
	require.Len(t, errs, 1)
	assert.Equal(t, types.UnterminatedLoop, errs[0].Kind)
	assert.Equal(t, "unterminated loop", errs[0].Message)
	assert.Equal(t, loc(1, 1), errs[0].Loc)
}

func TestParse_NoLoopToTerminate(t *testing.T) {
	errs := parseErrs(t, "]")
	require.Len(t, errs, 1)
	assert.Equal(t, types.UnmatchedTerminator, errs[0].Kind)
	assert.Equal(t, "no loop to terminate", errs[0].Message)
	assert.Equal(t, loc(1, 1), errs[0].Loc)
}

func TestParse_UnterminatedInnermostFirst(t *testing.T) {
	errs := parseErrs(t, "[\n [\n  [")
	require.Len(t, errs, 3)
	assert.Equal(t, loc(3, 3), errs[0].Loc)
	assert.Equal(t, loc(2, 2), errs[1].Loc)
	assert.Equal(t, loc(1, 1), errs[2].Loc)
}

func TestParse_ErrorOrdering(t *testing.T) {
	// Closers are reported in encounter order, then unclosed openers.
	errs := parseErrs(t, "]+[ ]] [")
	require.Len(t, errs, 3)
	assert.Equal(t, types.UnmatchedTerminator, errs[0].Kind)
	assert.Equal(t, loc(1, 1), errs[0].Loc)
	assert.Equal(t, types.UnmatchedTerminator, errs[1].Kind)
	assert.Equal(t, loc(1, 6), errs[1].Loc)
	assert.Equal(t, types.UnterminatedLoop, errs[2].Kind)
	assert.Equal(t, loc(1, 8), errs[2].Loc)
}

func TestParse_ExcessClosers(t *testing.T) {
	errs := parseErrs(t, "[]]]")
	require.Len(t, errs, 2)
	assert.Equal(t, loc(1, 3), errs[0].Loc)
	assert.Equal(t, loc(1, 4), errs[1].Loc)
}

// randomProgram returns a well-bracketed program with interleaved comments.
func randomProgram(r *rand.Rand, size int) string {
	var b strings.Builder
	depth := 0
	ops := "+-<>.,"
	junk := "ab \n\t#0"
	for i := 0; i < size; i++ {
		switch p := r.Intn(10); {
		case p < 6:
			b.WriteByte(ops[r.Intn(len(ops))])
		case p < 7:
			b.WriteByte(junk[r.Intn(len(junk))])
		case p < 8:
			b.WriteByte('[')
			depth++
		default:
			if depth > 0 {
				b.WriteByte(']')
				depth--
			}
		}
	}
	b.WriteString(strings.Repeat("]", depth))
	return b.String()
}

func stripComments(src string) string {
	var b strings.Builder
	for i := 0; i < len(src); i++ {
		if strings.IndexByte("+-<>.,[]", src[i]) >= 0 {
			b.WriteByte(src[i])
		}
	}
	return b.String()
}

func TestParse_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		src := randomProgram(r, r.Intn(200))
		tree, err := ParseBytes("t.bf", []byte(src))
		require.NoError(t, err, "source %q", src)
		assert.Equal(t, stripComments(src), types.Render(tree), "source %q", src)
	}
}

func TestParse_UnbalancedCounts(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		src := stripComments(randomProgram(r, r.Intn(60)))
		extraOpen := r.Intn(4)
		extraClose := r.Intn(4)
		src = strings.Repeat("]", extraClose) + src + strings.Repeat("[", extraOpen)
		if extraOpen == 0 && extraClose == 0 {
			continue
		}

		errs := parseErrs(t, src)
		var closers, openers int
		for _, e := range errs {
			switch e.Kind {
			case types.UnmatchedTerminator:
				closers++
			case types.UnterminatedLoop:
				openers++
			}
		}
		assert.Equal(t, extraClose, closers, "source %q", src)
		assert.Equal(t, extraOpen, openers, "source %q", src)
	}
}
