package expr

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var identifier = regexp.MustCompile(`^[a-z][a-z0-9]*`)

func identAtom(src string, pos int) (string, int, error) {
	m := identifier.FindString(src[pos:])
	if m == "" {
		return "", pos, fmt.Errorf("no identifier at %d", pos)
	}
	return m, pos + len(m), nil
}

func boolConfig() Config[string, string] {
	return Config[string, string]{
		Open:  "(",
		Close: ")",
		Operators: []Operator[string]{
			{Text: "and", Op: "and", Prec: 2},
			{Text: "or", Op: "or", Prec: 1},
		},
		Atom: identAtom,
	}
}

func parseAll(t *testing.T, src string) *Expr[string, string] {
	t.Helper()
	tree, end, err := Parse(src, 0, boolConfig())
	require.NoError(t, err)
	require.Equal(t, len(src), SkipSpace(src, end), "unconsumed input in %q", src)
	return tree
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a", "a"},
		{"a and b", "(a and b)"},
		{"a or b and c", "(a or (b and c))"},
		{"a and b or c", "((a and b) or c)"},
		{"a and b and c", "(a and (b and c))"},
		{"a or b or c", "(a or (b or c))"},
		{"(a or b) and c", "((a or b) and c)"},
		{"((a))", "a"},
		{"a and (b or c and d) or e", "((a and (b or (c and d))) or e)"},
		{"  a\n and\tb ", "(a and b)"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAll(t, tt.src).String())
		})
	}
}

func TestParseStopsAtUnknownText(t *testing.T) {
	tree, end, err := Parse("a and b then c", 0, boolConfig())
	require.NoError(t, err)
	assert.Equal(t, "(a and b)", tree.String())
	assert.Equal(t, "then c", "a and b then c"[end:])
}

func TestParseOperatorNeedsWordBoundary(t *testing.T) {
	tree, end, err := Parse("a orange", 0, boolConfig())
	require.NoError(t, err)
	assert.Equal(t, "a", tree.String())
	assert.Equal(t, "orange", "a orange"[end:])
}

func TestParseUnclosedGroup(t *testing.T) {
	_, _, err := Parse("(a and b", 0, boolConfig())
	assert.ErrorIs(t, err, ErrUnclosedGroup)

	_, _, err = Parse("a and ((b or c)", 0, boolConfig())
	assert.ErrorIs(t, err, ErrUnclosedGroup)
}

func TestParseAbsorbsUnmatchedClose(t *testing.T) {
	tree := parseAll(t, "a and b) or c")
	assert.Equal(t, "((a and b) or c)", tree.String())
}

func TestParseAtomError(t *testing.T) {
	_, _, err := Parse("a and 9", 0, boolConfig())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnclosedGroup))
}

func TestParseRequiresOperandParser(t *testing.T) {
	_, _, err := Parse("a", 0, Config[string, string]{})
	assert.ErrorIs(t, err, ErrNoOperand)
}

func TestParseOperatorOrderBreaksTies(t *testing.T) {
	cfg := Config[string, string]{
		Operators: []Operator[string]{
			{Text: "<=", Op: "<=", Prec: 1},
			{Text: "<", Op: "<", Prec: 1},
		},
		Atom: identAtom,
	}
	tree, _, err := Parse("a<=b<c", 0, cfg)
	require.NoError(t, err)
	assert.Equal(t, "(a <= (b < c))", tree.String())

	// with "<" listed first it shadows "<=" and leaves "=b" as the operand
	cfg.Operators[0], cfg.Operators[1] = cfg.Operators[1], cfg.Operators[0]
	_, _, err = Parse("a<=b", 0, cfg)
	assert.Error(t, err)
}

func TestParseSubExpressions(t *testing.T) {
	cfg := Config[string, string]{
		Operators: []Operator[string]{{Text: "+", Op: "+", Prec: 1}},
		Sub: func(src string, pos int) (*Expr[string, string], int, error) {
			if src[pos] == '[' {
				inner, end, err := Parse(src, pos+1, boolConfig())
				if err != nil {
					return nil, end, err
				}
				return inner, end + 1, nil
			}
			v, end, err := identAtom(src, pos)
			return NewLeaf[string, string](v), end, err
		},
	}
	tree, _, err := Parse("x + [a or b]", 0, cfg)
	require.NoError(t, err)
	assert.Equal(t, "(x + (a or b))", tree.String())
}

func randomTree(r *rand.Rand, depth int, next *int) *Expr[string, string] {
	if depth == 0 || r.Intn(3) == 0 {
		*next++
		return NewLeaf[string, string](fmt.Sprintf("v%d", *next))
	}
	op := "and"
	if r.Intn(2) == 0 {
		op = "or"
	}
	return NewOp(op, randomTree(r, depth-1, next), randomTree(r, depth-1, next))
}

func TestParseRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		var n int
		want := randomTree(r, 5, &n)

		got := parseAll(t, want.String())
		assert.Equal(t, want.String(), got.String())
		assert.Equal(t, want.Leaves(), got.Leaves())
	}
}

func TestWalkModifiesLeaves(t *testing.T) {
	tree := parseAll(t, "a and (b or c)")
	tree.Walk(func(leaf *string) { *leaf += "!" })
	assert.Equal(t, []string{"a!", "b!", "c!"}, tree.Leaves())
}
