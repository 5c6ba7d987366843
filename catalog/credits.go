package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/brequin/catalog/db"
	"github.com/brequin/catalog/expr"
)

var ErrMalformedCredits = errors.New("malformed credit hours")

type creditOp string

const (
	creditsTo creditOp = "TO"
	creditsOr creditOp = "OR"
)

var creditOperators = []expr.Operator[creditOp]{
	{Text: "TO", Op: creditsTo, Prec: 2},
	{Text: "OR", Op: creditsOr, Prec: 1},
}

var creditValue = regexp.MustCompile(`^(?:\d+(?:\.\d*)?|\.\d+)`)

// ParseCredits reads credit hour text such as "3.000", "3.000 OR 4.000" or
// "1.000 TO 6.000". Text with any TO is a range over its smallest and largest
// values; otherwise every value is an allowed fixed amount.
func ParseCredits(text string) (db.Credits, error) {
	cfg := expr.Config[float64, creditOp]{
		Operators: creditOperators,
		Atom:      creditAtom,
	}

	tree, end, err := expr.Parse(text, 0, cfg)
	if err != nil {
		return db.Credits{}, fmt.Errorf("%w: %q: %v", ErrMalformedCredits, text, err)
	}
	if end = expr.SkipSpace(text, end); end < len(text) {
		return db.Credits{}, fmt.Errorf("%w: %q", ErrMalformedCredits, text)
	}

	values := tree.Leaves()
	if !hasOp(tree, creditsTo) {
		return db.Credits{Type: db.CreditsFixed, Values: values}, nil
	}

	credits := db.Credits{Type: db.CreditsRange, Min: values[0], Max: values[0]}
	for _, v := range values[1:] {
		credits.Min = min(credits.Min, v)
		credits.Max = max(credits.Max, v)
	}
	return credits, nil
}

func creditAtom(src string, pos int) (float64, int, error) {
	m := creditValue.FindString(src[pos:])
	if m == "" {
		return 0, pos, ErrMalformedCredits
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, pos, err
	}
	return v, pos + len(m), nil
}

func hasOp(t *expr.Expr[float64, creditOp], op creditOp) bool {
	if t.IsLeaf() {
		return false
	}
	return t.Op == op || hasOp(t.Left, op) || hasOp(t.Right, op)
}
