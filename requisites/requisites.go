// Package requisites parses catalog prerequisite and general requirement
// text into requirement trees.
package requisites

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/brequin/catalog/db"
	"github.com/brequin/catalog/expr"
)

type Op string

const (
	And Op = "and"
	Or  Op = "or"
)

type Tree = expr.Expr[db.PreReq, Op]

var operators = []expr.Operator[Op]{
	{Text: "and", Op: And, Prec: 2},
	{Text: "or", Op: Or, Prec: 1},
}

var (
	ErrInvalidGrade       = errors.New("grade is not a recognized grade")
	ErrLevelWithoutCourse = errors.New("level is not followed by a subject and number")
	ErrUnrecognized       = errors.New("unrecognized requirement")
	ErrMissingConcurrency = errors.New("clause is not terminated by a concurrency marker")
	ErrTrailingText       = errors.New("unexpected text after requirement")
	ErrUnterminatedRule   = errors.New("rule has no matching end")
	ErrEmptyRule          = errors.New("rule has no clauses")
	ErrGPAWithoutSelector = errors.New("GPA is not followed by a course selector or the all-courses range")
)

const fragmentLength = 60

// ParseError records the text at which a requirement stopped parsing.
type ParseError struct {
	Fragment string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Fragment, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseError(src string, pos int, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	end := min(len(src), pos+fragmentLength)
	return &ParseError{Fragment: src[min(pos, len(src)):end], Err: err}
}

var minimumGrade = regexp.MustCompile(`^\s+Minimum\s+Grade\s+(?:of\s+)?([^\s()]+)`)

// grade reads an optional "Minimum Grade of G" qualifier at pos.
func grade(src string, pos int) (*db.Grade, int, error) {
	m := minimumGrade.FindStringSubmatchIndex(src[pos:])
	if m == nil {
		return nil, pos, nil
	}
	text := src[pos+m[2] : pos+m[3]]
	g, ok := db.ParseGrade(text)
	if !ok {
		return nil, pos, parseError(src, pos+m[2], fmt.Errorf("%w: %s", ErrInvalidGrade, text))
	}
	return &g, pos + m[1], nil
}

func parseFloat(s string) *float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Flatten converts a binary tree into n-ary form, merging nested nodes that
// share an operator with their parent.
func Flatten(t *Tree) db.PreReqs {
	if t.IsLeaf() {
		leaf := t.Leaf
		return db.PreReqs{Type: db.PreReqsLeaf, Leaf: &leaf}
	}

	node := db.PreReqs{Type: db.PreReqsOr}
	if t.Op == And {
		node.Type = db.PreReqsAnd
	}
	for _, child := range []*Tree{t.Left, t.Right} {
		node.Vs = splice(node.Vs, node.Type, Flatten(child))
	}
	return node
}

// FlattenPreReqs applies the same merging to an already n-ary tree.
func FlattenPreReqs(p db.PreReqs) db.PreReqs {
	if p.Type == db.PreReqsLeaf {
		return p
	}

	node := db.PreReqs{Type: p.Type}
	for _, child := range p.Vs {
		node.Vs = splice(node.Vs, node.Type, FlattenPreReqs(child))
	}
	return node
}

func splice(vs []db.PreReqs, parent db.PreReqsType, child db.PreReqs) []db.PreReqs {
	if child.Type == parent {
		return append(vs, child.Vs...)
	}
	return append(vs, child)
}
