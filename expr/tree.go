// Package expr implements a small operator-precedence parser that builds
// binary expression trees over caller-supplied atoms and operators.
package expr

import (
	"fmt"
	"strings"
)

// Expr is a binary expression tree. A node is either a leaf carrying a value
// of type L or an operator node with both children set.
type Expr[L any, O comparable] struct {
	Leaf  L
	Op    O
	Left  *Expr[L, O]
	Right *Expr[L, O]

	leaf bool
}

func NewLeaf[L any, O comparable](value L) *Expr[L, O] {
	return &Expr[L, O]{Leaf: value, leaf: true}
}

func NewOp[L any, O comparable](op O, left, right *Expr[L, O]) *Expr[L, O] {
	return &Expr[L, O]{Op: op, Left: left, Right: right}
}

func (e *Expr[L, O]) IsLeaf() bool {
	return e.leaf
}

// Leaves returns leaf values in left to right order.
func (e *Expr[L, O]) Leaves() []L {
	if e.leaf {
		return []L{e.Leaf}
	}
	return append(e.Left.Leaves(), e.Right.Leaves()...)
}

// Walk calls fn on every leaf, allowing it to modify the value in place.
func (e *Expr[L, O]) Walk(fn func(leaf *L)) {
	if e.leaf {
		fn(&e.Leaf)
		return
	}
	e.Left.Walk(fn)
	e.Right.Walk(fn)
}

// String renders the tree in fully parenthesized infix form.
func (e *Expr[L, O]) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Expr[L, O]) write(b *strings.Builder) {
	if e.leaf {
		fmt.Fprint(b, e.Leaf)
		return
	}
	b.WriteString("(")
	e.Left.write(b)
	fmt.Fprintf(b, " %v ", e.Op)
	e.Right.write(b)
	b.WriteString(")")
}
