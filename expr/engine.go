package expr

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrUnclosedGroup = errors.New("expr: unclosed group")
	ErrNoOperand     = errors.New("expr: config has no atom or sub-expression parser")
)

type Operator[O comparable] struct {
	Text string
	Op   O
	Prec int
}

// Config describes one grammar. Exactly one of Atom and Sub must be set.
// Operator order matters: the first operator whose text prefixes the input
// and whose precedence is high enough wins.
type Config[L any, O comparable] struct {
	Open      string
	Close     string
	Operators []Operator[O]

	Atom func(src string, pos int) (L, int, error)
	Sub  func(src string, pos int) (*Expr[L, O], int, error)
}

type frameKind int

const (
	frameBase frameKind = iota
	frameGroup
	frameOp
)

type frame[L any, O comparable] struct {
	kind frameKind
	op   O
	prec int
	left *Expr[L, O]
}

// Parse reads one expression from src starting at pos and returns it with the
// position just past it. Operators of equal precedence nest to the right.
// A close delimiter with no open group is consumed and ignored.
func Parse[L any, O comparable](src string, pos int, cfg Config[L, O]) (*Expr[L, O], int, error) {
	if cfg.Atom == nil && cfg.Sub == nil {
		return nil, pos, ErrNoOperand
	}

	frames := []frame[L, O]{{kind: frameBase}}
	for {
		pos = SkipSpace(src, pos)
		if cfg.Open != "" && strings.HasPrefix(src[pos:], cfg.Open) {
			pos += len(cfg.Open)
			frames = append(frames, frame[L, O]{kind: frameGroup})
			continue
		}

		cur, next, err := cfg.operand(src, pos)
		if err != nil {
			return nil, next, err
		}
		pos = next

	operators:
		for {
			pos = SkipSpace(src, pos)
			top := frames[len(frames)-1]

			if cfg.Close != "" && strings.HasPrefix(src[pos:], cfg.Close) {
				pos += len(cfg.Close)
				if i := lastGroup(frames); i >= 0 {
					cur = fold(frames[i+1:], cur)
					frames = frames[:i]
				}
				continue
			}

			if op, ok := cfg.match(src[pos:], top.prec); ok {
				pos += len(op.Text)
				frames = append(frames, frame[L, O]{kind: frameOp, op: op.Op, prec: op.Prec, left: cur})
				break operators
			}

			switch top.kind {
			case frameOp:
				cur = NewOp(top.op, top.left, cur)
				frames = frames[:len(frames)-1]
			case frameGroup:
				return nil, pos, ErrUnclosedGroup
			default:
				return cur, pos, nil
			}
		}
	}
}

func (cfg Config[L, O]) operand(src string, pos int) (*Expr[L, O], int, error) {
	if cfg.Sub != nil {
		return cfg.Sub(src, pos)
	}
	value, next, err := cfg.Atom(src, pos)
	if err != nil {
		return nil, next, err
	}
	return NewLeaf[L, O](value), next, nil
}

func (cfg Config[L, O]) match(rest string, minPrec int) (Operator[O], bool) {
	for _, op := range cfg.Operators {
		if op.Prec < minPrec || !strings.HasPrefix(rest, op.Text) {
			continue
		}
		if endsInWord(op.Text) && startsWithWord(rest[len(op.Text):]) {
			continue
		}
		return op, true
	}
	return Operator[O]{}, false
}

func lastGroup[L any, O comparable](frames []frame[L, O]) int {
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].kind == frameGroup {
			return i
		}
	}
	return -1
}

// fold collapses pending operator frames into cur, innermost first.
func fold[L any, O comparable](frames []frame[L, O], cur *Expr[L, O]) *Expr[L, O] {
	for i := len(frames) - 1; i >= 0; i-- {
		cur = NewOp(frames[i].op, frames[i].left, cur)
	}
	return cur
}

func SkipSpace(src string, pos int) int {
	for pos < len(src) {
		r, size := utf8.DecodeRuneInString(src[pos:])
		if !unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	return pos
}

func endsInWord(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return isWordRune(r)
}

func startsWithWord(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
