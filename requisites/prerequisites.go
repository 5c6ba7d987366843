package requisites

import (
	"regexp"
	"strings"

	"github.com/brequin/catalog/db"
	"github.com/brequin/catalog/expr"
)

var (
	levelPrefix      = regexp.MustCompile(`^(Undergraduate|Graduate|Professional)(?:\s+level)?\b`)
	courseCode       = regexp.MustCompile(`^([A-Z]{2,5})\s+(\d{5}|\d{3}[0-9A-Z]{0,3})\b`)
	concurrentMarker = regexp.MustCompile(`(?i)^\s*\[may be taken concurrently\]`)
	testScore        = regexp.MustCompile(`^(\d+(?:\.\d+)?|[A-Z][+-]?)$`)
)

type prerequisiteParser struct {
	corequisite bool
}

// ParsePrerequisites parses a "Prerequisites:" or "Corequisites:" block such as
// "Undergraduate level CS 18000 Minimum Grade of C or MA 16500". The
// corequisite flag is copied onto every course leaf.
func ParsePrerequisites(text string, corequisite bool) (*Tree, error) {
	p := prerequisiteParser{corequisite: corequisite}
	cfg := expr.Config[db.PreReq, Op]{
		Open:      "(",
		Close:     ")",
		Operators: operators,
		Atom:      p.atom,
	}

	tree, end, err := expr.Parse(text, 0, cfg)
	if err != nil {
		return nil, parseError(text, end, err)
	}
	if end = expr.SkipSpace(text, end); end < len(text) {
		return nil, parseError(text, end, ErrTrailingText)
	}
	return tree, nil
}

func (p prerequisiteParser) atom(src string, pos int) (db.PreReq, int, error) {
	var level *db.Level
	if m := levelPrefix.FindStringSubmatchIndex(src[pos:]); m != nil {
		l := db.Level(src[pos+m[2] : pos+m[3]])
		level = &l
		pos = expr.SkipSpace(src, pos+m[1])
		if !courseCode.MatchString(src[pos:]) {
			return db.PreReq{}, pos, parseError(src, pos, ErrLevelWithoutCourse)
		}
	}

	m := courseCode.FindStringSubmatchIndex(src[pos:])
	if m == nil {
		return p.test(src, pos)
	}

	req := db.PreReq{
		Type:        db.PreReqCourse,
		Level:       level,
		Subject:     src[pos+m[2] : pos+m[3]],
		Course:      src[pos+m[4] : pos+m[5]],
		Corequisite: p.corequisite,
	}
	pos += m[1]

	g, pos, err := grade(src, pos)
	if err != nil {
		return db.PreReq{}, pos, err
	}
	req.Grade = g

	if loc := concurrentMarker.FindStringIndex(src[pos:]); loc != nil {
		req.Concurrent = true
		pos += loc[1]
	}
	return req, pos, nil
}

// test reads "NAME SCORE", e.g. "SAT Mathematics 600", up to the next
// delimiter or operator.
func (p prerequisiteParser) test(src string, pos int) (db.PreReq, int, error) {
	end := atomEnd(src, pos)
	words := strings.Fields(src[pos:end])
	if len(words) < 2 || !testScore.MatchString(words[len(words)-1]) {
		return db.PreReq{}, pos, parseError(src, pos, ErrUnrecognized)
	}
	return db.PreReq{
		Type:     db.PreReqTest,
		Test:     strings.Join(words[:len(words)-1], " "),
		MinScore: words[len(words)-1],
	}, end, nil
}

func atomEnd(src string, pos int) int {
	for i := pos; i < len(src); i++ {
		if src[i] == '(' || src[i] == ')' {
			return i
		}
		if i > pos && isSpace(src[i-1]) && (wordAt(src[i:], "and") || wordAt(src[i:], "or")) {
			return i
		}
	}
	return len(src)
}

func wordAt(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	if len(s) == len(word) {
		return true
	}
	c := s[len(word)]
	return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
