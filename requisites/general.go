package requisites

import (
	"regexp"
	"strings"

	"github.com/brequin/catalog/db"
	"github.com/brequin/catalog/expr"
)

var (
	courseOrTest     = regexp.MustCompile(`^Course\s+or\s+Test:\s*`)
	rulePrefix       = regexp.MustCompile(`^Rule:\s*([^:\s]+)\s*:`)
	studentAttribute = regexp.MustCompile(`^Student\s+Attribute:[ \t]*`)
	gpaPrefix        = regexp.MustCompile(`^GPA:?\s*(\d+(?:\.\d+)?)`)
	bareRange        = regexp.MustCompile(`^(?:([A-Za-z]+):?\s+)?(\d+(?:\.\d+)?)(?:\s+to\s+(\d+(?:\.\d+)?))?`)
	requiredCredits  = regexp.MustCompile(`^Required\s+Credits:?\s*(\d+(?:\.\d+)?)`)

	selectorRange     = regexp.MustCompile(`^([A-Z]{2,5})\s+(\d{3,5}[0-9A-Z]*)\s+to\s+(\d{3,5}[0-9A-Z]*)`)
	selectorAttribute = regexp.MustCompile(`^Attribute:?\s+([A-Za-z0-9_]+)`)
	selectorTest      = regexp.MustCompile(`^([^\n:.()]+?)\s+Minimum\s+Score\s+(?:of\s+)?([^\s()]+)`)
	selectorSubject   = regexp.MustCompile(`^([A-Z]{2,5})\b`)
	notSubject        = regexp.MustCompile(`^(?::|\s+\d)`)

	minimumCredits = regexp.MustCompile(`^\s+Minimum\s+Credits\s+(?:of\s+)?(\d+(?:\.\d+)?)`)
	concurrency    = regexp.MustCompile(`^\s*May\s+(not\s+)?be\s+taken\s+concurrently\.`)
	endOfRule      = regexp.MustCompile(`^End\s+of\s+rule\b`)
	allCourses     = regexp.MustCompile(`^0+\s+to\s+9+\b`)
)

type clause struct {
	match  func(rest string) []int
	handle func(g *generalParser, src string, pos int, m []int) (*Tree, int, error)
}

type generalParser struct{}

// clauses are tried in order; the first matcher that accepts the input wins.
// Selectors come after the keyword clauses and before bare ranges, which
// would otherwise read "CS 18000" as a range on CS.
func (g *generalParser) clauses() []clause {
	return []clause{
		{match: rulePrefix.FindStringSubmatchIndex, handle: (*generalParser).rule},
		{match: studentAttribute.FindStringIndex, handle: (*generalParser).studentAttribute},
		{match: gpaPrefix.FindStringSubmatchIndex, handle: (*generalParser).gpa},
		{match: requiredCredits.FindStringSubmatchIndex, handle: (*generalParser).credits},
		{match: selectorStart, handle: (*generalParser).selectorClause},
		{match: bareRange.FindStringSubmatchIndex, handle: (*generalParser).numericRange},
	}
}

// ParseGeneralRequirements parses free-form "General Requirements:" text made of
// selector clauses, each ended by "May [not] be taken concurrently.", grouped
// by parentheses, and/or, and "Rule: NAME: ... End of rule NAME." blocks.
func ParseGeneralRequirements(text string) (*Tree, error) {
	g := &generalParser{}
	tree, end, err := expr.Parse(text, 0, g.config())
	if err != nil {
		return nil, parseError(text, end, err)
	}
	if end = expr.SkipSpace(text, end); end < len(text) {
		return nil, parseError(text, end, ErrTrailingText)
	}
	return tree, nil
}

func (g *generalParser) config() expr.Config[db.PreReq, Op] {
	return expr.Config[db.PreReq, Op]{
		Open:      "(",
		Close:     ")",
		Operators: operators,
		Sub:       g.clause,
	}
}

func (g *generalParser) clause(src string, pos int) (*Tree, int, error) {
	pos = expr.SkipSpace(src, pos)
	for _, c := range g.clauses() {
		if m := c.match(src[pos:]); m != nil {
			return c.handle(g, src, pos, m)
		}
	}
	return nil, pos, parseError(src, pos, ErrUnrecognized)
}

func selectorStart(rest string) []int {
	if m := courseOrTest.FindStringIndex(rest); m != nil {
		return m
	}
	if _, _, ok := selector(rest, 0); ok {
		return []int{0, 0}
	}
	return nil
}

// selector reads a course range, course, attribute, test or bare subject.
func selector(src string, pos int) (db.PreReq, int, bool) {
	rest := src[pos:]
	if m := selectorRange.FindStringSubmatchIndex(rest); m != nil {
		return db.PreReq{
			Type:    db.PreReqCourseRange,
			Subject: rest[m[2]:m[3]],
			From:    rest[m[4]:m[5]],
			To:      rest[m[6]:m[7]],
		}, pos + m[1], true
	}
	if m := courseCode.FindStringSubmatchIndex(rest); m != nil {
		return db.PreReq{
			Type:    db.PreReqCourse,
			Subject: rest[m[2]:m[3]],
			Course:  rest[m[4]:m[5]],
		}, pos + m[1], true
	}
	if m := selectorAttribute.FindStringSubmatchIndex(rest); m != nil {
		return db.PreReq{Type: db.PreReqAttribute, Attribute: rest[m[2]:m[3]]}, pos + m[1], true
	}
	if m := selectorTest.FindStringSubmatchIndex(rest); m != nil {
		return db.PreReq{
			Type:     db.PreReqTest,
			Test:     strings.TrimSpace(rest[m[2]:m[3]]),
			MinScore: rest[m[4]:m[5]],
		}, pos + m[1], true
	}
	if m := selectorSubject.FindStringSubmatchIndex(rest); m != nil && !notSubject.MatchString(rest[m[1]:]) {
		return db.PreReq{Type: db.PreReqSubject, Subject: rest[m[2]:m[3]]}, pos + m[1], true
	}
	return db.PreReq{}, pos, false
}

func (g *generalParser) selectorClause(src string, pos int, m []int) (*Tree, int, error) {
	pos += m[1]
	req, pos, err := selectorWithQualifiers(src, pos)
	if err != nil {
		return nil, pos, err
	}
	return g.terminate(src, pos, req)
}

func selectorWithQualifiers(src string, pos int) (db.PreReq, int, error) {
	req, next, ok := selector(src, pos)
	if !ok {
		return db.PreReq{}, pos, parseError(src, pos, ErrUnrecognized)
	}
	pos = next

	for {
		if m := minimumCredits.FindStringSubmatchIndex(src[pos:]); m != nil {
			req.MinCredits = parseFloat(src[pos+m[2] : pos+m[3]])
			pos += m[1]
			continue
		}
		g, next, err := grade(src, pos)
		if err != nil {
			return db.PreReq{}, pos, err
		}
		if g == nil {
			return req, pos, nil
		}
		req.Grade = g
		pos = next
	}
}

// terminate consumes the concurrency marker that must close every non-rule
// clause. The last clause of a rule may leave it to follow "End of rule".
func (g *generalParser) terminate(src string, pos int, req db.PreReq) (*Tree, int, error) {
	if m := concurrency.FindStringSubmatchIndex(src[pos:]); m != nil {
		if req.SupportsConcurrent() {
			req.Concurrent = m[2] < 0
		}
		return expr.NewLeaf[db.PreReq, Op](req), pos + m[1], nil
	}
	if endOfRule.MatchString(src[expr.SkipSpace(src, pos):]) {
		return expr.NewLeaf[db.PreReq, Op](req), pos, nil
	}
	return nil, pos, parseError(src, pos, ErrMissingConcurrency)
}

// rule parses "Rule: NAME: <expressions> End of rule NAME." and joins the
// expressions with or.
func (g *generalParser) rule(src string, pos int, m []int) (*Tree, int, error) {
	start := pos
	name := src[pos+m[2] : pos+m[3]]
	end := regexp.MustCompile(`^End\s+of\s+rule\s+` + regexp.QuoteMeta(name) + `\b\s*\.?`)
	pos += m[1]

	var body *Tree
	for {
		pos = expr.SkipSpace(src, pos)
		if pos >= len(src) {
			return nil, pos, parseError(src, start, ErrUnterminatedRule)
		}
		if loc := end.FindStringIndex(src[pos:]); loc != nil {
			pos += loc[1]
			break
		}

		t, next, err := expr.Parse(src, pos, g.config())
		if err != nil {
			return nil, next, parseError(src, next, err)
		}
		if body == nil {
			body = t
		} else {
			body = expr.NewOp(Or, body, t)
		}
		pos = next
	}

	if body == nil {
		return nil, pos, parseError(src, start, ErrEmptyRule)
	}

	if loc := concurrency.FindStringSubmatchIndex(src[pos:]); loc != nil {
		if body.IsLeaf() && body.Leaf.SupportsConcurrent() {
			body.Leaf.Concurrent = loc[2] < 0
		}
		pos += loc[1]
	}
	return body, pos, nil
}

func (g *generalParser) studentAttribute(src string, pos int, m []int) (*Tree, int, error) {
	pos += m[1]
	line := src[pos:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if i := strings.Index(line, " May "); i >= 0 {
		line = line[:i]
	}

	name := strings.TrimSpace(line)
	if name == "" {
		return nil, pos, parseError(src, pos, ErrUnrecognized)
	}
	pos += strings.Index(src[pos:], name) + len(name)
	return g.terminate(src, pos, db.PreReq{Type: db.PreReqStudentAttribute, Attribute: name})
}

// gpa attaches a minimum GPA to the selector that follows it, or stands alone
// when followed by the all-courses range.
func (g *generalParser) gpa(src string, pos int, m []int) (*Tree, int, error) {
	minimum := parseFloat(src[pos+m[2] : pos+m[3]])
	pos = expr.SkipSpace(src, pos+m[1])

	if loc := allCourses.FindStringIndex(src[pos:]); loc != nil {
		return g.terminate(src, pos+loc[1], db.PreReq{Type: db.PreReqGPA, Minimum: minimum})
	}

	if loc := selectorStart(src[pos:]); loc != nil {
		req, next, err := selectorWithQualifiers(src, pos+loc[1])
		if err != nil {
			return nil, next, err
		}
		req.MinGPA = minimum
		return g.terminate(src, next, req)
	}

	return nil, pos, parseError(src, pos, ErrGPAWithoutSelector)
}

func (g *generalParser) numericRange(src string, pos int, m []int) (*Tree, int, error) {
	req := db.PreReq{Type: db.PreReqRange, Min: parseFloat(src[pos+m[4] : pos+m[5]])}
	if m[2] >= 0 {
		req.What = src[pos+m[2] : pos+m[3]]
	}
	if m[6] >= 0 {
		req.Max = parseFloat(src[pos+m[6] : pos+m[7]])
	}
	return g.terminate(src, pos+m[1], req)
}

func (g *generalParser) credits(src string, pos int, m []int) (*Tree, int, error) {
	req := db.PreReq{Type: db.PreReqCredits, Minimum: parseFloat(src[pos+m[2] : pos+m[3]])}
	return g.terminate(src, pos+m[1], req)
}
