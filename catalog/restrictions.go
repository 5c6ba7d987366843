package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/brequin/catalog/db"
)

var ErrMalformedClassification = errors.New("malformed classification")

type restrictionHeader struct {
	suffix string
	kind   db.RestrictionType
}

var restrictionHeaders = []restrictionHeader{
	{"Fields of Study (Major, Minor or Concentration)", db.RestrictionMajor},
	{"Classifications", db.RestrictionClass},
	{"Programs", db.RestrictionProgram},
	{"Colleges", db.RestrictionCollege},
	{"Degrees", db.RestrictionDegree},
	{"Cohorts", db.RestrictionCohort},
	{"Majors", db.RestrictionMajor},
	{"Levels", db.RestrictionLevel},
}

var (
	creditClassification = regexp.MustCompile(`^(Freshman|Sophomore|Junior|Senior):\s*(\d+)\s*(?:-\s*(\d+)?)?\s*hours$`)
	yearClassification   = regexp.MustCompile(`^Professional\s+(First|Second|Third|Fourth|Fifth|Sixth)\s+Year$`)
)

var ordinals = map[string]int{
	"First":  1,
	"Second": 2,
	"Third":  3,
	"Fourth": 4,
	"Fifth":  5,
	"Sixth":  6,
}

type restrictionState struct {
	kind      db.RestrictionType
	exclusive bool
}

// ParseRestrictions reads the lines under a "Restrictions" heading. Header
// lines pick the restriction type; indented lines below a recognized header
// each produce one restriction. Values that cannot be read are reported in
// the returned errors and left out.
func ParseRestrictions(lines []string) ([]db.Restriction, []error) {
	var restrictions []db.Restriction
	var errs []error

	var state *restrictionState
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if trimmed != strings.TrimRightFunc(line, unicode.IsSpace) {
			if state == nil {
				continue
			}
			r, err := restrictionValue(*state, trimmed)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			restrictions = append(restrictions, r)
			continue
		}

		state = restrictionHeaderState(trimmed)
	}

	return restrictions, errs
}

// ParseRestrictionText is ParseRestrictions over newline separated text.
func ParseRestrictionText(text string) ([]db.Restriction, []error) {
	return ParseRestrictions(strings.Split(text, "\n"))
}

func restrictionHeaderState(header string) *restrictionState {
	label := strings.TrimSpace(strings.TrimSuffix(header, ":"))
	for _, h := range restrictionHeaders {
		if strings.HasSuffix(label, h.suffix) {
			return &restrictionState{kind: h.kind, exclusive: strings.HasPrefix(label, "May not be")}
		}
	}
	return nil
}

func restrictionValue(state restrictionState, value string) (db.Restriction, error) {
	r := db.Restriction{Type: state.kind, Exclusive: state.exclusive}

	switch state.kind {
	case db.RestrictionLevel, db.RestrictionClass:
		if level, ok := db.ParseLevel(value); ok {
			r.Type = db.RestrictionLevel
			r.Level = &level
			return r, nil
		}
		return classification(r, value)
	case db.RestrictionMajor:
		r.Major = value
	case db.RestrictionDegree:
		r.Degree = value
	case db.RestrictionProgram:
		r.Program = value
	case db.RestrictionCollege:
		r.College = value
	case db.RestrictionCohort:
		r.Cohort = value
	}
	return r, nil
}

func classification(r db.Restriction, value string) (db.Restriction, error) {
	r.Type = db.RestrictionClass

	if m := creditClassification.FindStringSubmatch(value); m != nil {
		r.Class = m[1]
		minCredit, _ := strconv.Atoi(m[2])
		r.MinCredit = &minCredit
		if m[3] != "" {
			maxCredit, _ := strconv.Atoi(m[3])
			r.MaxCredit = &maxCredit
		}
		return r, nil
	}

	if m := yearClassification.FindStringSubmatch(value); m != nil {
		year := ordinals[m[1]]
		r.Class = "Professional"
		r.Year = &year
		return r, nil
	}

	return db.Restriction{}, fmt.Errorf("%w: %q", ErrMalformedClassification, value)
}
