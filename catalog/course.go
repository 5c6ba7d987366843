package catalog

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brequin/catalog/db"
	"github.com/brequin/catalog/expr"
	"github.com/brequin/catalog/metrics"
	"github.com/brequin/catalog/requisites"
)

const (
	LabelAttributes   = "Course Attributes"
	LabelRestrictions = "Restrictions"
	LabelPrereqs      = "Prerequisites"
	LabelCoreqs       = "Corequisites"
	LabelGeneral      = "General Requirements"
	LabelOutcomes     = "Learning Outcomes"
)

var (
	creditHours  = regexp.MustCompile(`(?i)^\s*(.+?)\s+Credit\s+hours\s*$`)
	contactHours = regexp.MustCompile(`(?i)^\s*[\d.]+(?:\s+(?:TO|OR)\s+[\d.]+)*\s+[A-Za-z/ -]+?\s+hours\s*$`)
)

// BuildCourse assembles a course from the bits of its detail page. Text that
// fails to parse is logged and counted; requirements that fail become the
// "failed" sentinel rather than dropping the course.
func BuildCourse(subject, number, name string, bits []Bit, log *zap.Logger, m *metrics.Metrics) *db.Course {
	log = log.With(zap.String("subject", subject), zap.String("course", number))
	fields := Group(bits)

	course := &db.Course{
		Subject:     subject,
		Course:      number,
		Name:        name,
		Attributes:  attributes(fields.Text(LabelAttributes)),
		Sections:    map[db.Term][]db.Section{},
		LastUpdated: time.Now().UTC(),
	}

	var description []string
	for _, line := range fields.Preamble {
		if match := creditHours.FindStringSubmatch(line); match != nil {
			credits, err := ParseCredits(strings.TrimSpace(match[1]))
			if err != nil {
				log.Warn("unparseable credit hours", zap.String("fragment", line), zap.Error(err))
				m.ParseFailure("credits")
				continue
			}
			course.Credits = credits
			continue
		}
		if contactHours.MatchString(line) {
			continue
		}
		description = append(description, strings.TrimSpace(line))
	}
	course.Description = strings.Join(description, " ")

	for _, line := range fields.ByLabel[LabelOutcomes] {
		if line = strings.TrimSpace(line); line != "" {
			course.LearningOutcomes = append(course.LearningOutcomes, line)
		}
	}

	restrictions, errs := ParseRestrictions(fields.ByLabel[LabelRestrictions])
	for _, err := range errs {
		log.Warn("dropped restriction", zap.Error(err))
		m.ParseFailure("restriction")
	}
	course.Restrictions = restrictions

	course.Prereqs = requirements(fields, log, m)
	return course
}

func attributes(text string) []string {
	var attrs []string
	for _, attr := range strings.Split(text, ",") {
		if attr = strings.TrimSpace(attr); attr != "" {
			attrs = append(attrs, attr)
		}
	}
	return attrs
}

// requirements prefers General Requirements when present. Otherwise the
// prerequisite and corequisite trees are joined with and.
func requirements(fields Fields, log *zap.Logger, m *metrics.Metrics) db.Requirements {
	if fields.Has(LabelGeneral) {
		var lines []string
		for _, line := range fields.ByLabel[LabelGeneral] {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			return db.Requirements{}
		}

		tree, err := requisites.ParseGeneralRequirements(strings.Join(lines, "\n"))
		if err != nil {
			return failed(log, m, LabelGeneral, err)
		}
		flat := requisites.Flatten(tree)
		return db.Requirements{Tree: &flat}
	}

	var joined *requisites.Tree
	for _, part := range []struct {
		label       string
		corequisite bool
	}{
		{LabelPrereqs, false},
		{LabelCoreqs, true},
	} {
		text := fields.Text(part.label)
		if text == "" {
			continue
		}
		tree, err := requisites.ParsePrerequisites(text, part.corequisite)
		if err != nil {
			return failed(log, m, part.label, err)
		}
		if joined == nil {
			joined = tree
		} else {
			joined = expr.NewOp(requisites.And, joined, tree)
		}
	}

	if joined == nil {
		return db.Requirements{}
	}
	flat := requisites.Flatten(joined)
	return db.Requirements{Tree: &flat}
}

func failed(log *zap.Logger, m *metrics.Metrics, label string, err error) db.Requirements {
	fields := []zap.Field{zap.String("label", label), zap.Error(err)}
	var pe *requisites.ParseError
	if errors.As(err, &pe) {
		fields = append(fields, zap.String("fragment", pe.Fragment))
	}
	log.Warn("unparseable requirements", fields...)
	m.ParseFailure(strings.ToLower(strings.ReplaceAll(label, " ", "_")))
	return db.Requirements{Failed: true}
}
