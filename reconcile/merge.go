// Package reconcile merges freshly scraped courses into their stored
// snapshots and commits a term's worth of them at once.
package reconcile

import (
	"time"

	"github.com/brequin/catalog/db"
)

// Merge folds the sections scraped for term in fresh into prior, the stored
// snapshot or nil. Descriptive fields are taken from fresh only when no stored
// term is newer than term. Sections missing seat, waitlist or room data keep
// the values stored under the same CRN. LastUpdated moves to now only when
// the content changed, ignoring seats, waitlists and rooms.
func Merge(prior, fresh *db.Course, term db.Term, now time.Time) (*db.Course, bool) {
	if prior == nil {
		out := *fresh
		out.ID = 0
		out.Sections = map[db.Term][]db.Section{term: fresh.Sections[term]}
		out.LastUpdated = now
		return &out, true
	}

	out := *prior
	out.Sections = make(map[db.Term][]db.Section, len(prior.Sections)+1)
	for t, sections := range prior.Sections {
		out.Sections[t] = sections
	}

	if isNewest(prior, term) {
		out.Name = fresh.Name
		out.Description = fresh.Description
		out.LearningOutcomes = fresh.LearningOutcomes
		out.Credits = fresh.Credits
		out.Prereqs = fresh.Prereqs
		out.Restrictions = fresh.Restrictions
		out.Attributes = fresh.Attributes
		if len(fresh.Attachments) > 0 {
			out.Attachments = fresh.Attachments
		}
	}

	out.Sections[term] = inheritSeats(prior.Sections[term], fresh.Sections[term])
	out.Grades = mergeGrades(prior.Grades, fresh.Grades)

	changed := !Equal(contentOf(prior), contentOf(&out))
	if changed {
		out.LastUpdated = now
	}
	return &out, changed
}

func isNewest(c *db.Course, term db.Term) bool {
	for t := range c.Sections {
		if term.Before(t) {
			return false
		}
	}
	return true
}

func inheritSeats(prior, fresh []db.Section) []db.Section {
	byCRN := make(map[int]db.Section, len(prior))
	for _, s := range prior {
		byCRN[s.CRN] = s
	}

	out := make([]db.Section, len(fresh))
	for i, s := range fresh {
		if old, ok := byCRN[s.CRN]; ok {
			if s.Seats == nil {
				s.Seats = old.Seats
			}
			if s.Waitlist == nil {
				s.Waitlist = old.Waitlist
			}
			if s.Room == nil {
				s.Room = old.Room
			}
		}
		out[i] = s
	}
	return out
}

type gradeKey struct {
	instructor string
	term       db.Term
}

// mergeGrades replaces stored entries that fresh has for the same instructor
// and term, keeping the stored order and appending anything new.
func mergeGrades(prior, fresh []db.InstructorGrades) []db.InstructorGrades {
	if len(fresh) == 0 {
		return prior
	}

	replacements := make(map[gradeKey]db.InstructorGrades, len(fresh))
	for _, g := range fresh {
		replacements[gradeKey{g.Instructor, g.Term}] = g
	}

	out := make([]db.InstructorGrades, 0, len(prior)+len(fresh))
	for _, g := range prior {
		key := gradeKey{g.Instructor, g.Term}
		if r, ok := replacements[key]; ok {
			out = append(out, r)
			delete(replacements, key)
			continue
		}
		out = append(out, g)
	}
	for _, g := range fresh {
		key := gradeKey{g.Instructor, g.Term}
		if r, ok := replacements[key]; ok {
			out = append(out, r)
			delete(replacements, key)
		}
	}
	return out
}
