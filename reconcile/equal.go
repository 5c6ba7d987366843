package reconcile

import (
	"encoding/json"
	"math"
	"time"

	"github.com/brequin/catalog/db"
)

const epsilon = 1e-4

// Equal compares two values by their JSON form. Numbers match within 1e-4,
// and an absent object key matches null.
func Equal(a, b any) bool {
	va, err := generic(a)
	if err != nil {
		return false
	}
	vb, err := generic(b)
	if err != nil {
		return false
	}
	return equalValues(va, vb)
}

func generic(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(data, &out)
	return out, err
}

func equalValues(a, b any) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case float64:
		b, ok := b.(float64)
		return ok && math.Abs(a-b) <= epsilon
	case string:
		b, ok := b.(string)
		return ok && a == b
	case bool:
		b, ok := b.(bool)
		return ok && a == b
	case []any:
		b, ok := b.([]any)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !equalValues(a[i], b[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		b, ok := b.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range a {
			if !equalValues(v, b[k]) {
				return false
			}
		}
		for k, v := range b {
			if _, ok := a[k]; !ok && v != nil {
				return false
			}
		}
		return true
	}
	return false
}

// contentOf drops the fields that change without the course changing:
// seat counts, waitlists, rooms, and bookkeeping.
func contentOf(c *db.Course) db.Course {
	out := *c
	out.ID = 0
	out.LastUpdated = time.Time{}
	out.Sections = make(map[db.Term][]db.Section, len(c.Sections))
	for term, sections := range c.Sections {
		stripped := make([]db.Section, len(sections))
		for i, s := range sections {
			s.Seats = nil
			s.Waitlist = nil
			s.Room = nil
			stripped[i] = s
		}
		out.Sections[term] = stripped
	}
	return out
}
