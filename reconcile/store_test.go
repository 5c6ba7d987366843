package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/brequin/catalog/db"
)

// memoryStore keeps courses as JSON so a transaction works on a copy and
// nothing leaks out when it fails.
type memoryStore struct {
	mu      sync.Mutex
	courses map[db.CourseKey][]byte
	nextID  int64
	commits int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{courses: map[db.CourseKey][]byte{}}
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{courses: make(map[db.CourseKey][]byte, len(s.courses)), nextID: s.nextID}
	for k, v := range s.courses {
		tx.courses[k] = v
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.courses = tx.courses
	s.nextID = tx.nextID
	s.commits++
	return nil
}

func (s *memoryStore) put(c *db.Course) {
	tx := &memoryTx{courses: s.courses, nextID: s.nextID}
	if err := tx.PutCourse(context.Background(), c); err != nil {
		panic(err)
	}
	s.nextID = tx.nextID
}

func (s *memoryStore) get(key db.CourseKey) *db.Course {
	tx := &memoryTx{courses: s.courses}
	c, err := tx.GetCourse(context.Background(), key)
	if err != nil {
		panic(err)
	}
	return c
}

type memoryTx struct {
	courses map[db.CourseKey][]byte
	nextID  int64
}

func (t *memoryTx) CoursesForTerm(ctx context.Context, term db.Term) ([]db.CourseKey, error) {
	var keys []db.CourseKey
	for key := range t.courses {
		c, err := t.GetCourse(ctx, key)
		if err != nil {
			return nil, err
		}
		if _, ok := c.Sections[term]; ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (t *memoryTx) GetCourse(ctx context.Context, key db.CourseKey) (*db.Course, error) {
	data, ok := t.courses[key]
	if !ok {
		return nil, nil
	}
	var c db.Course
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &c, nil
}

func (t *memoryTx) PutCourse(ctx context.Context, c *db.Course) error {
	if c.ID == 0 {
		t.nextID++
		c.ID = t.nextID
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	t.courses[c.Key()] = data
	return nil
}

func (t *memoryTx) RemoveTerm(ctx context.Context, key db.CourseKey, term db.Term) error {
	c, err := t.GetCourse(ctx, key)
	if err != nil || c == nil {
		return err
	}
	delete(c.Sections, term)
	return t.PutCourse(ctx, c)
}
