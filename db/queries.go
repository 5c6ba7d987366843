package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const listTerms = `SELECT code, name FROM terms ORDER BY code DESC`
const insertTerm = `INSERT INTO terms (code, name) VALUES ($1, $2) ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name`

const listSubjects = `SELECT code, name FROM subjects ORDER BY code`
const insertSubject = `INSERT INTO subjects (code, name) VALUES ($1, $2) ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name`

const listTermSubjects = `SELECT subjects.code, subjects.name FROM term_subjects JOIN subjects ON term_subjects.subject_code = subjects.code WHERE term_code = $1 ORDER BY subjects.code`
const insertTermSubject = `INSERT INTO term_subjects (term_code, subject_code) VALUES ($1, $2) ON CONFLICT DO NOTHING`

const listTermCourses = `SELECT subject, course FROM courses WHERE data->'sections' ? $1`
const getCourse = `SELECT id, data FROM courses WHERE subject = $1 AND course = $2`
const insertCourse = `INSERT INTO courses (subject, course, data, last_updated) VALUES ($1, $2, $3, $4) RETURNING id`
const updateCourse = `UPDATE courses SET data = $2, last_updated = $3 WHERE id = $1`
const removeCourseTerm = `UPDATE courses SET data = jsonb_set(data, '{sections}', (data->'sections') - $3::text) WHERE subject = $1 AND course = $2`

func insertCallback(ct pgconn.CommandTag) error {
	return nil
}

func (d *Database) ListTerms(ctx context.Context) ([]TermInfo, error) {
	rows, err := d.Pool.Query(ctx, listTerms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []TermInfo
	for rows.Next() {
		var term TermInfo
		if err := rows.Scan(&term.Code, &term.Name); err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return terms, nil
}

func (d *Database) InsertTerms(ctx context.Context, terms []TermInfo) error {
	if len(terms) == 0 {
		return nil
	}

	batch := pgx.Batch{}
	for _, term := range terms {
		batch.Queue(insertTerm, term.Code, term.Name).Exec(insertCallback)
	}

	return d.Pool.SendBatch(ctx, &batch).Close()
}

func (d *Database) ListSubjects(ctx context.Context) ([]Subject, error) {
	return d.listSubjects(ctx, listSubjects)
}

func (d *Database) ListTermSubjects(ctx context.Context, term Term) ([]Subject, error) {
	return d.listSubjects(ctx, listTermSubjects, term)
}

func (d *Database) listSubjects(ctx context.Context, sql string, args ...any) ([]Subject, error) {
	rows, err := d.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var subject Subject
		if err := rows.Scan(&subject.Code, &subject.Name); err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return subjects, nil
}

func (d *Database) InsertSubjects(ctx context.Context, subjects []Subject) error {
	if len(subjects) == 0 {
		return nil
	}

	batch := pgx.Batch{}
	for _, subject := range subjects {
		batch.Queue(insertSubject, subject.Code, subject.Name).Exec(insertCallback)
	}

	return d.Pool.SendBatch(ctx, &batch).Close()
}

func (d *Database) InsertTermSubjects(ctx context.Context, term Term, subjects []Subject) error {
	if len(subjects) == 0 {
		return nil
	}

	batch := pgx.Batch{}
	for _, subject := range subjects {
		batch.Queue(insertTermSubject, term, subject.Code).Exec(insertCallback)
	}

	return d.Pool.SendBatch(ctx, &batch).Close()
}

// CourseTx reads and writes course snapshots inside one transaction.
type CourseTx struct {
	tx pgx.Tx
}

func NewCourseTx(tx pgx.Tx) *CourseTx {
	return &CourseTx{tx: tx}
}

func (c *CourseTx) CoursesForTerm(ctx context.Context, term Term) ([]CourseKey, error) {
	rows, err := c.tx.Query(ctx, listTermCourses, string(term))
	if err != nil {
		return nil, fmt.Errorf("list courses for term %s: %w", term, err)
	}
	defer rows.Close()

	var keys []CourseKey
	for rows.Next() {
		var key CourseKey
		if err := rows.Scan(&key.Subject, &key.Course); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// GetCourse returns nil when no snapshot exists for key.
func (c *CourseTx) GetCourse(ctx context.Context, key CourseKey) (*Course, error) {
	var id int64
	var data []byte
	err := c.tx.QueryRow(ctx, getCourse, key.Subject, key.Course).Scan(&id, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get course %s: %w", key, err)
	}

	var course Course
	if err := json.Unmarshal(data, &course); err != nil {
		return nil, fmt.Errorf("decode course %s: %w", key, err)
	}
	course.ID = id
	return &course, nil
}

func (c *CourseTx) PutCourse(ctx context.Context, course *Course) error {
	data, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("encode course %s: %w", course.Key(), err)
	}

	if course.ID == 0 {
		if err := c.tx.QueryRow(ctx, insertCourse, course.Subject, course.Course, data, course.LastUpdated).Scan(&course.ID); err != nil {
			return fmt.Errorf("insert course %s: %w", course.Key(), err)
		}
		return nil
	}

	if _, err := c.tx.Exec(ctx, updateCourse, course.ID, data, course.LastUpdated); err != nil {
		return fmt.Errorf("update course %s: %w", course.Key(), err)
	}
	return nil
}

func (c *CourseTx) RemoveTerm(ctx context.Context, key CourseKey, term Term) error {
	if _, err := c.tx.Exec(ctx, removeCourseTerm, key.Subject, key.Course, string(term)); err != nil {
		return fmt.Errorf("remove term %s from %s: %w", term, key, err)
	}
	return nil
}
