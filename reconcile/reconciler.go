package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/brequin/catalog/config"
	"github.com/brequin/catalog/db"
	"github.com/brequin/catalog/metrics"
)

var ErrTooManyDeletions = errors.New("too many courses missing from scrape")

// Tx is the course storage visible inside one reconciliation transaction.
type Tx interface {
	CoursesForTerm(ctx context.Context, term db.Term) ([]db.CourseKey, error)
	GetCourse(ctx context.Context, key db.CourseKey) (*db.Course, error)
	PutCourse(ctx context.Context, course *db.Course) error
	RemoveTerm(ctx context.Context, key db.CourseKey, term db.Term) error
}

// Store runs fn in a transaction that commits only if fn returns nil.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Result counts what a commit did to each course.
type Result struct {
	Created   int
	Updated   int
	Unchanged int
	Deleted   int
}

type Reconciler struct {
	store        Store
	log          *zap.Logger
	metrics      *metrics.Metrics
	minThreshold int
	ratio        float64
	now          func() time.Time
}

func New(store Store, cfg config.DeletionConfig, log *zap.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		store:        store,
		log:          log,
		metrics:      m,
		minThreshold: cfg.MinThreshold,
		ratio:        cfg.Ratio,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// DeletionLimit is the most courses a term scrape may drop given how many were
// known for the term before it.
func (r *Reconciler) DeletionLimit(known int) int {
	return max(r.minThreshold, int(math.Floor(r.ratio*float64(known))))
}

// Commit merges every scraped course for term and removes term's sections
// from courses that were known for the term but not scraped again. Nothing is
// written if more courses would lose the term than DeletionLimit allows.
func (r *Reconciler) Commit(ctx context.Context, term db.Term, courses []*db.Course) (Result, error) {
	return r.commit(ctx, term, nil, courses)
}

// CommitSubjects is Commit for a scrape that covered only some subjects of
// term. Courses of other subjects are never deletion candidates.
func (r *Reconciler) CommitSubjects(ctx context.Context, term db.Term, subjects []string, courses []*db.Course) (Result, error) {
	scope := make(map[string]bool, len(subjects))
	for _, subject := range subjects {
		scope[subject] = true
	}
	return r.commit(ctx, term, scope, courses)
}

func (r *Reconciler) commit(ctx context.Context, term db.Term, scope map[string]bool, courses []*db.Course) (Result, error) {
	var result Result

	err := r.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		result = Result{}

		known, err := tx.CoursesForTerm(ctx, term)
		if err != nil {
			return fmt.Errorf("listing courses for %s: %w", term, err)
		}

		seen := make(map[db.CourseKey]bool, len(courses))
		for _, c := range courses {
			seen[c.Key()] = true
		}

		var missing []db.CourseKey
		inScope := 0
		for _, key := range known {
			if scope != nil && !scope[key.Subject] {
				continue
			}
			inScope++
			if !seen[key] {
				missing = append(missing, key)
			}
		}

		if limit := r.DeletionLimit(inScope); len(missing) > limit {
			return fmt.Errorf("%w: %d of %d courses for %s, limit %d",
				ErrTooManyDeletions, len(missing), inScope, term, limit)
		}

		now := r.now()
		for _, fresh := range courses {
			prior, err := tx.GetCourse(ctx, fresh.Key())
			if err != nil {
				return fmt.Errorf("loading %s: %w", fresh.Key(), err)
			}

			merged, changed := Merge(prior, fresh, term, now)
			if err := tx.PutCourse(ctx, merged); err != nil {
				return fmt.Errorf("saving %s: %w", fresh.Key(), err)
			}

			switch {
			case prior == nil:
				result.Created++
			case changed:
				result.Updated++
			default:
				result.Unchanged++
			}
		}

		for _, key := range missing {
			if err := tx.RemoveTerm(ctx, key, term); err != nil {
				return fmt.Errorf("removing %s from %s: %w", term, key, err)
			}
			r.log.Info("course no longer offered", zap.String("course", key.String()), zap.String("term", string(term)))
		}
		result.Deleted = len(missing)

		return nil
	})
	if err != nil {
		r.log.Error("reconciliation aborted", zap.String("term", string(term)), zap.Error(err))
		return Result{}, err
	}

	r.metrics.Reconciled("created", result.Created)
	r.metrics.Reconciled("updated", result.Updated)
	r.metrics.Reconciled("unchanged", result.Unchanged)
	r.metrics.Deleted(result.Deleted)
	r.log.Info("reconciled term",
		zap.String("term", string(term)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("deleted", result.Deleted),
	)
	return result, nil
}
