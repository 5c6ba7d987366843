package harvest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brequin/catalog/catalog"
	"github.com/brequin/catalog/db"
	"github.com/brequin/catalog/metrics"
)

// Harvest is everything scraped for a term or one of its subjects. Failures
// holds the subjects and courses that could not be fetched; their courses are
// absent from Courses. SeatFailures holds sections whose seat counts could not
// be read; those sections are kept without counts.
type Harvest struct {
	Term         db.Term
	Courses      []*db.Course
	Failures     []error
	SeatFailures []error
}

var ErrIncomplete = errors.New("harvest: scrape incomplete")

// Incomplete reports whether any subject or course is missing from Courses.
// Seat count failures do not count: those sections are still present.
func (h *Harvest) Incomplete() error {
	if len(h.Failures) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d failures, first: %v", ErrIncomplete, len(h.Failures), h.Failures[0])
}

type Scraper struct {
	banner      *Banner
	concurrency int
	seats       bool
	log         *zap.Logger
	metrics     *metrics.Metrics
}

// NewScraper fans out at most concurrency subjects, and within each subject at
// most concurrency detail pages, at a time. With seats set, every section's
// live seat counts are fetched as well.
func NewScraper(banner *Banner, concurrency int, seats bool, log *zap.Logger, m *metrics.Metrics) *Scraper {
	return &Scraper{
		banner:      banner,
		concurrency: max(concurrency, 1),
		seats:       seats,
		log:         log,
		metrics:     m,
	}
}

// Term scrapes every listed subject. A subject that fails is recorded in
// Failures and does not stop the others.
func (s *Scraper) Term(ctx context.Context, term db.Term, subjects []string) (*Harvest, error) {
	result := &Harvest{Term: term}
	var mu sync.Mutex

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for _, subject := range subjects {
		subject := subject
		group.Go(func() error {
			h, err := s.Subject(ctx, term, subject)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.Error("subject scrape failed", zap.String("subject", subject), zap.Error(err))
				result.Failures = append(result.Failures, fmt.Errorf("subject %s: %w", subject, err))
				return nil
			}
			result.Courses = append(result.Courses, h.Courses...)
			result.Failures = append(result.Failures, h.Failures...)
			result.SeatFailures = append(result.SeatFailures, h.SeatFailures...)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Courses, func(i, j int) bool {
		a, b := result.Courses[i], result.Courses[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Course < b.Course
	})
	return result, nil
}

// Subject scrapes the catalog listing, course details and class schedule of
// one subject. The returned error is set only when the listing or schedule
// could not be read; a failed detail page is recorded in Failures.
func (s *Scraper) Subject(ctx context.Context, term db.Term, subject string) (*Harvest, error) {
	listings, err := s.banner.Catalog(ctx, term, subject)
	if err != nil {
		return nil, fmt.Errorf("catalog listing: %w", err)
	}
	scheduled, err := s.banner.Sections(ctx, term, subject)
	if err != nil {
		return nil, fmt.Errorf("class schedule: %w", err)
	}

	courses := make([]*db.Course, len(listings))
	failures := make([]error, len(listings))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for i, listing := range listings {
		i, listing := i, listing
		group.Go(func() error {
			bits, err := s.banner.Detail(groupCtx, listing)
			if err != nil {
				s.log.Warn("course detail failed",
					zap.String("subject", listing.Subject),
					zap.String("course", listing.Course),
					zap.Error(err),
				)
				failures[i] = fmt.Errorf("course %s %s: %w", listing.Subject, listing.Course, err)
				return nil
			}
			courses[i] = catalog.BuildCourse(listing.Subject, listing.Course, listing.Name, bits, s.log, s.metrics)
			return nil
		})
	}
	_ = group.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	byKey := map[db.CourseKey]*db.Course{}
	var built []*db.Course
	var failed []error
	for i, course := range courses {
		if course == nil {
			failed = append(failed, failures[i])
			continue
		}
		course.Sections[term] = []db.Section{}
		byKey[course.Key()] = course
		built = append(built, course)
	}

	for _, entry := range scheduled {
		course, ok := byKey[db.CourseKey{Subject: entry.Subject, Course: entry.Course}]
		if !ok {
			s.log.Debug("section without catalog entry",
				zap.String("subject", entry.Subject),
				zap.String("course", entry.Course),
				zap.Int("crn", entry.Section.CRN),
			)
			continue
		}
		section := entry.Section
		if entry.Title != "" && entry.Title != course.Name {
			title := entry.Title
			section.Name = &title
		}
		course.Sections[term] = append(course.Sections[term], section)
	}

	h := &Harvest{Term: term, Courses: built, Failures: failed}
	if s.seats {
		h.SeatFailures = s.fillSeats(ctx, term, built)
	}
	return h, nil
}

func (s *Scraper) fillSeats(ctx context.Context, term db.Term, courses []*db.Course) []error {
	var mu sync.Mutex
	var failed []error

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for _, course := range courses {
		sections := course.Sections[term]
		for i := range sections {
			section := &sections[i]
			group.Go(func() error {
				seats, waitlist, err := s.banner.Seats(ctx, term, section.CRN)
				if err != nil {
					s.log.Warn("seat counts failed", zap.Int("crn", section.CRN), zap.Error(err))
					mu.Lock()
					failed = append(failed, fmt.Errorf("seats for %d: %w", section.CRN, err))
					mu.Unlock()
					return nil
				}
				section.Seats, section.Waitlist = seats, waitlist
				return nil
			})
		}
	}
	_ = group.Wait()
	return failed
}
