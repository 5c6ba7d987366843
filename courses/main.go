package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brequin/catalog/app"
	"github.com/brequin/catalog/db"
	"github.com/brequin/catalog/harvest"
	"github.com/brequin/catalog/notify"
	"github.com/brequin/catalog/reconcile"
)

var (
	term         string
	subjects     []string
	dryRun       bool
	seats        bool
	allowPartial bool
)

var rootCmd = &cobra.Command{
	Use:   "courses",
	Short: "Scrape a term's courses and sections and reconcile them with the store",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&term, "term", "", "term code (default: newest stored term)")
	rootCmd.Flags().StringSliceVar(&subjects, "subject", nil, "only scrape these subjects")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print scraped courses instead of storing them")
	rootCmd.Flags().BoolVar(&seats, "seats", false, "fetch live seat counts for every section")
	rootCmd.Flags().BoolVar(&allowPartial, "allow-partial", false, "commit even if some subjects or courses failed (seat count failures never block a commit)")
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := app.Start(ctx, app.Options{Command: "courses", Database: true})
	if err != nil {
		return err
	}
	defer a.Close()

	report := notify.Report{}
	defer func() { a.Finish(report) }()

	report.Err = scrape(ctx, a, &report)
	return report.Err
}

func scrape(ctx context.Context, a *app.App, report *notify.Report) error {
	code, err := resolveTerm(ctx, a.DB)
	if err != nil {
		return err
	}
	report.Term = string(code)

	codes := subjects
	if len(codes) == 0 {
		stored, err := a.DB.ListTermSubjects(ctx, code)
		if err != nil {
			return err
		}
		for _, subject := range stored {
			codes = append(codes, subject.Code)
		}
	}
	if len(codes) == 0 {
		return fmt.Errorf("no subjects stored for term %s, run subjects first", code)
	}

	scraper := harvest.NewScraper(a.Banner, a.Config.Harvest.Concurrency, seats, a.Log, a.Metrics)
	h, err := scraper.Term(ctx, code, codes)
	if err != nil {
		return err
	}
	report.Scraped = len(h.Courses)
	report.Failures = len(h.Failures) + len(h.SeatFailures)
	if len(h.SeatFailures) > 0 {
		a.Log.Warn("some seat counts could not be read", zap.Int("sections", len(h.SeatFailures)), zap.Error(h.SeatFailures[0]))
	}

	if dryRun {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(h.Courses)
	}

	if err := h.Incomplete(); err != nil && !allowPartial {
		return fmt.Errorf("refusing to commit: %w", err)
	}

	reconciler := reconcile.New(reconcile.PostgresStore{DB: a.DB}, a.Config.Deletion, a.Log, a.Metrics)
	var result reconcile.Result
	if len(subjects) > 0 {
		result, err = reconciler.CommitSubjects(ctx, code, subjects, h.Courses)
	} else {
		result, err = reconciler.Commit(ctx, code, h.Courses)
	}
	if err != nil {
		return err
	}
	report.Updated = result.Created + result.Updated
	report.Deleted = result.Deleted
	return nil
}

func resolveTerm(ctx context.Context, database *db.Database) (db.Term, error) {
	if term != "" {
		return db.Term(term), nil
	}
	terms, err := database.ListTerms(ctx)
	if err != nil {
		return "", err
	}
	if len(terms) == 0 {
		return "", errors.New("no terms stored, run terms first")
	}
	return terms[0].Code, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
