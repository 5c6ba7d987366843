package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brequin/catalog/app"
	"github.com/brequin/catalog/db"
	"github.com/brequin/catalog/notify"
)

var term string

var rootCmd = &cobra.Command{
	Use:   "subjects",
	Short: "Scrape the subjects offered in each stored term",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&term, "term", "", "only scrape this term code")
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := app.Start(ctx, app.Options{Command: "subjects", Database: true})
	if err != nil {
		return err
	}
	defer a.Close()

	report := notify.Report{Term: term}
	defer func() { a.Finish(report) }()

	stored, err := a.DB.ListTerms(ctx)
	if err != nil {
		report.Err = err
		return err
	}
	terms, err := selectTerms(stored, term)
	if err != nil {
		report.Err = err
		return err
	}

	var mu sync.Mutex
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(a.Config.Harvest.Concurrency)
	for _, t := range terms {
		t := t
		group.Go(func() error {
			subjects, err := a.Banner.Subjects(ctx, t.Code)
			if err != nil {
				a.Log.Error("subject list failed", zap.String("term", string(t.Code)), zap.Error(err))
				mu.Lock()
				report.Failures++
				mu.Unlock()
				return nil
			}

			if err := a.DB.InsertSubjects(ctx, subjects); err != nil {
				return err
			}
			if err := a.DB.InsertTermSubjects(ctx, t.Code, subjects); err != nil {
				return err
			}

			mu.Lock()
			report.Scraped += len(subjects)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		report.Err = err
		return err
	}
	return nil
}

// selectTerms narrows the stored terms to code, or keeps them all when code is
// empty. Subjects can only be linked to a term that is already stored.
func selectTerms(stored []db.TermInfo, code string) ([]db.TermInfo, error) {
	if code == "" {
		return stored, nil
	}
	for _, t := range stored {
		if t.Code == db.Term(code) {
			return []db.TermInfo{t}, nil
		}
	}
	return nil, fmt.Errorf("term %s is not stored, run terms first", code)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
