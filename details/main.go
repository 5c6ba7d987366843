package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/brequin/catalog/app"
	"github.com/brequin/catalog/db"
	"github.com/brequin/catalog/harvest"
)

var (
	term    string
	subject string
	course  string
	seats   bool
)

var rootCmd = &cobra.Command{
	Use:   "details",
	Short: "Scrape one subject, or one course, and print it as JSON without storing it",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&term, "term", "", "term code")
	rootCmd.Flags().StringVar(&subject, "subject", "", "subject code")
	rootCmd.Flags().StringVar(&course, "course", "", "only print this course number")
	rootCmd.Flags().BoolVar(&seats, "seats", false, "fetch live seat counts")
	_ = rootCmd.MarkFlagRequired("term")
	_ = rootCmd.MarkFlagRequired("subject")
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := app.Start(ctx, app.Options{Command: "details"})
	if err != nil {
		return err
	}
	defer a.Close()

	scraper := harvest.NewScraper(a.Banner, a.Config.Harvest.Concurrency, seats, a.Log, a.Metrics)
	h, err := scraper.Subject(ctx, db.Term(term), subject)
	if err != nil {
		return err
	}
	for _, failure := range append(h.Failures, h.SeatFailures...) {
		fmt.Fprintln(os.Stderr, failure)
	}
	courses := h.Courses

	if course != "" {
		var matched []*db.Course
		for _, c := range courses {
			if c.Course == course {
				matched = append(matched, c)
			}
		}
		if len(matched) == 0 {
			return fmt.Errorf("%s %s not found in term %s", subject, course, term)
		}
		courses = matched
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(courses)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
