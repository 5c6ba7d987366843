package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/brequin/catalog/app"
	"github.com/brequin/catalog/notify"
)

var rootCmd = &cobra.Command{
	Use:   "terms",
	Short: "Scrape the term list and store it",
	RunE:  run,
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := app.Start(ctx, app.Options{Command: "terms", Database: true})
	if err != nil {
		return err
	}
	defer a.Close()

	report := notify.Report{}
	defer func() { a.Finish(report) }()

	terms, err := a.Banner.Terms(ctx)
	if err != nil {
		report.Err = err
		return err
	}
	report.Scraped = len(terms)

	if err := a.DB.InsertTerms(ctx, terms); err != nil {
		report.Err = err
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
