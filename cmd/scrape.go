package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/gridscraper/internal/extract"
	"github.com/JakeFAU/gridscraper/internal/translate"
)

func newScrapeCmd() *cobra.Command {
	var skipTranslate bool
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs the scraper once against a local Chrome",
		Long: `Extracts the latest opinion articles with a local headless Chrome,
saves their cover images, prints every article and then translates the titles
and lists the words repeated across them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			result, err := app.Scrape(cmd.Context())
			out := cmd.OutOrStdout()
			printArticles(out, result)
			if err != nil {
				return fmt.Errorf("scrape: %w", err)
			}
			if skipTranslate || len(result) == 0 {
				return nil
			}
			analysis, err := app.Analyze(cmd.Context(), result.Titles())
			if err != nil {
				return err
			}
			printAnalysis(out, analysis)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipTranslate, "skip-translate", false, "do not translate the scraped titles")
	return cmd
}

func printArticles(w io.Writer, result extract.Result) {
	if len(result) == 0 {
		_, _ = fmt.Fprintln(w, "No articles found.")
		return
	}
	for _, rec := range result {
		_, _ = fmt.Fprintf(w, "Article %d:\n", rec.Index)
		_, _ = fmt.Fprintf(w, "Title: %s\n", rec.Title)
		_, _ = fmt.Fprintf(w, "Content: %s\n", rec.Content)
		if rec.ImagePath != "" {
			_, _ = fmt.Fprintf(w, "Image: %s\n", rec.ImagePath)
		}
		_, _ = fmt.Fprintln(w)
	}
}

func printAnalysis(w io.Writer, analysis translate.Analysis) {
	_, _ = fmt.Fprintln(w, "Translated titles:")
	for i, title := range analysis.Translated {
		_, _ = fmt.Fprintf(w, "%d. %s\n", i+1, title)
	}
	sorted := analysis.Repeated.Sorted()
	if len(sorted) == 0 {
		_, _ = fmt.Fprintln(w, "No repeated words.")
		return
	}
	_, _ = fmt.Fprintln(w, "Repeated words:")
	for _, wc := range sorted {
		_, _ = fmt.Fprintf(w, "%s: %d\n", wc.Word, wc.Count)
	}
}
