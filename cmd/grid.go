package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/gridscraper/internal/runner"
)

func newGridCmd() *cobra.Command {
	var withTranslate bool
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Runs the scraper on every configured grid environment",
		Long: `Opens one remote session per configured environment, at most
dispatcher.width at a time, extracts the latest opinion articles in each and
marks every session passed or failed on the grid. Requires
BROWSERSTACK_USERNAME and BROWSERSTACK_ACCESS_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			reports, err := app.RunGrid(cmd.Context())
			if err != nil {
				return fmt.Errorf("run grid: %w", err)
			}
			out := cmd.OutOrStdout()
			printReports(out, reports)

			if !withTranslate {
				return nil
			}
			for _, rep := range reports {
				if !rep.Status.OK() {
					continue
				}
				analysis, err := app.Analyze(cmd.Context(), rep.Result.Titles())
				if err != nil {
					return err
				}
				printAnalysis(out, analysis)
				return nil
			}
			_, _ = fmt.Fprintln(out, "No passing session to translate.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withTranslate, "translate", false, "translate titles from the first passing session")
	return cmd
}

func printReports(w io.Writer, reports []runner.Report) {
	for _, rep := range reports {
		_, _ = fmt.Fprintf(w, "%s: %s (%d articles, %s)\n",
			rep.Environment.Name(), rep.Status, len(rep.Result), rep.Duration.Round(time.Millisecond))
		if rep.Err != nil {
			_, _ = fmt.Fprintf(w, "  error: %v\n", rep.Err)
		}
	}
}
