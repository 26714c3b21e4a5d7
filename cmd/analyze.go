package cmd

import (
	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [title...]",
		Short: "Translates the given titles and counts repeated words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			analysis, err := app.Analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			printAnalysis(cmd.OutOrStdout(), analysis)
			return nil
		},
	}
}
