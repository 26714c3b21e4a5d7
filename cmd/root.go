// Package cmd defines and implements the CLI commands for the gridscraper executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/gridscraper/internal/config"
	"github.com/JakeFAU/gridscraper/internal/extract"
	"github.com/JakeFAU/gridscraper/internal/logging"
	"github.com/JakeFAU/gridscraper/internal/runner"
	"github.com/JakeFAU/gridscraper/internal/server"
	"github.com/JakeFAU/gridscraper/internal/translate"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use.
type App interface {
	RunGrid(ctx context.Context) ([]runner.Report, error)
	Scrape(ctx context.Context) (extract.Result, error)
	Analyze(ctx context.Context, titles []string) (translate.Analysis, error)
}

// newApp is the application factory. Tests replace it with a fake.
var newApp = func(cfg config.Config, logger *zap.Logger) App {
	return server.NewApp(cfg, logger)
}

type rootOptions struct {
	configPath string
	logLevel   string
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var logger *zap.Logger

	cmd := &cobra.Command{
		Use:   "gridscraper",
		Short: "Scrapes El País opinion articles across a remote browser grid.",
		Long: `gridscraper drives the same article extraction through several remote
browser and device configurations in parallel, reports a pass or fail status
for each session back to the grid, and can translate the scraped titles to
find words repeated across them.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			logger, err = logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			zap.ReplaceGlobals(logger)

			ctx := context.WithValue(cmd.Context(), appKey, newApp(cfg, logger))
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(*cobra.Command, []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML, TOML or JSON)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(newGridCmd())
	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newAnalyzeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "gridscraper: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
