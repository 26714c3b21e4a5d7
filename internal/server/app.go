// Package server wires configuration into the grid, local, and translation
// pipelines and owns the lifetime of the operator HTTP endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/gridscraper/internal/api"
	"github.com/JakeFAU/gridscraper/internal/browser"
	"github.com/JakeFAU/gridscraper/internal/browser/headless"
	"github.com/JakeFAU/gridscraper/internal/browser/remote"
	"github.com/JakeFAU/gridscraper/internal/clock/system"
	"github.com/JakeFAU/gridscraper/internal/config"
	"github.com/JakeFAU/gridscraper/internal/dispatcher"
	"github.com/JakeFAU/gridscraper/internal/extract"
	collyfetcher "github.com/JakeFAU/gridscraper/internal/fetcher/colly"
	"github.com/JakeFAU/gridscraper/internal/grid"
	"github.com/JakeFAU/gridscraper/internal/id/uuid"
	"github.com/JakeFAU/gridscraper/internal/runner"
	"github.com/JakeFAU/gridscraper/internal/storage/local"
	"github.com/JakeFAU/gridscraper/internal/translate"
)

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	board  *api.Board

	newRemote     func(remote.Config) (browser.Opener, error)
	newLocal      func(headless.Config) browser.Opener
	newTranslator func(config.TranslateConfig) translate.Translator
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("creating application",
		zap.Int("environments", len(cfg.Environments)),
		zap.Int("width", cfg.Dispatcher.Width),
		zap.String("hub", cfg.Grid.Hub),
		zap.String("images_dir", cfg.Images.Dir),
	)
	return &App{
		cfg:    cfg,
		logger: logger,
		board:  api.NewBoard(),
		newRemote: func(c remote.Config) (browser.Opener, error) {
			return remote.New(c)
		},
		newLocal: func(c headless.Config) browser.Opener {
			return headless.New(c)
		},
		newTranslator: func(c config.TranslateConfig) translate.Translator {
			return translate.NewGoogleClient(c.Endpoint, collyfetcher.New(collyfetcher.Config{
				UserAgent: cfg.Images.UserAgent,
				Timeout:   c.Timeout(),
			}))
		},
	}
}

// Board returns the live session board served by the HTTP endpoint.
func (a *App) Board() *api.Board {
	return a.board
}

// RunGrid runs the extractor on every configured environment against the
// remote grid. Missing credentials fail before any session is opened.
func (a *App) RunGrid(ctx context.Context) ([]runner.Report, error) {
	hub, err := a.cfg.Grid.HubURL()
	if err != nil {
		return nil, err
	}
	opener, err := a.newRemote(remote.Config{
		URL:             hub,
		PageLoadTimeout: a.cfg.Grid.PageLoadTimeout(),
		OpenRate:        a.cfg.Grid.OpenRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init remote opener: %w", err)
	}
	extractor, err := a.newExtractor()
	if err != nil {
		return nil, err
	}

	stop := a.serveHTTP(ctx)
	defer stop()

	r := runner.New(opener, extractor, system.New(), a.logger.Named("runner"))
	d := dispatcher.New(r, a.cfg.Dispatcher.Width, uuid.New(), a.logger.Named("dispatcher"))
	d.Observe(a.board)
	return d.RunAll(ctx, a.cfg.Environments), nil
}

// Scrape runs the extractor once against a local Chrome.
func (a *App) Scrape(ctx context.Context) (extract.Result, error) {
	extractor, err := a.newExtractor()
	if err != nil {
		return nil, err
	}
	opener := a.newLocal(headless.Config{
		Headless:          a.cfg.Headless.Enabled,
		UserAgent:         a.cfg.Headless.UserAgent,
		NavigationTimeout: a.cfg.Headless.NavTimeout(),
	})
	session, err := opener.Open(ctx, grid.Build(grid.Environment{SessionName: "local", Browser: "chrome"}))
	if err != nil {
		return nil, fmt.Errorf("open local browser: %w", err)
	}
	defer func() {
		if qerr := session.Quit(); qerr != nil {
			a.logger.Warn("close local browser failed", zap.Error(qerr))
		}
	}()

	result, err := extractor.Extract(ctx, session)
	if err != nil {
		return result, fmt.Errorf("extract articles: %w", err)
	}
	return result, nil
}

// Analyze translates titles into the configured target language and counts
// repeated words.
func (a *App) Analyze(ctx context.Context, titles []string) (translate.Analysis, error) {
	analyzer := translate.NewAnalyzer(
		a.newTranslator(a.cfg.Translate),
		translate.AnalyzerConfig{Source: a.cfg.Translate.Source, Threshold: a.cfg.Translate.Threshold},
		a.logger,
	)
	analysis, err := analyzer.Analyze(ctx, titles, a.cfg.Translate.Target)
	if err != nil {
		return translate.Analysis{}, fmt.Errorf("analyze titles: %w", err)
	}
	return analysis, nil
}

func (a *App) newExtractor() (*extract.Extractor, error) {
	store, err := local.New(local.Config{BaseDir: a.cfg.Images.Dir})
	if err != nil {
		return nil, fmt.Errorf("init image store: %w", err)
	}
	images := collyfetcher.NewImageFetcher(collyfetcher.New(collyfetcher.Config{
		UserAgent: a.cfg.Images.UserAgent,
		Timeout:   a.cfg.Images.Timeout(),
	}), store)
	return extract.New(extract.Config{
		HomeURL:     a.cfg.Extract.HomeURL,
		ListingURL:  a.cfg.Extract.ListingURL,
		MaxArticles: a.cfg.Extract.MaxArticles,
		Timeout:     a.cfg.Extract.Timeout(),
	}, images, a.logger.Named("extract")), nil
}

// serveHTTP starts the operator endpoint when an address is configured and
// returns a function that stops it.
func (a *App) serveHTTP(ctx context.Context) func() {
	if a.cfg.Metrics.Addr == "" {
		return func() {}
	}
	srv := api.NewServer(a.board, a.logger.Named("api"))
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(ctx, a.cfg.Metrics.Addr); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("http server error", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}
