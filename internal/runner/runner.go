// Package runner owns the lifecycle of a single grid session.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/gridscraper/internal/browser"
	"github.com/JakeFAU/gridscraper/internal/extract"
	"github.com/JakeFAU/gridscraper/internal/grid"
	"github.com/JakeFAU/gridscraper/internal/metrics"
)

// Extractor pulls articles out of an open session.
type Extractor interface {
	Extract(ctx context.Context, s browser.Session) (extract.Result, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Report is the outcome of one session.
type Report struct {
	Environment grid.Environment
	Status      grid.Status
	Result      extract.Result
	Err         error
	Duration    time.Duration
}

// Runner opens a session for an environment, extracts, reports the status
// to the grid, and releases the session.
type Runner struct {
	opener    browser.Opener
	extractor Extractor
	clock     Clock
	logger    *zap.Logger
}

// New constructs a Runner.
func New(opener browser.Opener, extractor Extractor, clock Clock, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Runner{
		opener:    opener,
		extractor: extractor,
		clock:     clock,
		logger:    logger,
	}
}

// Run executes one session and returns exactly one status. A session that
// was opened is quit exactly once, whatever the outcome.
func (r *Runner) Run(ctx context.Context, env grid.Environment) (report Report) {
	opts := grid.Build(env)
	logger := r.logger.With(
		zap.String("session", env.Name()),
		zap.String("browser", opts.Browser.String()),
	)
	start := r.clock.Now()
	metrics.SessionStarted()

	report.Environment = env
	defer func() {
		report.Duration = r.clock.Now().Sub(start)
		metrics.SessionFinished(opts.Browser.String(), string(report.Status.State), len(report.Result), report.Duration)
	}()

	logger.Info("starting session")
	session, err := r.open(ctx, opts)
	if err != nil {
		report.Status = grid.Failed(grid.ReasonException)
		report.Err = err
		logger.Error("session failed", zap.String("status", report.Status.String()), zap.Error(err))
		return report
	}
	defer r.release(session, logger)

	report.Result, report.Err = r.extract(ctx, session)
	report.Status = classify(report.Result, report.Err)
	if report.Status.OK() {
		logger.Info("session passed", zap.Int("articles", len(report.Result)))
	} else {
		logger.Error("session failed", zap.String("status", report.Status.String()), zap.Error(report.Err))
	}
	r.reportStatus(ctx, session, report.Status, logger)
	return report
}

func classify(result extract.Result, err error) grid.Status {
	switch {
	case err != nil:
		return grid.Failed(grid.ReasonException)
	case len(result) == 0:
		return grid.Failed(grid.ReasonNoData)
	default:
		return grid.Passed(grid.ReasonCompleted)
	}
}

func (r *Runner) open(ctx context.Context, opts grid.SessionOptions) (session browser.Session, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			session, err = nil, fmt.Errorf("open session panicked: %v", rec)
		}
	}()
	session, err = r.opener.Open(ctx, opts)
	if err == nil && session == nil {
		err = errors.New("opener returned no session")
	}
	return session, err
}

func (r *Runner) extract(ctx context.Context, session browser.Session) (result extract.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("extraction panicked: %v", rec)
		}
	}()
	return r.extractor.Extract(ctx, session)
}

func (r *Runner) reportStatus(ctx context.Context, session browser.Session, status grid.Status, logger *zap.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("report session status panicked", zap.Any("panic", rec))
		}
	}()
	script, err := grid.StatusScript(status)
	if err != nil {
		logger.Warn("build status script failed", zap.Error(err))
		return
	}
	if err := session.ExecuteScript(context.WithoutCancel(ctx), script); err != nil {
		logger.Warn("report session status failed", zap.Error(err))
	}
}

func (r *Runner) release(session browser.Session, logger *zap.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("quit session panicked", zap.Any("panic", rec))
		}
	}()
	if err := session.Quit(); err != nil {
		logger.Warn("quit session failed", zap.Error(err))
	}
}
