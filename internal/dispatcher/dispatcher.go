// Package dispatcher fans grid sessions out over a fixed-size pool.
package dispatcher

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/gridscraper/internal/grid"
	"github.com/JakeFAU/gridscraper/internal/runner"
)

// DefaultWidth is the number of sessions run at once when none is configured.
const DefaultWidth = 5

// SessionRunner runs one environment to completion.
type SessionRunner interface {
	Run(ctx context.Context, env grid.Environment) runner.Report
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Observer is told when each session starts and finishes. index is the
// environment's position in the RunAll input.
type Observer interface {
	Started(index int, env grid.Environment)
	Finished(index int, report runner.Report)
}

// Dispatcher runs one SessionRunner per environment concurrently.
type Dispatcher struct {
	runner    SessionRunner
	width     int
	ids       IDGenerator
	logger    *zap.Logger
	observers []Observer
}

// New creates a Dispatcher. A width <= 0 uses DefaultWidth.
func New(r SessionRunner, width int, ids IDGenerator, logger *zap.Logger) *Dispatcher {
	if width <= 0 {
		width = DefaultWidth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		runner: r,
		width:  width,
		ids:    ids,
		logger: logger,
	}
}

// Observe registers o for session start and finish notifications. It must be
// called before RunAll.
func (d *Dispatcher) Observe(o Observer) {
	d.observers = append(d.observers, o)
}

// RunAll runs every environment and blocks until all have finished. Reports
// are returned in environment order. One session's failure never stops or
// cancels another; each task writes only its own slot.
func (d *Dispatcher) RunAll(ctx context.Context, envs []grid.Environment) []runner.Report {
	logger := d.logger.With(zap.String("run_id", d.runID()), zap.Int("sessions", len(envs)), zap.Int("width", d.width))
	logger.Info("dispatching sessions")

	reports := make([]runner.Report, len(envs))
	var g errgroup.Group
	g.SetLimit(d.width)
	for i, env := range envs {
		g.Go(func() error {
			for _, o := range d.observers {
				o.Started(i, env)
			}
			reports[i] = d.runner.Run(ctx, env)
			for _, o := range d.observers {
				o.Finished(i, reports[i])
			}
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors

	passed := 0
	for _, rep := range reports {
		if rep.Status.OK() {
			passed++
		}
	}
	logger.Info("all sessions completed", zap.Int("passed", passed), zap.Int("failed", len(reports)-passed))
	return reports
}

func (d *Dispatcher) runID() string {
	if d.ids == nil {
		return ""
	}
	id, err := d.ids.NewID()
	if err != nil {
		d.logger.Warn("generate run id failed", zap.Error(err))
		return ""
	}
	return id
}
