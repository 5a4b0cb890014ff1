package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/conneroisu/assetforge/internal/config"
	builderrors "github.com/conneroisu/assetforge/internal/errors"
	"github.com/conneroisu/assetforge/internal/logging"
)

// TaskError records which leaf task produced an error.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task '%s' failed: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Hooks observe leaf task execution.
type Hooks struct {
	OnStart  func(ctx context.Context, task string)
	OnFinish func(ctx context.Context, task string, artifacts Artifacts, err error, elapsed time.Duration)
}

// Runner interprets a Node tree.
type Runner struct {
	cfg    *config.Config
	logger logging.Logger
	hooks  Hooks
	now    func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithHooks installs lifecycle hooks.
func WithHooks(h Hooks) RunnerOption {
	return func(r *Runner) {
		r.hooks = h
	}
}

// NewRunner creates a runner that hands cfg to every task it executes.
func NewRunner(cfg *config.Config, logger logging.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		cfg:    cfg,
		logger: logger.WithComponent("runner"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes n and returns its outcome. A series stops at its first
// failure; a parallel waits for every child and fails if any child failed.
func (r *Runner) Run(ctx context.Context, n Node) error {
	switch n.kind {
	case KindLeaf:
		return r.runLeaf(ctx, n.task)
	case KindSeries:
		for _, child := range n.children {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.Run(ctx, child); err != nil {
				return err
			}
		}
		return nil
	case KindParallel:
		p := pool.New().WithErrors()
		for _, child := range n.children {
			p.Go(func() error {
				return r.Run(ctx, child)
			})
		}
		return p.Wait()
	default:
		return builderrors.NewInternalError(builderrors.ErrCodeInternalError,
			fmt.Sprintf("unknown node kind %d", n.kind), nil)
	}
}

func (r *Runner) runLeaf(ctx context.Context, t Task) (err error) {
	start := r.now()
	r.logger.Info(ctx, fmt.Sprintf("Starting '%s'...", t.Name))
	if r.hooks.OnStart != nil {
		r.hooks.OnStart(ctx, t.Name)
	}

	var artifacts Artifacts
	defer func() {
		if rec := recover(); rec != nil {
			err = &TaskError{
				Task: t.Name,
				Err: builderrors.NewInternalError(builderrors.ErrCodeTaskPanic,
					fmt.Sprintf("panic: %v", rec), nil),
			}
		}

		elapsed := r.now().Sub(start)
		if err != nil {
			r.logger.Error(ctx, err, fmt.Sprintf("'%s' errored after %s", t.Name, elapsed))
		} else {
			r.logger.Info(ctx, fmt.Sprintf("Finished '%s' after %s", t.Name, elapsed),
				"artifacts", len(artifacts))
		}
		if r.hooks.OnFinish != nil {
			r.hooks.OnFinish(ctx, t.Name, artifacts, err, elapsed)
		}
	}()

	if t.Fn == nil {
		return nil
	}

	artifacts, err = t.Fn(ctx, r.cfg)
	if err != nil {
		return &TaskError{Task: t.Name, Err: err}
	}
	return nil
}
