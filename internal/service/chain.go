package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ncradle/GuiTimeoutSample/internal/model"
)

var ErrEmptyPlan = errors.New("plan has no stages")

// WorkFunc is the body of a stage. It is never interrupted, the stop flag is
// inspected only after it returns.
type WorkFunc func(ctx context.Context) error

// Sleep returns a WorkFunc simulating work by waiting for d.
func Sleep(d time.Duration) WorkFunc {
	return func(context.Context) error {
		time.Sleep(d)
		return nil
	}
}

type Stage struct {
	Name     string
	Duration time.Duration
	// Work defaults to Sleep(Duration)
	Work WorkFunc
}

func (s Stage) run(ctx context.Context) error {
	if s.Work == nil {
		return Sleep(s.Duration)(ctx)
	}
	return s.Work(ctx)
}

// Plan describes a run: the stages executed in order and the global deadline.
// A zero Deadline disables the alarm.
type Plan struct {
	Deadline time.Duration
	Stages   []Stage
}

func (p Plan) Validate() error {
	var errs []error
	if len(p.Stages) == 0 {
		errs = append(errs, ErrEmptyPlan)
	}
	if p.Deadline < 0 {
		errs = append(errs, fmt.Errorf("negative deadline %s", p.Deadline))
	}
	for i, s := range p.Stages {
		if s.Duration < 0 {
			errs = append(errs, fmt.Errorf("stage %d (%s): negative duration %s", i, s.Name, s.Duration))
		}
	}
	return errors.Join(errs...)
}

// Total returns the sum of the stage durations, the shortest possible run.
func (p Plan) Total() time.Duration {
	var total time.Duration
	for _, s := range p.Stages {
		total += s.Duration
	}
	return total
}

func (p Plan) clone() Plan {
	return Plan{
		Deadline: p.Deadline,
		Stages:   append([]Stage(nil), p.Stages...),
	}
}

// PlanFromConfig builds a Plan of sleeping stages.
func PlanFromConfig(cfg model.Config) Plan {
	stages := make([]Stage, 0, len(cfg.Stages))
	for _, s := range cfg.Stages {
		stages = append(stages, Stage{Name: s.Name, Duration: s.Duration})
	}
	return Plan{
		Deadline: cfg.Deadline,
		Stages:   stages,
	}
}

// StageError is a fault of a single stage. It ends the run, nothing is retried.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q failed: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// runStage executes stage i of r on a pool worker and decides what comes next
// at the checkpoint after the work returns.
func (s *Supervisor) runStage(ctx context.Context, r *run, i int) {
	stage := r.plan.Stages[i]
	defer func() {
		if p := recover(); p != nil {
			s.fail(ctx, r, &StageError{Stage: stage.Name, Err: fmt.Errorf("panic: %v", p)})
		}
	}()

	slog.DebugContext(ctx, "stage starts", "stage", stage.Name)
	if err := stage.run(ctx); err != nil {
		s.fail(ctx, r, &StageError{Stage: stage.Name, Err: err})
		return
	}

	// checkpoint
	if s.state.StopRequested() {
		slog.InfoContext(ctx, "stage is skipped", "stage", stage.Name)
		s.end(ctx, r)
		return
	}

	if next := i + 1; next < len(r.plan.Stages) {
		slog.DebugContext(ctx, "stage finished", "stage", stage.Name)
		if err := s.submit(ctx, r, next); err != nil {
			s.fail(ctx, r, &StageError{
				Stage: r.plan.Stages[next].Name,
				Err:   fmt.Errorf("submitting: %w", err),
			})
		}
		return
	}

	if s.state.Succeed(r.gen) {
		slog.InfoContext(ctx, "final stage is finished", "stage", stage.Name)
		s.notify(r, EventSucceeded)
	} else {
		slog.InfoContext(ctx, "final stage is skipped", "stage", stage.Name)
	}
	s.end(ctx, r)
}

func (s *Supervisor) submit(ctx context.Context, r *run, i int) error {
	return s.pool.Submit(func() {
		s.runStage(ctx, r, i)
	})
}
