package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ncradle/GuiTimeoutSample/internal/log"
)

var ErrRunInProgress = errors.New("process is not finished")

// Pool executes the stages. Submit must not block the caller.
type Pool interface {
	Submit(task func()) error
}

// Supervisor runs at most one Plan at a time and decides how each run ends.
type Supervisor struct {
	pool     Pool
	notifier Notifier
	clock    Clock
	state    RunState

	mx      sync.Mutex
	plan    Plan
	current *run
}

// run holds everything owned by a single execution of the plan
type run struct {
	id       string
	gen      uint64
	plan     Plan
	started  time.Time
	deadline *Deadline
}

func New(plan Plan, pool Pool, notifier Notifier) *Supervisor {
	if notifier == nil {
		notifier = discard{}
	}
	return &Supervisor{
		pool:     pool,
		notifier: notifier,
		clock:    SystemClock{},
		plan:     plan.clone(),
	}
}

// WithClock replaces the clock used for deadlines and timestamps.
// This method exists for a unit testing only.
func (s *Supervisor) WithClock(clock Clock) *Supervisor {
	s.clock = clock
	return s
}

// Configure replaces the plan. A run in progress keeps the plan it was
// started with.
func (s *Supervisor) Configure(plan Plan) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	s.mx.Lock()
	s.plan = plan.clone()
	s.mx.Unlock()
	return nil
}

func (s *Supervisor) Plan() Plan {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.plan.clone()
}

func (s *Supervisor) Running() bool {
	return s.state.Running()
}

// Start begins a new run unless one is in progress, in which case it reports
// EventRejectedBusy and returns ErrRunInProgress without touching the
// running one. Start never waits for the stages.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mx.Lock()
	gen, ok := s.state.TryBegin()
	if !ok {
		s.mx.Unlock()
		slog.InfoContext(ctx, "start rejected", "reason", ErrRunInProgress)
		s.notifier.Notify(Event{Kind: EventRejectedBusy, At: s.clock.Now()})
		return ErrRunInProgress
	}
	r := &run{
		id:       uuid.NewString(),
		gen:      gen,
		plan:     s.plan.clone(),
		started:  s.clock.Now(),
		deadline: NewDeadline(s.clock),
	}
	s.current = r

	// stages outlive the caller's context, but keep its log attributes
	ctx = log.ContextAttrs(context.WithoutCancel(ctx), slog.String("run_id", r.id))
	slog.InfoContext(ctx, "process start",
		"stages", len(r.plan.Stages),
		"deadline", r.plan.Deadline.String())
	// announced under mx, so a concurrent Cancel or Start can't report before it
	s.notify(r, EventStarted)
	s.mx.Unlock()

	if len(r.plan.Stages) == 0 {
		s.fail(ctx, r, ErrEmptyPlan)
		return ErrEmptyPlan
	}

	if r.plan.Deadline > 0 {
		err := r.deadline.Arm(r.plan.Deadline, func() {
			s.stop(ctx, r, OutcomeTimedOut)
		})
		if err != nil {
			s.fail(ctx, r, err)
			return err
		}
	}

	if err := s.submit(ctx, r, 0); err != nil {
		err = fmt.Errorf("submitting first stage: %w", err)
		s.fail(ctx, r, err)
		return err
	}
	return nil
}

// Cancel requests the active run to stop. The stage in flight finishes its
// work first, so the run ends at most one stage duration later. Cancel is a
// no-op when idle and may be called repeatedly.
func (s *Supervisor) Cancel(ctx context.Context) {
	r := s.currentRun()
	if r == nil {
		slog.DebugContext(ctx, "cancel ignored: no process")
		return
	}
	ctx = log.ContextAttrs(ctx, slog.String("run_id", r.id))
	if r.deadline.Disarm() {
		slog.DebugContext(ctx, "timer is canceled")
	}
	s.stop(ctx, r, OutcomeCanceled)
}

func (s *Supervisor) currentRun() *run {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.state.Running() {
		return nil
	}
	return s.current
}

// stop is shared by the deadline and Cancel, only the first one is announced.
// The announcement is sent under mx, so end can't report run-finished before it.
func (s *Supervisor) stop(ctx context.Context, r *run, reason Outcome) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.state.RequestStop(r.gen, reason) {
		slog.DebugContext(ctx, "stop already requested", "reason", reason.String())
		return
	}
	slog.InfoContext(ctx, "stop requested", "reason", reason.String())
	s.notify(r, reason.event())
}

func (s *Supervisor) fail(ctx context.Context, r *run, err error) {
	s.state.Fail(r.gen)
	slog.ErrorContext(ctx, "process failed", "error", err)
	s.notifier.Notify(Event{Kind: EventFailed, RunID: r.id, Err: err, At: s.clock.Now()})
	s.end(ctx, r)
}

// end returns the Supervisor to idle. Calls for an already ended run are ignored.
func (s *Supervisor) end(ctx context.Context, r *run) {
	if r.deadline.Disarm() {
		slog.DebugContext(ctx, "timer is canceled")
	}

	s.mx.Lock()
	outcome, ok := s.state.End(r.gen)
	if ok && s.current == r {
		s.current = nil
	}
	s.mx.Unlock()
	if !ok {
		return
	}

	now := s.clock.Now()
	slog.InfoContext(ctx, "process end", "outcome", outcome.String())
	s.notifier.Notify(Event{
		Kind:    EventFinished,
		RunID:   r.id,
		Outcome: outcome,
		Elapsed: now.Sub(r.started),
		At:      now,
	})
}

func (s *Supervisor) notify(r *run, kind EventKind) {
	s.notifier.Notify(Event{Kind: kind, RunID: r.id, At: s.clock.Now()})
}
