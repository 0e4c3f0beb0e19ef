// Package schedule issues periodic start commands.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gocron "github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"

	"github.com/ncradle/GuiTimeoutSample/internal/model"
)

var ErrDisabled = errors.New("both cron and every are empty")

// Starter is called on every tick. A start rejected because a run is in
// progress is a regular outcome, it is only logged.
type Starter func(ctx context.Context) error

// Scheduler wraps a gocron scheduler with a single job.
type Scheduler struct {
	s gocron.Scheduler
}

// New creates a stopped scheduler. Cron has a precedence over Every.
func New(ctx context.Context, cfg model.Schedule, start Starter) (*Scheduler, error) {
	var job gocron.JobDefinition
	switch {
	case cfg.Cron != "":
		if err := ParseCron(cfg.Cron); err != nil {
			return nil, fmt.Errorf("parsing schedule.cron: %w", err)
		}
		job = gocron.CronJob(strings.TrimSpace(cfg.Cron), false)
		slog.DebugContext(ctx, "successfully parsed", "cron", cfg.Cron)
	case cfg.Every > 0:
		job = gocron.DurationJob(cfg.Every)
		slog.DebugContext(ctx, "successfully parsed", "every", cfg.Every.String())
	default:
		return nil, ErrDisabled
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		job,
		gocron.NewTask(func() {
			if err := start(ctx); err != nil {
				slog.InfoContext(ctx, "scheduled start is skipped", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		// the scheduler has not been started yet
		_ = s.Shutdown()
		return nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	return &Scheduler{s: s}, nil
}

func (s *Scheduler) Start() {
	s.s.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.s.Shutdown()
}

// ParseCron parses a cron expression that has 5 fields or is a @ macro.
func ParseCron(expr string) error {
	e := strings.TrimSpace(expr)
	if e == "" {
		return errors.New("empty cron expression")
	}

	// macros and @every are handled by ParseStandard
	if strings.HasPrefix(e, "@") {
		_, err := cron.ParseStandard(e)
		return err
	}

	parser5 := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser5.Parse(e)
	return err
}
