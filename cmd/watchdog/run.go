package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ncradle/GuiTimeoutSample/internal/console"
	"github.com/ncradle/GuiTimeoutSample/internal/log"
	"github.com/ncradle/GuiTimeoutSample/internal/metrics"
	"github.com/ncradle/GuiTimeoutSample/internal/model"
	"github.com/ncradle/GuiTimeoutSample/internal/parallel"
	"github.com/ncradle/GuiTimeoutSample/internal/schedule"
	"github.com/ncradle/GuiTimeoutSample/internal/service"
)

const consoleBuffer = 32

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run reads start and cancel commands from stdin until quit",
	RunE:  doRun,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "once executes a single run, the exit status reflects its outcome",
	RunE:  doOnce,
}

func doRun(cmd *cobra.Command, args []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("watchdog",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	))

	pool := parallel.NewPool(config.Pool.Workers, config.Pool.Queue)
	defer func() {
		if err := pool.Close(); err != nil {
			slog.ErrorContext(ctx, "closing pool", "error", err)
		}
	}()

	recorder := metrics.NewRecorder()
	cons := console.New(cmd.InOrStdin(), cmd.OutOrStdout(), consoleBuffer)
	supervisor := service.New(
		service.PlanFromConfig(config),
		pool,
		service.Notifiers{recorder, cons},
	)

	if config.Schedule.Enabled() {
		scheduler, err := schedule.New(ctx, config.Schedule, supervisor.Start)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
			}
		}()
	}

	if configLoaded {
		err := model.WatchFile(ctx, configPath, func(cfg model.Config) {
			reconfigure(ctx, supervisor, cfg)
		})
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	if config.Metrics.Addr != "" {
		g.Go(func() error {
			return recorder.Serve(serveCtx, config.Metrics.Addr)
		})
	}
	g.Go(func() error {
		defer stopServing()
		err := cons.Run(gctx, supervisor)
		// stages in flight are wound down before the pool is closed
		supervisor.Cancel(ctx)
		return err
	})
	return g.Wait()
}

// reconfigure applies a changed config file, the run in progress keeps the
// plan it was started with
func reconfigure(ctx context.Context, supervisor *service.Supervisor, cfg model.Config) {
	if err := supervisor.Configure(service.PlanFromConfig(cfg)); err != nil {
		slog.WarnContext(ctx, "config change is ignored", "error", err)
		return
	}
	slog.InfoContext(ctx, "config is reloaded",
		"deadline", cfg.Deadline.String(),
		"stages", len(cfg.Stages))
}

func doOnce(cmd *cobra.Command, args []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("watchdog",
		slog.String("cmd", "once"),
		slog.Int("pid", os.Getpid()),
	))

	pool := parallel.NewPool(config.Pool.Workers, config.Pool.Queue)
	defer func() {
		_ = pool.Close()
	}()

	out := cmd.OutOrStdout()
	finished := make(chan service.Event, 1)
	labels := make(chan string, consoleBuffer)
	supervisor := service.New(
		service.PlanFromConfig(config),
		pool,
		service.NotifierFunc(func(e service.Event) {
			if text := console.Label(e); text != "" {
				select {
				case labels <- text:
				default:
				}
			}
			if e.Kind == service.EventFinished {
				finished <- e
			}
		}),
	)

	if err := supervisor.Start(ctx); err != nil {
		return err
	}

	var e service.Event
	done := ctx.Done()
	for waiting := true; waiting; {
		select {
		case text := <-labels:
			fmt.Fprintf(out, "[%s]\n", text)
		case <-done:
			// interrupted, wait for the run to stop
			supervisor.Cancel(context.WithoutCancel(ctx))
			done = nil
		case e = <-finished:
			waiting = false
		}
	}
	for len(labels) > 0 {
		fmt.Fprintf(out, "[%s]\n", <-labels)
	}

	if e.Outcome != service.OutcomeSucceeded {
		return fmt.Errorf("process %s after %s", e.Outcome, e.Elapsed)
	}
	return nil
}
