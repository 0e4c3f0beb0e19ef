// Package metrics exports Supervisor events as prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ncradle/GuiTimeoutSample/internal/service"
)

const (
	namespace     = "watchdog"
	exportPath    = "/metrics"
	closeDuration = 3 * time.Second
)

// Recorder is a service.Notifier updating its own registry.
type Recorder struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	active   prometheus.Gauge
	duration *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Notifications sent by the supervisor.",
		}, []string{"event"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_active",
			Help:      "1 while a run is in progress.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Time from the start to the end of a run.",
			Buckets:   []float64{.5, 1, 2, 3, 4, 5, 7.5, 10, 30},
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(r.events, r.active, r.duration)
	return r
}

func (r *Recorder) Notify(e service.Event) {
	r.events.WithLabelValues(e.Kind.String()).Inc()
	switch e.Kind {
	case service.EventStarted:
		r.active.Set(1)
	case service.EventFinished:
		r.active.Set(0)
		r.duration.WithLabelValues(e.Outcome.String()).Observe(e.Elapsed.Seconds())
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exports the metrics on addr until ctx is canceled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return r.serve(ctx, ln)
}

func (r *Recorder) serve(ctx context.Context, ln net.Listener) error {
	sm := http.NewServeMux()
	sm.Handle(exportPath, r.Handler())
	srv := &http.Server{
		Handler:           sm,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.DebugContext(ctx, "serving metrics", "addr", ln.Addr().String(), "path", exportPath)
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeDuration)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutting down metrics server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
