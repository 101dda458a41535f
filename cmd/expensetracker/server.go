package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"expensetracker/internal/alarm"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type pinger interface {
	Check(ctx context.Context) error
}

type pendingSource interface {
	Pending(ctx context.Context) (*alarm.Registration, error)
}

type idleSwitch interface {
	SetIdle(idle bool)
	Idle() bool
}

type lockState interface {
	AnyHeld() bool
}

type opsDeps struct {
	checks   map[string]pinger
	pending  pendingSource
	idle     idleSwitch
	locks    lockState
	location *time.Location
	logger   *zerolog.Logger
}

type reminderStatus struct {
	Pending      bool       `json:"pending"`
	FireAt       *time.Time `json:"fire_at,omitempty"`
	Precision    string     `json:"precision,omitempty"`
	Idle         bool       `json:"idle"`
	WakeLockHeld bool       `json:"wake_lock_held"`
}

type redisPinger struct{ a *app }

func (p redisPinger) Check(ctx context.Context) error {
	return p.a.rdb.Ping(ctx).Err()
}

func newOpsRouter(a *app, d *alarm.Dispatcher, locks lockState) http.Handler {
	deps := &opsDeps{
		checks:   map[string]pinger{"db": a.db},
		pending:  a.scheduler,
		idle:     d,
		locks:    locks,
		location: a.scheduler.Location(),
		logger:   a.logger,
	}
	if a.rdb != nil {
		deps.checks["redis"] = redisPinger{a: a}
	}
	return deps.routes()
}

func (o *opsDeps) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", o.ready)
	r.Get("/reminder", o.reminder)
	r.Post("/idle", o.setIdle)
	return r
}

func (o *opsDeps) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	for name, check := range o.checks {
		if err := check.Check(ctx); err != nil {
			http.Error(w, name+" not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (o *opsDeps) reminder(w http.ResponseWriter, r *http.Request) {
	reg, err := o.pending.Pending(r.Context())
	if err != nil {
		o.logger.Error().Err(err).Msg("failed to read pending reminder")
		http.Error(w, "failed to read reminder", http.StatusInternalServerError)
		return
	}

	status := reminderStatus{Idle: o.idle.Idle(), WakeLockHeld: o.locks.AnyHeld()}
	if reg != nil {
		fireAt := reg.FireAt.In(o.location)
		status.Pending = true
		status.FireAt = &fireAt
		status.Precision = string(reg.Precision)
	}
	writeJSON(w, http.StatusOK, status)
}

// setIdle toggles the dispatcher's low-power state: POST /idle?on=true.
func (o *opsDeps) setIdle(w http.ResponseWriter, r *http.Request) {
	on, err := strconv.ParseBool(r.URL.Query().Get("on"))
	if err != nil {
		http.Error(w, "on must be true or false", http.StatusBadRequest)
		return
	}
	o.idle.SetIdle(on)
	o.logger.Info().Bool("idle", on).Msg("idle state changed")
	writeJSON(w, http.StatusOK, map[string]bool{"idle": on})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func startOpsServer(ctx context.Context, port int, handler http.Handler, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("ops server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
