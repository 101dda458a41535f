package reminders

import (
	"context"
	"time"

	"expensetracker/internal/events"

	"github.com/rs/zerolog"
)

// RevisionSource reports a counter that changes on every preference write.
type RevisionSource interface {
	Revision(ctx context.Context) (int64, error)
}

// WatchPreferences polls src and calls onUpdate whenever the revision
// changes. It calls onUpdate once before returning and keeps watching in
// the background until ctx is done.
func WatchPreferences(ctx context.Context, src RevisionSource, interval time.Duration, logger *zerolog.Logger, onUpdate func(context.Context)) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	last, err := src.Revision(ctx)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(ctx)
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rev, err := src.Revision(ctx)
				if err != nil {
					logger.Debug().Err(err).Msg("failed to read preferences revision")
					continue
				}
				if rev == last {
					continue
				}
				last = rev
				if onUpdate != nil {
					onUpdate(ctx)
				}
			}
		}
	}()

	return nil
}

// Reconciler brings the pending wake-up in line with stored settings
// changed by another process.
type Reconciler struct {
	prefs     ConfigStore
	scheduler *Scheduler
	perms     PermissionChecker
	logger    *zerolog.Logger
}

func NewReconciler(prefs ConfigStore, scheduler *Scheduler, perms PermissionChecker, logger *zerolog.Logger) *Reconciler {
	return &Reconciler{prefs: prefs, scheduler: scheduler, perms: perms, logger: logger}
}

// Follow reconciles on every PreferencesChanged event published on bus
// until the returned function is called. after, when set, runs once each
// reconcile has finished.
func (r *Reconciler) Follow(ctx context.Context, bus *events.EventBus, after func()) (unsubscribe func()) {
	return bus.Subscribe(events.PreferencesChanged, func(events.Event) error {
		if after != nil {
			defer after()
		}
		return r.Reconcile(ctx)
	})
}

// Reconcile cancels the reminder when disabled and re-schedules it when
// the pending wake-up no longer matches the time of day or the precision
// that is currently allowed. A reminder never scheduled because
// notifications were refused stays unscheduled.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	cfg, err := r.prefs.Get(ctx)
	if err != nil {
		return err
	}

	pending, err := r.scheduler.Pending(ctx)
	if err != nil {
		return err
	}

	if !cfg.Enabled {
		if pending != nil {
			return r.scheduler.Cancel(ctx)
		}
		return nil
	}

	if pending == nil {
		if !r.perms.CanPostNotifications(ctx) {
			return nil
		}
		_, err := r.scheduler.Schedule(ctx, cfg.Hour, cfg.Minute)
		return err
	}

	local := pending.FireAt.In(r.scheduler.Location())
	if local.Hour() == cfg.Hour && local.Minute() == cfg.Minute &&
		pending.Precision == r.scheduler.PreferredPrecision(ctx) {
		return nil
	}

	r.logger.Info().
		Str("pending_precision", string(pending.Precision)).
		Str("pending_time", local.Format("15:04")).
		Str("configured_time", cfg.TimeOfDay()).
		Msg("pending reminder out of date, re-scheduling")
	_, err = r.scheduler.Schedule(ctx, cfg.Hour, cfg.Minute)
	return err
}
