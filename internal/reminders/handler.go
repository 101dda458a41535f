package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/alarm"
	"expensetracker/internal/metrics"
	"expensetracker/internal/models"
	"expensetracker/internal/notify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	NotificationID = 1001
	WakeLockTag    = "ExpenseTracker:AlarmWakeLock"
)

var ErrNotificationsDenied = errors.New("post notifications permission not granted")

// HandlerConfig holds the fixed presentation of the reminder.
type HandlerConfig struct {
	Title           string
	Body            string
	Vibration       []time.Duration
	WakeLockTimeout time.Duration
}

// DefaultHandlerConfig returns the default reminder presentation.
func DefaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		Title:           "¿Registraste tus gastos?",
		Body:            "No olvides anotar lo que gastaste hoy",
		Vibration:       []time.Duration{0, 500 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond},
		WakeLockTimeout: 10 * time.Second,
	}
}

// Firing is what one reminder firing should do, derived from the stored
// configuration alone.
type Firing struct {
	Notification notify.Notification
	// SoundRef is the configured sound; empty means the default sound.
	SoundRef string
	Hour     int
	Minute   int
}

// PlanFiring computes the notification and the re-arm time of day for cfg.
// Re-arming is unconditional.
func PlanFiring(cfg models.ReminderConfig, hc *HandlerConfig) Firing {
	n := notify.Notification{
		ID:                NotificationID,
		Title:             hc.Title,
		Body:              hc.Body,
		Category:          "reminder",
		Priority:          notify.PriorityMax,
		TapAction:         notify.TapOpenApp,
		LockScreenVisible: true,
		FullScreen:        true,
		AutoCancel:        true,
	}
	if cfg.VibrationEnabled {
		n.Vibration = append([]time.Duration(nil), hc.Vibration...)
	}
	return Firing{
		Notification: n,
		SoundRef:     cfg.SoundRef,
		Hour:         cfg.Hour,
		Minute:       cfg.Minute,
	}
}

// AlarmHandler runs when the reminder wake-up fires: it shows the
// notification and registers the next day's wake-up.
type AlarmHandler struct {
	config    *HandlerConfig
	prefs     ConfigStore
	scheduler *Scheduler
	presenter Presenter
	sounds    SoundResolver
	perms     PermissionChecker
	newLock   func() WakeLock
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewAlarmHandler(
	config *HandlerConfig,
	prefs ConfigStore,
	scheduler *Scheduler,
	presenter Presenter,
	sounds SoundResolver,
	perms PermissionChecker,
	newLock func() WakeLock,
	logger *zerolog.Logger,
) *AlarmHandler {
	if config == nil {
		config = DefaultHandlerConfig()
	}
	if config.WakeLockTimeout <= 0 {
		config.WakeLockTimeout = 10 * time.Second
	}
	return &AlarmHandler{
		config:    config,
		prefs:     prefs,
		scheduler: scheduler,
		presenter: presenter,
		sounds:    sounds,
		perms:     perms,
		newLock:   newLock,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleAlarm implements alarm.Handler. It never fails: presentation
// errors are logged and the reminder is re-armed regardless.
func (h *AlarmHandler) HandleAlarm(ctx context.Context, r alarm.Registration) error {
	start := h.now()

	if h.newLock != nil {
		lock := h.newLock()
		lock.Acquire(h.config.WakeLockTimeout)
		defer lock.Release()
	}

	log := h.logger.With().
		Str("firing_id", uuid.NewString()).
		Str("token", r.Token).
		Time("fire_at", r.FireAt).
		Str("precision", string(r.Precision)).
		Logger()

	cfg, err := h.prefs.Get(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to read reminder config, using defaults")
		cfg = models.DefaultReminderConfig()
	}

	firing := PlanFiring(cfg, h.config)

	outcome := "notified"
	if err := h.present(ctx, firing); err != nil {
		outcome = "notify_failed"
		log.Error().Err(err).Msg("failed to present reminder notification")
	}
	metrics.IncAlarmFired(outcome)

	// The wake-up may fire late; re-arm relative to whichever is later so
	// the next firing lands on the following day.
	after := h.now()
	if r.FireAt.After(after) {
		after = r.FireAt
	}
	next, err := h.scheduler.ScheduleAfter(ctx, after, firing.Hour, firing.Minute)
	if err != nil {
		log.Error().Err(err).Msg("failed to re-arm reminder")
	} else {
		log.Info().Time("next_fire_at", next.FireAt).Str("next_precision", string(next.Precision)).Msg("reminder re-armed")
	}

	metrics.ObserveAlarmHandleDuration(h.now().Sub(start).Seconds())
	return nil
}

func (h *AlarmHandler) present(ctx context.Context, f Firing) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("notification panic: %v", rec)
		}
	}()

	if h.perms != nil && !h.perms.CanPostNotifications(ctx) {
		return ErrNotificationsDenied
	}

	n := f.Notification
	if h.sounds != nil {
		sound, err := h.sounds.Resolve(f.SoundRef)
		if err != nil {
			h.logger.Warn().Err(err).Str("sound", f.SoundRef).Msg("configured sound unavailable, using default")
			sound = notify.Sound{}
		}
		n.Sound = sound
	}

	return h.presenter.Present(ctx, n)
}
