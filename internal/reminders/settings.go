package reminders

import (
	"context"
	"fmt"

	"expensetracker/internal/alarm"
	"expensetracker/internal/models"
	"github.com/rs/zerolog"
)

// User-facing prompts.
const (
	NotificationPermissionDeniedMessage = "Se necesita permiso de notificaciones para los recordatorios"
	ExactTimingPromptMessage            = "Por favor, permite alarmas exactas para que los recordatorios funcionen correctamente"
)

// Outcome reports what applying reminder settings did and what the user
// should be asked next.
type Outcome struct {
	Config models.ReminderConfig
	// Scheduled is set when a wake-up was registered.
	Scheduled *Schedule
	// Cancelled is set when the reminder was switched off.
	Cancelled bool
	// NeedsNotificationPermission asks the caller to prompt for the
	// permission and report the answer via NotificationPermissionResult.
	NeedsNotificationPermission bool
	// ExactTimingAction is non-empty when the user should be sent to
	// allow exact timing. The reminder is scheduled regardless.
	ExactTimingAction string
	// Message is a user-visible note, if any.
	Message string
}

// Settings applies reminder setting changes made by the user.
type Settings struct {
	prefs     ConfigStore
	scheduler *Scheduler
	perms     PermissionChecker
	logger    *zerolog.Logger
}

func NewSettings(prefs ConfigStore, scheduler *Scheduler, perms PermissionChecker, logger *zerolog.Logger) *Settings {
	return &Settings{
		prefs:     prefs,
		scheduler: scheduler,
		perms:     perms,
		logger:    logger,
	}
}

// Apply persists enabled/hour/minute and then cancels or schedules the
// reminder. Sound and vibration settings already stored are kept.
func (s *Settings) Apply(ctx context.Context, enabled bool, hour, minute int) (Outcome, error) {
	if err := models.ValidateTimeOfDay(hour, minute); err != nil {
		return Outcome{}, err
	}

	cfg, err := s.prefs.Get(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read reminder config, starting from defaults")
		cfg = models.DefaultReminderConfig()
	}
	cfg.Enabled = enabled
	cfg.Hour = hour
	cfg.Minute = minute

	if err := s.prefs.Set(ctx, cfg); err != nil {
		return Outcome{}, fmt.Errorf("save reminder config: %w", err)
	}

	out := Outcome{Config: cfg}
	if !enabled {
		if err := s.scheduler.Cancel(ctx); err != nil {
			return out, err
		}
		out.Cancelled = true
		return out, nil
	}

	if !s.perms.CanPostNotifications(ctx) {
		out.NeedsNotificationPermission = true
		return out, nil
	}
	return s.verifyAndSchedule(ctx, out)
}

// NotificationPermissionResult completes an Apply that asked for the
// notification permission. The stored time of day is scheduled when the
// permission was granted and the reminder is still enabled.
func (s *Settings) NotificationPermissionResult(ctx context.Context, granted bool) (Outcome, error) {
	if err := s.perms.Set(ctx, alarm.PermissionPostNotifications, granted); err != nil {
		s.logger.Error().Err(err).Msg("failed to record notification permission")
	}

	cfg, err := s.prefs.Get(ctx)
	if err != nil {
		cfg = models.DefaultReminderConfig()
	}
	out := Outcome{Config: cfg}
	if !granted {
		out.Message = NotificationPermissionDeniedMessage
		return out, nil
	}
	if !cfg.Enabled {
		return out, nil
	}
	return s.verifyAndSchedule(ctx, out)
}

// UpdatePresentation stores the sound reference and vibration flag.
func (s *Settings) UpdatePresentation(ctx context.Context, soundRef string, vibration bool) (models.ReminderConfig, error) {
	cfg, err := s.prefs.Get(ctx)
	if err != nil {
		return cfg, err
	}
	cfg.SoundRef = soundRef
	cfg.VibrationEnabled = vibration
	if err := s.prefs.Set(ctx, cfg); err != nil {
		return cfg, fmt.Errorf("save reminder config: %w", err)
	}
	return cfg, nil
}

func (s *Settings) verifyAndSchedule(ctx context.Context, out Outcome) (Outcome, error) {
	if action := s.scheduler.ExactTimingSettingsAction(ctx); action != "" {
		out.ExactTimingAction = action
		out.Message = ExactTimingPromptMessage
	}

	sched, err := s.scheduler.Schedule(ctx, out.Config.Hour, out.Config.Minute)
	if err != nil {
		return out, err
	}
	out.Scheduled = &sched
	return out, nil
}
