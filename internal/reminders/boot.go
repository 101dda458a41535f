package reminders

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Restart signals that re-arm the reminder.
const (
	BootCompleted       = "BOOT_COMPLETED"
	LockedBootCompleted = "LOCKED_BOOT_COMPLETED"
	QuickbootPoweron    = "QUICKBOOT_POWERON"
	HTCQuickbootPoweron = "HTC_QUICKBOOT_POWERON"
	AppStarted          = "APP_STARTED"
)

var bootSignals = map[string]bool{
	BootCompleted:       true,
	LockedBootCompleted: true,
	QuickbootPoweron:    true,
	HTCQuickbootPoweron: true,
	AppStarted:          true,
}

// BootHandler re-arms the reminder after a restart, since pending
// wake-ups do not survive one.
type BootHandler struct {
	prefs     ConfigStore
	scheduler *Scheduler
	logger    *zerolog.Logger
}

func NewBootHandler(prefs ConfigStore, scheduler *Scheduler, logger *zerolog.Logger) *BootHandler {
	return &BootHandler{prefs: prefs, scheduler: scheduler, logger: logger}
}

// Handle re-arms the reminder when signal is a restart signal and the
// reminder is enabled. It returns the new schedule, or nil when nothing
// was registered.
func (b *BootHandler) Handle(ctx context.Context, signal string) (*Schedule, error) {
	if !bootSignals[signal] {
		b.logger.Debug().Str("signal", signal).Msg("ignoring non-boot signal")
		return nil, nil
	}

	cfg, err := b.prefs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("read reminder config: %w", err)
	}
	if !cfg.Enabled {
		b.logger.Info().Str("signal", signal).Msg("reminder disabled, nothing to re-arm")
		return nil, nil
	}

	s, err := b.scheduler.Schedule(ctx, cfg.Hour, cfg.Minute)
	if err != nil {
		return nil, err
	}
	b.logger.Info().Str("signal", signal).Time("fire_at", s.FireAt).Msg("reminder re-armed after restart")
	return &s, nil
}
