package reminders

import (
	"context"
	"time"

	"expensetracker/internal/alarm"
	"expensetracker/internal/models"
	"expensetracker/internal/notify"
)

// ConfigStore provides access to the persisted reminder configuration.
type ConfigStore interface {
	// Get returns the current configuration. Missing fields resolve to
	// their defaults.
	Get(ctx context.Context) (models.ReminderConfig, error)

	// Set persists every field at once.
	Set(ctx context.Context, cfg models.ReminderConfig) error
}

// Registrar registers one-shot wake-ups with the host.
type Registrar interface {
	Register(ctx context.Context, token string, fireAt time.Time, precision alarm.Precision) error
	Cancel(ctx context.Context, token string) error
	Pending(ctx context.Context, token string) (*alarm.Registration, error)
	CanScheduleExact(ctx context.Context) bool
}

// PermissionChecker reports and records user-grantable capabilities.
type PermissionChecker interface {
	CanPostNotifications(ctx context.Context) bool
	CanScheduleExact(ctx context.Context) bool
	Set(ctx context.Context, key string, granted bool) error
}

// Presenter shows a notification.
type Presenter interface {
	Present(ctx context.Context, n notify.Notification) error
}

// SoundResolver turns a stored sound reference into something playable.
type SoundResolver interface {
	Resolve(ref string) (notify.Sound, error)
}

// WakeLock keeps the process awake while a firing is handled.
type WakeLock interface {
	Acquire(timeout time.Duration)
	Release()
}
