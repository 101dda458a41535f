package alarm

import (
	"context"

	"github.com/rs/zerolog"
)

// Permission keys as stored in the preference store.
const (
	PermissionExactAlarm        = "permission.schedule_exact_alarm"
	PermissionPostNotifications = "permission.post_notifications"
)

// FlagStore persists boolean flags.
type FlagStore interface {
	Bool(ctx context.Context, key string, def bool) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
}

// Permissions exposes the two user-grantable capabilities consumed by the
// reminder: posting notifications and scheduling exact wake-ups.
// Both default to granted; a read failure is treated as denied.
type Permissions struct {
	store  FlagStore
	logger *zerolog.Logger
}

func NewPermissions(store FlagStore, logger *zerolog.Logger) *Permissions {
	return &Permissions{store: store, logger: logger}
}

func (p *Permissions) CanScheduleExact(ctx context.Context) bool {
	return p.check(ctx, PermissionExactAlarm)
}

func (p *Permissions) CanPostNotifications(ctx context.Context) bool {
	return p.check(ctx, PermissionPostNotifications)
}

// Set grants or revokes a permission by key.
func (p *Permissions) Set(ctx context.Context, key string, granted bool) error {
	return p.store.SetBool(ctx, key, granted)
}

func (p *Permissions) check(ctx context.Context, key string) bool {
	granted, err := p.store.Bool(ctx, key, true)
	if err != nil {
		p.logger.Warn().Err(err).Str("permission", key).Msg("permission lookup failed, treating as denied")
		return false
	}
	return granted
}
