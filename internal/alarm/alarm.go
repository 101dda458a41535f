// Package alarm provides one-shot wake-up registrations keyed by an
// identity token, and a dispatcher that fires them when they come due.
package alarm

import (
	"context"
	"errors"
	"time"
)

// Precision is the timing class a wake-up was registered with.
type Precision string

const (
	// PrecisionAlarmClock is a user-visible exact wake-up that fires even
	// while the host is idle. It requires the exact timing permission.
	PrecisionAlarmClock Precision = "alarm_clock"
	// PrecisionAllowWhileIdle may be deferred by the host but still fires
	// while idle.
	PrecisionAllowWhileIdle Precision = "allow_while_idle"
	// PrecisionInexact may be deferred and is held back while idle.
	PrecisionInexact Precision = "inexact"
)

// Exact reports whether the precision needs the exact timing permission.
func (p Precision) Exact() bool {
	return p == PrecisionAlarmClock
}

// FiresWhileIdle reports whether the wake-up bypasses idle deferral.
func (p Precision) FiresWhileIdle() bool {
	return p == PrecisionAlarmClock || p == PrecisionAllowWhileIdle
}

func (p Precision) Valid() bool {
	switch p {
	case PrecisionAlarmClock, PrecisionAllowWhileIdle, PrecisionInexact:
		return true
	}
	return false
}

var (
	// ErrSecurity is returned when exact timing is requested without the
	// permission to use it.
	ErrSecurity         = errors.New("exact alarm permission denied")
	ErrInvalidPrecision = errors.New("invalid alarm precision")
)

// Registration is a pending wake-up.
type Registration struct {
	Token     string
	FireAt    time.Time
	Precision Precision
	CreatedAt time.Time
}

// Registry stores at most one registration per token.
type Registry interface {
	// Put stores r, replacing any registration with the same token.
	Put(ctx context.Context, r Registration) error

	// Remove deletes the registration for token. Missing tokens are not an error.
	Remove(ctx context.Context, token string) error

	// Get returns the registration for token, or nil if none is pending.
	Get(ctx context.Context, token string) (*Registration, error)

	// List returns all pending registrations ordered by fire time.
	List(ctx context.Context) ([]Registration, error)

	// Take removes the registration for token only if it still fires at
	// fireAt. It reports whether the caller now owns the firing.
	Take(ctx context.Context, token string, fireAt time.Time) (bool, error)

	// Clear drops every registration.
	Clear(ctx context.Context) error
}
