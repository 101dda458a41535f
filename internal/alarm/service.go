package alarm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ExactChecker reports whether exact wake-ups may currently be scheduled.
type ExactChecker interface {
	CanScheduleExact(ctx context.Context) bool
}

// Service registers and cancels wake-ups. It re-checks the exact timing
// permission at registration time, so a permission revoked after the
// caller checked surfaces as ErrSecurity.
type Service struct {
	registry Registry
	perms    ExactChecker
	clock    func() time.Time
	logger   *zerolog.Logger
	onChange func()
}

func NewService(registry Registry, perms ExactChecker, logger *zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		perms:    perms,
		clock:    time.Now,
		logger:   logger,
	}
}

// OnChange installs a callback invoked after every successful register or
// cancel, used to wake an in-process dispatcher.
func (s *Service) OnChange(fn func()) {
	s.onChange = fn
}

// CanScheduleExact is a pure capability query.
func (s *Service) CanScheduleExact(ctx context.Context) bool {
	return s.perms.CanScheduleExact(ctx)
}

// Register replaces the wake-up for token with one firing at fireAt.
func (s *Service) Register(ctx context.Context, token string, fireAt time.Time, precision Precision) error {
	if !precision.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPrecision, precision)
	}
	if precision.Exact() && !s.perms.CanScheduleExact(ctx) {
		return ErrSecurity
	}

	reg := Registration{
		Token:     token,
		FireAt:    fireAt,
		Precision: precision,
		CreatedAt: s.clock(),
	}
	if err := s.registry.Put(ctx, reg); err != nil {
		return fmt.Errorf("register wake-up: %w", err)
	}

	s.logger.Debug().
		Str("token", token).
		Time("fire_at", fireAt).
		Str("precision", string(precision)).
		Msg("wake-up registered")
	s.changed()
	return nil
}

// Cancel removes the pending wake-up for token, if any.
func (s *Service) Cancel(ctx context.Context, token string) error {
	if err := s.registry.Remove(ctx, token); err != nil {
		return fmt.Errorf("cancel wake-up: %w", err)
	}
	s.logger.Debug().Str("token", token).Msg("wake-up cancelled")
	s.changed()
	return nil
}

// Pending returns the registration for token, or nil.
func (s *Service) Pending(ctx context.Context, token string) (*Registration, error) {
	return s.registry.Get(ctx, token)
}

// Reboot drops every registration, the way host timers are lost on restart.
func (s *Service) Reboot(ctx context.Context) error {
	if err := s.registry.Clear(ctx); err != nil {
		return fmt.Errorf("clear wake-ups: %w", err)
	}
	s.logger.Info().Msg("wake-up registrations cleared on start-up")
	return nil
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
