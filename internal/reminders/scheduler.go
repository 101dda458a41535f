package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/alarm"
	"expensetracker/internal/metrics"
	"expensetracker/internal/models"
	"github.com/rs/zerolog"
)

const (
	// ReminderToken identifies the single daily reminder slot.
	ReminderToken = "expense_reminder:1001"

	// ActionRequestExactAlarm asks the user to grant exact timing.
	ActionRequestExactAlarm = "request_schedule_exact_alarm"
)

// Schedule describes a registered reminder.
type Schedule struct {
	FireAt    time.Time
	Precision alarm.Precision
	Strategy  string
	// Fallback is set when the preferred strategy was refused and the
	// reminder was registered inexact instead.
	Fallback bool
}

// Scheduler keeps exactly one pending wake-up for the daily reminder.
type Scheduler struct {
	registrar  Registrar
	strategies []Strategy
	location   *time.Location
	logger     *zerolog.Logger
	now        func() time.Time
}

// NewScheduler creates a scheduler using the default strategy ranking.
func NewScheduler(registrar Registrar, location *time.Location, logger *zerolog.Logger) *Scheduler {
	if location == nil {
		location = time.Local
	}
	return &Scheduler{
		registrar:  registrar,
		strategies: DefaultStrategies(registrar.CanScheduleExact),
		location:   location,
		logger:     logger,
		now:        time.Now,
	}
}

// WithStrategies replaces the strategy ranking.
func (s *Scheduler) WithStrategies(strategies []Strategy) *Scheduler {
	s.strategies = strategies
	return s
}

// Schedule registers the reminder for the next hour:minute after now,
// replacing any pending one.
func (s *Scheduler) Schedule(ctx context.Context, hour, minute int) (Schedule, error) {
	return s.ScheduleAfter(ctx, s.now(), hour, minute)
}

// ScheduleAfter is Schedule with an explicit reference time.
func (s *Scheduler) ScheduleAfter(ctx context.Context, after time.Time, hour, minute int) (Schedule, error) {
	if err := models.ValidateTimeOfDay(hour, minute); err != nil {
		return Schedule{}, err
	}

	fireAt := NextTrigger(after, hour, minute, s.location)
	strategy := selectStrategy(ctx, s.strategies)

	log := s.logger.With().
		Str("token", ReminderToken).
		Int("hour", hour).
		Int("minute", minute).
		Time("fire_at", fireAt).
		Logger()

	err := s.registrar.Register(ctx, ReminderToken, fireAt, strategy.Precision)
	if errors.Is(err, alarm.ErrSecurity) {
		log.Warn().Err(err).Str("strategy", strategy.Name).Msg("precise registration refused, falling back to inexact")
		metrics.IncReminderFallback()

		strategy = fallbackStrategy
		err = s.registrar.Register(ctx, ReminderToken, fireAt, strategy.Precision)
		if err != nil {
			return Schedule{}, fmt.Errorf("register inexact reminder: %w", err)
		}
		metrics.IncReminderScheduled(string(strategy.Precision))
		log.Info().Str("precision", string(strategy.Precision)).Msg("reminder scheduled")
		return Schedule{FireAt: fireAt, Precision: strategy.Precision, Strategy: strategy.Name, Fallback: true}, nil
	}
	if err != nil {
		return Schedule{}, fmt.Errorf("register reminder: %w", err)
	}

	metrics.IncReminderScheduled(string(strategy.Precision))
	log.Info().Str("precision", string(strategy.Precision)).Str("strategy", strategy.Name).Msg("reminder scheduled")
	return Schedule{FireAt: fireAt, Precision: strategy.Precision, Strategy: strategy.Name}, nil
}

// Cancel removes the pending reminder, if any.
func (s *Scheduler) Cancel(ctx context.Context) error {
	if err := s.registrar.Cancel(ctx, ReminderToken); err != nil {
		return fmt.Errorf("cancel reminder: %w", err)
	}
	metrics.IncReminderCancelled()
	s.logger.Info().Str("token", ReminderToken).Msg("reminder cancelled")
	return nil
}

// Pending returns the registered reminder, or nil.
func (s *Scheduler) Pending(ctx context.Context) (*alarm.Registration, error) {
	return s.registrar.Pending(ctx, ReminderToken)
}

// CanUseExactTiming reports whether precise wake-ups are currently allowed.
func (s *Scheduler) CanUseExactTiming(ctx context.Context) bool {
	return s.registrar.CanScheduleExact(ctx)
}

// ExactTimingSettingsAction returns the action the user should be sent to
// in order to allow exact timing, or "" when it is already allowed.
func (s *Scheduler) ExactTimingSettingsAction(ctx context.Context) string {
	if s.CanUseExactTiming(ctx) {
		return ""
	}
	return ActionRequestExactAlarm
}

// PreferredPrecision is the precision a Schedule call would use right now.
func (s *Scheduler) PreferredPrecision(ctx context.Context) alarm.Precision {
	return selectStrategy(ctx, s.strategies).Precision
}

// Location is the time zone reminders are scheduled in.
func (s *Scheduler) Location() *time.Location {
	return s.location
}
