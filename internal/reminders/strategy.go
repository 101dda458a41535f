package reminders

import (
	"context"

	"expensetracker/internal/alarm"
)

// Strategy is one way of registering the reminder. Strategies are tried
// in order and the first available one is used.
type Strategy struct {
	Name      string
	Precision alarm.Precision
	Available func(ctx context.Context) bool
}

// DefaultStrategies ranks precise wake-ups first and falls back to an
// idle-capable best effort one that is always available.
func DefaultStrategies(exact func(ctx context.Context) bool) []Strategy {
	return []Strategy{
		{
			Name:      "exact_alarm_clock",
			Precision: alarm.PrecisionAlarmClock,
			Available: exact,
		},
		{
			Name:      "allow_while_idle",
			Precision: alarm.PrecisionAllowWhileIdle,
			Available: func(context.Context) bool { return true },
		},
	}
}

// fallbackStrategy is used when registration is refused at call time.
var fallbackStrategy = Strategy{
	Name:      "inexact",
	Precision: alarm.PrecisionInexact,
	Available: func(context.Context) bool { return true },
}

func selectStrategy(ctx context.Context, strategies []Strategy) Strategy {
	for _, s := range strategies {
		if s.Available == nil || s.Available(ctx) {
			return s
		}
	}
	return fallbackStrategy
}
