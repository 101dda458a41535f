package models

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultReminderHour   = 21
	DefaultReminderMinute = 0
)

var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// ReminderConfig is the persisted daily reminder configuration.
// SoundRef is empty when the platform default sound should be used.
type ReminderConfig struct {
	Enabled          bool
	Hour             int
	Minute           int
	SoundRef         string
	VibrationEnabled bool
}

// DefaultReminderConfig returns the configuration used for every field
// that has never been stored.
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		Enabled:          true,
		Hour:             DefaultReminderHour,
		Minute:           DefaultReminderMinute,
		VibrationEnabled: true,
	}
}

// HasCustomSound reports whether a non-default sound was chosen.
func (c ReminderConfig) HasCustomSound() bool {
	return c.SoundRef != ""
}

// TimeOfDay formats the reminder time as HH:MM.
func (c ReminderConfig) TimeOfDay() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ValidateTimeOfDay checks 0 <= hour <= 23 and 0 <= minute <= 59.
func ValidateTimeOfDay(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTimeOfDay, hour, minute)
	}
	return nil
}

// ParseTimeOfDay parses "HH:MM" (24h clock).
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return t.Hour(), t.Minute(), nil
}
