// Package notify presents user notifications: sound, vibration and the
// visual notification itself.
package notify

import (
	"context"
	"time"
)

// Priority of a notification.
type Priority int

const (
	PriorityDefault Priority = iota
	PriorityHigh
	PriorityMax
)

// TapAction is what happens when the user taps the notification.
type TapAction string

const (
	TapNone    TapAction = ""
	TapOpenApp TapAction = "open_app"
)

// Sound is a resolved notification sound.
type Sound struct {
	// Ref is the sound reference; empty for the platform default.
	Ref string
	// Path is the playable location, empty for the platform default.
	Path string
}

// IsDefault reports whether this is the platform default sound.
func (s Sound) IsDefault() bool {
	return s.Ref == ""
}

// Notification describes one notification. Notifications sharing an ID
// replace each other instead of stacking.
type Notification struct {
	ID                int
	Title             string
	Body              string
	Category          string
	Sound             Sound
	Vibration         []time.Duration
	Priority          Priority
	TapAction         TapAction
	LockScreenVisible bool
	FullScreen        bool
	AutoCancel        bool
}

// Notifier shows a notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// SoundPlayer plays a sound.
type SoundPlayer interface {
	Play(ctx context.Context, s Sound) error
}

// Vibrator runs a vibration pattern: alternating wait and vibrate durations.
type Vibrator interface {
	Vibrate(ctx context.Context, pattern []time.Duration) error
}
