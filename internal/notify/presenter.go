package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Presenter shows a notification together with its sound and vibration.
// Sound and vibration failures are logged and never block the notification.
type Presenter struct {
	notifier Notifier
	player   SoundPlayer
	vibrator Vibrator
	logger   *zerolog.Logger
}

func NewPresenter(notifier Notifier, player SoundPlayer, vibrator Vibrator, logger *zerolog.Logger) *Presenter {
	return &Presenter{
		notifier: notifier,
		player:   player,
		vibrator: vibrator,
		logger:   logger,
	}
}

// Present vibrates (when a pattern is set), plays the sound falling back to
// the default one, and then posts the notification.
func (p *Presenter) Present(ctx context.Context, n Notification) error {
	if len(n.Vibration) > 0 && p.vibrator != nil {
		if err := p.vibrator.Vibrate(ctx, n.Vibration); err != nil {
			p.logger.Error().Err(err).Msg("vibration failed")
		}
	}

	if p.player != nil {
		p.playSound(ctx, n.Sound)
	}

	if err := p.notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("post notification %d: %w", n.ID, err)
	}
	return nil
}

func (p *Presenter) playSound(ctx context.Context, s Sound) {
	err := p.player.Play(ctx, s)
	if err == nil {
		return
	}
	p.logger.Error().Err(err).Str("sound", s.Ref).Msg("failed to play sound")
	if s.IsDefault() {
		return
	}
	if err := p.player.Play(ctx, Sound{}); err != nil {
		p.logger.Error().Err(err).Msg("failed to play default sound")
	}
}
