package notify

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the log. It is used when no
// messaging transport is configured.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.logger.Info().
		Int("notification_id", n.ID).
		Str("title", n.Title).
		Str("body", n.Body).
		Str("sound", n.Sound.Ref).
		Bool("vibrate", len(n.Vibration) > 0).
		Msg("notification")
	return nil
}

// LogVibrator records vibration requests; the daemon has no motor.
type LogVibrator struct {
	logger *zerolog.Logger
}

func NewLogVibrator(logger *zerolog.Logger) *LogVibrator {
	return &LogVibrator{logger: logger}
}

func (v *LogVibrator) Vibrate(_ context.Context, pattern []time.Duration) error {
	v.logger.Debug().Interface("pattern", pattern).Msg("vibrate")
	return nil
}

// CommandPlayer plays sounds with an external command, e.g. "paplay".
// The sound path is appended as the last argument; the default sound is
// played with defaultPath. An empty command only logs.
type CommandPlayer struct {
	command     string
	defaultPath string
	logger      *zerolog.Logger
}

func NewCommandPlayer(command, defaultPath string, logger *zerolog.Logger) *CommandPlayer {
	return &CommandPlayer{command: command, defaultPath: defaultPath, logger: logger}
}

func (p *CommandPlayer) Play(ctx context.Context, s Sound) error {
	path := s.Path
	if s.IsDefault() {
		path = p.defaultPath
	}
	if p.command == "" || path == "" || path == DefaultSoundRef {
		p.logger.Debug().Str("sound", s.Ref).Msg("play sound")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if out, err := exec.CommandContext(ctx, p.command, path).CombinedOutput(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", p.command, path, err, out)
	}
	return nil
}
