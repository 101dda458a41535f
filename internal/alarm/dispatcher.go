package alarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler is invoked when a registration comes due.
type Handler interface {
	HandleAlarm(ctx context.Context, r Registration) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, r Registration) error

func (f HandlerFunc) HandleAlarm(ctx context.Context, r Registration) error {
	return f(ctx, r)
}

// Dispatcher fires due registrations. Exact registrations get a dedicated
// timer; the others are only looked at on the periodic tick, which is how
// the host defers inexact wake-ups. While idle, inexact registrations that
// do not bypass idle are held back.
type Dispatcher struct {
	registry Registry
	tick     time.Duration
	clock    func() time.Time
	logger   *zerolog.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	idle     bool
	running  bool
	stopCh   chan struct{}
	wakeCh   chan struct{}
}

func NewDispatcher(registry Registry, tick time.Duration, logger *zerolog.Logger) *Dispatcher {
	if tick <= 0 {
		tick = 30 * time.Second
	}
	return &Dispatcher{
		registry: registry,
		tick:     tick,
		clock:    time.Now,
		logger:   logger,
		handlers: make(map[string]Handler),
		wakeCh:   make(chan struct{}, 1),
	}
}

// Handle routes firings for token to h.
func (d *Dispatcher) Handle(token string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[token] = h
}

// SetIdle toggles the low-power state.
func (d *Dispatcher) SetIdle(idle bool) {
	d.mu.Lock()
	d.idle = idle
	d.mu.Unlock()
	d.Poke()
}

func (d *Dispatcher) Idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle
}

// Poke makes a running loop recompute its next wake time.
func (d *Dispatcher) Poke() {
	select {
	case d.wakeCh <- struct{}{}:
	default:
	}
}

// Start runs the dispatch loop until ctx is done or Stop is called. A
// stopped dispatcher can be started again.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	stopCh := make(chan struct{})
	d.stopCh = stopCh
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.stopCh == stopCh {
			d.running = false
		}
		d.mu.Unlock()
	}()

	d.logger.Info().Dur("tick", d.tick).Msg("alarm dispatcher started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("alarm dispatcher stopped by context")
			return
		case <-stopCh:
			d.logger.Info().Msg("alarm dispatcher stopped")
			return
		case <-d.wakeCh:
		case <-timer.C:
			d.RunDue(ctx)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d.nextWake(ctx))
	}
}

// Stop stops the loop.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		d.running = false
		close(d.stopCh)
	}
}

// RunDue fires every registration that is due now and returns how many
// handlers ran.
func (d *Dispatcher) RunDue(ctx context.Context) int {
	regs, err := d.registry.List(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to list wake-ups")
		return 0
	}

	now := d.clock()
	d.mu.Lock()
	idle := d.idle
	d.mu.Unlock()

	fired := 0
	for _, r := range regs {
		if r.FireAt.After(now) {
			continue
		}
		if idle && !r.Precision.FiresWhileIdle() {
			d.logger.Debug().Str("token", r.Token).Msg("wake-up deferred while idle")
			continue
		}

		taken, err := d.registry.Take(ctx, r.Token, r.FireAt)
		if err != nil {
			d.logger.Error().Err(err).Str("token", r.Token).Msg("failed to take wake-up")
			continue
		}
		if !taken {
			continue
		}

		if err := d.fire(ctx, r); err != nil {
			d.logger.Error().Err(err).Str("token", r.Token).Msg("alarm handler failed")
		}
		fired++
	}
	return fired
}

func (d *Dispatcher) fire(ctx context.Context, r Registration) (err error) {
	d.mu.Lock()
	h, ok := d.handlers[r.Token]
	d.mu.Unlock()
	if !ok {
		d.logger.Warn().Str("token", r.Token).Msg("no handler for wake-up, dropping")
		return nil
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("alarm handler panic: %v", p)
		}
	}()

	d.logger.Debug().
		Str("token", r.Token).
		Time("fire_at", r.FireAt).
		Dur("lateness", d.clock().Sub(r.FireAt)).
		Msg("firing wake-up")
	return h.HandleAlarm(ctx, r)
}

// nextWake is the earlier of the next tick and the next exact fire time.
func (d *Dispatcher) nextWake(ctx context.Context) time.Duration {
	wait := d.tick
	regs, err := d.registry.List(ctx)
	if err != nil {
		return wait
	}
	now := d.clock()
	for _, r := range regs {
		if !r.Precision.Exact() {
			continue
		}
		until := r.FireAt.Sub(now)
		if until < 0 {
			until = 0
		}
		if until < wait {
			wait = until
		}
	}
	return wait
}
