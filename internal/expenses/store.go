// Package expenses exposes expense records as create/update/delete
// operations plus live streams that re-emit after every change.
package expenses

import (
	"context"
	"time"

	"expensetracker/internal/events"
	"expensetracker/internal/metrics"
	"expensetracker/internal/models"
	"github.com/rs/zerolog"
)

// Repository is the persistence the store builds on.
type Repository interface {
	CreateExpense(ctx context.Context, e models.Expense) (int64, error)
	UpdateExpense(ctx context.Context, e models.Expense) error
	DeleteExpense(ctx context.Context, id int64) error
	ListExpenses(ctx context.Context) ([]models.Expense, error)
	TotalAmount(ctx context.Context) (models.Money, error)
	CategoryTotals(ctx context.Context) ([]models.CategoryTotal, error)
}

type Store struct {
	repo   Repository
	bus    *events.EventBus
	logger *zerolog.Logger
}

func NewStore(repo Repository, bus *events.EventBus, logger *zerolog.Logger) *Store {
	return &Store{repo: repo, bus: bus, logger: logger}
}

// Create stores e and returns its id.
func (s *Store) Create(ctx context.Context, e models.Expense) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	id, err := s.repo.CreateExpense(ctx, e)
	metrics.IncExpenseOp("create", err)
	if err != nil {
		return 0, err
	}
	s.logger.Debug().Int64("id", id).Str("amount", e.Amount.String()).Str("category", string(e.Category)).Msg("expense created")
	s.changed(id)
	return id, nil
}

// Update overwrites the record with e.ID. Unknown ids fail with
// database.ErrNotFound.
func (s *Store) Update(ctx context.Context, e models.Expense) error {
	err := s.repo.UpdateExpense(ctx, e)
	metrics.IncExpenseOp("update", err)
	if err != nil {
		return err
	}
	s.changed(e.ID)
	return nil
}

func (s *Store) Delete(ctx context.Context, e models.Expense) error {
	err := s.repo.DeleteExpense(ctx, e.ID)
	metrics.IncExpenseOp("delete", err)
	if err != nil {
		return err
	}
	s.changed(e.ID)
	return nil
}

// List returns a one-off snapshot, most recent first.
func (s *Store) List(ctx context.Context) ([]models.Expense, error) {
	return s.repo.ListExpenses(ctx)
}

func (s *Store) Total(ctx context.Context) (models.Money, error) {
	return s.repo.TotalAmount(ctx)
}

func (s *Store) CategoryTotals(ctx context.Context) ([]models.CategoryTotal, error) {
	return s.repo.CategoryTotals(ctx)
}

// ObserveAll emits the current list immediately and again after every
// change. The channel is closed when ctx is done.
func (s *Store) ObserveAll(ctx context.Context) <-chan []models.Expense {
	return observe(ctx, s, "list", s.repo.ListExpenses)
}

// ObserveTotal emits the sum of all amounts, live.
func (s *Store) ObserveTotal(ctx context.Context) <-chan models.Money {
	return observe(ctx, s, "total", s.repo.TotalAmount)
}

func (s *Store) ObserveCategoryTotals(ctx context.Context) <-chan []models.CategoryTotal {
	return observe(ctx, s, "category_totals", s.repo.CategoryTotals)
}

func (s *Store) changed(id int64) {
	s.bus.Publish(events.Event{Type: events.ExpensesChanged, EntityID: id})
}

// observe runs load once per change signal. Signals that arrive while a
// load is in flight coalesce, so a slow reader only ever sees the latest
// state. A failed load is logged and the stream keeps waiting.
func observe[T any](ctx context.Context, s *Store, name string, load func(context.Context) (T, error)) <-chan T {
	out := make(chan T)
	dirty := make(chan struct{}, 1)
	dirty <- struct{}{}

	unsubscribe := s.bus.Subscribe(events.ExpensesChanged, func(events.Event) error {
		select {
		case dirty <- struct{}{}:
		default:
		}
		return nil
	})

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case <-dirty:
			}

			v, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error().Err(err).Str("stream", name).Msg("failed to load expense snapshot")
				continue
			}

			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
