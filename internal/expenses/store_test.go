package expenses

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"expensetracker/internal/database"
	"expensetracker/internal/events"
	"expensetracker/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *events.EventBus) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "expenses.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := events.NewEventBus(&logger)
	return NewStore(db, bus, &logger), bus
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "stream closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream value")
	}
	var zero T
	return zero
}

func expense(amount, desc string, cat models.Category) models.Expense {
	m, _ := models.ParseMoney(amount)
	return models.Expense{Amount: m, Description: desc, Category: cat}
}

func TestStore_ObserveAllEmitsOnEveryChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store, _ := newTestStore(t)

	all := store.ObserveAll(ctx)
	assert.Empty(t, receive(t, all))

	id, err := store.Create(ctx, expense("3.50", "Café", models.CategoryFood))
	require.NoError(t, err)

	list := receive(t, all)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.False(t, list[0].CreatedAt.IsZero())

	list[0].Description = "Café con leche"
	require.NoError(t, store.Update(ctx, list[0]))
	list = receive(t, all)
	assert.Equal(t, "Café con leche", list[0].Description)

	require.NoError(t, store.Delete(ctx, list[0]))
	assert.Empty(t, receive(t, all))
}

func TestStore_ObserveTotal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store, _ := newTestStore(t)

	total := store.ObserveTotal(ctx)
	assert.Equal(t, int64(0), receive(t, total).Cents)

	_, err := store.Create(ctx, expense("10", "Bus", models.CategoryTransport))
	require.NoError(t, err)
	assert.Equal(t, "10.00", receive(t, total).String())

	_, err = store.Create(ctx, expense("0.99", "Chicle", models.CategoryFood))
	require.NoError(t, err)
	assert.Equal(t, "10.99", receive(t, total).String())
}

func TestStore_UnknownIDFails(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	e := expense("1", "x", models.CategoryOther)
	e.ID = 42
	assert.ErrorIs(t, store.Update(ctx, e), database.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, e), database.ErrNotFound)
}

func TestStore_StreamClosesAndUnsubscribesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store, bus := newTestStore(t)

	all := store.ObserveAll(ctx)
	receive(t, all)
	assert.Equal(t, 1, bus.Subscribers(events.ExpensesChanged))

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-all:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, bus.Subscribers(events.ExpensesChanged))
}
