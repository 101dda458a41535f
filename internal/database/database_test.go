package database

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"expensetracker/internal/alarm"
	"expensetracker/internal/config"
	"expensetracker/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "expenses.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func mustMoney(t *testing.T, s string) models.Money {
	t.Helper()
	m, err := models.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func TestExpenses_CRUD(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	created := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	id, err := db.CreateExpense(ctx, models.Expense{
		Amount:      mustMoney(t, "12.50"),
		Description: "Almuerzo",
		Category:    models.CategoryFood,
		CreatedAt:   created,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := db.GetExpense(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), got.Amount.Cents)
	assert.Equal(t, "Almuerzo", got.Description)
	assert.True(t, created.Equal(got.CreatedAt))

	got.Amount = mustMoney(t, "20")
	got.Category = models.CategoryTransport
	got.CreatedAt = time.Now()
	require.NoError(t, db.UpdateExpense(ctx, *got))

	updated, err := db.GetExpense(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), updated.Amount.Cents)
	assert.Equal(t, models.CategoryTransport, updated.Category)
	assert.True(t, created.Equal(updated.CreatedAt), "update must keep the creation time")

	require.NoError(t, db.DeleteExpense(ctx, id))
	_, err = db.GetExpense(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpenses_UnknownID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	err := db.UpdateExpense(ctx, models.Expense{ID: 99, Amount: mustMoney(t, "1"), Description: "x", Category: models.CategoryOther})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteExpense(ctx, 99), ErrNotFound)
}

func TestExpenses_RejectsInvalid(t *testing.T) {
	db := newTestDB(t)
	_, err := db.CreateExpense(context.Background(), models.Expense{Amount: models.Money{Cents: 100}, Description: "  ", Category: models.CategoryFood})
	assert.ErrorIs(t, err, models.ErrEmptyDescription)
}

func TestExpenses_ListAndTotals(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	total, err := db.TotalAmount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total.Cents)

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	inputs := []struct {
		amount string
		cat    models.Category
	}{
		{"10.00", models.CategoryFood},
		{"2.25", models.CategoryTransport},
		{"5.75", models.CategoryFood},
	}
	for i, in := range inputs {
		_, err := db.CreateExpense(ctx, models.Expense{
			Amount:      mustMoney(t, in.amount),
			Description: "item",
			Category:    in.cat,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	list, err := db.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, int64(575), list[0].Amount.Cents, "newest first")
	assert.Equal(t, int64(1000), list[2].Amount.Cents)

	total, err = db.TotalAmount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "18.00", total.String())

	totals, err := db.CategoryTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.CategoryTotal{
		{Category: models.CategoryFood, Total: models.Money{Cents: 1575}},
		{Category: models.CategoryTransport, Total: models.Money{Cents: 225}},
	}, totals)
}

func TestPreferenceStore_DefaultsOnFreshStore(t *testing.T) {
	store := NewPreferenceStore(newTestDB(t), testLogger())

	cfg, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ReminderConfig{
		Enabled:          true,
		Hour:             21,
		Minute:           0,
		SoundRef:         "",
		VibrationEnabled: true,
	}, cfg)
}

func TestPreferenceStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewPreferenceStore(newTestDB(t), testLogger())

	configs := []models.ReminderConfig{
		{Enabled: false, Hour: 7, Minute: 30, SoundRef: "bell.ogg", VibrationEnabled: false},
		{Enabled: true, Hour: 0, Minute: 59, SoundRef: "", VibrationEnabled: true},
		{Enabled: true, Hour: 23, Minute: 0, SoundRef: "file:///tmp/a.wav", VibrationEnabled: false},
	}
	for _, want := range configs {
		require.NoError(t, store.Set(ctx, want))
		got, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPreferenceStore_CorruptValuesFallBackToDefaults(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewPreferenceStore(db, testLogger())

	_, err := db.ExecContext(ctx, `INSERT INTO preferences (key, value, updated_at) VALUES
		('reminder.hour', '42', 0), ('reminder.minute', 'abc', 0), ('reminder.enabled', 'maybe', 0)`)
	require.NoError(t, err)

	cfg, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultReminderHour, cfg.Hour)
	assert.Equal(t, models.DefaultReminderMinute, cfg.Minute)
	assert.True(t, cfg.Enabled)
}

func TestPreferenceStore_FlagsAndRevision(t *testing.T) {
	ctx := context.Background()
	store := NewPreferenceStore(newTestDB(t), testLogger())

	rev0, err := store.Revision(ctx)
	require.NoError(t, err)

	v, err := store.Bool(ctx, alarm.PermissionExactAlarm, true)
	require.NoError(t, err)
	assert.True(t, v)

	require.NoError(t, store.SetBool(ctx, alarm.PermissionExactAlarm, false))
	v, err = store.Bool(ctx, alarm.PermissionExactAlarm, true)
	require.NoError(t, err)
	assert.False(t, v)

	require.NoError(t, store.Set(ctx, models.DefaultReminderConfig()))

	rev, err := store.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, rev0+2, rev)
}

func TestPreferenceStore_GetNeverMixesWrites(t *testing.T) {
	ctx := context.Background()
	store := NewPreferenceStore(newTestDB(t), testLogger())

	a := models.ReminderConfig{Enabled: true, Hour: 7, Minute: 7, VibrationEnabled: true}
	b := models.ReminderConfig{Enabled: false, Hour: 8, Minute: 8, VibrationEnabled: false}
	require.NoError(t, store.Set(ctx, a))

	done := make(chan struct{})
	writerErr := make(chan error, 1)
	go func() {
		defer close(writerErr)
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			cfg := a
			if i%2 == 1 {
				cfg = b
			}
			if err := store.Set(ctx, cfg); err != nil {
				writerErr <- err
				return
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		got, err := store.Get(ctx)
		require.NoError(t, err)
		if got != a && got != b {
			close(done)
			t.Fatalf("read a config that was never written: %+v", got)
		}
	}
	close(done)
	require.NoError(t, <-writerErr)
}

func TestAlarmRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewAlarmRegistry(newTestDB(t))

	fireAt := time.Date(2024, 5, 1, 21, 0, 0, 0, time.UTC)
	require.NoError(t, reg.Put(ctx, alarm.Registration{Token: "r", FireAt: fireAt, Precision: alarm.PrecisionAlarmClock}))
	require.NoError(t, reg.Put(ctx, alarm.Registration{Token: "r", FireAt: fireAt, Precision: alarm.PrecisionAlarmClock}))

	list, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, fireAt.Equal(list[0].FireAt))
	assert.Equal(t, alarm.PrecisionAlarmClock, list[0].Precision)

	ok, err := reg.Take(ctx, "r", fireAt.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "stale fire time must not take the registration")

	ok, err = reg.Take(ctx, "r", fireAt)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := reg.Get(ctx, "r")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, reg.Put(ctx, alarm.Registration{Token: "a", FireAt: fireAt, Precision: alarm.PrecisionInexact}))
	require.NoError(t, reg.Remove(ctx, "missing"))
	require.NoError(t, reg.Clear(ctx))
	list, err = reg.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBackupService(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	dir := t.TempDir()

	svc := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: dir, RetentionDays: 7}, testLogger())
	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)

	old := filepath.Join(dir, "expenses_20000101_000000.db")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o600))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	assert.Equal(t, 1, svc.CleanupOldBackups())
	assert.NoFileExists(t, old)
	assert.FileExists(t, path)
}
