// Package viewmodel holds the screen state of the expense tracker and
// turns user intents into store and reminder operations.
package viewmodel

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"expensetracker/internal/models"
	"expensetracker/internal/reminders"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var amountPattern = regexp.MustCompile(`^\d*\.?\d*$`)

// ExpenseStore is the expense persistence the view-model drives.
type ExpenseStore interface {
	Create(ctx context.Context, e models.Expense) (int64, error)
	Update(ctx context.Context, e models.Expense) error
	Delete(ctx context.Context, e models.Expense) error
	ObserveAll(ctx context.Context) <-chan []models.Expense
	ObserveTotal(ctx context.Context) <-chan models.Money
	ObserveCategoryTotals(ctx context.Context) <-chan []models.CategoryTotal
}

// ReminderSettings applies reminder changes.
type ReminderSettings interface {
	Apply(ctx context.Context, enabled bool, hour, minute int) (reminders.Outcome, error)
	NotificationPermissionResult(ctx context.Context, granted bool) (reminders.Outcome, error)
}

type ExpenseViewModel struct {
	store    ExpenseStore
	settings ReminderSettings
	logger   *zerolog.Logger

	mu       sync.RWMutex
	state    State
	onChange func(State)

	ctx     context.Context
	cancel  context.CancelFunc
	streams *errgroup.Group
	jobs    errgroup.Group
	writeMu sync.Mutex
}

// NewExpenseViewModel creates a view-model whose reminder state starts
// from the stored configuration.
func NewExpenseViewModel(store ExpenseStore, settings ReminderSettings, reminder models.ReminderConfig, logger *zerolog.Logger) *ExpenseViewModel {
	return &ExpenseViewModel{
		store:    store,
		settings: settings,
		logger:   logger,
		state: State{
			Form:       FormState{Category: models.DefaultCategory},
			Edit:       defaultEditState(),
			Reminder:   ReminderState{Enabled: reminder.Enabled, Hour: reminder.Hour, Minute: reminder.Minute},
			Categories: append([]models.Category(nil), models.Categories...),
		},
	}
}

// OnChange installs a listener called with a snapshot after every state
// change. It runs on the goroutine that made the change.
func (vm *ExpenseViewModel) OnChange(fn func(State)) {
	vm.mu.Lock()
	vm.onChange = fn
	vm.mu.Unlock()
}

// Start begins collecting the expense streams. Everything started here
// and every pending intent is cancelled by Close.
func (vm *ExpenseViewModel) Start(ctx context.Context) {
	vm.ctx, vm.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(vm.ctx)
	vm.streams = g

	g.Go(func() error {
		for list := range vm.store.ObserveAll(gctx) {
			vm.update(func(s *State) { s.Expenses = list })
		}
		return nil
	})
	g.Go(func() error {
		for total := range vm.store.ObserveTotal(gctx) {
			vm.update(func(s *State) { s.Total = total })
		}
		return nil
	})
	g.Go(func() error {
		for totals := range vm.store.ObserveCategoryTotals(gctx) {
			vm.update(func(s *State) { s.CategoryTotals = totals })
		}
		return nil
	})
}

// Flush waits for every launched intent to finish.
func (vm *ExpenseViewModel) Flush() {
	_ = vm.jobs.Wait()
}

// Close cancels in-flight work and stops the streams. Writes that have not
// committed yet may be abandoned.
func (vm *ExpenseViewModel) Close() {
	if vm.cancel != nil {
		vm.cancel()
	}
	_ = vm.jobs.Wait()
	if vm.streams != nil {
		_ = vm.streams.Wait()
	}
}

// State returns a snapshot of the current state.
func (vm *ExpenseViewModel) State() State {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.state.clone()
}

// SetAmount accepts only digits with at most one decimal point; other
// input leaves the field unchanged.
func (vm *ExpenseViewModel) SetAmount(v string) bool {
	if !amountPattern.MatchString(v) {
		return false
	}
	vm.update(func(s *State) { s.Form.Amount = v })
	return true
}

func (vm *ExpenseViewModel) SetDescription(v string) {
	vm.update(func(s *State) { s.Form.Description = v })
}

func (vm *ExpenseViewModel) SelectCategory(c models.Category) bool {
	if !c.Valid() {
		return false
	}
	vm.update(func(s *State) { s.Form.Category = c })
	return true
}

// SetReminderEnabled and SetReminderTime only change what is shown;
// ChangeReminder applies.
func (vm *ExpenseViewModel) SetReminderEnabled(enabled bool) {
	vm.update(func(s *State) { s.Reminder.Enabled = enabled })
}

func (vm *ExpenseViewModel) SetReminderTime(hour, minute int) bool {
	if models.ValidateTimeOfDay(hour, minute) != nil {
		return false
	}
	vm.update(func(s *State) {
		s.Reminder.Hour = hour
		s.Reminder.Minute = minute
	})
	return true
}

// SaveExpense validates the form and, when valid, stores the expense in
// the background and then clears amount and description unless they were
// edited in the meantime. It reports whether
// the save was launched.
func (vm *ExpenseViewModel) SaveExpense() bool {
	form := vm.State().Form

	amount, err := models.ParseMoney(form.Amount)
	if err != nil {
		return false
	}
	desc := strings.TrimSpace(form.Description)
	if desc == "" {
		return false
	}

	e := models.Expense{Amount: amount, Description: desc, Category: form.Category}
	vm.launch("create", func(ctx context.Context) error {
		if _, err := vm.store.Create(ctx, e); err != nil {
			return err
		}
		// Keep whatever was typed while the write was in flight.
		vm.update(func(s *State) {
			if s.Form.Amount == form.Amount {
				s.Form.Amount = ""
			}
			if s.Form.Description == form.Description {
				s.Form.Description = ""
			}
		})
		return nil
	})
	return true
}

func (vm *ExpenseViewModel) DeleteExpense(e models.Expense) {
	vm.launch("delete", func(ctx context.Context) error {
		return vm.store.Delete(ctx, e)
	})
}

// StartEdit opens the edit dialog pre-filled with e.
func (vm *ExpenseViewModel) StartEdit(e models.Expense) {
	vm.update(func(s *State) {
		editing := e
		s.Edit = EditState{
			Editing:       &editing,
			Amount:        e.Amount.String(),
			Description:   e.Description,
			Category:      e.Category,
			DialogVisible: true,
		}
	})
}

func (vm *ExpenseViewModel) SetEditAmount(v string) bool {
	if !amountPattern.MatchString(v) {
		return false
	}
	vm.update(func(s *State) { s.Edit.Amount = v })
	return true
}

func (vm *ExpenseViewModel) SetEditDescription(v string) {
	vm.update(func(s *State) { s.Edit.Description = v })
}

func (vm *ExpenseViewModel) SelectEditCategory(c models.Category) bool {
	if !c.Valid() {
		return false
	}
	vm.update(func(s *State) { s.Edit.Category = c })
	return true
}

// SaveEdit stores the edited fields, keeping the id and creation time,
// and closes the dialog. Invalid input is a no-op.
func (vm *ExpenseViewModel) SaveEdit() bool {
	edit := vm.State().Edit
	if edit.Editing == nil {
		return false
	}

	amount, err := models.ParseMoney(edit.Amount)
	if err != nil {
		return false
	}
	desc := strings.TrimSpace(edit.Description)
	if desc == "" {
		return false
	}

	updated := *edit.Editing
	updated.Amount = amount
	updated.Description = desc
	updated.Category = edit.Category

	vm.launch("update", func(ctx context.Context) error {
		if err := vm.store.Update(ctx, updated); err != nil {
			return err
		}
		vm.CancelEdit()
		return nil
	})
	return true
}

// CancelEdit closes the dialog and resets its fields.
func (vm *ExpenseViewModel) CancelEdit() {
	vm.update(func(s *State) { s.Edit = defaultEditState() })
}

// ChangeReminder shows and applies new reminder settings.
func (vm *ExpenseViewModel) ChangeReminder(enabled bool, hour, minute int) bool {
	if models.ValidateTimeOfDay(hour, minute) != nil {
		return false
	}
	vm.update(func(s *State) {
		s.Reminder.Enabled = enabled
		s.Reminder.Hour = hour
		s.Reminder.Minute = minute
	})
	vm.launch("reminder", func(ctx context.Context) error {
		out, err := vm.settings.Apply(ctx, enabled, hour, minute)
		if err != nil {
			return err
		}
		vm.applyOutcome(out)
		return nil
	})
	return true
}

// NotificationPermissionResult reports the user's answer to the
// notification permission prompt.
func (vm *ExpenseViewModel) NotificationPermissionResult(granted bool) {
	vm.launch("notification_permission", func(ctx context.Context) error {
		out, err := vm.settings.NotificationPermissionResult(ctx, granted)
		if err != nil {
			return err
		}
		vm.applyOutcome(out)
		return nil
	})
}

func (vm *ExpenseViewModel) applyOutcome(out reminders.Outcome) {
	vm.update(func(s *State) {
		s.Reminder.NeedsNotificationPermission = out.NeedsNotificationPermission
		s.Reminder.ExactTimingAction = out.ExactTimingAction
		s.Reminder.Message = out.Message
		switch {
		case out.Scheduled != nil:
			s.Reminder.NextFireAt = out.Scheduled.FireAt
		case out.Cancelled:
			s.Reminder.NextFireAt = time.Time{}
		}
	})
}

// launch runs fn in the background scope. Intents run one at a time in
// the order their goroutines obtain the lock; failures are logged and
// otherwise leave the state untouched.
func (vm *ExpenseViewModel) launch(op string, fn func(ctx context.Context) error) {
	ctx := vm.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	vm.jobs.Go(func() error {
		vm.writeMu.Lock()
		defer vm.writeMu.Unlock()

		if ctx.Err() != nil {
			return nil
		}
		if err := fn(ctx); err != nil {
			vm.logger.Error().Err(err).Str("op", op).Msg("operation failed")
		}
		return nil
	})
}

func (vm *ExpenseViewModel) update(fn func(s *State)) {
	vm.mu.Lock()
	fn(&vm.state)
	snapshot := vm.state.clone()
	listener := vm.onChange
	vm.mu.Unlock()

	if listener != nil {
		listener(snapshot)
	}
}
