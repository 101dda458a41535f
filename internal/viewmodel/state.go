package viewmodel

import (
	"time"

	"expensetracker/internal/models"
)

// FormState is the new-expense form.
type FormState struct {
	Amount      string
	Description string
	Category    models.Category
}

// EditState is the edit dialog. Editing is nil while no dialog is open.
type EditState struct {
	Editing       *models.Expense
	Amount        string
	Description   string
	Category      models.Category
	DialogVisible bool
}

// ReminderState mirrors the reminder settings shown to the user and the
// result of the last change.
type ReminderState struct {
	Enabled                     bool
	Hour                        int
	Minute                      int
	NeedsNotificationPermission bool
	ExactTimingAction           string
	Message                     string
	NextFireAt                  time.Time
}

// State is everything the screen renders.
type State struct {
	Form           FormState
	Edit           EditState
	Reminder       ReminderState
	Expenses       []models.Expense
	Total          models.Money
	CategoryTotals []models.CategoryTotal
	Categories     []models.Category
}

func defaultEditState() EditState {
	return EditState{Category: models.DefaultCategory}
}

func (s State) clone() State {
	out := s
	out.Expenses = append([]models.Expense(nil), s.Expenses...)
	out.CategoryTotals = append([]models.CategoryTotal(nil), s.CategoryTotals...)
	out.Categories = append([]models.Category(nil), s.Categories...)
	if s.Edit.Editing != nil {
		e := *s.Edit.Editing
		out.Edit.Editing = &e
	}
	return out
}
