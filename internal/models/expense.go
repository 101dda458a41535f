package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is one of the fixed expense categories.
type Category string

const (
	CategoryFood          Category = "Comida"
	CategoryTransport     Category = "Transporte"
	CategoryEntertainment Category = "Entretenimiento"
	CategoryServices      Category = "Servicios"
	CategoryOther         Category = "Otros"
)

// DefaultCategory is preselected in new and edit forms.
const DefaultCategory = CategoryFood

// Categories lists the selectable categories in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryServices,
	CategoryOther,
}

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrUnknownCategory  = errors.New("unknown category")
)

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Money is an amount in cents.
type Money struct {
	Cents int64
}

// ParseMoney parses a decimal string ("12.5", "12,50") into Money,
// rounding half-up to cents. Zero and negative amounts are rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m, err := MoneyFromDecimal(d)
	if err != nil {
		return Money{}, err
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// MoneyFromDecimal converts a decimal amount to cents. Amounts whose cents
// do not fit in an int64 are rejected with ErrInvalidAmount.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Expense is a single recorded spending.
type Expense struct {
	ID          int64
	Amount      Money
	Description string
	Category    Category
	CreatedAt   time.Time
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, e.Category)
	}
	return nil
}

// CategoryTotal is the sum of amounts recorded under one category.
type CategoryTotal struct {
	Category Category
	Total    Money
}
