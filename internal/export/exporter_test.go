package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"expensetracker/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeSource struct {
	list   []models.Expense
	totals []models.CategoryTotal
	total  models.Money
	err    error
}

func (f fakeSource) List(context.Context) ([]models.Expense, error) { return f.list, f.err }

func (f fakeSource) CategoryTotals(context.Context) ([]models.CategoryTotal, error) {
	return f.totals, nil
}

func (f fakeSource) Total(context.Context) (models.Money, error) { return f.total, nil }

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func sampleSource() fakeSource {
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	return fakeSource{
		list: []models.Expense{
			{ID: 2, Amount: models.Money{Cents: 575}, Description: "Café", Category: models.CategoryFood, CreatedAt: at},
			{ID: 1, Amount: models.Money{Cents: 1000}, Description: "Bus", Category: models.CategoryTransport, CreatedAt: at.Add(-time.Hour)},
		},
		totals: []models.CategoryTotal{
			{Category: models.CategoryFood, Total: models.Money{Cents: 575}},
			{Category: models.CategoryTransport, Total: models.Money{Cents: 1000}},
		},
		total: models.Money{Cents: 1575},
	}
}

func TestExcelExporter_WriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gastos.xlsx")
	exp := NewExcelExporter(sampleSource(), testLogger())

	summary, err := exp.WriteFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Expenses)
	assert.Equal(t, int64(1575), summary.Total.Cents)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetExpenses, SheetTotals}, f.GetSheetList())

	rows, err := f.GetRows(SheetExpenses)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Descripción", rows[0][3])
	assert.Equal(t, "Café", rows[1][3])
	assert.Equal(t, "Comida", rows[1][2])

	totals, err := f.GetRows(SheetTotals)
	require.NoError(t, err)
	require.Len(t, totals, 4)
	assert.Equal(t, "Total", totals[3][0])
}

func TestExcelExporter_Write(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewExcelExporter(fakeSource{}, testLogger()).Write(context.Background(), &buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetExpenses)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestExcelExporter_SourceError(t *testing.T) {
	_, err := NewExcelExporter(fakeSource{err: errors.New("db closed")}, testLogger()).Write(context.Background(), io.Discard)
	assert.Error(t, err)
}
