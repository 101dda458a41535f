// Package export writes recorded expenses to spreadsheet workbooks.
package export

import (
	"context"
	"fmt"
	"io"

	"expensetracker/internal/models"
	"github.com/rs/zerolog"
)

const (
	SheetExpenses = "Gastos"
	SheetTotals   = "Totales"

	// Built-in excelize number formats.
	numFmtMoney    = 4  // #,##0.00
	numFmtDateTime = 22 // m/d/yy h:mm
)

// Source provides the data to export.
type Source interface {
	List(ctx context.Context) ([]models.Expense, error)
	CategoryTotals(ctx context.Context) ([]models.CategoryTotal, error)
	Total(ctx context.Context) (models.Money, error)
}

// Summary describes a finished export.
type Summary struct {
	Expenses int
	Total    models.Money
}

type ExcelExporter struct {
	source Source
	logger *zerolog.Logger
}

func NewExcelExporter(source Source, logger *zerolog.Logger) *ExcelExporter {
	return &ExcelExporter{source: source, logger: logger}
}

// WriteFile writes the workbook to path.
func (e *ExcelExporter) WriteFile(ctx context.Context, path string) (Summary, error) {
	w, summary, err := e.build(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer w.close()

	if err := w.saveToFile(path); err != nil {
		return Summary{}, fmt.Errorf("save workbook %s: %w", path, err)
	}
	e.logger.Info().Str("path", path).Int("expenses", summary.Expenses).Msg("expenses exported")
	return summary, nil
}

// Write streams the workbook to out.
func (e *ExcelExporter) Write(ctx context.Context, out io.Writer) (Summary, error) {
	w, summary, err := e.build(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer w.close()

	if err := w.save(out); err != nil {
		return Summary{}, fmt.Errorf("write workbook: %w", err)
	}
	return summary, nil
}

func (e *ExcelExporter) build(ctx context.Context) (*sheetWriter, Summary, error) {
	list, err := e.source.List(ctx)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("load expenses: %w", err)
	}
	totals, err := e.source.CategoryTotals(ctx)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("load category totals: %w", err)
	}
	total, err := e.source.Total(ctx)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("load total: %w", err)
	}

	w := newSheetWriter()
	if err := writeExpenses(w, list); err != nil {
		w.close()
		return nil, Summary{}, err
	}
	if err := writeTotals(w, totals, total); err != nil {
		w.close()
		return nil, Summary{}, err
	}
	return w, Summary{Expenses: len(list), Total: total}, nil
}

func writeExpenses(w *sheetWriter, list []models.Expense) error {
	if err := w.addSheet(SheetExpenses); err != nil {
		return err
	}
	if err := w.writeHeader([]string{"ID", "Fecha", "Categoría", "Descripción", "Monto"}); err != nil {
		return err
	}
	for _, e := range list {
		amount, _ := e.Amount.Decimal().Float64()
		if err := w.writeRow([]any{e.ID, e.CreatedAt, string(e.Category), e.Description, amount}); err != nil {
			return fmt.Errorf("write expense %d: %w", e.ID, err)
		}
	}
	w.setNumberFormat("B", 2, len(list)+1, numFmtDateTime)
	w.setNumberFormat("E", 2, len(list)+1, numFmtMoney)
	return nil
}

func writeTotals(w *sheetWriter, totals []models.CategoryTotal, total models.Money) error {
	if err := w.addSheet(SheetTotals); err != nil {
		return err
	}
	if err := w.writeHeader([]string{"Categoría", "Total"}); err != nil {
		return err
	}
	for _, t := range totals {
		amount, _ := t.Total.Decimal().Float64()
		if err := w.writeRow([]any{string(t.Category), amount}); err != nil {
			return err
		}
	}
	grand, _ := total.Decimal().Float64()
	if err := w.writeRow([]any{"Total", grand}); err != nil {
		return err
	}
	w.setNumberFormat("B", 2, len(totals)+2, numFmtMoney)
	return nil
}
