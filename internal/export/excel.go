package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var errNoSheet = errors.New("no active sheet")

// sheetWriter appends rows to the sheets of an excelize workbook.
type sheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

// addSheet starts a new sheet; the first call renames the default one.
func (w *sheetWriter) addSheet(name string) error {
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *sheetWriter) writeHeader(columns []string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.writeRow(row); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		start, _ := excelize.CoordinatesToCellName(1, w.currentRow-1)
		end, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow-1)
		_ = w.file.SetCellStyle(w.currentSheet, start, end, style)
	}
	return nil
}

func (w *sheetWriter) writeRow(row []any) error {
	if w.currentSheet == "" {
		return errNoSheet
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

// setNumberFormat applies a built-in number format to a column range.
func (w *sheetWriter) setNumberFormat(col string, fromRow, toRow, numFmt int) {
	if toRow < fromRow {
		return
	}
	style, err := w.file.NewStyle(&excelize.Style{NumFmt: numFmt})
	if err != nil {
		return
	}
	_ = w.file.SetCellStyle(w.currentSheet, fmt.Sprintf("%s%d", col, fromRow), fmt.Sprintf("%s%d", col, toRow), style)
}

func (w *sheetWriter) save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *sheetWriter) saveToFile(path string) error {
	return w.file.SaveAs(path)
}

func (w *sheetWriter) close() error {
	return w.file.Close()
}
