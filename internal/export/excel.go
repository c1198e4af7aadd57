// Package export renders booked appointments as an Excel workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"slotdesk/internal/models"
)

var appointmentColumns = []string{"ID", "Date", "Start", "End", "Customer", "Email", "Phone"}

// Workbook is a thin sheet-oriented wrapper around excelize.
type Workbook struct {
	file       *excelize.File
	sheet      string
	currentRow int
}

func NewWorkbook() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// AddSheet starts a new sheet with the given name.
func (w *Workbook) AddSheet(name string) error {
	// Excel caps sheet names at 31 chars.
	if len(name) > 31 {
		name = name[:31]
	}

	if w.sheet == "" {
		w.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.sheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes a bold header row to the current sheet.
func (w *Workbook) WriteHeader(columns []string) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.sheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

// WriteRow appends a data row to the current sheet.
func (w *Workbook) WriteRow(row []interface{}) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

// Save writes the workbook to wr.
func (w *Workbook) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// Close releases resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// Appointments builds a single-sheet workbook of booked slots.
func Appointments(booked []models.TimeSlot) (*Workbook, error) {
	w := NewWorkbook()
	if err := w.AddSheet("Appointments"); err != nil {
		return nil, err
	}
	if err := w.WriteHeader(appointmentColumns); err != nil {
		return nil, err
	}

	for i := range booked {
		slot := &booked[i]
		customer, _ := slot.Customer()
		row := []interface{}{
			slot.ID, slot.Date, slot.StartTime, slot.EndTime,
			customer.Name, customer.Email, customer.Phone,
		}
		if err := w.WriteRow(row); err != nil {
			return nil, err
		}
	}
	return w, nil
}
