// Package export renders meeting data into files for use outside the assistant.
package export

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/minutes/internal/models"
)

// SheetName is the worksheet holding the action items.
const SheetName = "Action Items"

var header = []any{"#", "Action Item", "Meeting", "Meeting ID", "Date"}

// ActionItemsXLSX writes the meeting's action items, one per row under a header row.
func ActionItemsXLSX(m *models.Meeting) ([]byte, error) {
	if m == nil {
		return nil, errors.New("nil meeting")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	date := ""
	if !m.CreatedAt.IsZero() {
		date = m.CreatedAt.Format("2006-01-02")
	}
	for i, item := range m.ActionItems {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{i + 1, item, m.TitleOrDefault(), m.ID, date}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	_ = f.SetColWidth(SheetName, "B", "B", 60)
	_ = f.SetColWidth(SheetName, "C", "D", 30)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
