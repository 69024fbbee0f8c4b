package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	ItemsSheet   = "Items"
	SummarySheet = "Summary"
)

// WorkbookXLSX renders docs as a workbook with an Items sheet (one row per
// act item) and a Summary sheet (one row per document).
func WorkbookXLSX(docs []Document) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ItemsSheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	var items [][]any
	summary := make([][]any, 0, len(docs))
	for _, doc := range docs {
		items = append(items, itemRows(doc)...)
		summary = append(summary, summaryRow(doc))
	}

	if err := writeSheet(f, ItemsSheet, itemColumns, items); err != nil {
		return nil, err
	}
	if err := writeSheet(f, SummarySheet, summaryColumns, summary); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(ItemsSheet, "A", "A", 28)
	_ = f.SetColWidth(ItemsSheet, "D", "D", 60)
	_ = f.SetColWidth(SummarySheet, "A", "A", 28)
	_ = f.SetColWidth(SummarySheet, "F", "H", 40)

	idx, _ := f.GetSheetIndex(ItemsSheet)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any) error {
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("writing %s header: %w", sheet, err)
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
