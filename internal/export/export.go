package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"property-capture-go/internal/types"
)

const sheetName = "Inventory"

// WriteInventoryWorkbook writes one spreadsheet row per inventory item,
// grouped by room, as a shareable companion to the JSON report.
func WriteInventoryWorkbook(path string, report *types.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"Room", "Item", "Quantity", "Condition", "Notes"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rowNum := 2
	for _, room := range report.Rooms {
		for _, item := range room.Inventory {
			quantity := item.Quantity
			if quantity == 0 {
				quantity = 1
			}
			row := []any{room.RoomName, item.Item, quantity, item.Condition, item.Notes}
			cell := fmt.Sprintf("A%d", rowNum)
			if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
				return fmt.Errorf("write row %d: %w", rowNum, err)
			}
			rowNum++
		}
	}

	if err := f.SetColWidth(sheetName, "A", "B", 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "E", "E", 40); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
