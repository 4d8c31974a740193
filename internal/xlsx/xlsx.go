// Package xlsx reads and writes supply checklists as .xlsx workbooks.
//
// Workbooks use the same column layout as the remote spreadsheet, with
// rowcodec.Header as the first row, so a sheet exported here can be pasted
// into the remote document and the other way round.
package xlsx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/doctorheli/checklist/internal/rowcodec"
	"github.com/doctorheli/checklist/internal/supply"
)

// SheetName is the name of the sheet written by Export.
const SheetName = "Supplies"

// Export writes items to w as a workbook with a single sheet.
func Export(w io.Writer, items []supply.Item) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := writeRow(f, 1, rowcodec.Header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(rowcodec.Columns, 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "H", 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	for i := range items {
		if err := writeRow(f, i+2, rowcodec.Encode(items[i])); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ExportFile writes items to the workbook at path.
func ExportFile(path string, items []supply.Item) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Export(out, items); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func writeRow(f *excelize.File, row int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

// Import reads items from the first sheet of the workbook in r.
//
// A first row that looks like rowcodec.Header is skipped. Rows with fewer
// than rowcodec.MinColumns cells are skipped and counted. Imported items
// are not bound to any remote row.
func Import(r io.Reader) (items []supply.Item, skipped int, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, 0, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	start := 0
	if len(rows) > 0 && isHeader(rows[0]) {
		start = 1
	}

	items = make([]supply.Item, 0, len(rows)-start)
	for i := start; i < len(rows); i++ {
		item, ok := rowcodec.Decode(rows[i], i)
		if !ok {
			skipped++
			continue
		}
		item.RowIndex = nil
		items = append(items, item)
	}
	return items, skipped, nil
}

// ImportFile reads items from the workbook at path.
func ImportFile(path string) ([]supply.Item, int, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()
	return Import(in)
}

func isHeader(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), rowcodec.Header[0])
}
