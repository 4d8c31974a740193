package xlsx

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/doctorheli/checklist/internal/supply"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return &t
}

func sampleItems() []supply.Item {
	row := 5
	return []supply.Item{
		{
			ID: "a", Name: "Ibuprofen", Category: supply.CategoryMedicine,
			IsChecked: true, LastCheckedDate: date(2025, 3, 1),
			ExpirationDate: date(2026, 1, 31), Quantity: 2,
			Location: "Bathroom cabinet", Notes: "200mg", RowIndex: &row,
		},
		{ID: "b", Name: "Bandages", Category: supply.CategoryConsumable, Quantity: 40},
	}
}

func TestExportImport(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, sampleItems()); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	got, skipped, err := Import(&buf)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}

	first := got[0]
	if first.Name != "Ibuprofen" || !first.IsChecked || first.Quantity != 2 || first.Notes != "200mg" {
		t.Errorf("first item = %+v", first)
	}
	if first.ExpirationDate == nil || !first.ExpirationDate.Equal(*date(2026, 1, 31)) {
		t.Errorf("ExpirationDate = %v", first.ExpirationDate)
	}
	if first.LastCheckedDate == nil || !first.LastCheckedDate.Equal(*date(2025, 3, 1)) {
		t.Errorf("LastCheckedDate = %v", first.LastCheckedDate)
	}
	if first.RowIndex != nil {
		t.Errorf("imported item bound to row %d", *first.RowIndex)
	}
	if first.ID == "" || first.ID == "a" || first.ID == got[1].ID {
		t.Errorf("imported items need fresh IDs: %q %q", first.ID, got[1].ID)
	}
	if got[1].IsChecked || got[1].ExpirationDate != nil || got[1].Quantity != 40 {
		t.Errorf("second item = %+v", got[1])
	}
}

func TestImport_NoHeaderAndShortRows(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]string{
		{"Gauze", "Consumable", "TRUE", "", "3"},
		{"Only", "two"},
		{},
		{"Epinephrine", "Emergency", "", "2025/12/01"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "plain.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	items, skipped, err := ImportFile(path)
	if err != nil {
		t.Fatalf("ImportFile() failed: %v", err)
	}
	if len(items) != 2 || skipped != 2 {
		t.Fatalf("got %d items, %d skipped; want 2, 2", len(items), skipped)
	}
	if items[0].Name != "Gauze" || !items[0].IsChecked || items[0].Quantity != 3 {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Name != "Epinephrine" || items[1].ExpirationDate == nil {
		t.Errorf("items[1] = %+v", items[1])
	}
}

func TestExportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := ExportFile(path, nil); err != nil {
		t.Fatalf("ExportFile() failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 1 || got[0] != SheetName {
		t.Errorf("sheets = %v, want [%s]", got, SheetName)
	}
	v, err := f.GetCellValue(SheetName, "A1")
	if err != nil || v != "Name" {
		t.Errorf("A1 = %q, %v", v, err)
	}
}

func TestImport_NotAWorkbook(t *testing.T) {
	if _, _, err := Import(bytes.NewBufferString("not a zip")); err == nil {
		t.Error("expected error for invalid workbook")
	}
}
