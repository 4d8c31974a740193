// Package rowcodec converts supply items to and from spreadsheet rows.
//
// A row is eight string cells in fixed order:
//
//	A name | B category | C checked | D expiration | E quantity |
//	F location | G notes | H last checked
//
// Dates use the yyyy/MM/dd pattern. The checked column holds a checkmark
// glyph, or "true" in any letter case, when the item is checked.
package rowcodec

import (
	"strconv"
	"strings"
	"time"

	"github.com/doctorheli/checklist/internal/supply"
)

const (
	// Columns is the number of cells in an encoded row.
	Columns = 8

	// MinColumns is the number of leading cells a row needs to decode.
	MinColumns = 3

	// HeaderOffset converts a zero-based position within the fetched data
	// range to a 1-based sheet row: row 1 is the header, data starts at row 2.
	HeaderOffset = 2

	// DateLayout is the yyyy/MM/dd date pattern used in date cells.
	DateLayout = "2006/01/02"

	// CheckMark marks a checked item.
	CheckMark = "✓"
)

// Header holds the column titles written to the first row of exported sheets.
var Header = []string{
	"Name",
	"Category",
	"Checked",
	"Expiration (yyyy/MM/dd)",
	"Quantity",
	"Location",
	"Notes",
	"Last checked (yyyy/MM/dd)",
}

const (
	colName = iota
	colCategory
	colChecked
	colExpiration
	colQuantity
	colLocation
	colNotes
	colLastChecked
)

// Decode builds an item from the cells of the row at the given zero-based
// position in the fetched range. Rows with fewer than MinColumns cells are
// rejected. Missing or unparseable optional cells fall back to zero values.
// The item gets a fresh ID and RowIndex = position + HeaderOffset.
func Decode(cells []string, position int) (supply.Item, bool) {
	if len(cells) < MinColumns {
		return supply.Item{}, false
	}

	row := position + HeaderOffset
	item := supply.Item{
		ID:              supply.NewID(),
		Name:            cells[colName],
		Category:        cells[colCategory],
		IsChecked:       parseChecked(cells[colChecked]),
		ExpirationDate:  ParseDate(cell(cells, colExpiration)),
		Quantity:        parseQuantity(cell(cells, colQuantity)),
		Location:        cell(cells, colLocation),
		Notes:           cell(cells, colNotes),
		LastCheckedDate: ParseDate(cell(cells, colLastChecked)),
		RowIndex:        &row,
	}
	return item, true
}

// Encode renders an item as a full row. RowIndex is not part of the row;
// callers pass it separately as the write target.
func Encode(item supply.Item) []string {
	checked := ""
	if item.IsChecked {
		checked = CheckMark
	}
	return []string{
		item.Name,
		item.Category,
		checked,
		FormatDate(item.ExpirationDate),
		strconv.Itoa(item.Quantity),
		item.Location,
		item.Notes,
		FormatDate(item.LastCheckedDate),
	}
}

// ParseDate parses a yyyy/MM/dd cell in local time. Empty or malformed
// cells yield nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

// FormatDate renders t as yyyy/MM/dd in local time, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(time.Local).Format(DateLayout)
}

func cell(cells []string, idx int) string {
	if idx < len(cells) {
		return cells[idx]
	}
	return ""
}

func parseChecked(s string) bool {
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, "true") || s == CheckMark
}

func parseQuantity(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
