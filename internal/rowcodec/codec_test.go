package rowcodec

import (
	"reflect"
	"testing"
	"time"

	"github.com/doctorheli/checklist/internal/supply"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return &t
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		cells    []string
		position int
		wantOK   bool
		want     supply.Item
		wantRow  int
	}{
		{
			name:     "full row",
			cells:    []string{"AED", "Medical Device", "✓", "2025/03/10", "1", "Cabin", "Battery", "2025/01/02"},
			position: 0,
			wantOK:   true,
			want: supply.Item{
				Name:            "AED",
				Category:        "Medical Device",
				IsChecked:       true,
				ExpirationDate:  day(2025, 3, 10),
				Quantity:        1,
				Location:        "Cabin",
				Notes:           "Battery",
				LastCheckedDate: day(2025, 1, 2),
			},
			wantRow: 2,
		},
		{
			name:     "minimum cells",
			cells:    []string{"Gauze", "Consumable", ""},
			position: 4,
			wantOK:   true,
			want:     supply.Item{Name: "Gauze", Category: "Consumable"},
			wantRow:  6,
		},
		{
			name:     "checked as TRUE",
			cells:    []string{"Gloves", "Consumable", "TRUE", "", "abc"},
			position: 1,
			wantOK:   true,
			want:     supply.Item{Name: "Gloves", Category: "Consumable", IsChecked: true},
			wantRow:  3,
		},
		{
			name:     "bad date and negative quantity",
			cells:    []string{"Saline", "Medicine", "false", "10-03-2025", "-4"},
			position: 2,
			wantOK:   true,
			want:     supply.Item{Name: "Saline", Category: "Medicine"},
			wantRow:  4,
		},
		{
			name:   "too few cells",
			cells:  []string{"AED", "Medical Device"},
			wantOK: false,
		},
		{
			name:   "empty row",
			cells:  nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode(tt.cells, tt.position)
			if ok != tt.wantOK {
				t.Fatalf("Decode() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.ID == "" {
				t.Error("decoded item has no id")
			}
			if got.RowIndex == nil || *got.RowIndex != tt.wantRow {
				t.Errorf("RowIndex = %v, want %d", got.RowIndex, tt.wantRow)
			}

			got.ID = ""
			got.RowIndex = nil
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	row := 7
	item := supply.Item{
		ID:             "x",
		Name:           "Oxygen cylinder",
		Category:       "Emergency",
		IsChecked:      false,
		ExpirationDate: day(2026, 1, 31),
		Location:       "Cabin, rear",
		RowIndex:       &row,
	}

	want := []string{"Oxygen cylinder", "Emergency", "", "2026/01/31", "0", "Cabin, rear", "", ""}
	if got := Encode(item); !reflect.DeepEqual(got, want) {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
	if len(Encode(item)) != Columns {
		t.Errorf("expected %d cells", Columns)
	}
	if len(Header) != Columns {
		t.Errorf("header has %d titles, want %d", len(Header), Columns)
	}
}

func TestRoundTrip(t *testing.T) {
	items := []supply.Item{
		{
			Name:            "Epinephrine injection",
			Category:        "Medicine",
			IsChecked:       true,
			ExpirationDate:  day(2025, 9, 1),
			Quantity:        5,
			Location:        "Drug box A",
			Notes:           "For anaphylaxis",
			LastCheckedDate: day(2025, 3, 1),
		},
		{Name: "Endotracheal tube", Category: "Medical Device", Quantity: 3},
		// Imported rows may carry a last-checked date while unchecked.
		{Name: "Bag", Category: "Emergency", LastCheckedDate: day(2024, 12, 24)},
	}

	for _, item := range items {
		decoded, ok := Decode(Encode(item), 0)
		if !ok {
			t.Fatalf("round trip of %q failed to decode", item.Name)
		}
		decoded.ID = ""
		decoded.RowIndex = nil
		if !reflect.DeepEqual(decoded, item) {
			t.Errorf("round trip mismatch:\n got  %+v\n want %+v", decoded, item)
		}
	}
}

func TestParseDate(t *testing.T) {
	got := ParseDate("2025/03/10")
	if got == nil {
		t.Fatal("expected 2025/03/10 to parse")
	}
	if y, m, d := got.Date(); y != 2025 || m != time.March || d != 10 {
		t.Errorf("ParseDate() = %v", got)
	}

	for _, bad := range []string{"10-03-2025", "", "2025-03-10", "yesterday"} {
		if ParseDate(bad) != nil {
			t.Errorf("ParseDate(%q) should be nil", bad)
		}
	}

	if FormatDate(nil) != "" {
		t.Error("FormatDate(nil) should be empty")
	}
	if s := FormatDate(got); s != "2025/03/10" {
		t.Errorf("FormatDate() = %q", s)
	}
}
