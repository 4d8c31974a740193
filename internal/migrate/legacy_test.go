package migrate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/doctorheli/checklist/internal/store"
	"github.com/doctorheli/checklist/internal/supply"
)

func legacySeconds(t time.Time) *float64 {
	v := t.Sub(ReferenceDate).Seconds()
	return &v
}

func writeLegacy(t *testing.T, items []LegacyItem) string {
	t.Helper()
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "SavedSupplyItems.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "checklist.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

var expiry = time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

func sampleLegacy() []LegacyItem {
	row := 3
	return []LegacyItem{
		{
			ID:   "6F9619FF-8B86-D011-B42D-00C04FC964FF",
			Name: "Adrenaline", Category: "緊急用品", IsChecked: true,
			ExpirationDate:  legacySeconds(expiry),
			LastCheckedDate: legacySeconds(expiry.AddDate(0, -6, 0)),
			Quantity:        2, Location: "Bag A", RowIndex: &row,
		},
		{ID: "not-a-uuid", Name: "Gauze", Category: "消耗品", Quantity: -4},
		{ID: "6f9619ff-8b86-d011-b42d-00c04fc964ff", Name: "Duplicate"},
	}
}

func TestToItem(t *testing.T) {
	item, ok := ToItem(sampleLegacy()[0])
	if !ok {
		t.Fatal("valid legacy id rejected")
	}
	if item.ID != "6f9619ff-8b86-d011-b42d-00c04fc964ff" {
		t.Errorf("ID = %s, want lowercase uuid", item.ID)
	}
	if item.ExpirationDate == nil || !item.ExpirationDate.Equal(expiry) {
		t.Errorf("ExpirationDate = %v, want %v", item.ExpirationDate, expiry)
	}
	if item.LastCheckedDate == nil || !item.LastCheckedDate.Equal(expiry.AddDate(0, -6, 0)) {
		t.Errorf("LastCheckedDate = %v", item.LastCheckedDate)
	}
	if item.RowIndex == nil || *item.RowIndex != 3 {
		t.Errorf("RowIndex = %v, want 3", item.RowIndex)
	}

	item, ok = ToItem(sampleLegacy()[1])
	if ok || item.ID == "" {
		t.Errorf("invalid id: ok=%v id=%q", ok, item.ID)
	}
	if item.Quantity != 0 {
		t.Errorf("Quantity = %d, want 0", item.Quantity)
	}
}

func TestConvertDate_Nil(t *testing.T) {
	if ConvertDate(nil) != nil {
		t.Error("nil legacy date should stay nil")
	}
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	path := writeLegacy(t, sampleLegacy())
	st := openStore(t)

	result, err := Migrate(ctx, st, Options{From: path, Backup: true})
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if result.Converted != 3 || !result.Written {
		t.Errorf("result = %+v", result)
	}
	if len(result.Errors) != 2 {
		t.Errorf("Errors = %v, want invalid and duplicate id", result.Errors)
	}
	if result.BackupCreated == "" {
		t.Error("backup not created")
	} else if _, err := os.Stat(result.BackupCreated); err != nil {
		t.Errorf("backup missing: %v", err)
	}

	saved, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(saved) != 3 {
		t.Fatalf("saved %d items, want 3", len(saved))
	}
	ids := map[string]bool{}
	for _, it := range saved {
		ids[it.ID] = true
	}
	if len(ids) != 3 {
		t.Errorf("saved IDs not unique: %v", ids)
	}
}

func TestMigrate_DryRun(t *testing.T) {
	ctx := context.Background()
	path := writeLegacy(t, sampleLegacy())
	st := openStore(t)

	result, err := Migrate(ctx, st, Options{From: path, DryRun: true, Backup: true})
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if result.Written || result.BackupCreated != "" || len(result.Items) != 3 {
		t.Errorf("dry run result = %+v", result)
	}
	if _, err := st.Load(ctx); err == nil {
		t.Error("dry run wrote to the store")
	}
}

func TestMigrate_RefusesNonEmptyStore(t *testing.T) {
	ctx := context.Background()
	path := writeLegacy(t, sampleLegacy())
	st := openStore(t)
	if err := st.Save(ctx, []supply.Item{{ID: "x", Name: "Existing"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err := Migrate(ctx, st, Options{From: path})
	if err == nil || !strings.Contains(err.Error(), "already holds 1 items") {
		t.Fatalf("Migrate() error = %v", err)
	}

	if _, err := Migrate(ctx, st, Options{From: path, Force: true}); err != nil {
		t.Fatalf("forced Migrate() failed: %v", err)
	}
}

func TestMigrate_BadInput(t *testing.T) {
	st := openStore(t)
	if _, err := Migrate(context.Background(), st, Options{From: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"not":"an array"}`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Migrate(context.Background(), st, Options{From: path}); err == nil {
		t.Error("expected error for malformed file")
	}
}
