// Package migrate imports checklists saved by the earlier mobile app.
//
// The mobile app kept its collection as a JSON array of camelCase objects,
// with dates encoded as seconds since 2001-01-01 00:00:00 UTC and IDs as
// uppercase UUIDs. Migrate converts such an export into the local store.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doctorheli/checklist/internal/supply"
)

// ReferenceDate is the zero point of legacy date values.
var ReferenceDate = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// LegacyItem is one element of the legacy JSON array.
type LegacyItem struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	IsChecked       bool     `json:"isChecked"`
	ExpirationDate  *float64 `json:"expirationDate,omitempty"`
	Quantity        int      `json:"quantity"`
	Location        string   `json:"location"`
	Notes           string   `json:"notes"`
	LastCheckedDate *float64 `json:"lastCheckedDate,omitempty"`
	RowIndex        *int     `json:"rowIndex,omitempty"`
}

// Store is the local store the migration writes to.
type Store interface {
	Load(ctx context.Context) ([]supply.Item, error)
	Save(ctx context.Context, items []supply.Item) error
}

// Options contains configuration for the migration
type Options struct {
	From   string // Legacy JSON file path
	DryRun bool   // Preview without writing
	Backup bool   // Copy the input file before migrating
	Force  bool   // Replace a store that already holds items
}

// Result contains statistics about the migration
type Result struct {
	Items         []supply.Item
	Converted     int
	Written       bool
	BackupCreated string
	Errors        []string
}

// FromLegacy reads a legacy JSON export.
func FromLegacy(path string) ([]LegacyItem, error) {
	// #nosec G304 - controlled path from CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy file: %w", err)
	}

	var items []LegacyItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("invalid legacy JSON: %w", err)
	}
	return items, nil
}

// ConvertDate turns a legacy date value into local time.
func ConvertDate(v *float64) *time.Time {
	if v == nil {
		return nil
	}
	t := ReferenceDate.Add(time.Duration(*v * float64(time.Second))).In(time.Local)
	return &t
}

// ToItem converts a legacy item. ok is false when the legacy ID was
// unusable and a fresh one was assigned.
func ToItem(l LegacyItem) (item supply.Item, ok bool) {
	item = supply.Item{
		Name:            l.Name,
		Category:        l.Category,
		IsChecked:       l.IsChecked,
		ExpirationDate:  ConvertDate(l.ExpirationDate),
		Quantity:        l.Quantity,
		Location:        l.Location,
		Notes:           l.Notes,
		LastCheckedDate: ConvertDate(l.LastCheckedDate),
	}
	if l.RowIndex != nil {
		row := *l.RowIndex
		item.RowIndex = &row
	}
	if item.Quantity < 0 {
		item.Quantity = 0
	}

	id, err := uuid.Parse(strings.TrimSpace(l.ID))
	if err != nil {
		item.ID = supply.NewID()
		return item, false
	}
	item.ID = id.String()
	return item, true
}

// Migrate converts the legacy file and saves the result to the store.
func Migrate(ctx context.Context, st Store, opts Options) (*Result, error) {
	result := &Result{}

	if _, err := os.Stat(opts.From); err != nil {
		return nil, fmt.Errorf("input file does not exist: %w", err)
	}

	if !opts.Force {
		existing, err := st.Load(ctx)
		if err != nil && !errors.Is(err, supply.ErrNotFound) {
			return nil, fmt.Errorf("failed to check store: %w", err)
		}
		if len(existing) > 0 {
			return nil, fmt.Errorf("store already holds %d items; use force to replace them", len(existing))
		}
	}

	if opts.Backup && !opts.DryRun {
		backupPath := opts.From + ".backup." + time.Now().Format("20060102-150405")
		input, err := os.ReadFile(opts.From)
		if err != nil {
			return nil, fmt.Errorf("failed to read input for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0600); err != nil {
			return nil, fmt.Errorf("failed to create backup: %w", err)
		}
		result.BackupCreated = backupPath
	}

	legacy, err := FromLegacy(opts.From)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(legacy))
	result.Items = make([]supply.Item, 0, len(legacy))
	for i, l := range legacy {
		item, ok := ToItem(l)
		if !ok {
			result.Errors = append(result.Errors,
				fmt.Sprintf("item %d (%s): invalid id %q, assigned %s", i, l.Name, l.ID, item.ID))
		}
		if seen[item.ID] {
			old := item.ID
			item.ID = supply.NewID()
			result.Errors = append(result.Errors,
				fmt.Sprintf("item %d (%s): duplicate id %s, assigned %s", i, l.Name, old, item.ID))
		}
		seen[item.ID] = true
		result.Items = append(result.Items, item)
		result.Converted++
	}

	if opts.DryRun {
		return result, nil
	}

	if err := st.Save(ctx, result.Items); err != nil {
		return nil, fmt.Errorf("failed to save migrated items: %w", err)
	}
	result.Written = true
	return result, nil
}
