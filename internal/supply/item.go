// Package supply defines the supply item model shared by the store, the
// spreadsheet client and the sync engine.
package supply

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExpiringSoonDays is how many days ahead an expiration date counts as "soon".
const ExpiringSoonDays = 30

// Suggested categories. The engine accepts any category string.
const (
	CategoryMedicine      = "Medicine"
	CategoryMedicalDevice = "Medical Device"
	CategoryConsumable    = "Consumable"
	CategoryEmergency     = "Emergency"
	CategoryOther         = "Other"
)

// Categories lists the suggested categories in display order.
var Categories = []string{
	CategoryMedicine,
	CategoryMedicalDevice,
	CategoryConsumable,
	CategoryEmergency,
	CategoryOther,
}

// Item is a single tracked supply.
//
// RowIndex is the 1-based row of the remote spreadsheet this item was read
// from. It is the only link between a local item and its remote row and is
// nil for items that were never bound to one.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Category string `json:"category"`

	IsChecked       bool       `json:"is_checked"`
	LastCheckedDate *time.Time `json:"last_checked_date,omitempty"`

	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	Quantity       int        `json:"quantity"`
	Location       string     `json:"location"`
	Notes          string     `json:"notes"`

	RowIndex *int `json:"row_index,omitempty"`
}

// NewID returns a fresh item identifier.
func NewID() string {
	return uuid.NewString()
}

// Validate checks the fields a user must supply when entering an item.
// The sync engine itself does not call it.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if i.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative (got %d)", i.Quantity)
	}
	return nil
}

// SetDefaults fills in the ID and category when they are empty.
func (i *Item) SetDefaults() {
	if i.ID == "" {
		i.ID = NewID()
	}
	if i.Category == "" {
		i.Category = CategoryOther
	}
}

// SetChecked sets the checked flag and maintains LastCheckedDate: it is
// stamped with now on a false->true transition and cleared on true->false.
func (i *Item) SetChecked(checked bool, now time.Time) {
	if checked == i.IsChecked {
		return
	}
	i.IsChecked = checked
	if checked {
		t := now
		i.LastCheckedDate = &t
	} else {
		i.LastCheckedDate = nil
	}
}

// IsExpiredAt reports whether the expiration date is a calendar day before now.
func (i *Item) IsExpiredAt(now time.Time) bool {
	if i.ExpirationDate == nil {
		return false
	}
	return Day(*i.ExpirationDate).Before(Day(now))
}

// IsExpiringSoonAt reports whether the expiration date falls on today or
// within the next 30 days.
func (i *Item) IsExpiringSoonAt(now time.Time) bool {
	if i.ExpirationDate == nil {
		return false
	}
	exp := Day(*i.ExpirationDate)
	today := Day(now)
	return !exp.Before(today) && !exp.After(today.AddDate(0, 0, ExpiringSoonDays))
}

// IsExpired is IsExpiredAt evaluated against the current time.
func (i *Item) IsExpired() bool {
	return i.IsExpiredAt(time.Now())
}

// IsExpiringSoon is IsExpiringSoonAt evaluated against the current time.
func (i *Item) IsExpiringSoon() bool {
	return i.IsExpiringSoonAt(time.Now())
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	if i.LastCheckedDate != nil {
		t := *i.LastCheckedDate
		i.LastCheckedDate = &t
	}
	if i.ExpirationDate != nil {
		t := *i.ExpirationDate
		i.ExpirationDate = &t
	}
	if i.RowIndex != nil {
		r := *i.RowIndex
		i.RowIndex = &r
	}
	return i
}

// CloneAll deep-copies a collection.
func CloneAll(items []Item) []Item {
	out := make([]Item, len(items))
	for idx, it := range items {
		out[idx] = it.Clone()
	}
	return out
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Filter selects items for display. Empty fields match everything.
type Filter struct {
	Category string
	Search   string
}

// Match reports whether the item passes the filter. Search is a
// case-insensitive substring match on the name.
func (f Filter) Match(i *Item) bool {
	if f.Category != "" && i.Category != f.Category {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(i.Name), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Apply returns the items that match the filter, preserving order.
func (f Filter) Apply(items []Item) []Item {
	var out []Item
	for idx := range items {
		if f.Match(&items[idx]) {
			out = append(out, items[idx])
		}
	}
	return out
}
