package sync

import (
	"context"
	"time"

	"github.com/doctorheli/checklist/internal/supply"
)

// LocalStore persists the full collection as one unit.
//
// Load must return supply.ErrNotFound when nothing has been saved yet. The
// engine treats that as a first run and populates the seed collection.
type LocalStore interface {
	Load(ctx context.Context) ([]supply.Item, error)
	Save(ctx context.Context, items []supply.Item) error
}

// Remote is the remote tabular client the engine pushes to and pulls from.
//
// Implementations classify failures with the supply error sentinels:
// ErrConfiguration, ErrTransport, ErrResponse and ErrMissingRowBinding.
type Remote interface {
	// IsConfigured reports whether remote calls can be attempted.
	IsConfigured() bool

	// FetchAll returns every decodable row, in row order, with RowIndex set.
	FetchAll(ctx context.Context) ([]supply.Item, error)

	// UpdateRow overwrites the row the item is bound to.
	UpdateRow(ctx context.Context, item supply.Item) error

	// AppendRow writes the item as a new row and returns its row number.
	// Only used when Options.AppendOnAdd is set.
	AppendRow(ctx context.Context, item supply.Item) (int, error)

	// LastSync returns the time of the last successful remote call.
	LastSync() time.Time
}

// EventKind names a state change.
type EventKind string

const (
	EventLoaded            EventKind = "loaded"
	EventSyncStarted       EventKind = "sync_started"
	EventSyncCompleted     EventKind = "sync_completed"
	EventSyncFailed        EventKind = "sync_failed"
	EventItemAdded         EventKind = "item_added"
	EventItemUpdated       EventKind = "item_updated"
	EventItemDeleted       EventKind = "item_deleted"
	EventRemoteWriteFailed EventKind = "remote_write_failed"
	EventPersistFailed     EventKind = "persist_failed"
)

// Event describes one observable change to the engine's state. Version is
// the engine version after the change.
type Event struct {
	Kind      EventKind `json:"kind"`
	Version   uint64    `json:"version"`
	ItemID    string    `json:"item_id,omitempty"`
	ItemCount int       `json:"item_count"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// Notifier receives engine events. Notify is called synchronously from the
// goroutine that made the change, after the engine has released its lock, so
// implementations may read engine state but should not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

// Notify calls f(ev).
func (f NotifierFunc) Notify(ev Event) {
	f(ev)
}

// Status summarizes the engine and remote connection state.
type Status struct {
	Configured bool      `json:"configured"`
	LastSync   time.Time `json:"last_sync"`
	Loading    bool      `json:"loading"`
	Version    uint64    `json:"version"`
	ItemCount  int       `json:"item_count"`
	LastError  string    `json:"last_error,omitempty"`
}
