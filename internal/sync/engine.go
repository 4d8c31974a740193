package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	gosync "sync"
	"time"

	"github.com/doctorheli/checklist/internal/supply"
)

// Options configures an Engine. The zero value is usable.
type Options struct {
	Logger   *log.Logger
	Notifier Notifier

	// Now returns the current instant. Defaults to time.Now.
	Now func() time.Time

	// Seed builds the first-run collection. Defaults to supply.SeedItems.
	Seed func(now time.Time) ([]supply.Item, error)

	// AppendOnAdd makes AddItem append a remote row instead of running a
	// full sync after the local add.
	AppendOnAdd bool
}

// Engine owns the authoritative supply collection.
type Engine struct {
	store       LocalStore
	remote      Remote
	logger      *log.Logger
	notifier    Notifier
	now         func() time.Time
	seed        func(time.Time) ([]supply.Item, error)
	appendOnAdd bool

	mu      gosync.Mutex
	items   []supply.Item
	loading bool
	lastErr error
	version uint64
}

// New creates an engine with an empty collection. Call Initialize before
// use, or use Open. remote may be nil, in which case the engine stays
// local-only.
func New(store LocalStore, remote Remote, opts *Options) *Engine {
	if opts == nil {
		opts = &Options{}
	}
	e := &Engine{
		store:       store,
		remote:      remote,
		logger:      opts.Logger,
		notifier:    opts.Notifier,
		now:         opts.Now,
		seed:        opts.Seed,
		appendOnAdd: opts.AppendOnAdd,
		items:       []supply.Item{},
	}
	if e.logger == nil {
		e.logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if e.notifier == nil {
		e.notifier = NotifierFunc(func(Event) {})
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.seed == nil {
		e.seed = supply.SeedItems
	}
	return e
}

// Open creates an engine and initializes it from the store.
func Open(ctx context.Context, store LocalStore, remote Remote, opts *Options) (*Engine, error) {
	e := New(store, remote, opts)
	if err := e.Initialize(ctx); err != nil {
		return e, err
	}
	return e, nil
}

// Initialize loads the collection from the store, populating and
// persisting the seed collection on first run.
func (e *Engine) Initialize(ctx context.Context) error {
	return e.LoadFromLocal(ctx)
}

// IsConfigured reports whether a remote is attached and configured.
func (e *Engine) IsConfigured() bool {
	return e.remote != nil && e.remote.IsConfigured()
}

// Refresh syncs with the remote when configured and reloads the local copy
// otherwise.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.IsConfigured() {
		return e.SyncWithRemote(ctx)
	}
	return e.LoadFromLocal(ctx)
}

// LoadFromLocal replaces the in-memory collection with the stored one. An
// empty store is populated with the seed collection. If the store cannot be
// read the in-memory collection is kept and the error is recorded.
func (e *Engine) LoadFromLocal(ctx context.Context) error {
	items, err := e.store.Load(ctx)
	if errors.Is(err, supply.ErrNotFound) {
		return e.populateSeed(ctx)
	}
	if err != nil {
		err = fmt.Errorf("load local items: %w", err)
		e.logger.Printf("Warning: %v", err)
		e.mu.Lock()
		e.lastErr = err
		ev := e.eventLocked(EventPersistFailed, "", err)
		e.mu.Unlock()
		e.notifier.Notify(ev)
		return err
	}

	e.mu.Lock()
	e.items = items
	ev := e.eventLocked(EventLoaded, "", nil)
	e.mu.Unlock()

	e.notifier.Notify(ev)
	return nil
}

func (e *Engine) populateSeed(ctx context.Context) error {
	items, err := e.seed(e.now())
	if err != nil {
		return fmt.Errorf("build seed collection: %w", err)
	}
	e.logger.Printf("No saved items, starting with %d seed items", len(items))

	e.mu.Lock()
	e.items = items
	perr := e.persistLocked(ctx)
	ev := e.eventLocked(EventLoaded, "", nil)
	e.mu.Unlock()

	e.notifier.Notify(ev)
	return e.reportPersist(perr)
}

// SyncWithRemote fetches every row from the remote and replaces the
// collection with the result. Local items without a row binding are
// dropped. Items bound to a row that is still present keep their IDs.
//
// On failure the error is recorded and the local copy is reloaded.
func (e *Engine) SyncWithRemote(ctx context.Context) error {
	e.mu.Lock()
	e.loading = true
	e.lastErr = nil
	ev := e.eventLocked(EventSyncStarted, "", nil)
	e.mu.Unlock()
	e.notifier.Notify(ev)

	fetched, err := e.fetch(ctx)
	if err != nil {
		e.logger.Printf("Sync failed: %v", err)

		e.mu.Lock()
		e.loading = false
		e.lastErr = err
		ev := e.eventLocked(EventSyncFailed, "", err)
		e.mu.Unlock()
		e.notifier.Notify(ev)

		if lerr := e.LoadFromLocal(ctx); lerr != nil {
			return errors.Join(err, lerr)
		}
		return err
	}

	e.mu.Lock()
	carryIDs(fetched, e.items)
	e.items = fetched
	e.loading = false
	perr := e.persistLocked(ctx)
	ev = e.eventLocked(EventSyncCompleted, "", nil)
	e.mu.Unlock()

	e.logger.Printf("Synced %d items from remote", len(fetched))
	e.notifier.Notify(ev)
	return e.reportPersist(perr)
}

func (e *Engine) fetch(ctx context.Context) ([]supply.Item, error) {
	if e.remote == nil {
		return nil, fmt.Errorf("%w: no remote", supply.ErrConfiguration)
	}
	items, err := e.remote.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch remote items: %w", err)
	}
	if items == nil {
		items = []supply.Item{}
	}
	return items, nil
}

// carryIDs gives fetched items the IDs of current items bound to the same row.
func carryIDs(fetched, current []supply.Item) {
	byRow := make(map[int]string, len(current))
	for _, it := range current {
		if it.RowIndex != nil {
			byRow[*it.RowIndex] = it.ID
		}
	}
	for i := range fetched {
		if fetched[i].RowIndex == nil {
			continue
		}
		if id, ok := byRow[*fetched[i].RowIndex]; ok {
			fetched[i].ID = id
		}
	}
}

// ToggleChecked flips the checked flag of the item with the given id,
// maintaining LastCheckedDate. Unknown ids are ignored.
func (e *Engine) ToggleChecked(ctx context.Context, id string) error {
	e.mu.Lock()
	idx := e.indexLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return nil
	}
	e.items[idx].SetChecked(!e.items[idx].IsChecked, e.now())
	item := e.items[idx].Clone()
	perr := e.persistLocked(ctx)
	ev := e.eventLocked(EventItemUpdated, id, nil)
	e.mu.Unlock()

	e.notifier.Notify(ev)
	return errors.Join(e.reportPersist(perr), e.pushRow(ctx, item))
}

// UpdateItem replaces the item with the same ID. Unknown ids are ignored.
func (e *Engine) UpdateItem(ctx context.Context, item supply.Item) error {
	item = item.Clone()

	e.mu.Lock()
	idx := e.indexLocked(item.ID)
	if idx < 0 {
		e.mu.Unlock()
		return nil
	}
	e.items[idx] = item.Clone()
	perr := e.persistLocked(ctx)
	ev := e.eventLocked(EventItemUpdated, item.ID, nil)
	e.mu.Unlock()

	e.notifier.Notify(ev)
	return errors.Join(e.reportPersist(perr), e.pushRow(ctx, item))
}

// pushRow writes a single item to its remote row when configured. A failure
// is recorded but the local state is left alone.
func (e *Engine) pushRow(ctx context.Context, item supply.Item) error {
	if !e.IsConfigured() {
		return nil
	}
	if err := e.remote.UpdateRow(ctx, item); err != nil {
		return e.remoteWriteFailed(item.ID, fmt.Errorf("update row for %s: %w", item.ID, err))
	}
	e.logger.Printf("Updated remote row for %s (%s)", item.ID, item.Name)
	return nil
}

// AddItem appends an item to the collection, assigning an ID if it has
// none, and returns the stored copy. When configured it then either runs a
// full sync, which drops the new item until the sheet has a row for it, or
// with AppendOnAdd appends a row and binds the item to it.
func (e *Engine) AddItem(ctx context.Context, item supply.Item) (supply.Item, error) {
	item = item.Clone()
	if item.ID == "" {
		item.ID = supply.NewID()
	}
	// A new item has no remote row until the remote assigns one.
	item.RowIndex = nil

	e.mu.Lock()
	e.items = append(e.items, item)
	perr := e.persistLocked(ctx)
	ev := e.eventLocked(EventItemAdded, item.ID, nil)
	e.mu.Unlock()
	e.notifier.Notify(ev)

	err := e.reportPersist(perr)
	if !e.IsConfigured() {
		return item, err
	}

	if !e.appendOnAdd {
		return item, errors.Join(err, e.SyncWithRemote(ctx))
	}

	row, aerr := e.remote.AppendRow(ctx, item)
	if aerr != nil {
		return item, errors.Join(err, e.remoteWriteFailed(item.ID, fmt.Errorf("append row for %s: %w", item.ID, aerr)))
	}
	e.logger.Printf("Appended %s to remote row %d", item.Name, row)

	e.mu.Lock()
	if idx := e.indexLocked(item.ID); idx >= 0 {
		e.items[idx].RowIndex = &row
		item = e.items[idx].Clone()
	}
	perr = e.persistLocked(ctx)
	ev = e.eventLocked(EventItemUpdated, item.ID, nil)
	e.mu.Unlock()
	e.notifier.Notify(ev)

	return item, errors.Join(err, e.reportPersist(perr))
}

// DeleteItem removes the item locally. The remote row is left in place.
func (e *Engine) DeleteItem(ctx context.Context, id string) error {
	e.mu.Lock()
	idx := e.indexLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return nil
	}
	e.items = append(e.items[:idx], e.items[idx+1:]...)
	perr := e.persistLocked(ctx)
	ev := e.eventLocked(EventItemDeleted, id, nil)
	e.mu.Unlock()

	e.notifier.Notify(ev)
	return e.reportPersist(perr)
}

// ReplaceItems replaces the whole collection, as when importing a file,
// and persists it. Nothing is pushed to the remote.
func (e *Engine) ReplaceItems(ctx context.Context, items []supply.Item) error {
	items = supply.CloneAll(items)
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = supply.NewID()
		}
	}

	e.mu.Lock()
	e.items = items
	perr := e.persistLocked(ctx)
	ev := e.eventLocked(EventLoaded, "", nil)
	e.mu.Unlock()

	e.notifier.Notify(ev)
	return e.reportPersist(perr)
}

// Items returns a copy of the collection in display order.
func (e *Engine) Items() []supply.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return supply.CloneAll(e.items)
}

// Item returns a copy of the item with the given id.
func (e *Engine) Item(id string) (supply.Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx := e.indexLocked(id); idx >= 0 {
		return e.items[idx].Clone(), true
	}
	return supply.Item{}, false
}

// IsLoading reports whether a remote sync is in flight.
func (e *Engine) IsLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// LastError returns the most recently recorded error, or nil.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Version returns a counter that increases on every observable change.
func (e *Engine) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Status returns a snapshot of the engine and remote state.
func (e *Engine) Status() Status {
	st := Status{Configured: e.IsConfigured()}
	if e.remote != nil {
		st.LastSync = e.remote.LastSync()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	st.Loading = e.loading
	st.Version = e.version
	st.ItemCount = len(e.items)
	if e.lastErr != nil {
		st.LastError = supply.Message(e.lastErr)
	}
	return st
}

func (e *Engine) indexLocked(id string) int {
	for i := range e.items {
		if e.items[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked saves the collection. Saving under the lock keeps the
// stored order of writes equal to the order of mutations.
func (e *Engine) persistLocked(ctx context.Context) error {
	return e.store.Save(ctx, e.items)
}

// reportPersist records a save failure. The in-memory collection is kept
// and the next mutation saves again.
func (e *Engine) reportPersist(err error) error {
	if err == nil {
		return nil
	}
	err = fmt.Errorf("save local items: %w", err)
	e.logger.Printf("Warning: %v", err)

	e.mu.Lock()
	e.lastErr = err
	ev := e.eventLocked(EventPersistFailed, "", err)
	e.mu.Unlock()

	e.notifier.Notify(ev)
	return err
}

func (e *Engine) remoteWriteFailed(id string, err error) error {
	e.logger.Printf("Warning: remote write failed: %v", err)

	e.mu.Lock()
	e.lastErr = err
	ev := e.eventLocked(EventRemoteWriteFailed, id, err)
	e.mu.Unlock()

	e.notifier.Notify(ev)
	return err
}

// eventLocked bumps the version and builds the matching event.
func (e *Engine) eventLocked(kind EventKind, id string, err error) Event {
	e.version++
	ev := Event{
		Kind:      kind,
		Version:   e.version,
		ItemID:    id,
		ItemCount: len(e.items),
		Loading:   e.loading,
		Time:      e.now(),
	}
	if err != nil {
		ev.Error = supply.Message(err)
	}
	return ev
}
