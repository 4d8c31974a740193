// Package sync keeps the local supply collection consistent with the remote
// spreadsheet.
//
// Overview
//
// The Engine owns the authoritative in-memory collection. It persists every
// change to the LocalStore and pushes single-row changes to the Remote when
// one is configured:
//
//	           Engine (items, loading, lastError, version)
//	          /            |                 \
//	LocalStore       Remote.FetchAll      Remote.UpdateRow
//	(one blob)       (read: replace all)  (write: one row)
//
// Reads replace the collection wholesale with what the remote returns.
// Writes are local first: the local change is applied and persisted, then
// the remote write is attempted. A failed remote write is recorded in
// LastError and returned, but the local change stays.
//
// Usage
//
//	st, err := store.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	client := sheets.New(sheets.Config{DocumentID: doc, AccessKey: key})
//	engine, err := sync.Open(ctx, st, client, nil)
//	if err != nil {
//	    return err
//	}
//
//	// Pull from the spreadsheet, or reload the local copy when unconfigured.
//	if err := engine.Refresh(ctx); err != nil {
//	    fmt.Println(supply.Message(err))
//	}
//
// Adding items
//
// There are two ways AddItem reaches the remote. By default the item is
// appended locally and then a full SyncWithRemote runs. Because the new item
// has no row yet, the fetched collection does not contain it and it drops
// out of the view until someone adds the row to the sheet. With
// Options.AppendOnAdd the engine appends a row instead and binds the item to
// the row number the remote reports.
//
// Row binding
//
// Items are linked to remote rows only by RowIndex. Inserting or deleting
// rows in the sheet by hand shifts every binding below the edit, and later
// writes land on the wrong rows. DeleteItem never touches the remote, so a
// deleted item comes back on the next full sync if its row still exists.
//
// Concurrency
//
// Engine methods block until the store and remote calls they make return;
// callers that must stay responsive run them on their own goroutines. The
// engine guards its fields with a mutex so readers see a consistent
// snapshot, but it does not serialize remote calls. When two
// SyncWithRemote calls overlap, the response that arrives last replaces the
// collection, and the first one to finish clears the loading flag.
//
// Notifications
//
// Every observable change bumps Version and is reported to the Notifier.
// Presentation code can either subscribe or poll Version.
package sync
