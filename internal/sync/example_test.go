package sync_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/doctorheli/checklist/internal/store"
	"github.com/doctorheli/checklist/internal/sync"
)

// This example opens a local-only engine on a fresh database, which starts
// from the seed collection.
func ExampleOpen() {
	dir, err := os.MkdirTemp("", "checklist-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "checklist.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	engine, err := sync.Open(context.Background(), st, nil, &sync.Options{
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("items:", len(engine.Items()))
	fmt.Println("configured:", engine.IsConfigured())
	// Output:
	// items: 8
	// configured: false
}

// This example subscribes to state changes while toggling an item.
func ExampleEngine_ToggleChecked() {
	dir, err := os.MkdirTemp("", "checklist-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "checklist.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	ctx := context.Background()
	engine, err := sync.Open(ctx, st, nil, &sync.Options{
		Logger: log.New(io.Discard, "", 0),
		Notifier: sync.NotifierFunc(func(ev sync.Event) {
			if ev.Kind == sync.EventItemUpdated {
				fmt.Println("event:", ev.Kind)
			}
		}),
	})
	if err != nil {
		log.Fatal(err)
	}

	first := engine.Items()[0]
	if err := engine.ToggleChecked(ctx, first.ID); err != nil {
		log.Fatal(err)
	}

	item, _ := engine.Item(first.ID)
	fmt.Println("checked changed:", item.IsChecked != first.IsChecked)
	// Output:
	// event: item_updated
	// checked changed: true
}
