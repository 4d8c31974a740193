package sync

import (
	"context"
	"math/rand/v2"
	"reflect"
	"sort"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/doctorheli/checklist/internal/supply"
)

// TestEngine_ConcurrentAccess runs readers, writers and refreshes against one
// engine and checks that the collection, the store and the version counter
// agree afterwards. Run with -race.
func TestEngine_ConcurrentAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}

	const (
		numWorkers   = 16
		opsPerWorker = 50
		numRefreshes = 10
	)

	st := &memStore{}
	remote := &fakeRemote{configured: true}
	for i := 0; i < 20; i++ {
		remote.rows = append(remote.rows, supply.Item{Name: "Item", Category: supply.CategoryOther, Quantity: i})
	}

	var notified atomic.Uint64
	opts := testOptions(nil)
	opts.Notifier = NotifierFunc(func(Event) { notified.Add(1) })
	e := openEngine(t, st, remote, opts)
	ctx := context.Background()
	if err := e.SyncWithRemote(ctx); err != nil {
		t.Fatalf("initial sync: %v", err)
	}

	var (
		wg        gosync.WaitGroup
		mu        gosync.Mutex
		durations []time.Duration
	)
	record := func(d time.Duration) {
		mu.Lock()
		durations = append(durations, d)
		mu.Unlock()
	}

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				items := e.Items()
				if len(items) == 0 {
					continue
				}
				target := items[rand.IntN(len(items))]

				start := time.Now()
				switch rand.IntN(4) {
				case 0:
					_ = e.ToggleChecked(ctx, target.ID)
				case 1:
					target.Quantity++
					_ = e.UpdateItem(ctx, target)
				case 2:
					_, _ = e.Item(target.ID)
				default:
					_ = e.Status()
				}
				record(time.Since(start))
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < numRefreshes; i++ {
			_ = e.Refresh(ctx)
		}
	}()

	wg.Wait()

	items := e.Items()
	if !reflect.DeepEqual(st.snapshot(), items) {
		t.Error("stored collection differs from the engine's after concurrent access")
	}

	seen := make(map[string]bool, len(items))
	rows := make(map[int]bool, len(items))
	for _, it := range items {
		if seen[it.ID] {
			t.Errorf("duplicate id %s", it.ID)
		}
		seen[it.ID] = true
		if it.RowIndex != nil {
			if rows[*it.RowIndex] {
				t.Errorf("row %d bound twice", *it.RowIndex)
			}
			rows[*it.RowIndex] = true
		}
	}

	if e.IsLoading() {
		t.Error("engine still loading after all syncs returned")
	}
	if got, want := notified.Load(), e.Version(); got != want {
		t.Errorf("notified %d events, version is %d", got, want)
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	if n := len(durations); n > 0 {
		t.Logf("%d ops: p50=%v p95=%v max=%v", n, durations[n/2], durations[n*95/100], durations[n-1])
	}
}
