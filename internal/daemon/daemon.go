// Package daemon keeps a sync engine fresh in the background.
//
// The daemon:
// 1. Refreshes the engine once on start
// 2. Refreshes it again every RefreshInterval
// 3. Watches the config file and reloads credentials when it changes
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/doctorheli/checklist/internal/supply"
)

// Refresher is the part of the sync engine the daemon drives.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Config holds configuration for the daemon.
type Config struct {
	// RefreshInterval is how often to refresh. Zero disables periodic
	// refresh.
	RefreshInterval time.Duration

	// DebounceInterval is how long the config file must be quiet before a
	// change is applied. Editors often write a file several times.
	DebounceInterval time.Duration

	// WatchPath is the config file to watch. Empty disables watching.
	WatchPath string

	// Reload re-reads the config and applies new credentials. It runs
	// before the refresh that follows a config change.
	Reload func() error

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval:  5 * time.Minute,
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Stats counts what the daemon has done.
type Stats struct {
	Refreshes     int       `json:"refreshes"`
	Failures      int       `json:"failures"`
	ConfigReloads int       `json:"config_reloads"`
	LastRefresh   time.Time `json:"last_refresh"`
	LastError     string    `json:"last_error,omitempty"`
}

// Daemon schedules engine refreshes.
type Daemon struct {
	engine Refresher
	config *Config

	watcher   *FileWatcher
	pending   time.Time // when the config file last changed; zero if nothing pending
	pendingMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a daemon with default configuration.
func New(engine Refresher) (*Daemon, error) {
	return NewWithConfig(engine, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(engine Refresher, config *Config) (*Daemon, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}

	d := &Daemon{
		engine: engine,
		config: config,
	}

	if config.WatchPath != "" {
		watcher, err := NewFileWatcher()
		if err != nil {
			return nil, err
		}
		d.watcher = watcher
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Start runs the daemon. It blocks until ctx is cancelled or Stop is
// called. Refresh failures are logged and counted, never returned.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if d.watcher != nil {
		if err := d.watcher.Start(d.config.WatchPath); err != nil {
			_ = d.watcher.Stop()
			return fmt.Errorf("failed to watch config: %w", err)
		}
		d.config.Logger.Printf("Watching: %s", d.config.WatchPath)

		d.wg.Add(2)
		go d.watchFileEvents()
		go d.processPending()
	}

	d.RefreshNow(ctx)

	if d.config.RefreshInterval > 0 {
		d.wg.Add(1)
		go d.refreshLoop()
	}

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop shuts the daemon down and waits for its goroutines.
func (d *Daemon) Stop() error {
	d.stopOnce.Do(func() {
		d.config.Logger.Println("Stopping daemon")
		d.cancel()

		if d.watcher != nil {
			if err := d.watcher.Stop(); err != nil {
				d.config.Logger.Printf("Error closing watcher: %v", err)
			}
		}

		d.wg.Wait()
		d.config.Logger.Println("Daemon stopped")
	})
	return nil
}

// RefreshNow refreshes the engine once and records the outcome.
func (d *Daemon) RefreshNow(ctx context.Context) {
	err := d.engine.Refresh(ctx)

	d.statsMu.Lock()
	d.stats.Refreshes++
	d.stats.LastRefresh = time.Now()
	if err != nil {
		d.stats.Failures++
		d.stats.LastError = supply.Message(err)
	} else {
		d.stats.LastError = ""
	}
	d.statsMu.Unlock()

	if err != nil {
		d.config.Logger.Printf("Refresh failed: %v", err)
		return
	}
	d.config.Logger.Println("Refresh complete")
}

// Stats returns a copy of the daemon counters.
func (d *Daemon) Stats() Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

func (d *Daemon) refreshLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.RefreshNow(d.ctx)
		}
	}
}

// watchFileEvents records config file changes for processPending.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			if event.Op == OpDelete {
				continue
			}
			d.config.Logger.Printf("File event: %s %s", event.Op, event.Path)

			d.pendingMu.Lock()
			d.pending = time.Now()
			d.pendingMu.Unlock()

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// processPending applies a config change once the file has been quiet for
// DebounceInterval.
func (d *Daemon) processPending() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if d.takePending(time.Now()) {
				d.applyConfigChange()
			}
		}
	}
}

// takePending reports whether a queued change is old enough to apply and
// clears it if so.
func (d *Daemon) takePending(now time.Time) bool {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()

	if d.pending.IsZero() || now.Sub(d.pending) < d.config.DebounceInterval {
		return false
	}
	d.pending = time.Time{}
	return true
}

func (d *Daemon) applyConfigChange() {
	d.config.Logger.Println("Config changed, reloading")

	if d.config.Reload != nil {
		if err := d.config.Reload(); err != nil {
			d.config.Logger.Printf("Error reloading config: %v", err)
			return
		}
	}

	d.statsMu.Lock()
	d.stats.ConfigReloads++
	d.statsMu.Unlock()

	d.RefreshNow(d.ctx)
}
