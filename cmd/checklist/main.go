// Command checklist keeps a supply checklist in sync with a shared
// spreadsheet.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/doctorheli/checklist/internal/config"
	"github.com/doctorheli/checklist/internal/logging"
	"github.com/doctorheli/checklist/internal/sheets"
	"github.com/doctorheli/checklist/internal/store"
	"github.com/doctorheli/checklist/internal/supply"
	"github.com/doctorheli/checklist/internal/sync"
	"github.com/doctorheli/checklist/internal/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool

	cfg  *config.Config
	logs *logging.Sink
)

var rootCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Supply checklist synced with a shared spreadsheet",
	Long: `checklist tracks medical supplies: what is stocked, where it is, when it
expires and when it was last checked.

Items are stored locally and, once a spreadsheet is configured with
'checklist configure', kept in sync with it. Each item is linked to its
spreadsheet row by position.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Init(noColor)

		if cfgFile == "" {
			cfgFile = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		logs, err = logging.Open(logging.Options{File: cfg.LogFile, Verbose: verbose})
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logs != nil {
			_ = logs.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.checklist/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "mirror log output to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "items", Title: "Items:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
		&cobra.Group{ID: "data", Title: "Import and export:"},
	)
}

func main() {
	_ = godotenv.Load() // Load .env file if it exists

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the opened components for one command.
type app struct {
	store  *store.Store
	client *sheets.Client
	engine *sync.Engine
}

// openApp opens the local store and builds the engine. notifier may be nil.
func openApp(ctx context.Context, notifier sync.Notifier) (*app, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	client := sheets.New(sheets.Config{
		BaseURL:    cfg.BaseURL,
		DocumentID: cfg.DocumentID,
		AccessKey:  cfg.AccessKey,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Logger:     logs.Logger("sheets"),
	})

	engine, err := startEngine(ctx, st, client, &sync.Options{
		Logger:      logs.Logger("sync"),
		Notifier:    notifier,
		AppendOnAdd: cfg.AppendOnAdd,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &app{store: st, client: client, engine: engine}, nil
}

// startEngine opens the engine. A local persistence failure is only a
// warning: the engine keeps working in memory and a sync can rebuild the
// collection.
func startEngine(ctx context.Context, st sync.LocalStore, remote sync.Remote, opts *sync.Options) (*sync.Engine, error) {
	engine, err := sync.Open(ctx, st, remote, opts)
	if err != nil {
		if !errors.Is(err, supply.ErrPersistence) {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "%s Local data unavailable, working from memory: %v\n", ui.RenderWarn("⚠"), err)
	}
	return engine, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("Warning: failed to close store: %v", err)
	}
}

// reportMutation prints the outcome of a local change. Remote failures
// leave the local change in place, so they are warnings.
func reportMutation(err error) error {
	if err == nil {
		return nil
	}
	if supply.IsRemote(err) && !errors.Is(err, supply.ErrPersistence) {
		fmt.Fprintf(os.Stderr, "%s Saved locally, spreadsheet not updated: %s\n",
			ui.RenderWarn("⚠"), supply.Message(err))
		return nil
	}
	return err
}
