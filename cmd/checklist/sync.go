package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doctorheli/checklist/internal/config"
	"github.com/doctorheli/checklist/internal/daemon"
	"github.com/doctorheli/checklist/internal/dashboard"
	"github.com/doctorheli/checklist/internal/supply"
	"github.com/doctorheli/checklist/internal/ui"
)

var refreshCmd = &cobra.Command{
	Use:     "refresh",
	GroupID: "sync",
	Short:   "Sync from the spreadsheet, or reload the local copy",
	Long: `Refresh the checklist: sync from the spreadsheet when one is configured,
otherwise reload the local copy. A failed sync falls back to the local copy.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), false)
	},
}

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Replace the local checklist with the spreadsheet",
	Long: `Fetch every row of the spreadsheet and replace the local checklist with it.

Items are matched to rows by position. Local items that have no row are
dropped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), true)
	},
}

func runSync(ctx context.Context, remoteOnly bool) error {
	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.engine.IsConfigured() {
		if remoteOnly {
			return fmt.Errorf("%w: run 'checklist configure' first", supply.ErrConfiguration)
		}
		fmt.Printf("%s Loaded %d items from %s\n", ui.RenderPass("✓"), len(a.engine.Items()), a.store.Path())
		return nil
	}

	fmt.Printf("%s Syncing from spreadsheet...\n", ui.RenderAccent("🔄"))
	start := time.Now()
	if err := a.engine.SyncWithRemote(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("✗"), supply.Message(err))
		return err
	}
	fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Items: %d\n", len(a.engine.Items()))
	return nil
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show configuration and local data status",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.engine.Status()
		now := time.Now()
		stats := dashboard.ComputeStats(a.engine.Items(), now)

		fmt.Printf("\n%s Checklist Status\n\n", ui.RenderAccent("📊"))
		fmt.Printf("Config: %s\n", cfgFile)
		if st.Configured {
			fmt.Printf("Spreadsheet: %s %s\n", ui.RenderPass("connected"), a.client.DocumentID())
		} else {
			fmt.Printf("Spreadsheet: %s\n", ui.RenderWarn("not configured"))
		}
		fmt.Printf("Database: %s\n", a.store.Path())
		if t, ok, err := a.store.UpdatedAt(ctx); err == nil && ok {
			fmt.Printf("Saved: %s\n", t.Local().Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Items: %d (%d checked)\n", stats.Total, stats.Checked)
		if stats.Expired > 0 {
			fmt.Printf("Expired: %s\n", ui.RenderFail(fmt.Sprint(stats.Expired)))
		}
		if stats.ExpiringSoon > 0 {
			fmt.Printf("Expiring within %d days: %s\n", supply.ExpiringSoonDays, ui.RenderWarn(fmt.Sprint(stats.ExpiringSoon)))
		}
		if st.LastError != "" {
			fmt.Printf("Last error: %s\n", ui.RenderFail(st.LastError))
		}
		fmt.Println()
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "sync",
	Short:   "Keep the checklist synced and serve a live dashboard",
	Long: `Run in the foreground: refresh the checklist every refresh_interval,
reload credentials when the config file changes, and serve a dashboard.

Dashboard endpoints:
  ws://localhost:PORT/ws       engine events and statistics
  http://localhost:PORT/items  items as JSON (?category=, ?q=)
  http://localhost:PORT/status sync and refresh status
  http://localhost:PORT/health health check`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		if !cmd.Flags().Changed("port") {
			port = cfg.DashboardPort
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: logs.Logger("dashboard"),
		})
		handler := dashboard.NewHandler(server, logs.Logger("dashboard"))

		a, err := openApp(ctx, handler)
		if err != nil {
			return err
		}
		defer a.Close()
		handler.Attach(a.engine)

		// The config file may not exist yet, but its directory must.
		watch := cfgFile
		if _, err := os.Stat(filepath.Dir(cfgFile)); err != nil {
			watch = ""
		}

		d, err := daemon.NewWithConfig(a.engine, &daemon.Config{
			RefreshInterval:  cfg.RefreshInterval,
			DebounceInterval: cfg.DebounceInterval,
			WatchPath:        watch,
			Reload: func() error {
				next, err := config.Load(cfgFile)
				if err != nil {
					return err
				}
				a.client.Configure(next.DocumentID, next.AccessKey)
				return nil
			},
			Logger: logs.Logger("daemon"),
		})
		if err != nil {
			return err
		}
		handler.AttachDaemon(d)

		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}
		defer func() {
			if err := server.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			}
		}()

		fmt.Printf("%s Serving checklist\n", ui.RenderAccent("🚀"))
		fmt.Printf("   Dashboard: http://localhost:%d/items\n", port)
		fmt.Printf("   WebSocket: ws://localhost:%d/ws\n", port)
		fmt.Printf("   Refresh: every %v\n", cfg.RefreshInterval)
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		if err := d.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Println("\nStopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "dashboard port (overrides dashboard_port)")

	rootCmd.AddCommand(refreshCmd, syncCmd, statusCmd, serveCmd)
}
