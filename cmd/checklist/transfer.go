package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/doctorheli/checklist/internal/migrate"
	"github.com/doctorheli/checklist/internal/store"
	"github.com/doctorheli/checklist/internal/ui"
	"github.com/doctorheli/checklist/internal/xlsx"
)

var exportCmd = &cobra.Command{
	Use:     "export <file.xlsx>",
	GroupID: "data",
	Short:   "Export the checklist to an .xlsx workbook",
	Long: `Write the local checklist to an .xlsx workbook in the spreadsheet column
layout, with a title row.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		items := a.engine.Items()
		if err := xlsx.ExportFile(args[0], items); err != nil {
			return err
		}
		fmt.Printf("%s Exported %d items to %s\n", ui.RenderPass("✓"), len(items), args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file.xlsx>",
	GroupID: "data",
	Short:   "Replace the checklist with an .xlsx workbook",
	Long: `Replace the local checklist with the items in the first sheet of an .xlsx
workbook laid out like the spreadsheet. A title row is skipped.

Imported items are not linked to spreadsheet rows. If a spreadsheet is
configured, the next sync replaces them with its rows.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		yes, _ := cmd.Flags().GetBool("yes")

		items, skipped, err := xlsx.ImportFile(args[0])
		if err != nil {
			return err
		}

		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if !yes {
			if !isInteractive() {
				return errors.New("refusing to replace the checklist without --yes on a non-interactive terminal")
			}
			confirm := false
			err := huh.NewConfirm().
				Title(fmt.Sprintf("Replace %d items with %d from %s?", len(a.engine.Items()), len(items), args[0])).
				Value(&confirm).
				Run()
			if err != nil {
				return err
			}
			if !confirm {
				fmt.Println("Cancelled")
				return nil
			}
		}

		if err := a.engine.ReplaceItems(ctx, items); err != nil {
			return err
		}
		fmt.Printf("%s Imported %d items from %s\n", ui.RenderPass("✓"), len(items), args[0])
		if skipped > 0 {
			fmt.Printf("   %s\n", ui.RenderWarn(fmt.Sprintf("Skipped %d rows with fewer than 3 cells", skipped)))
		}
		return nil
	},
}

var migrateFlags migrate.Options

var migrateCmd = &cobra.Command{
	Use:     "migrate <SavedSupplyItems.json>",
	GroupID: "data",
	Short:   "Import a checklist saved by the mobile app",
	Long: `Import the JSON export of the mobile app's saved checklist into the local
database.

The mobile app stores dates as seconds since 2001-01-01 UTC; they are
converted to calendar dates. Items with unusable IDs get new ones.

Example:
  checklist migrate SavedSupplyItems.json --dry-run
  checklist migrate SavedSupplyItems.json --backup --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := migrateFlags
		opts.From = args[0]

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := migrate.Migrate(cmd.Context(), st, opts)
		if err != nil {
			return err
		}

		if result.BackupCreated != "" {
			fmt.Printf("%s Backup: %s\n", ui.RenderAccent("💾"), result.BackupCreated)
		}
		for _, msg := range result.Errors {
			fmt.Printf("%s %s\n", ui.RenderWarn("⚠"), msg)
		}

		if opts.DryRun {
			fmt.Printf("%s Dry run: %d items would be imported\n", ui.RenderAccent("🔍"), result.Converted)
			now := time.Now()
			for i := range result.Items {
				fmt.Printf("   %s\n", ui.ItemLine(&result.Items[i], now))
			}
			return nil
		}
		fmt.Printf("%s Imported %d items into %s\n", ui.RenderPass("✓"), result.Converted, st.Path())
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:     "reset",
	GroupID: "data",
	Short:   "Discard the local checklist and start from the built-in items",
	Long: `Remove the locally saved checklist. The next command loads the built-in
starting items, or the spreadsheet rows if a spreadsheet is configured.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			if !isInteractive() {
				return errors.New("refusing to reset without --yes on a non-interactive terminal")
			}
			confirm := false
			err := huh.NewConfirm().
				Title("Discard the local checklist?").
				Value(&confirm).
				Run()
			if err != nil {
				return err
			}
			if !confirm {
				fmt.Println("Cancelled")
				return nil
			}
		}

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("%s Local checklist removed from %s\n", ui.RenderPass("✓"), st.Path())
		return nil
	},
}

func init() {
	importCmd.Flags().BoolP("yes", "y", false, "replace without asking")
	resetCmd.Flags().BoolP("yes", "y", false, "reset without asking")

	migrateCmd.Flags().BoolVar(&migrateFlags.DryRun, "dry-run", false, "show what would be imported without writing")
	migrateCmd.Flags().BoolVar(&migrateFlags.Backup, "backup", false, "copy the input file before importing")
	migrateCmd.Flags().BoolVar(&migrateFlags.Force, "force", false, "replace items already in the local database")

	rootCmd.AddCommand(exportCmd, importCmd, migrateCmd, resetCmd)
}
