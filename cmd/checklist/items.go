package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/doctorheli/checklist/internal/supply"
	"github.com/doctorheli/checklist/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	GroupID: "items",
	Short:   "List supply items",
	Long: `List supply items from the local copy.

Filters combine:
  checklist list --category Medicine
  checklist list --search gauze --unchecked
  checklist list --expiring`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		search, _ := cmd.Flags().GetString("search")
		unchecked, _ := cmd.Flags().GetBool("unchecked")
		expiring, _ := cmd.Flags().GetBool("expiring")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		now := time.Now()
		items := supply.Filter{Category: category, Search: search}.Apply(a.engine.Items())
		filtered := items[:0]
		for _, it := range items {
			if unchecked && it.IsChecked {
				continue
			}
			if expiring && !it.IsExpiredAt(now) && !it.IsExpiringSoonAt(now) {
				continue
			}
			filtered = append(filtered, it)
		}

		if asJSON {
			if filtered == nil {
				filtered = []supply.Item{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(filtered)
		}

		if len(filtered) == 0 {
			fmt.Println(ui.RenderMuted("No items"))
			return nil
		}
		for i := range filtered {
			fmt.Printf("%s  %s\n", ui.RenderMuted(shortID(filtered[i].ID)), ui.ItemLine(&filtered[i], now))
		}

		checked := 0
		for _, it := range filtered {
			if it.IsChecked {
				checked++
			}
		}
		fmt.Printf("\n%d items, %d checked\n", len(filtered), checked)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show <item>",
	GroupID: "items",
	Short:   "Show one item",
	Long:    `Show every field of an item. <item> is an ID, an ID prefix or the item name.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		item, err := resolveItem(a.engine.Items(), args[0])
		if err != nil {
			return err
		}
		fmt.Print(ui.ItemDetail(&item, time.Now()))
		return nil
	},
}

var toggleCmd = &cobra.Command{
	Use:     "toggle <item>...",
	GroupID: "items",
	Short:   "Check or uncheck items",
	Long: `Flip the checked state of one or more items and write each to its
spreadsheet row.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, ref := range args {
			item, err := resolveItem(a.engine.Items(), ref)
			if err != nil {
				return err
			}
			if err := reportMutation(a.engine.ToggleChecked(ctx, item.ID)); err != nil {
				return err
			}
			updated, _ := a.engine.Item(item.ID)
			fmt.Printf("%s %s\n", ui.CheckBox(updated.IsChecked), updated.Name)
		}
		return nil
	},
}

// itemFlags are the editable fields shared by add and update.
type itemFlags struct {
	name     string
	category string
	quantity int
	location string
	notes    string
	expires  string
}

func addItemFlags(cmd *cobra.Command, f *itemFlags) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "item name")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "category ("+strings.Join(supply.Categories, ", ")+")")
	cmd.Flags().IntVarP(&f.quantity, "quantity", "q", 0, "quantity")
	cmd.Flags().StringVarP(&f.location, "location", "l", "", "storage location")
	cmd.Flags().StringVar(&f.notes, "notes", "", "notes")
	cmd.Flags().StringVarP(&f.expires, "expires", "e", "", `expiration date: yyyy/MM/dd, or e.g. "in 6 months"; "none" clears it`)
}

var addFlags itemFlags

var addCmd = &cobra.Command{
	Use:     "add",
	GroupID: "items",
	Short:   "Add an item",
	Long: `Add an item to the checklist.

Without --name on a terminal, a form asks for the fields.

With a spreadsheet configured the checklist is synced after the add. Unless
append_on_add is set in the config, an item that is not yet in the
spreadsheet disappears at that sync; add its row to the spreadsheet too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f := addFlags
		if f.name == "" && isInteractive() {
			if err := runItemForm(&f); err != nil {
				return err
			}
		}

		item := supply.Item{
			Name:     f.name,
			Category: f.category,
			Quantity: f.quantity,
			Location: f.location,
			Notes:    f.notes,
		}
		item.SetDefaults()
		exp, err := parseDateFlag(f.expires, time.Now())
		if err != nil {
			return err
		}
		item.ExpirationDate = exp
		if err := item.Validate(); err != nil {
			return err
		}

		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		added, err := a.engine.AddItem(ctx, item)
		if err := reportMutation(err); err != nil {
			return err
		}
		fmt.Printf("%s Added %s (%s)\n", ui.RenderPass("✓"), added.Name, shortID(added.ID))
		if _, ok := a.engine.Item(added.ID); !ok {
			fmt.Printf("   %s\n", ui.RenderWarn("Not in the spreadsheet yet, so the sync removed it locally"))
		}
		return nil
	},
}

// runItemForm asks for item fields on the terminal.
func runItemForm(f *itemFlags) error {
	if f.category == "" {
		f.category = supply.CategoryOther
	}
	quantity := strconv.Itoa(f.quantity)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(&f.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					return nil
				}),
			huh.NewSelect[string]().Title("Category").
				Options(huh.NewOptions(supply.Categories...)...).
				Value(&f.category),
			huh.NewInput().Title("Quantity").Value(&quantity).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 0 {
						return errors.New("enter a whole number")
					}
					return nil
				}),
			huh.NewInput().Title("Location").Value(&f.location),
			huh.NewInput().Title("Expires").
				Description(`yyyy/MM/dd or e.g. "in 6 months"; blank for none`).
				Value(&f.expires),
			huh.NewText().Title("Notes").Value(&f.notes),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	f.quantity, _ = strconv.Atoi(strings.TrimSpace(quantity))
	return nil
}

var updateFlags itemFlags

var updateCmd = &cobra.Command{
	Use:     "update <item>",
	GroupID: "items",
	Short:   "Change an item's fields",
	Long: `Change the given fields of an item and write it to its spreadsheet row.

  checklist update ibuprofen --quantity 3 --expires 2026/05/31`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		item, err := resolveItem(a.engine.Items(), args[0])
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		changed := false
		if flags.Changed("name") {
			item.Name, changed = updateFlags.name, true
		}
		if flags.Changed("category") {
			item.Category, changed = updateFlags.category, true
		}
		if flags.Changed("quantity") {
			item.Quantity, changed = updateFlags.quantity, true
		}
		if flags.Changed("location") {
			item.Location, changed = updateFlags.location, true
		}
		if flags.Changed("notes") {
			item.Notes, changed = updateFlags.notes, true
		}
		if flags.Changed("expires") {
			exp, err := parseDateFlag(updateFlags.expires, time.Now())
			if err != nil {
				return err
			}
			item.ExpirationDate, changed = exp, true
		}
		if !changed {
			return errors.New("nothing to update; pass at least one field flag")
		}
		if err := item.Validate(); err != nil {
			return err
		}

		if err := reportMutation(a.engine.UpdateItem(ctx, item)); err != nil {
			return err
		}
		fmt.Printf("%s Updated %s\n", ui.RenderPass("✓"), item.Name)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <item>",
	Aliases: []string{"rm"},
	GroupID: "items",
	Short:   "Delete an item locally",
	Long: `Delete an item from the local checklist. The spreadsheet row is left in
place, so the item comes back at the next sync unless its row is removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		yes, _ := cmd.Flags().GetBool("yes")

		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		item, err := resolveItem(a.engine.Items(), args[0])
		if err != nil {
			return err
		}

		if !yes {
			if !isInteractive() {
				return errors.New("refusing to delete without --yes on a non-interactive terminal")
			}
			confirm := false
			err := huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s?", item.Name)).
				Affirmative("Delete").
				Negative("Cancel").
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

		if err := a.engine.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), item.Name)
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("category", "c", "", "only items in this category")
	listCmd.Flags().StringP("search", "s", "", "only items whose name contains this text")
	listCmd.Flags().Bool("unchecked", false, "only unchecked items")
	listCmd.Flags().Bool("expiring", false, "only expired items and items expiring within 30 days")
	listCmd.Flags().Bool("json", false, "print JSON")

	addItemFlags(addCmd, &addFlags)
	addItemFlags(updateCmd, &updateFlags)
	deleteCmd.Flags().BoolP("yes", "y", false, "delete without asking")

	rootCmd.AddCommand(listCmd, showCmd, toggleCmd, addCmd, updateCmd, deleteCmd)
}
