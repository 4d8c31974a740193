package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/doctorheli/checklist/internal/config"
	"github.com/doctorheli/checklist/internal/rowcodec"
	"github.com/doctorheli/checklist/internal/ui"
)

var configureCmd = &cobra.Command{
	Use:     "configure",
	GroupID: "sync",
	Short:   "Set the spreadsheet ID and API key",
	Long: `Save the spreadsheet ID and API key to the config file.

Without flags on a terminal, a form asks for both. The spreadsheet must use
this column layout, with titles in row 1 and items from row 2:

  ` + strings.Join(rowcodec.Header, " | ") + `

A running 'checklist serve' picks up the new settings automatically.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		docID, _ := cmd.Flags().GetString("document-id")
		key, _ := cmd.Flags().GetString("access-key")
		reset, _ := cmd.Flags().GetBool("clear")

		// Save only what the file holds, not environment overrides.
		file, err := config.LoadFile(cfgFile)
		if err != nil {
			return err
		}

		switch {
		case reset:
			file.DocumentID, file.AccessKey = "", ""
		case cmd.Flags().Changed("document-id") || cmd.Flags().Changed("access-key"):
			if cmd.Flags().Changed("document-id") {
				file.DocumentID = docID
			}
			if cmd.Flags().Changed("access-key") {
				file.AccessKey = key
			}
		case isInteractive():
			if err := runConfigureForm(file); err != nil {
				return err
			}
		default:
			return errors.New("pass --document-id and --access-key, or run on a terminal")
		}

		file.DocumentID = strings.TrimSpace(file.DocumentID)
		file.AccessKey = strings.TrimSpace(file.AccessKey)
		if err := config.Save(cfgFile, file); err != nil {
			return err
		}

		if file.IsRemoteConfigured() {
			fmt.Printf("%s Spreadsheet configured in %s\n", ui.RenderPass("✓"), cfgFile)
			fmt.Println("   Run 'checklist sync' to fetch it")
		} else {
			fmt.Printf("%s Spreadsheet settings cleared in %s\n", ui.RenderWarn("⚠"), cfgFile)
		}
		return nil
	},
}

func runConfigureForm(c *config.Config) error {
	required := func(what string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", what)
			}
			return nil
		}
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Spreadsheet ID").
				Description("The long ID in the spreadsheet URL, between /d/ and /edit").
				Value(&c.DocumentID).
				Validate(required("spreadsheet ID")),
			huh.NewInput().
				Title("API key").
				EchoMode(huh.EchoModePassword).
				Value(&c.AccessKey).
				Validate(required("API key")),
		),
	).Run()
}

func init() {
	configureCmd.Flags().String("document-id", "", "spreadsheet ID")
	configureCmd.Flags().String("access-key", "", "API key")
	configureCmd.Flags().Bool("clear", false, "remove the saved spreadsheet settings")

	rootCmd.AddCommand(configureCmd)
}
