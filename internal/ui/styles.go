// Package ui renders checklist output for the terminal.
package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/doctorheli/checklist/internal/rowcodec"
	"github.com/doctorheli/checklist/internal/supply"
)

var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "25", Dark: "75"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "28", Dark: "78"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "130", Dark: "214"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "160", Dark: "203"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "245", Dark: "243"}
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	passStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle   = lipgloss.NewStyle().Foreground(ColorFail).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

// Init selects the colour profile. Colour is disabled when noColor is set,
// when NO_COLOR is present, or when stdout is not a terminal.
func Init(noColor bool) {
	_, noColorEnv := os.LookupEnv("NO_COLOR")
	if noColor || noColorEnv || !IsTerminal() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func RenderAccent(s string) string { return accentStyle.Render(s) }
func RenderPass(s string) string   { return passStyle.Render(s) }
func RenderWarn(s string) string   { return warnStyle.Render(s) }
func RenderFail(s string) string   { return failStyle.Render(s) }
func RenderMuted(s string) string  { return mutedStyle.Render(s) }
func RenderBold(s string) string   { return boldStyle.Render(s) }

// CheckBox renders the checked state of an item.
func CheckBox(checked bool) string {
	if checked {
		return RenderPass("[" + rowcodec.CheckMark + "]")
	}
	return "[ ]"
}

// ExpiryLabel describes an item's expiration date relative to now. It is
// empty when the item has no date.
func ExpiryLabel(item *supply.Item, now time.Time) string {
	if item.ExpirationDate == nil {
		return ""
	}
	date := rowcodec.FormatDate(item.ExpirationDate)
	switch {
	case item.IsExpiredAt(now):
		return RenderFail("expired " + date)
	case item.IsExpiringSoonAt(now):
		return RenderWarn("expires " + date)
	default:
		return RenderMuted("expires " + date)
	}
}

var (
	nameColumn     = lipgloss.NewStyle().Width(28)
	categoryColumn = lipgloss.NewStyle().Width(16)
)

// ItemLine renders one item as a single list line.
func ItemLine(item *supply.Item, now time.Time) string {
	parts := []string{
		CheckBox(item.IsChecked),
		nameColumn.Render(truncate(item.Name, 27)),
		categoryColumn.Render(RenderMuted(truncate(item.Category, 15))),
		fmt.Sprintf("x%-3d", item.Quantity),
	}
	if label := ExpiryLabel(item, now); label != "" {
		parts = append(parts, label)
	}
	return strings.Join(parts, " ")
}

// ItemDetail renders every field of an item, one per line.
func ItemDetail(item *supply.Item, now time.Time) string {
	var b strings.Builder
	field := func(name, value string) {
		if value == "" {
			value = RenderMuted("-")
		}
		fmt.Fprintf(&b, "%-14s %s\n", name+":", value)
	}

	b.WriteString(RenderBold(item.Name) + "\n\n")
	field("ID", item.ID)
	field("Category", item.Category)
	field("Checked", CheckBox(item.IsChecked))
	if item.LastCheckedDate != nil {
		field("Last checked", rowcodec.FormatDate(item.LastCheckedDate))
	}
	field("Expiration", ExpiryLabel(item, now))
	field("Quantity", fmt.Sprint(item.Quantity))
	field("Location", item.Location)
	field("Notes", item.Notes)
	if item.RowIndex != nil {
		field("Sheet row", fmt.Sprint(*item.RowIndex))
	} else {
		field("Sheet row", RenderMuted("not linked"))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
