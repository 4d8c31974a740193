package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/doctorheli/checklist/internal/rowcodec"
	"github.com/doctorheli/checklist/internal/supply"
)

// parseDateFlag accepts yyyy/MM/dd, yyyy-MM-dd or a relative expression
// such as "in 6 months". "none" clears the date.
func parseDateFlag(value string, now time.Time) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "none") {
		return nil, nil
	}
	if d := rowcodec.ParseDate(strings.ReplaceAll(value, "-", "/")); d != nil {
		return d, nil
	}
	d, err := supply.ParseRelativeDate(value, now)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// resolveItem finds an item by full ID, unique ID prefix, or
// case-insensitive name.
func resolveItem(items []supply.Item, ref string) (supply.Item, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return supply.Item{}, fmt.Errorf("no item given")
	}

	var matches []supply.Item
	for _, it := range items {
		if it.ID == ref {
			return it, nil
		}
		if strings.HasPrefix(it.ID, strings.ToLower(ref)) || strings.EqualFold(it.Name, ref) {
			matches = append(matches, it)
		}
	}

	switch len(matches) {
	case 0:
		return supply.Item{}, fmt.Errorf("no item matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, fmt.Sprintf("%s (%s)", m.Name, shortID(m.ID)))
		}
		return supply.Item{}, fmt.Errorf("%q matches %d items: %s", ref, len(matches), strings.Join(names, ", "))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
