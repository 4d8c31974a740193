package supply

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

//go:embed seed.toml
var seedCatalogue []byte

type seedFile struct {
	Items []seedItem `toml:"item"`
}

type seedItem struct {
	Name     string `toml:"name"`
	Category string `toml:"category"`
	Checked  bool   `toml:"checked"`
	Years    int    `toml:"years"`
	Months   int    `toml:"months"`
	Days     int    `toml:"days"`
	Quantity int    `toml:"quantity"`
	Location string `toml:"location"`
	Notes    string `toml:"notes"`
}

var dateParser = newDateParser()

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

var offsetPattern = regexp.MustCompile(`^in\s+(\d+|an?|one)\s+(day|week|month|year)s?$`)

// ParseRelativeDate resolves a date expression such as "in 6 months" or
// "next friday" against now and truncates it to a calendar day. Offsets of
// the form "in N days/weeks/months/years" use calendar arithmetic; anything
// else goes to the natural-language parser.
func ParseRelativeDate(expr string, now time.Time) (time.Time, error) {
	if m := offsetPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(expr))); m != nil {
		n := 1
		if v, err := strconv.Atoi(m[1]); err == nil {
			n = v
		}
		switch m[2] {
		case "day":
			return AddCalendar(Day(now), 0, 0, n), nil
		case "week":
			return AddCalendar(Day(now), 0, 0, 7*n), nil
		case "month":
			return AddCalendar(Day(now), 0, n, 0), nil
		default:
			return AddCalendar(Day(now), n, 0, 0), nil
		}
	}

	r, err := dateParser.Parse(expr, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", expr, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", expr)
	}
	return Day(r.Time), nil
}

// AddCalendar adds years and months to t, clamping the day to the end of
// the target month (Aug 31 + 6 months is Feb 28), then adds days.
func AddCalendar(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y+years, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1+days)
}

// SeedItems returns the built-in first-run collection with expiration dates
// resolved against now. Checked items are stamped as checked at now.
func SeedItems(now time.Time) ([]Item, error) {
	var file seedFile
	if _, err := toml.Decode(string(seedCatalogue), &file); err != nil {
		return nil, fmt.Errorf("failed to decode seed catalogue: %w", err)
	}

	items := make([]Item, 0, len(file.Items))
	for _, s := range file.Items {
		item := Item{
			ID:        NewID(),
			Name:      s.Name,
			Category:  s.Category,
			IsChecked: s.Checked,
			Quantity:  s.Quantity,
			Location:  s.Location,
			Notes:     s.Notes,
		}
		if s.Years != 0 || s.Months != 0 || s.Days != 0 {
			exp := AddCalendar(Day(now), s.Years, s.Months, s.Days)
			item.ExpirationDate = &exp
		}
		if s.Checked {
			t := now
			item.LastCheckedDate = &t
		}
		items = append(items, item)
	}
	return items, nil
}
