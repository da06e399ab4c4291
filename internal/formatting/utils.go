package formatting

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"scoreboard/internal/intra"
)

// FormatLevel shows a cursus level with two decimals.
func FormatLevel(level float64) string {
	return fmt.Sprintf("%.2f", level)
}

// FormatExpiry describes a point in time relative to now, e.g.
// "in 1h59m" or "expired 3m ago".
func FormatExpiry(t time.Time, now time.Time) string {
	d := t.Sub(now).Round(time.Second)
	switch {
	case d > 0:
		return fmt.Sprintf("in %s (%s)", shortDuration(d), t.Local().Format(time.RFC3339))
	case d == 0:
		return "now"
	default:
		return fmt.Sprintf("expired %s ago", shortDuration(-d))
	}
}

// shortDuration drops a trailing "0s" from whole minutes.
func shortDuration(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	return s
}

// Truncate shortens s to max runes, ending in "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max || max < 4 {
		return s
	}
	return string(r[:max-3]) + "..."
}

func (f *TableFormatter) presence(st intra.PresenceStatus) string {
	if st.Online {
		return f.color(text.FgGreen, st.Location)
	}
	return f.color(text.FgHiBlack, "offline")
}

func (f *TableFormatter) color(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}
