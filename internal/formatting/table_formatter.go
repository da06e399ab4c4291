package formatting

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"scoreboard/internal/intra"
)

// nameColumnWidth caps display names so tables fit a terminal.
const nameColumnWidth = 28

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
	now     func() time.Time
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{options: options, now: time.Now}
}

func (f *TableFormatter) Students(students []intra.Student, stats intra.Stats) error {
	if len(students) == 0 {
		return f.empty("No students found")
	}
	t := f.createTable(table.Row{"Login", "Name", "Level", "Promo", "Wallet", "Eval Pts", "Location"})
	for _, s := range students {
		t.AppendRow(table.Row{
			s.Login,
			Truncate(s.DisplayName, nameColumnWidth),
			FormatLevel(s.Level),
			year(s.PromoYear),
			s.Wallet,
			s.EvaluationPoints,
			f.presence(s.Status),
		})
	}
	f.appendStats(t, stats)
	t.Render()
	return nil
}

func (f *TableFormatter) Poolers(poolers []intra.Pooler, stats intra.Stats) error {
	if len(poolers) == 0 {
		return f.empty("No poolers found")
	}
	t := f.createTable(table.Row{"Login", "Name", "Level", "Pool", "Started", "Location"})
	for _, p := range poolers {
		started := ""
		if !p.PoolStartDate.IsZero() {
			started = p.PoolStartDate.Format(time.DateOnly)
		}
		pool := p.PoolMonth
		if pool == "" {
			pool = year(p.PoolYear)
		}
		t.AppendRow(table.Row{
			p.Login,
			Truncate(p.DisplayName, nameColumnWidth),
			FormatLevel(p.Level),
			pool,
			started,
			f.presence(p.Status),
		})
	}
	f.appendStats(t, stats)
	t.Render()
	return nil
}

func (f *TableFormatter) Profile(me *intra.UserProfile) error {
	t := f.createTable(table.Row{"Field", "Value"})
	t.AppendRows(f.profileRows(me))
	t.Render()
	return nil
}

func (f *TableFormatter) Summary(sum *intra.Summary) error {
	if sum.Me != nil {
		fmt.Fprintf(f.options.Out, "Signed in as %s (%s)\n\n", f.color(text.FgHiCyan, sum.Me.Login), sum.Me.CampusName())
	}
	t := f.createTable(table.Row{"", "Total", "Avg Level", "Top Level", "Online", "In Progress"})
	for _, row := range []struct {
		name  string
		stats intra.Stats
	}{{"Students", sum.Students}, {"Poolers", sum.Poolers}} {
		t.AppendRow(table.Row{
			row.name,
			row.stats.TotalCount,
			FormatLevel(row.stats.AverageLevel),
			FormatLevel(row.stats.HighestLevel),
			row.stats.OnlineCount,
			row.stats.InProgressCount,
		})
	}
	t.Render()
	return nil
}

func (f *TableFormatter) TokenStatus(st TokenStatus) error {
	out := f.options.Out
	if !st.Authenticated || st.Token == nil {
		fmt.Fprintf(out, "Status:    %s\n", f.color(text.FgYellow, "Not authenticated"))
		fmt.Fprintln(out, "           Run: scoreboard auth login")
		fmt.Fprintf(out, "Storage:   %s\n", st.Storage)
		return nil
	}

	status := f.color(text.FgGreen, "Authenticated")
	if !st.Token.Valid {
		status = f.color(text.FgYellow, "Expiring (re-auth required soon)")
	}
	fmt.Fprintf(out, "Status:    %s\n", status)
	if st.Me != nil {
		fmt.Fprintf(out, "Identity:  %s (%s)\n", st.Me.Login, st.Me.DisplayName)
	}
	fmt.Fprintf(out, "Expires:   %s\n", FormatExpiry(st.Token.ExpiresAt, f.now()))
	if st.Token.Refreshable {
		fmt.Fprintf(out, "Refresh:   %s\n", st.RefreshMode)
	} else {
		fmt.Fprintf(out, "Refresh:   %s\n", f.color(text.FgYellow, "Not available (re-auth required on expiry)"))
	}
	fmt.Fprintf(out, "Storage:   %s\n", st.Storage)
	return nil
}

func (f *TableFormatter) profileRows(me *intra.UserProfile) []table.Row {
	rows := []table.Row{
		{"login", me.Login},
		{"name", me.DisplayName},
		{"email", me.Email},
		{"campus", me.CampusName()},
		{"wallet", me.Wallet},
		{"evaluation points", me.CorrectionPoint},
	}
	if c := me.Cursus(intra.CursusMain); c != nil {
		rows = append(rows, table.Row{"level", FormatLevel(c.Level)})
	}
	if me.PoolMonth != "" || me.PoolYear != "" {
		rows = append(rows, table.Row{"pool", me.PoolMonth + " " + me.PoolYear})
	}
	location := "offline"
	if me.Location != "" {
		location = me.Location
	}
	rows = append(rows,
		table.Row{"location", location},
		table.Row{"profile", intra.ProfileURLBase + me.Login},
	)
	return rows
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.Out)
	t.SetStyle(table.StyleRounded)
	if f.options.Color {
		t.Style().Color.Header = text.Colors{text.FgHiCyan}
	}
	if !f.options.NoHeaders {
		t.AppendHeader(header)
	}
	return t
}

func (f *TableFormatter) appendStats(t table.Writer, stats intra.Stats) {
	if f.options.NoHeaders {
		return
	}
	t.AppendFooter(table.Row{
		"Total", stats.TotalCount,
		"Avg " + FormatLevel(stats.AverageLevel),
		"Top " + FormatLevel(stats.HighestLevel),
		"Online " + strconv.Itoa(stats.OnlineCount),
	})
}

// empty formats empty result messages
func (f *TableFormatter) empty(message string) error {
	_, err := fmt.Fprintln(f.options.Out, f.color(text.FgYellow, message))
	return err
}

func year(y int) string {
	if y == 0 {
		return "-"
	}
	return strconv.Itoa(y)
}
