package cmd

import (
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// printSummary renders the counters of a batch run, omitting zero rows.
func printSummary(w io.Writer, title string, s housing.RunSummary) {
	t := newTable(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Outcome", "Count"})
	rows := []struct {
		label string
		n     int
	}{
		{"Municipalities processed", s.Processed},
		{"Resolved", s.Resolved},
		{"Unresolved", s.Unresolved},
		{"Pages fetched", s.PagesFetched},
		{"Pages unchanged", s.PagesSkipped},
		{"Fetch failures", s.FetchFailures},
		{"Commitments accepted", s.Accepted},
		{"Duplicates", s.Duplicates},
		{"Low-confidence discards", s.LowConfidenceDiscards},
		{"Status updates", s.StatusUpdates},
		{"Dangling references", s.DanglingReferences},
		{"Failures", s.Failures},
	}
	for i, r := range rows {
		if r.n == 0 && i > 0 {
			continue
		}
		t.AppendRow(table.Row{r.label, r.n})
	}
	if !s.EndedAt.IsZero() {
		t.AppendFooter(table.Row{"Elapsed", s.EndedAt.Sub(s.StartedAt).Round(time.Millisecond).String()})
	}
	if s.RunID != "" {
		t.SetCaption("run " + s.RunID)
	}
	t.Render()
}

func printStats(w io.Writer, stats housing.Stats, tables []string) {
	counts := newTable(w)
	counts.SetTitle("Tables")
	counts.AppendHeader(table.Row{"Table", "Rows"})
	for _, name := range tables {
		counts.AppendRow(table.Row{name, stats.TableCounts[name]})
	}
	counts.Render()

	statuses := make([]string, 0, len(stats.ByStatus))
	for s := range stats.ByStatus {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	byStatus := newTable(w)
	byStatus.SetTitle("Commitments by latest status")
	byStatus.AppendHeader(table.Row{"Status", "Commitments"})
	for _, s := range statuses {
		byStatus.AppendRow(table.Row{s, stats.ByStatus[housing.Status(s)]})
	}
	byStatus.Render()

	byCounty := newTable(w)
	byCounty.SetTitle("By county")
	byCounty.AppendHeader(table.Row{"County", "Municipalities", "Resolved", "Commitments", "Units"})
	var total housing.CountyStats
	for _, c := range stats.ByCounty {
		county := c.County
		if county == "" {
			county = "(unknown)"
		}
		byCounty.AppendRow(table.Row{county, c.Municipalities, c.Resolved, c.Commitments, c.TotalUnits})
		total.Municipalities += c.Municipalities
		total.Resolved += c.Resolved
		total.Commitments += c.Commitments
		total.TotalUnits += c.TotalUnits
	}
	byCounty.AppendFooter(table.Row{"Total", total.Municipalities, total.Resolved, total.Commitments, total.TotalUnits})
	byCounty.Render()
}
