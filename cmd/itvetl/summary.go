package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"itvetl/internal/domain"
)

// printSummary renders the counters of a load and, with details, the
// repaired and discarded stations.
func printSummary(w io.Writer, res domain.LoadResult, details bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Loaded", "Repaired", "Discarded"})
	t.AppendRow(table.Row{res.Loaded, res.Repaired, res.Discarded})
	t.Render()

	if !details {
		return
	}
	if len(res.Repairs) > 0 {
		fmt.Fprintln(w, "\nRepaired")
		rt := table.NewWriter()
		rt.SetOutputMirror(w)
		rt.SetStyle(table.StyleLight)
		rt.AppendHeader(table.Row{"Source", "Name", "Locality", "Operations"})
		for _, r := range res.Repairs {
			ops := make([]string, len(r.Operations))
			for i, op := range r.Operations {
				ops[i] = op.Reason + ": " + op.Operation
			}
			rt.AppendRow(table.Row{r.Source, r.Name, r.Locality, strings.Join(ops, "\n")})
		}
		rt.Render()
	}
	if len(res.Discards) > 0 {
		fmt.Fprintln(w, "\nDiscarded")
		dt := table.NewWriter()
		dt.SetOutputMirror(w)
		dt.SetStyle(table.StyleLight)
		dt.AppendHeader(table.Row{"Source", "Name", "Locality", "Reason"})
		for _, d := range res.Discards {
			dt.AppendRow(table.Row{d.Source, d.Name, d.Locality, d.Reason})
		}
		dt.Render()
	}
}
