package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/siherrmann/triage/model"
)

// printIngestResult prints the counts and a warning per failed item
func printIngestResult(w io.Writer, result *model.IngestResult) {
	fmt.Fprintf(w, "Ingested %d item(s), %d failed.\n", len(result.Succeeded), len(result.Failed))
	for _, f := range result.Failed {
		warningColor.Fprintf(w, "warning: %s: %v\n", f.Item, f.Reason)
	}
}

func printSources(w io.Writer, sources []string) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	headerColor.Fprintln(w, "Sources:")
	for _, s := range sources {
		sourceColor.Fprintf(w, "  - %s\n", s)
	}
}

// printTickets prints one row per ticket
func printTickets(w io.Writer, tickets []*model.Ticket) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tPRIORITY\tSTATUS\tASSIGNEE\tCREATED\tSUMMARY")
	for _, t := range tickets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Key, dash(t.Priority), dash(t.Status), dash(t.Assignee), t.CreatedAt.Format("2006-01-02"), truncate(t.Summary, 60))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
