package main

import (
	"fmt"

	"github.com/siherrmann/triage"
	"github.com/siherrmann/triage/model"
	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [ticket key]",
	Short: "Summarize a ticket",
	Long: `Fetches the ticket from the issue tracker, removes personal data from
its description and summarizes it.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	tickets, err := session.FetchTickets(cmd.Context(), projectKey, model.TicketFilter{})
	if err != nil {
		return fmt.Errorf("fetch tickets failed: %w", err)
	}
	ticket, err := triage.FindTicket(tickets, args[0])
	if err != nil {
		return err
	}

	summary, err := session.SummarizeTicket(cmd.Context(), ticket)
	if err != nil {
		return fmt.Errorf("summary failed, try again: %w", err)
	}

	headerColor.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ticket.Key, ticket.Summary)
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}
