package main

import (
	"encoding/json"
	"fmt"

	"github.com/siherrmann/triage/model"
	"github.com/spf13/cobra"
)

var (
	ticketPriorities    []string
	ticketStatuses      []string
	ticketCreators      []string
	ticketAssignees     []string
	ticketCreatedAfter  string
	ticketCreatedBefore string
	ticketsJSON         bool
)

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "List the tickets of the project",
	Long: `Fetches all tickets of the project from the issue tracker and lists the
ones matching the filters. Filters of one kind are alternatives, filters of
different kinds must all match.`,
	Args: cobra.NoArgs,
	RunE: runTickets,
}

func init() {
	ticketsCmd.Flags().StringSliceVar(&ticketPriorities, "priority", nil, "only tickets with these priorities")
	ticketsCmd.Flags().StringSliceVar(&ticketStatuses, "status", nil, "only tickets with these statuses")
	ticketsCmd.Flags().StringSliceVar(&ticketCreators, "creator", nil, "only tickets created by these users")
	ticketsCmd.Flags().StringSliceVar(&ticketAssignees, "assignee", nil, "only tickets assigned to these users")
	ticketsCmd.Flags().StringVar(&ticketCreatedAfter, "created-after", "", "only tickets created on or after this date (YYYY-MM-DD)")
	ticketsCmd.Flags().StringVar(&ticketCreatedBefore, "created-before", "", "only tickets created on or before this date (YYYY-MM-DD)")
	ticketsCmd.Flags().BoolVar(&ticketsJSON, "json", false, "output tickets as JSON")
	rootCmd.AddCommand(ticketsCmd)
}

func ticketFilter() (model.TicketFilter, error) {
	after, err := parseDate(ticketCreatedAfter, false)
	if err != nil {
		return model.TicketFilter{}, err
	}
	before, err := parseDate(ticketCreatedBefore, true)
	if err != nil {
		return model.TicketFilter{}, err
	}
	return model.TicketFilter{
		Priorities:    ticketPriorities,
		Statuses:      ticketStatuses,
		Creators:      ticketCreators,
		Assignees:     ticketAssignees,
		CreatedAfter:  after,
		CreatedBefore: before,
	}, nil
}

func runTickets(cmd *cobra.Command, args []string) error {
	filter, err := ticketFilter()
	if err != nil {
		return err
	}

	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	tickets, err := session.FetchTickets(cmd.Context(), projectKey, filter)
	if err != nil {
		return fmt.Errorf("fetch tickets failed: %w", err)
	}

	if ticketsJSON {
		data, err := json.MarshalIndent(tickets, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal tickets: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(tickets) == 0 {
		cmd.Println("No tickets found.")
		return nil
	}
	return printTickets(cmd.OutOrStdout(), tickets)
}
