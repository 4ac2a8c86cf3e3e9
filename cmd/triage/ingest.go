package main

import (
	"fmt"
	"strings"

	"github.com/siherrmann/triage/core/ingest"
	"github.com/siherrmann/triage/model"
	"github.com/spf13/cobra"
)

var ingestTickets bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file or url...]",
	Short: "Add documents to the knowledge base",
	Long: `Loads text, markdown, HTML, PDF and CSV files or web pages into the
knowledge base. Every CSV row becomes its own document. With --tickets the
tickets of the project are added as well. Personal data is redacted first.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestTickets, "tickets", false, "also ingest all tickets of the project")
	rootCmd.AddCommand(ingestCmd)
}

// sourcesFromArgs treats arguments with an http(s) scheme as URLs and
// everything else as file paths.
func sourcesFromArgs(args []string) []ingest.Source {
	sources := make([]ingest.Source, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			sources = append(sources, ingest.URLSource(arg))
		} else {
			sources = append(sources, ingest.FileSource(arg))
		}
	}
	return sources
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !ingestTickets {
		return fmt.Errorf("nothing to ingest, pass files, urls or --tickets")
	}

	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	sources := sourcesFromArgs(args)
	if ingestTickets {
		project := projectKey
		if project == "" {
			project = session.Config.Tracker.Project
		}
		tickets, err := session.FetchTickets(cmd.Context(), project, model.TicketFilter{})
		if err != nil {
			return fmt.Errorf("fetch tickets failed: %w", err)
		}
		sources = append(sources, ingest.TicketSource(project, tickets))
	}

	result := session.IngestKnowledge(cmd.Context(), sources...)
	printIngestResult(cmd.OutOrStdout(), result)

	if len(result.Succeeded) == 0 && result.HasFailures() {
		return fmt.Errorf("no document could be ingested")
	}
	return cmd.Context().Err()
}
