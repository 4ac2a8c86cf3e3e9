package main

import (
	"fmt"
	"strings"

	"github.com/siherrmann/triage/core/answer"
	"github.com/spf13/cobra"
)

var researchCmd = &cobra.Command{
	Use:   "research [question]",
	Short: "Answer a question from web research",
	Long: `Generates search queries for the question, fetches the top results
and answers the question from the fetched pages. Pages that cannot be
fetched are reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	out := cmd.OutOrStdout()
	headerColor.Fprintln(out, "Answer:")
	a, ingested, err := session.Research(cmd.Context(), question, answer.NewWriterSink(out))
	fmt.Fprintln(out)
	if ingested != nil {
		for _, f := range ingested.Failed {
			warningColor.Fprintf(cmd.ErrOrStderr(), "warning: skipped %s: %v\n", f.Item, f.Reason)
		}
	}
	if err != nil {
		return fmt.Errorf("research failed, try again: %w", err)
	}

	printSources(out, a.Citations)
	return nil
}
