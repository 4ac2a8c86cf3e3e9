package main

import (
	"fmt"
	"strings"

	"github.com/siherrmann/triage/core/answer"
	"github.com/siherrmann/triage/core/retrieval"
	"github.com/siherrmann/triage/model"
	"github.com/spf13/cobra"
)

var (
	askFilters   []string
	askRanges    []string
	askDiverse   bool
	askStrategy  string
	askTopK      int
	askKnowledge []string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the knowledge base",
	Long: `Retrieves the most relevant knowledge base passages and answers the
question from them only. Passages can be restricted by metadata, e.g.
--filter priority=High or --range created=2024-01-01:2024-06-30.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringArrayVar(&askFilters, "filter", nil, "metadata equality condition key=value")
	askCmd.Flags().StringArrayVar(&askRanges, "range", nil, "inclusive metadata range key=min:max, either bound may be empty")
	askCmd.Flags().BoolVar(&askDiverse, "diverse", false, "diversify passages with maximal marginal relevance")
	askCmd.Flags().StringVar(&askStrategy, "strategy", "", "retrieval strategy: similarity or mmr")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages, defaults to retrieval.top_k")
	askCmd.Flags().StringArrayVar(&askKnowledge, "kb", nil, "file or url to ingest before answering")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	filter, err := model.ParseMetadataFilter(askFilters, askRanges)
	if err != nil {
		return err
	}

	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	if len(askKnowledge) > 0 {
		result := session.IngestKnowledge(cmd.Context(), sourcesFromArgs(askKnowledge)...)
		for _, f := range result.Failed {
			warningColor.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", f.Item, f.Reason)
		}
	}

	config := session.QueryConfig()
	config.Filter = filter
	config.Diversity = askDiverse
	if askStrategy != "" {
		strategy, err := retrieval.ParseStrategy(askStrategy)
		if err != nil {
			return err
		}
		config = strategy.Apply(config)
	}
	if askTopK > 0 {
		config.TopK = askTopK
		config.FetchK = max(config.FetchK, 2*askTopK)
	}

	out := cmd.OutOrStdout()
	headerColor.Fprintln(out, "Answer:")
	a, _, err := session.Ask(cmd.Context(), question, config, answer.NewWriterSink(out))
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("answer failed, try again: %w", err)
	}

	printSources(out, a.Citations)
	return nil
}
