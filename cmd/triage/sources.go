package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the documents of the knowledge base",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

var (
	indexM              int
	indexEfConstruction int
	indexLists          int
)

var indexTypeCmd = &cobra.Command{
	Use:       "index-type [none|hnsw|ivfflat]",
	Short:     "Change the vector index of the knowledge base",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"none", "hnsw", "ivfflat"},
	RunE:      runIndexType,
}

func init() {
	indexTypeCmd.Flags().IntVar(&indexM, "m", 16, "hnsw: connections per layer")
	indexTypeCmd.Flags().IntVar(&indexEfConstruction, "ef-construction", 64, "hnsw: candidate list size while building")
	indexTypeCmd.Flags().IntVar(&indexLists, "lists", 100, "ivfflat: number of lists")
	rootCmd.AddCommand(sourcesCmd, indexTypeCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	docs, err := session.KnowledgeDocuments(cmd.Context())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		cmd.Println("The knowledge base is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tKIND\tCHUNKS\tUPDATED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.SourceURI, d.SourceKind, d.ChunkCount, d.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runIndexType(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	params := map[string]int{
		"m":               indexM,
		"ef_construction": indexEfConstruction,
		"lists":           indexLists,
	}
	if err := session.ChangeIndexType(cmd.Context(), args[0], params); err != nil {
		return err
	}
	cmd.Printf("Vector index set to %s.\n", args[0])
	return nil
}
