package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/siherrmann/triage"
	"github.com/siherrmann/triage/helper"
	"github.com/spf13/cobra"
)

var (
	configPath      string
	memoryKnowledge bool
	projectKey      string
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Support ticket triage assistant",
	Long: `Fetches issue tracker tickets, summarizes them with personal data removed
and answers questions from the support knowledge base or from web research.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVar(&memoryKnowledge, "memory", false, "keep the knowledge base in memory instead of postgres")
	rootCmd.PersistentFlags().StringVarP(&projectKey, "project", "p", "", "issue tracker project, defaults to tracker.project")
}

// openSession loads the configuration and opens a session. The database
// configuration is read from the environment unless --memory is set.
func openSession(ctx context.Context) (*triage.Session, error) {
	config, err := helper.LoadConfiguration(configPath)
	if err != nil {
		return nil, err
	}

	var dbConfig *helper.DatabaseConfiguration
	if !memoryKnowledge {
		dbConfig, err = helper.NewDatabaseConfiguration()
		if err != nil {
			return nil, helper.NewError("database configuration (use --memory to run without postgres)", err)
		}
	}

	return triage.NewSession(ctx, config, dbConfig)
}

var (
	headerColor  = color.New(color.Bold)
	warningColor = color.New(color.FgYellow)
	sourceColor  = color.New(color.FgCyan)
)
