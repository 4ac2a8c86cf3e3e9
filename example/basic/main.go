package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/siherrmann/triage"
	"github.com/siherrmann/triage/core/answer"
	"github.com/siherrmann/triage/core/ingest"
	"github.com/siherrmann/triage/core/retrieval"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
)

var sampleTickets = []*model.Ticket{
	{
		Key:         "PS-101",
		Summary:     "Login fails after password reset",
		Priority:    "High",
		Status:      "Done",
		Description: "Customer could not log in after resetting the password. Clearing the browser cookies fixed it.",
	},
	{
		Key:         "PS-102",
		Summary:     "Report export is slow",
		Priority:    "Low",
		Status:      "Done",
		Description: "Exports over a full year time out. Reducing the date range to one quarter works.",
	},
	{
		Key:         "PS-103",
		Summary:     "Invoice e-mail missing",
		Priority:    "Medium",
		Status:      "Done",
		Description: "Invoice mails went to spam. Resending from the billing page with a verified sender solved it.",
	},
}

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// The hash embedder runs offline, set OPENAI_API_KEY to also generate an answer
	config := helper.DefaultConfiguration()
	config.Embedding.Provider = "hash"
	config.Embedding.Dimensions = 512
	config.LLM.APIKey = os.Getenv("OPENAI_API_KEY")

	session, err := triage.NewSession(ctx, config, dbConfig)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer session.Close()

	fmt.Println("Ingesting resolved tickets...")
	result := session.IngestKnowledge(ctx, ingest.TicketSource("PS", sampleTickets))
	fmt.Printf("Ingested %d tickets, %d failed\n", len(result.Succeeded), len(result.Failed))

	question := "A customer cannot log in after a password reset"
	fmt.Printf("\nQuerying: %s\n", question)

	queryConfig := session.QueryConfig()
	queryConfig.Filter = &model.MetadataFilter{Equals: map[string]string{"status": "Done"}}

	engine := retrieval.NewEngine(session.Embedder, session.Knowledge, queryConfig, session.Logger())
	retrieved, err := engine.Retrieve(ctx, question)
	if err != nil {
		log.Fatalf("Failed to retrieve: %v", err)
	}

	for i, p := range retrieved.Passages {
		fmt.Printf("\n--- Passage %d ---\n", i+1)
		fmt.Printf("Score: %.4f\n", p.Score)
		fmt.Printf("Source: %s\n", p.Entry.Source())
		fmt.Printf("Content: %s\n", p.Entry.Chunk.Text)
	}

	if config.LLM.APIKey == "" {
		fmt.Println("\nOPENAI_API_KEY not set, skipping the answer.")
		return
	}

	fmt.Println("\nAnswer:")
	a, _, err := session.Ask(ctx, question, queryConfig, answer.NewWriterSink(os.Stdout))
	if err != nil {
		log.Fatalf("Failed to answer: %v", err)
	}
	fmt.Printf("\n\nSources: %v\n", a.Citations)
}
