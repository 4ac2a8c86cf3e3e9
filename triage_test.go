package triage

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/siherrmann/triage/core/answer"
	"github.com/siherrmann/triage/core/index"
	"github.com/siherrmann/triage/core/ingest"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
	"github.com/siherrmann/triage/service/llm"
	"github.com/siherrmann/triage/service/search"
	"github.com/siherrmann/triage/service/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel answers query expansion, summary and question prompts
type scriptedModel struct {
	mu      sync.Mutex
	prompts []string
}

func (m *scriptedModel) Complete(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, req.Prompt)

	switch {
	case strings.Contains(req.Prompt, "Google search queries"):
		return "1. How to reset a password?\n2. Password reset steps?\n3. Reset account password?", nil
	case strings.Contains(req.Prompt, "CONCISE SUMMARY"):
		return "Customer cannot log in.", nil
	default:
		return "Clear the cookies.", nil
	}
}

func (m *scriptedModel) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		text, err := m.Complete(ctx, req)
		for _, word := range strings.SplitAfter(text, " ") {
			if !yield(word, err) {
				return
			}
		}
	}
}

func (m *scriptedModel) promptsContaining(s string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matching []string
	for _, p := range m.prompts {
		if strings.Contains(p, s) {
			matching = append(matching, p)
		}
	}
	return matching
}

type staticSearcher struct {
	urls []string
}

func (s *staticSearcher) Search(ctx context.Context, query string, n int) ([]search.Result, error) {
	results := []search.Result{}
	for _, u := range s.urls {
		results = append(results, search.Result{URL: u})
	}
	return results, nil
}

type staticTracker struct {
	tickets []*model.Ticket
}

func (s *staticTracker) FetchIssues(ctx context.Context, project string, cursor int) (tracker.Page, error) {
	end := min(cursor+2, len(s.tickets))
	return tracker.Page{Issues: s.tickets[cursor:end], NextCursor: end, Total: len(s.tickets)}, nil
}

func testConfiguration() *helper.Configuration {
	config := helper.DefaultConfiguration()
	config.LLM.APIKey = "test"
	config.Embedding.Provider = "hash"
	config.Embedding.Dimensions = 256
	config.LogLevel = "error"
	return config
}

func newMemorySession(t *testing.T) (*Session, *scriptedModel) {
	t.Helper()
	s, err := NewSession(context.Background(), testConfiguration(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	lm := &scriptedModel{}
	s.Model = lm
	return s, lm
}

func writeKnowledgeCSV(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "knowledge.csv")
	content := "issue,priority,resolution\n" +
		"Login fails after password reset,High,Clear the browser cookies and log in again\n" +
		"Report export is slow,Low,Reduce the date range of the export\n" +
		"Invoice missing,Medium,Resend the invoice from the billing page\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewSession(t *testing.T) {
	t.Run("In-memory knowledge base", func(t *testing.T) {
		s, _ := newMemorySession(t)
		assert.IsType(t, &index.MemoryIndex{}, s.Knowledge)
		assert.Nil(t, s.DB)
		assert.Nil(t, s.Searcher, "Expected no searcher without credentials")
		assert.Nil(t, s.Tracker, "Expected no tracker without domain")
		assert.Equal(t, 256, s.Embedder.Dimensions())
	})

	t.Run("Invalid configuration", func(t *testing.T) {
		config := testConfiguration()
		config.Retrieval.TopK = 0
		_, err := NewSession(context.Background(), config, nil)
		assert.Error(t, err)
	})

	t.Run("Configured tracker", func(t *testing.T) {
		config := testConfiguration()
		config.Tracker.Domain = "example.atlassian.net"
		s, err := NewSession(context.Background(), config, nil)
		require.NoError(t, err)
		assert.IsType(t, &tracker.JiraTracker{}, s.Tracker)
	})

	t.Run("Unreachable database is an error", func(t *testing.T) {
		dbConfig := &helper.DatabaseConfiguration{
			Host:     "127.0.0.1",
			Port:     "1",
			Database: "database",
			Username: "user",
			Password: "password",
			Schema:   "public",
			SSLMode:  "disable",
		}

		var s *Session
		var err error
		assert.NotPanics(t, func() {
			s, err = NewSession(context.Background(), testConfiguration(), dbConfig)
		})
		require.Error(t, err)
		assert.Nil(t, s)
		assert.Contains(t, err.Error(), "connect to database triage")
	})

	t.Run("Provider defaults without a file", func(t *testing.T) {
		config := helper.DefaultConfiguration()
		config.LLM.Provider = "anthropic"
		config.LLM.APIKey = "test"
		config.Embedding.Provider = "hash"
		config.LogLevel = "error"

		s, err := NewSession(context.Background(), config, nil)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		assert.Equal(t, helper.DefaultAnthropicModel, s.Config.LLM.Model)
		assert.Equal(t, helper.DefaultHashDimensions, s.Embedder.Dimensions())
	})
}

func TestSessionAsk(t *testing.T) {
	s, lm := newMemorySession(t)
	path := writeKnowledgeCSV(t)

	result := s.IngestKnowledge(context.Background(), ingest.FileSource(path))
	require.Len(t, result.Succeeded, 3)

	t.Run("Answers with citations", func(t *testing.T) {
		sink := &answer.BufferSink{}
		a, retrieved, err := s.Ask(context.Background(), "Login fails after a password reset", s.QueryConfig(), sink)
		require.NoError(t, err)

		assert.Equal(t, "Clear the cookies.", a.Text)
		assert.Equal(t, "Clear the cookies.", sink.String())
		require.Len(t, retrieved.Passages, 2)
		assert.Equal(t, path+"#1", retrieved.Passages[0].Entry.Source())
		assert.Equal(t, retrieved.Sources, a.Citations)

		prompts := lm.promptsContaining("Answer the question based only on the following context:")
		require.Len(t, prompts, 1)
		assert.Contains(t, prompts[0], "Clear the browser cookies")
	})

	t.Run("Metadata filter", func(t *testing.T) {
		config := s.QueryConfig()
		config.Filter = &model.MetadataFilter{Equals: map[string]string{"priority": "Low"}}

		_, retrieved, err := s.Ask(context.Background(), "Login fails after a password reset", config, &answer.BufferSink{})
		require.NoError(t, err)
		require.Len(t, retrieved.Passages, 1)
		assert.Equal(t, path+"#2", retrieved.Passages[0].Entry.Source())
	})
}

func TestSessionResearch(t *testing.T) {
	var fetchesMu sync.Mutex
	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetchesMu.Lock()
		fetches++
		fetchesMu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, fmt.Sprintf("<p>To reset a password open %s and choose reset.</p>", r.URL.Path))
	}))
	defer server.Close()

	s, _ := newMemorySession(t)

	t.Run("Without searcher", func(t *testing.T) {
		_, _, err := s.Research(context.Background(), "How to reset a password?", &answer.BufferSink{})
		assert.Error(t, err)
	})

	s.Searcher = &staticSearcher{urls: []string{server.URL + "/settings", server.URL + "/account"}}

	t.Run("Fetches pages once per lifetime", func(t *testing.T) {
		a, ingested, err := s.Research(context.Background(), "How to reset a password?", &answer.BufferSink{})
		require.NoError(t, err)
		assert.Len(t, ingested.Succeeded, 2)
		assert.ElementsMatch(t, []string{server.URL + "/settings", server.URL + "/account"}, a.Citations)

		_, ingested, err = s.Research(context.Background(), "How to reset a password?", &answer.BufferSink{})
		require.NoError(t, err)
		assert.Empty(t, ingested.Succeeded)
		assert.Equal(t, 2, fetches)
	})

	t.Run("Reset starts a new lifetime", func(t *testing.T) {
		s.ResetResearch()
		count, err := s.ResearchIndex().Count(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)

		_, ingested, err := s.Research(context.Background(), "How to reset a password?", &answer.BufferSink{})
		require.NoError(t, err)
		assert.Len(t, ingested.Succeeded, 2)
		assert.Equal(t, 4, fetches)
	})
}

func TestSessionTickets(t *testing.T) {
	s, lm := newMemorySession(t)
	s.Tracker = &staticTracker{tickets: []*model.Ticket{
		{Key: "PS-1", Summary: "Login fails", Priority: "High", Status: "Open", Description: "Mail ann@example.com when fixed"},
		{Key: "PS-2", Summary: "Slow export", Priority: "Low", Status: "Open"},
		{Key: "PS-3", Summary: "Invoice", Priority: "High", Status: "Done"},
	}}

	t.Run("Fetch and filter", func(t *testing.T) {
		tickets, err := s.FetchTickets(context.Background(), "PS", model.TicketFilter{Priorities: []string{"high"}})
		require.NoError(t, err)
		require.Len(t, tickets, 2)
		assert.Equal(t, "PS-3", tickets[1].Key)

		ticket, err := FindTicket(tickets, "ps-1")
		require.NoError(t, err)
		assert.Equal(t, "Login fails", ticket.Summary)

		_, err = FindTicket(tickets, "PS-2")
		assert.Error(t, err)
	})

	t.Run("Summary is redacted", func(t *testing.T) {
		tickets, err := s.FetchTickets(context.Background(), "PS", model.TicketFilter{})
		require.NoError(t, err)

		summary, err := s.SummarizeTicket(context.Background(), tickets[0])
		require.NoError(t, err)
		assert.Equal(t, "Customer cannot log in.", summary)

		prompts := lm.promptsContaining("CONCISE SUMMARY")
		require.Len(t, prompts, 2)
		assert.Contains(t, prompts[0], "<EMAIL_ADDRESS>")
		assert.NotContains(t, prompts[0], "ann@example.com")
	})

	t.Run("Tickets into the knowledge base", func(t *testing.T) {
		tickets, err := s.FetchTickets(context.Background(), "PS", model.TicketFilter{})
		require.NoError(t, err)

		result := s.IngestKnowledge(context.Background(), ingest.TicketSource("PS", tickets))
		assert.Equal(t, []string{"tracker:PS#PS-1", "tracker:PS#PS-2", "tracker:PS#PS-3"}, result.Succeeded)
	})
}

func TestPersistentSession(t *testing.T) {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	s, err := NewSession(context.Background(), testConfiguration(), dbConfig)
	require.NoError(t, err)
	defer s.Close()
	s.Model = &scriptedModel{}

	assert.IsType(t, &index.PersistentIndex{}, s.Knowledge)

	path := writeKnowledgeCSV(t)
	result := s.IngestKnowledge(context.Background(), ingest.FileSource(path))
	require.Len(t, result.Succeeded, 3)

	t.Run("Ask the stored knowledge base", func(t *testing.T) {
		config := s.QueryConfig()
		config.Filter = &model.MetadataFilter{Equals: map[string]string{ingest.MetadataCollection: path}}
		_, retrieved, err := s.Ask(context.Background(), "Login fails after a password reset", config, &answer.BufferSink{})
		require.NoError(t, err)
		require.NotEmpty(t, retrieved.Passages)
		assert.Equal(t, path+"#1", retrieved.Passages[0].Entry.Source())
	})

	t.Run("Documents are tracked", func(t *testing.T) {
		docs, err := s.KnowledgeDocuments(context.Background())
		require.NoError(t, err)
		sources := make([]string, 0, len(docs))
		for _, d := range docs {
			sources = append(sources, d.SourceURI)
		}
		assert.Contains(t, sources, path+"#3")
	})

	t.Run("Change index type", func(t *testing.T) {
		require.NoError(t, s.ChangeIndexType(context.Background(), "hnsw", nil))
		require.NoError(t, s.ChangeIndexType(context.Background(), "none", nil))
	})
}
