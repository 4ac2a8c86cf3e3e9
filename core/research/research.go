package research

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/siherrmann/triage/core/index"
	"github.com/siherrmann/triage/core/ingest"
	"github.com/siherrmann/triage/core/retrieval"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
	"github.com/siherrmann/triage/service/llm"
	"github.com/siherrmann/triage/service/search"
)

const queryExpansionPrompt = `You are an assistant tasked with improving Google search results.
Generate %d Google search queries that are similar to this question.
The output should be a numbered list of questions and each should have a question mark at the end:

%s`

var numberedLine = regexp.MustCompile(`^\s*\d+\s*[.)]\s*(.+?)\s*$`)

// Config configures a research run
type Config struct {
	// NumQueries is the number of generated search queries, between 3 and 5.
	NumQueries int
	// NumSearchResults caps the new pages fetched per run.
	NumSearchResults int
	Query            model.QueryConfig
}

// DefaultConfig returns three queries and three results
func DefaultConfig() Config {
	return Config{
		NumQueries:       3,
		NumSearchResults: 3,
		Query:            model.DefaultQueryConfig(),
	}
}

// Retriever answers questions from web pages. Pages are searched, fetched and
// ingested into an ephemeral index which is queried like the knowledge base.
// Pages already in the index are not fetched again.
type Retriever struct {
	model    llm.Model
	searcher search.Searcher
	ingestor *ingest.Ingestor
	index    index.Index
	engine   *retrieval.Engine
	config   Config
	log      *slog.Logger
}

// NewRetriever creates a retriever. The ingestor must write into idx, the
// engine must read from it.
func NewRetriever(lm llm.Model, searcher search.Searcher, ingestor *ingest.Ingestor, idx index.Index, engine *retrieval.Engine, config Config, logger *slog.Logger) (*Retriever, error) {
	if config.NumQueries < 3 || config.NumQueries > 5 {
		return nil, helper.NewError("research config", fmt.Errorf("number of queries must be between 3 and 5, got %d", config.NumQueries))
	}
	if config.NumSearchResults <= 0 {
		return nil, helper.NewError("research config", fmt.Errorf("number of search results must be positive"))
	}

	return &Retriever{
		model:    lm,
		searcher: searcher,
		ingestor: ingestor,
		index:    idx,
		engine:   engine,
		config:   config,
		log:      logger,
	}, nil
}

// Retrieve researches question on the web and returns the most relevant
// passages with their page URLs as sources. The ingest result lists the
// pages fetched in this run. Pages that fail are skipped.
func (r *Retriever) Retrieve(ctx context.Context, question string) (*model.RetrievalResult, *model.IngestResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, nil, helper.NewError("research", fmt.Errorf("empty question"))
	}

	queries := r.expandQuestion(ctx, question)
	r.log.Info("Generated search queries", slog.Any("queries", queries))

	urls, err := r.searchNewURLs(ctx, queries)
	if err != nil {
		return nil, nil, err
	}

	sources := make([]ingest.Source, len(urls))
	for i, u := range urls {
		sources[i] = ingest.URLSource(u)
	}
	ingested := &model.IngestResult{}
	if len(sources) > 0 {
		ingested = r.ingestor.Ingest(ctx, sources...)
	}
	if err := ctx.Err(); err != nil {
		return nil, ingested, err
	}

	result, err := r.engine.RetrieveWithConfig(ctx, question, r.config.Query)
	if err != nil {
		return nil, ingested, helper.NewError("retrieve", err)
	}
	return result, ingested, nil
}

// expandQuestion asks the model for search queries. Without a usable
// answer the question itself is the only query.
func (r *Retriever) expandQuestion(ctx context.Context, question string) []string {
	answer, err := r.model.Complete(ctx, llm.Request{
		Prompt: fmt.Sprintf(queryExpansionPrompt, r.config.NumQueries, question),
	})
	if err != nil {
		r.log.Warn("Query expansion failed, searching the question", slog.Any("error", err))
		return []string{question}
	}

	queries := ParseQueries(answer, r.config.NumQueries)
	if len(queries) == 0 {
		return []string{question}
	}
	return queries
}

// searchNewURLs collects distinct result URLs in query order which are not
// indexed yet, at most NumSearchResults. A failing query is skipped, the
// error is only returned if every query failed.
func (r *Retriever) searchNewURLs(ctx context.Context, queries []string) ([]string, error) {
	seen := map[string]bool{}
	urls := []string{}
	failed := 0
	var lastErr error

	for _, query := range queries {
		results, err := r.searcher.Search(ctx, query, r.config.NumSearchResults)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.log.Warn("Search failed", slog.String("query", query), slog.Any("error", err))
			failed++
			lastErr = err
			continue
		}

		for _, result := range results {
			if result.URL == "" || seen[result.URL] {
				continue
			}
			seen[result.URL] = true

			indexed, err := r.index.HasSource(ctx, result.URL)
			if err != nil {
				return nil, helper.NewError("check source", err)
			}
			if indexed {
				r.log.Debug("Page already indexed", slog.String("url", result.URL))
				continue
			}
			if len(urls) < r.config.NumSearchResults {
				urls = append(urls, result.URL)
			}
		}
	}

	if failed == len(queries) {
		return nil, helper.NewError("search", lastErr)
	}
	return urls, nil
}

// ParseQueries extracts up to limit items of a numbered list
func ParseQueries(text string, limit int) []string {
	queries := []string{}
	for _, line := range strings.Split(text, "\n") {
		matches := numberedLine.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		query := strings.Trim(matches[1], `"`)
		if query == "" {
			continue
		}
		queries = append(queries, query)
		if len(queries) == limit {
			break
		}
	}
	return queries
}
