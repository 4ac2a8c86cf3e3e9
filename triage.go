package triage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/siherrmann/triage/core/answer"
	"github.com/siherrmann/triage/core/index"
	"github.com/siherrmann/triage/core/ingest"
	"github.com/siherrmann/triage/core/pipeline"
	"github.com/siherrmann/triage/core/research"
	"github.com/siherrmann/triage/core/retrieval"
	"github.com/siherrmann/triage/core/summarize"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
	"github.com/siherrmann/triage/service/embedding"
	"github.com/siherrmann/triage/service/llm"
	"github.com/siherrmann/triage/service/redact"
	"github.com/siherrmann/triage/service/search"
	"github.com/siherrmann/triage/service/tracker"
	loadSql "github.com/siherrmann/triage/sql"
)

// Session holds everything a triage operator works with: the knowledge base,
// the web research index of the current lifetime and the service clients.
type Session struct {
	Config    *helper.Configuration
	DB        *helper.Database // nil for an in-memory knowledge base
	Knowledge index.Index
	Embedder  pipeline.Embedder
	Model     llm.Model
	Searcher  search.Searcher // nil without search credentials
	Tracker   tracker.Tracker // nil without a tracker domain
	Redactor  redact.Redactor
	Fetcher   *ingest.Fetcher

	// Ephemeral web research index, replaced by ResetResearch
	mu       sync.RWMutex
	research *index.MemoryIndex

	log *slog.Logger
}

// NewSession creates a session from config. With a database configuration
// the knowledge base is stored in postgres, otherwise it lives in memory.
func NewSession(ctx context.Context, config *helper.Configuration, dbConfig *helper.DatabaseConfiguration) (*Session, error) {
	if config == nil {
		config = helper.DefaultConfiguration()
	}
	config.ApplyProviderDefaults()
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("validate configuration", err)
	}
	level, _ := config.Level()
	logger := helper.NewLogger(os.Stderr, level)

	embedder, err := newEmbedder(config.Embedding)
	if err != nil {
		return nil, helper.NewError("create embedder", err)
	}

	lm, err := llm.NewModel(config.LLM)
	if err != nil {
		return nil, helper.NewError("create language model", err)
	}

	s := &Session{
		Config:   config,
		Embedder: embedder,
		Model:    lm,
		Redactor: redact.NewPatternRedactor(),
		Fetcher: ingest.NewFetcher(ingest.FetchConfig{
			Timeout:           time.Duration(config.Fetch.TimeoutSeconds) * time.Second,
			RequestsPerSecond: config.Fetch.RequestsPerSecond,
			UserAgent:         config.Fetch.UserAgent,
		}),
		research: index.NewMemoryIndex(embedder.Dimensions()),
		log:      logger,
	}

	if config.Search.APIKey != "" && config.Search.EngineID != "" {
		s.Searcher, err = search.NewGoogleSearcher(ctx, config.Search.APIKey, config.Search.EngineID)
		if err != nil {
			return nil, helper.NewError("create searcher", err)
		}
	}

	if config.Tracker.Domain != "" {
		s.Tracker, err = tracker.NewJiraTracker(tracker.JiraConfig{
			Domain:            config.Tracker.Domain,
			Email:             config.Tracker.Email,
			Token:             config.Tracker.Token,
			PageSize:          config.Tracker.PageSize,
			RequestsPerSecond: config.Fetch.RequestsPerSecond,
			Timeout:           time.Duration(config.Fetch.TimeoutSeconds) * time.Second,
		}, logger)
		if err != nil {
			return nil, helper.NewError("create tracker", err)
		}
	}

	if dbConfig == nil {
		s.Knowledge = index.NewMemoryIndex(embedder.Dimensions())
		logger.Info("Using in-memory knowledge base")
		return s, nil
	}

	s.DB, err = helper.OpenDatabase("triage", dbConfig, logger)
	if err != nil {
		return nil, err
	}
	if err := loadSql.Init(s.DB.Instance); err != nil {
		s.DB.Close()
		return nil, helper.NewError("initialize database extensions", err)
	}
	s.Knowledge, err = index.NewPersistentIndex(s.DB, embedder.Dimensions(), false)
	if err != nil {
		s.DB.Close()
		return nil, helper.NewError("open knowledge base", err)
	}

	return s, nil
}

func newEmbedder(config helper.EmbeddingConfiguration) (pipeline.Embedder, error) {
	switch config.Provider {
	case "openai":
		opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
		if config.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(config.BaseURL))
		}
		return embedding.NewOpenAIEmbedder(config.Model, config.Dimensions, opts...)
	case "local":
		return pipeline.NewLocalEmbedder(config.ModelDir, config.Model, config.Dimensions)
	case "hash":
		return pipeline.NewHashEmbedder(config.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", config.Provider)
	}
}

// Close closes the knowledge base and the embedder if it holds resources
func (s *Session) Close() error {
	var err error
	if s.Knowledge != nil {
		err = s.Knowledge.Close()
	}
	if closer, ok := s.Embedder.(io.Closer); ok {
		if closeErr := closer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// Logger returns the session logger
func (s *Session) Logger() *slog.Logger {
	return s.log
}

// QueryConfig returns the configured retrieval parameters
func (s *Session) QueryConfig() model.QueryConfig {
	config := model.DefaultQueryConfig()
	config.TopK = s.Config.Retrieval.TopK
	config.FetchK = s.Config.Retrieval.FetchK
	config.Lambda = s.Config.Retrieval.Lambda
	return config
}

// ResetResearch starts a new web research lifetime with an empty index
func (s *Session) ResetResearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.research = index.NewMemoryIndex(s.Embedder.Dimensions())
}

// ResearchIndex returns the web research index of the current lifetime
func (s *Session) ResearchIndex() *index.MemoryIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.research
}

// FetchTickets fetches all tickets of project and applies filter
func (s *Session) FetchTickets(ctx context.Context, project string, filter model.TicketFilter) ([]*model.Ticket, error) {
	if s.Tracker == nil {
		return nil, helper.NewError("fetch tickets", fmt.Errorf("no issue tracker configured"))
	}
	if project == "" {
		project = s.Config.Tracker.Project
	}

	tickets, err := tracker.FetchAll(ctx, s.Tracker, project)
	if err != nil {
		return nil, err
	}
	s.log.Info("Fetched tickets", slog.String("project", project), slog.Int("tickets", len(tickets)))
	return filter.Apply(tickets), nil
}

// FindTicket returns the ticket with key from tickets
func FindTicket(tickets []*model.Ticket, key string) (*model.Ticket, error) {
	for _, t := range tickets {
		if strings.EqualFold(t.Key, key) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("ticket %s not found", key)
}

// IngestKnowledge adds sources to the knowledge base. Text is redacted before chunking.
func (s *Session) IngestKnowledge(ctx context.Context, sources ...ingest.Source) *model.IngestResult {
	p := pipeline.NewPipeline(pipeline.RecursiveChunker(s.Config.Chunking.Size, s.Config.Chunking.Overlap), s.Embedder)
	return ingest.NewIngestor(p, s.Knowledge, s.Fetcher, s.Redactor, s.log).Ingest(ctx, sources...)
}

// Ask answers question from the knowledge base. The query config selects
// the number of passages, diversity and the metadata filter.
func (s *Session) Ask(ctx context.Context, question string, config model.QueryConfig, sink answer.Sink) (*model.Answer, *model.RetrievalResult, error) {
	engine := retrieval.NewEngine(s.Embedder, s.Knowledge, config, s.log)
	result, err := engine.Retrieve(ctx, question)
	if err != nil {
		return nil, nil, helper.NewError("retrieve", err)
	}

	a, err := s.synthesizer().Answer(ctx, question, result.Passages, sink)
	if err != nil {
		return nil, result, err
	}
	return a, result, nil
}

// Research answers question from web pages found for it. Pages are kept in
// the research index until ResetResearch.
func (s *Session) Research(ctx context.Context, question string, sink answer.Sink) (*model.Answer, *model.IngestResult, error) {
	if s.Searcher == nil {
		return nil, nil, helper.NewError("research", fmt.Errorf("no web search configured"))
	}

	idx := s.ResearchIndex()
	p := pipeline.NewPipeline(pipeline.RecursiveChunker(s.Config.Chunking.WebSize, s.Config.Chunking.WebOverlap), s.Embedder)
	ingestor := ingest.NewIngestor(p, idx, s.Fetcher, nil, s.log)
	engine := retrieval.NewEngine(s.Embedder, idx, s.QueryConfig(), s.log)

	retriever, err := research.NewRetriever(s.Model, s.Searcher, ingestor, idx, engine, research.Config{
		NumQueries:       s.Config.Research.NumQueries,
		NumSearchResults: s.Config.Research.NumSearchResults,
		Query:            s.QueryConfig(),
	}, s.log)
	if err != nil {
		return nil, nil, err
	}

	result, ingested, err := retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, ingested, helper.NewError("research", err)
	}

	a, err := s.synthesizer().Answer(ctx, question, result.Passages, sink)
	if err != nil {
		return nil, ingested, err
	}
	return a, ingested, nil
}

// SummarizeTicket summarizes the redacted summary and description of ticket
func (s *Session) SummarizeTicket(ctx context.Context, ticket *model.Ticket) (string, error) {
	text, err := s.Redactor.Redact(ctx, strings.TrimSpace(ticket.Summary+"\n\n"+ticket.Description))
	if err != nil {
		return "", helper.NewError("redact ticket", err)
	}

	summarizer, err := summarize.NewSummarizer(s.Model, s.Config.Chunking.SummarySize, s.Config.Chunking.SummaryOverlap, s.log)
	if err != nil {
		return "", err
	}
	return summarizer.Summarize(ctx, text)
}

// ChangeIndexType switches the vector index of a postgres knowledge base
func (s *Session) ChangeIndexType(ctx context.Context, indexType string, params map[string]int) error {
	persistent, ok := s.Knowledge.(*index.PersistentIndex)
	if !ok {
		return fmt.Errorf("index type can only be changed for a database knowledge base")
	}
	return persistent.ChangeIndexType(ctx, indexType, params)
}

// KnowledgeDocuments lists the documents stored in a postgres knowledge base
func (s *Session) KnowledgeDocuments(ctx context.Context) ([]*model.StoredDocument, error) {
	persistent, ok := s.Knowledge.(*index.PersistentIndex)
	if !ok {
		return nil, fmt.Errorf("documents are only tracked for a database knowledge base")
	}
	return persistent.Documents(ctx)
}

func (s *Session) synthesizer() *answer.Synthesizer {
	return answer.NewSynthesizer(s.Model, s.Config.LLM.Temperature, s.Config.LLM.MaxTokens, s.log)
}
