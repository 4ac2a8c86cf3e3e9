package retrieval

import (
	"context"
	"errors"
	"log/slog"

	"github.com/siherrmann/triage/core/index"
	"github.com/siherrmann/triage/core/pipeline"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
)

// Retriever returns the passages relevant to a question
type Retriever interface {
	Retrieve(ctx context.Context, question string) (*model.RetrievalResult, error)
}

// Engine retrieves passages from an index by embedding the question with the
// same embedder the index was built with.
type Engine struct {
	embedder pipeline.Embedder
	index    index.Index
	config   model.QueryConfig
	log      *slog.Logger
}

// NewEngine creates a new retrieval engine using config for every Retrieve call
func NewEngine(embedder pipeline.Embedder, idx index.Index, config model.QueryConfig, logger *slog.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		index:    idx,
		config:   config,
		log:      logger,
	}
}

// Retrieve implements Retriever with the engine configuration
func (e *Engine) Retrieve(ctx context.Context, question string) (*model.RetrievalResult, error) {
	return e.RetrieveWithConfig(ctx, question, e.config)
}

// RetrieveWithConfig embeds the question and queries the index.
// Embedding failures are returned as *model.EmbeddingServiceError.
func (e *Engine) RetrieveWithConfig(ctx context.Context, question string, config model.QueryConfig) (*model.RetrievalResult, error) {
	vector, err := e.embedder.Embed(ctx, question)
	if err != nil {
		var embeddingErr *model.EmbeddingServiceError
		if !errors.As(err, &embeddingErr) && ctx.Err() == nil {
			err = &model.EmbeddingServiceError{Err: err}
		}
		return nil, helper.NewError("embed question", err)
	}

	passages, err := e.index.Query(ctx, vector, config)
	if err != nil {
		return nil, helper.NewError("query index", err)
	}

	e.log.Debug("Retrieved passages", slog.Int("passages", len(passages)), slog.Bool("diversity", config.Diversity))

	return model.NewRetrievalResult(passages), nil
}
