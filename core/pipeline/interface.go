package pipeline

import (
	"context"
	"fmt"

	"github.com/siherrmann/triage/model"
)

// ChunkFunc splits a document into chunks
type ChunkFunc func(doc *model.Document) ([]*model.Chunk, error)

// Pipeline combines chunking and embedding
type Pipeline struct {
	Chunker  ChunkFunc
	Embedder Embedder
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder Embedder) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// Process chunks a document and embeds all chunks in one batch.
// It returns one index entry per chunk in chunk order.
func (p *Pipeline) Process(ctx context.Context, doc *model.Document) ([]*model.IndexEntry, error) {
	if p.Chunker == nil || p.Embedder == nil {
		return nil, fmt.Errorf("pipeline needs a chunker and an embedder")
	}

	chunks, err := p.Chunker(doc)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []*model.IndexEntry{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, &model.EmbeddingServiceError{Err: fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(vectors))}
	}

	entries := make([]*model.IndexEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = model.NewIndexEntry(c, vectors[i])
	}
	return entries, nil
}
