package model

import (
	"time"

	"github.com/google/uuid"
)

// IndexEntry is the unit stored in and returned by a vector index
type IndexEntry struct {
	ID        uuid.UUID `json:"id"`
	Embedding Embedding `json:"embedding"`
	Chunk     Chunk     `json:"chunk"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewIndexEntry pairs a chunk with its vector. The entry inherits the chunk metadata.
func NewIndexEntry(chunk *Chunk, vector []float32) *IndexEntry {
	return &IndexEntry{
		ID: uuid.New(),
		Embedding: Embedding{
			ChunkID: chunk.ID,
			Vector:  vector,
		},
		Chunk:     *chunk,
		Metadata:  chunk.Metadata.Copy(),
		CreatedAt: time.Now(),
	}
}

// Source returns the source identifier the entry was ingested from
func (e *IndexEntry) Source() string {
	return e.Metadata[MetadataSource]
}

// ScoredEntry is an entry with its relevance to a query
type ScoredEntry struct {
	Entry *IndexEntry `json:"entry"`
	Score float64     `json:"score"`
}
