package model

import "github.com/google/uuid"

// Chunk is a bounded piece of a document's text.
// Start is the rune offset of Text inside the document.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Text       string    `json:"text"`
	Position   int       `json:"position"`
	Start      int       `json:"start"`
	Metadata   Metadata  `json:"metadata,omitempty"`
}

// Embedding is the vector of one chunk
type Embedding struct {
	ChunkID uuid.UUID `json:"chunk_id"`
	Vector  []float32 `json:"vector"`
}
