package model

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// SourceKind is the kind of source a document was loaded from
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindURL    SourceKind = "url"
	SourceKindRecord SourceKind = "record"
)

// Metadata keys every document carries
const (
	MetadataSource     = "source"
	MetadataSourceKind = "source_kind"
	MetadataTitle      = "title"
)

// Document is a loaded source ready for chunking. It is not changed after creation.
type Document struct {
	ID         uuid.UUID  `json:"id"`
	RawText    string     `json:"raw_text"`
	SourceURI  string     `json:"source_uri"`
	SourceKind SourceKind `json:"source_kind"`
	Metadata   Metadata   `json:"metadata,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewDocument creates a document with a fresh id. The given metadata is copied
// and extended with the source uri and kind.
func NewDocument(kind SourceKind, uri string, text string, metadata Metadata) *Document {
	md := metadata.Copy()
	md[MetadataSource] = uri
	md[MetadataSourceKind] = string(kind)

	return &Document{
		ID:         uuid.New(),
		RawText:    text,
		SourceURI:  uri,
		SourceKind: kind,
		Metadata:   md,
		CreatedAt:  time.Now(),
	}
}

// NewDocumentFromFile reads a plain text file into a Document.
// The title defaults to the filename without extension.
func NewDocumentFromFile(filePath string, metadata Metadata) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return NewFileDocument(filePath, string(content), metadata), nil
}

// NewFileDocument creates a file Document from text already extracted from filePath.
func NewFileDocument(filePath string, text string, metadata Metadata) *Document {
	doc := NewDocument(SourceKindFile, filePath, text, metadata)
	if _, ok := doc.Metadata[MetadataTitle]; !ok {
		doc.Metadata[MetadataTitle] = FileTitle(filePath)
	}
	return doc
}

// FileTitle returns the base name of a path without its last extension.
func FileTitle(filePath string) string {
	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}
	return title
}

// StoredDocument is the bookkeeping row a persistent index keeps per ingested document
type StoredDocument struct {
	ID         int        `json:"-"`
	RID        uuid.UUID  `json:"rid"`
	SourceURI  string     `json:"source_uri"`
	SourceKind SourceKind `json:"source_kind"`
	Metadata   Metadata   `json:"metadata,omitempty"`
	ChunkCount int        `json:"chunk_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
