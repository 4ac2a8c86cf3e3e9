package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/siherrmann/triage/database"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
)

const scanPageSize = 200

// PersistentIndex stores entries in postgres with pgvector. It outlives the
// process and backs the ticket knowledge base.
type PersistentIndex struct {
	db         *helper.Database
	documents  *database.DocumentsDBHandler
	entries    *database.EntriesDBHandler
	dimensions int
	log        *slog.Logger

	// upserts are serialized, queries run concurrently
	mu sync.Mutex
}

// NewPersistentIndex opens the index stored in db, creating tables on first use.
// The index takes ownership of db. A stored index with another vector
// dimension is reported as *model.IndexCorruptionError.
func NewPersistentIndex(db *helper.Database, dimensions int, force bool) (*PersistentIndex, error) {
	documents, err := database.NewDocumentsDBHandler(db, force)
	if err != nil {
		return nil, helper.NewError("documents handler", err)
	}

	entries, err := database.NewEntriesDBHandler(db, dimensions, force)
	if err != nil {
		if errors.Is(err, database.ErrDimensionMismatch) {
			return nil, &model.IndexCorruptionError{Index: db.Name, Err: err}
		}
		return nil, helper.NewError("entries handler", err)
	}

	return &PersistentIndex{
		db:         db,
		documents:  documents,
		entries:    entries,
		dimensions: dimensions,
		log:        db.Logger,
	}, nil
}

// Upsert stores entries grouped by document. Every document row records the
// number of chunks stored for it.
func (p *PersistentIndex) Upsert(ctx context.Context, entries []*model.IndexEntry) error {
	for _, e := range entries {
		if e == nil {
			return helper.NewError("upsert", fmt.Errorf("nil entry"))
		}
		if len(e.Embedding.Vector) != p.dimensions {
			return helper.NewError("upsert", fmt.Errorf("entry %s has dimension %d, index has %d", e.ID, len(e.Embedding.Vector), p.dimensions))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var order []uuid.UUID
	byDocument := map[uuid.UUID][]*model.IndexEntry{}
	for _, e := range entries {
		id := e.Chunk.DocumentID
		if _, ok := byDocument[id]; !ok {
			order = append(order, id)
		}
		byDocument[id] = append(byDocument[id], e)
	}

	for _, id := range order {
		group := byDocument[id]
		first := group[0]

		metadata := first.Metadata.Copy()
		delete(metadata, "position")
		doc := &model.StoredDocument{
			RID:        id,
			SourceURI:  first.Source(),
			SourceKind: model.SourceKind(first.Metadata[model.MetadataSourceKind]),
			Metadata:   metadata,
			ChunkCount: len(group),
		}
		if err := p.documents.InsertDocument(ctx, doc); err != nil {
			return helper.NewError("insert document", err)
		}

		for _, e := range group {
			if err := p.entries.InsertEntry(ctx, e); err != nil {
				return helper.NewError("insert entry", err)
			}
		}
	}

	p.log.Debug("Upserted entries", slog.Int("entries", len(entries)), slog.Int("documents", len(order)))

	return nil
}

// Query ranks entries matching config.Filter by cosine similarity.
// Equal scores keep insertion order.
func (p *PersistentIndex) Query(ctx context.Context, vector []float32, config model.QueryConfig) ([]model.ScoredEntry, error) {
	if err := config.Normalize(); err != nil {
		return nil, helper.NewError("query config", err)
	}
	if config.TopK == 0 {
		return []model.ScoredEntry{}, nil
	}

	if len(vector) != p.dimensions {
		count, err := p.Count(ctx)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return []model.ScoredEntry{}, nil
		}
		return nil, helper.NewError("query", fmt.Errorf("query has dimension %d, index has %d", len(vector), p.dimensions))
	}

	limit := config.TopK
	if config.Diversity {
		limit = config.FetchK
	}

	scored, err := p.entries.SelectEntriesBySimilarity(ctx, vector, limit, config.Filter)
	if err != nil {
		return nil, p.wrap("query", err)
	}
	if scored == nil {
		scored = []model.ScoredEntry{}
	}

	if !config.Diversity {
		return scored, nil
	}
	return MaximalMarginalRelevance(scored, config.TopK, config.Lambda, config.DuplicateThreshold), nil
}

// QueryWithMetadataFilter returns the k most similar entries matching filter
func (p *PersistentIndex) QueryWithMetadataFilter(ctx context.Context, vector []float32, k int, filter *model.MetadataFilter) ([]model.ScoredEntry, error) {
	return p.Query(ctx, vector, filterConfig(k, filter))
}

func (p *PersistentIndex) HasSource(ctx context.Context, source string) (bool, error) {
	exists, err := p.entries.SelectSourceExists(ctx, source)
	if err != nil {
		return false, helper.NewError("source exists", err)
	}
	return exists, nil
}

func (p *PersistentIndex) Count(ctx context.Context) (int, error) {
	count, err := p.entries.CountEntries(ctx)
	if err != nil {
		return 0, helper.NewError("count", err)
	}
	return count, nil
}

// Scan pages through all stored entries by insertion order
func (p *PersistentIndex) Scan(ctx context.Context, fn func(*model.IndexEntry) error) error {
	var lastID int64
	for {
		page, next, err := p.entries.SelectEntriesPage(ctx, lastID, scanPageSize)
		if err != nil {
			return p.wrap("scan", err)
		}
		for _, e := range page {
			if err := fn(e); err != nil {
				return err
			}
		}
		if len(page) < scanPageSize {
			return nil
		}
		lastID = next
	}
}

// Documents returns the bookkeeping rows of all ingested documents
func (p *PersistentIndex) Documents(ctx context.Context) ([]*model.StoredDocument, error) {
	var all []*model.StoredDocument
	lastID := 0
	for {
		page, err := p.documents.SelectAllDocuments(ctx, lastID, scanPageSize)
		if err != nil {
			return nil, helper.NewError("documents", err)
		}
		all = append(all, page...)
		if len(page) < scanPageSize {
			return all, nil
		}
		lastID = page[len(page)-1].ID
	}
}

// ChangeIndexType switches the approximate nearest neighbour index, see
// database.EntriesDBHandler.ChangeIndexType.
func (p *PersistentIndex) ChangeIndexType(ctx context.Context, indexType string, params map[string]int) error {
	return p.entries.ChangeIndexType(ctx, indexType, params)
}

// Close closes the underlying database
func (p *PersistentIndex) Close() error {
	return p.db.Close()
}

func (p *PersistentIndex) wrap(operation string, err error) error {
	if errors.Is(err, database.ErrUnreadableRow) {
		p.log.Error("Index corrupted", slog.String("operation", operation), slog.Any("error", err))
		return &model.IndexCorruptionError{Index: p.db.Name, Err: err}
	}
	return helper.NewError(operation, err)
}
