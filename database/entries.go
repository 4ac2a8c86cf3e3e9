package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
	loadSql "github.com/siherrmann/triage/sql"
)

var (
	// ErrDimensionMismatch is returned when the stored vectors do not have the expected dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrUnreadableRow is returned when a stored entry cannot be decoded.
	ErrUnreadableRow = errors.New("unreadable entry row")
)

// EntriesDBHandlerFunctions defines the interface for index entry database operations.
type EntriesDBHandlerFunctions interface {
	InsertEntry(ctx context.Context, entry *model.IndexEntry) error
	SelectEntriesBySimilarity(ctx context.Context, embedding []float32, limit int, filter *model.MetadataFilter) ([]model.ScoredEntry, error)
	SelectEntriesPage(ctx context.Context, lastID int64, limit int) ([]*model.IndexEntry, int64, error)
	CountEntries(ctx context.Context) (int, error)
	SelectSourceExists(ctx context.Context, source string) (bool, error)
}

// EntriesDBHandler handles index entry database operations
type EntriesDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewEntriesDBHandler creates a new entries database handler.
// It loads the entry SQL functions and creates the entries table with the given
// vector dimension. The documents table has to exist already.
// An existing table with another dimension yields ErrDimensionMismatch.
func NewEntriesDBHandler(db *helper.Database, embeddingDim int, force bool) (*EntriesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim))
	}

	entriesDbHandler := &EntriesDBHandler{
		db:           db,
		embeddingDim: embeddingDim,
	}

	err := loadSql.LoadEntriesSql(entriesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entries sql", err)
	}

	err = entriesDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	stored, err := entriesDbHandler.SelectDimension(context.Background())
	if err != nil {
		return nil, helper.NewError("select dimension", err)
	}
	if stored != embeddingDim {
		return nil, fmt.Errorf("%w: table has %d, expected %d", ErrDimensionMismatch, stored, embeddingDim)
	}

	db.Logger.Info("Initialized EntriesDBHandler")

	return entriesDbHandler, nil
}

// CreateTable creates the 'entries' table in the database.
// If the table already exists, it does not create it again.
func (h *EntriesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entries($1);`, embeddingDim)
	if err != nil {
		return helper.NewError("init entries", err)
	}

	h.db.Logger.Info("Checked/created table entries")

	return nil
}

// SelectDimension returns the vector dimension declared by the entries table
func (h *EntriesDBHandler) SelectDimension(ctx context.Context) (int, error) {
	var dim sql.NullInt64
	err := h.db.Instance.QueryRowContext(ctx, `SELECT select_entries_dimension();`).Scan(&dim)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	if !dim.Valid {
		return 0, helper.NewError("select dimension", fmt.Errorf("entries table does not exist"))
	}
	return int(dim.Int64), nil
}

// InsertEntry inserts an entry, its document row has to exist
func (h *EntriesDBHandler) InsertEntry(ctx context.Context, entry *model.IndexEntry) error {
	if len(entry.Embedding.Vector) != h.embeddingDim {
		return fmt.Errorf("%w: entry has %d, expected %d", ErrDimensionMismatch, len(entry.Embedding.Vector), h.embeddingDim)
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_entry($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID,
		entry.Chunk.DocumentID,
		entry.Chunk.ID,
		entry.Chunk.Position,
		entry.Chunk.Start,
		entry.Chunk.Text,
		pgvector.NewVector(entry.Embedding.Vector),
		entry.Metadata,
	)

	var id int64
	err := row.Scan(&id, &entry.CreatedAt)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEntriesBySimilarity returns up to limit entries matching filter, ordered
// by cosine similarity to embedding. Ties are broken by insertion order.
func (h *EntriesDBHandler) SelectEntriesBySimilarity(ctx context.Context, embedding []float32, limit int, filter *model.MetadataFilter) ([]model.ScoredEntry, error) {
	equals, ranges, err := filterArguments(filter)
	if err != nil {
		return nil, helper.NewError("filter arguments", err)
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_entries_by_similarity($1, $2, $3, $4)`,
		pgvector.NewVector(embedding),
		limit,
		equals,
		ranges,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entries []model.ScoredEntry
	for rows.Next() {
		var similarity float64
		entry, _, err := scanEntry(rows, &similarity)
		if err != nil {
			return nil, err
		}

		entries = append(entries, model.ScoredEntry{Entry: entry, Score: similarity})
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entries, nil
}

// SelectEntriesPage returns up to limit entries with an id greater than lastID
// together with the last id of the page.
func (h *EntriesDBHandler) SelectEntriesPage(ctx context.Context, lastID int64, limit int) ([]*model.IndexEntry, int64, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_entries_page($1, $2)`,
		lastID,
		limit,
	)
	if err != nil {
		return nil, lastID, helper.NewError("query", err)
	}
	defer rows.Close()

	var entries []*model.IndexEntry
	for rows.Next() {
		entry, id, err := scanEntry(rows)
		if err != nil {
			return nil, lastID, err
		}

		lastID = id
		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, lastID, helper.NewError("rows error", err)
	}

	return entries, lastID, nil
}

// CountEntries returns the number of stored entries
func (h *EntriesDBHandler) CountEntries(ctx context.Context) (int, error) {
	var count int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_entries();`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// SelectSourceExists reports whether any entry was ingested from source
func (h *EntriesDBHandler) SelectSourceExists(ctx context.Context, source string) (bool, error) {
	var exists bool
	err := h.db.Instance.QueryRowContext(ctx, `SELECT select_entry_source_exists($1);`, source).Scan(&exists)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return exists, nil
}

func scanEntry(rows *sql.Rows, extra ...any) (*model.IndexEntry, int64, error) {
	var id int64
	var vector pgvector.Vector
	var metadataJSON []byte
	entry := &model.IndexEntry{}

	dest := []any{
		&id,
		&entry.ID,
		&entry.Chunk.DocumentID,
		&entry.Chunk.ID,
		&entry.Chunk.Position,
		&entry.Chunk.Start,
		&entry.Chunk.Text,
		&vector,
		&metadataJSON,
		&entry.CreatedAt,
	}
	dest = append(dest, extra...)

	err := rows.Scan(dest...)
	if err != nil {
		return nil, id, fmt.Errorf("%w: %v", ErrUnreadableRow, err)
	}

	if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
		return nil, id, fmt.Errorf("%w: entry %d metadata: %v", ErrUnreadableRow, id, err)
	}

	entry.Embedding = model.Embedding{ChunkID: entry.Chunk.ID, Vector: vector.Slice()}
	entry.Chunk.Metadata = entry.Metadata.Copy()

	return entry, id, nil
}

func filterArguments(filter *model.MetadataFilter) ([]byte, []byte, error) {
	equals := []byte("{}")
	ranges := []byte("[]")
	if filter.IsEmpty() {
		return equals, ranges, nil
	}

	var err error
	if len(filter.Equals) > 0 {
		equals, err = json.Marshal(filter.Equals)
		if err != nil {
			return nil, nil, err
		}
	}
	if len(filter.Ranges) > 0 {
		ranges, err = json.Marshal(filter.Ranges)
		if err != nil {
			return nil, nil, err
		}
	}
	return equals, ranges, nil
}
