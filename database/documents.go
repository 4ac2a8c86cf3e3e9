package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
	"github.com/siherrmann/triage/sql"
)

// DocumentsDBHandlerFunctions defines the interface for Documents database operations.
type DocumentsDBHandlerFunctions interface {
	InsertDocument(ctx context.Context, doc *model.StoredDocument) error
	SelectDocument(ctx context.Context, rid uuid.UUID) (*model.StoredDocument, error)
	SelectDocumentsBySource(ctx context.Context, sourceURI string) ([]*model.StoredDocument, error)
	SelectAllDocuments(ctx context.Context, lastID int, limit int) ([]*model.StoredDocument, error)
	DeleteDocument(ctx context.Context, rid uuid.UUID) error
}

// DocumentsDBHandler handles document-related database operations
type DocumentsDBHandler struct {
	db *helper.Database
}

// NewDocumentsDBHandler creates a new documents database handler.
// It loads document-related SQL functions and creates the documents table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, force bool) (*DocumentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	documentsDbHandler := &DocumentsDBHandler{
		db: db,
	}

	err := sql.LoadDocumentsSql(documentsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load documents sql", err)
	}

	err = documentsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return documentsDbHandler, nil
}

// CreateTable creates the 'documents' table in the database.
// If the table already exists, it does not create it again.
func (h *DocumentsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_documents();`)
	if err != nil {
		return helper.NewError("init documents", err)
	}

	h.db.Logger.Info("Checked/created table documents")

	return nil
}

// InsertDocument inserts a document. Inserting a known RID adds the chunk
// count to the stored row instead.
func (h *DocumentsDBHandler) InsertDocument(ctx context.Context, doc *model.StoredDocument) error {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_document($1, $2, $3, $4, $5)`,
		doc.RID,
		doc.SourceURI,
		string(doc.SourceKind),
		doc.Metadata,
		doc.ChunkCount,
	)

	err := scanDocument(row, doc)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectDocument retrieves a document by RID
func (h *DocumentsDBHandler) SelectDocument(ctx context.Context, rid uuid.UUID) (*model.StoredDocument, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_document($1)`,
		rid,
	)

	doc := &model.StoredDocument{}
	err := scanDocument(row, doc)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return doc, nil
}

// SelectDocumentsBySource retrieves every document loaded from sourceURI
func (h *DocumentsDBHandler) SelectDocumentsBySource(ctx context.Context, sourceURI string) ([]*model.StoredDocument, error) {
	return h.selectDocuments(ctx, `SELECT * FROM select_documents_by_source($1)`, sourceURI)
}

// SelectAllDocuments retrieves documents with an id greater than lastID
func (h *DocumentsDBHandler) SelectAllDocuments(ctx context.Context, lastID int, limit int) ([]*model.StoredDocument, error) {
	return h.selectDocuments(ctx, `SELECT * FROM select_all_documents($1, $2)`, lastID, limit)
}

// DeleteDocument deletes a document and, by cascade, its entries
func (h *DocumentsDBHandler) DeleteDocument(ctx context.Context, rid uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT delete_document($1)`,
		rid,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func (h *DocumentsDBHandler) selectDocuments(ctx context.Context, query string, args ...any) ([]*model.StoredDocument, error) {
	rows, err := h.db.Instance.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var documents []*model.StoredDocument
	for rows.Next() {
		doc := &model.StoredDocument{}
		err := scanDocument(rows, doc)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		documents = append(documents, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return documents, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner, doc *model.StoredDocument) error {
	var sourceKind string
	err := row.Scan(
		&doc.ID,
		&doc.RID,
		&doc.SourceURI,
		&sourceKind,
		&doc.Metadata,
		&doc.ChunkCount,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return err
	}
	doc.SourceKind = model.SourceKind(sourceKind)
	return nil
}
