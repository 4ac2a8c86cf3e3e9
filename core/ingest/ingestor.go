package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/siherrmann/triage/core/index"
	"github.com/siherrmann/triage/core/pipeline"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
	"github.com/siherrmann/triage/service/redact"
)

// Ingestor loads sources and indexes their documents. Every document is
// chunked, embedded and upserted on its own, so a failing document leaves
// the documents before it indexed.
type Ingestor struct {
	pipeline *pipeline.Pipeline
	index    index.Index
	fetcher  *Fetcher
	redactor redact.Redactor
	log      *slog.Logger
}

// NewIngestor creates an ingestor writing into idx. A nil redactor leaves
// document text unchanged. The fetcher is only needed for URL sources.
func NewIngestor(p *pipeline.Pipeline, idx index.Index, fetcher *Fetcher, redactor redact.Redactor, logger *slog.Logger) *Ingestor {
	if redactor == nil {
		redactor = redact.NoopRedactor{}
	}
	return &Ingestor{
		pipeline: p,
		index:    idx,
		fetcher:  fetcher,
		redactor: redactor,
		log:      logger,
	}
}

// Ingest loads and indexes all sources. Failures are collected per source
// or document in the result. A cancelled context stops the batch before
// the next document, the remaining items are not reported.
func (i *Ingestor) Ingest(ctx context.Context, sources ...Source) *model.IngestResult {
	result := &model.IngestResult{}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			result.AddFailure(source.URI, err)
			return result
		}

		docs, err := i.Load(ctx, source)
		if err != nil {
			i.log.Warn("Failed to load source", slog.String("source", source.URI), slog.Any("error", err))
			result.AddFailure(source.URI, err)
			continue
		}

		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				result.AddFailure(doc.SourceURI, err)
				return result
			}

			chunks, err := i.IngestDocument(ctx, doc)
			if err != nil {
				i.log.Warn("Failed to ingest document", slog.String("source", doc.SourceURI), slog.Any("error", err))
				result.AddFailure(doc.SourceURI, err)
				continue
			}
			i.log.Debug("Ingested document", slog.String("source", doc.SourceURI), slog.Int("chunks", chunks))
			result.AddSuccess(doc.SourceURI)
		}
	}

	i.log.Info("Ingestion finished", slog.Int("succeeded", len(result.Succeeded)), slog.Int("failed", len(result.Failed)))

	return result
}

// IngestDocument redacts, chunks, embeds and upserts one document.
// It returns the number of indexed chunks.
func (i *Ingestor) IngestDocument(ctx context.Context, doc *model.Document) (int, error) {
	doc, err := i.redact(ctx, doc)
	if err != nil {
		return 0, helper.NewError("redact", err)
	}

	entries, err := i.pipeline.Process(ctx, doc)
	if err != nil {
		var embeddingErr *model.EmbeddingServiceError
		if errors.As(err, &embeddingErr) {
			return 0, err
		}
		return 0, helper.NewError("process", err)
	}
	if len(entries) == 0 {
		return 0, ErrNoText
	}

	if err := i.index.Upsert(ctx, entries); err != nil {
		return 0, helper.NewError("upsert", err)
	}
	return len(entries), nil
}

// Metadata written by the ingestor itself, never redacted
var identityMetadata = map[string]bool{
	model.MetadataSource:     true,
	model.MetadataSourceKind: true,
	MetadataRecordID:         true,
	MetadataCollection:       true,
	MetadataContentType:      true,
}

// redact returns a copy of doc with redacted text and metadata values
func (i *Ingestor) redact(ctx context.Context, doc *model.Document) (*model.Document, error) {
	text, err := i.redactor.Redact(ctx, doc.RawText)
	if err != nil {
		return nil, err
	}

	md := doc.Metadata.Copy()
	for k, v := range doc.Metadata {
		if identityMetadata[k] {
			continue
		}
		if md[k], err = i.redactor.Redact(ctx, v); err != nil {
			return nil, err
		}
	}

	redacted := *doc
	redacted.RawText = text
	redacted.Metadata = md
	return &redacted, nil
}
