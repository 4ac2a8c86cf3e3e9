package index

import (
	"context"

	"github.com/siherrmann/triage/model"
)

// Index stores embedded chunks and answers similarity queries.
// Implementations are safe for concurrent use. Upserts are serialized
// and a query sees every upsert that returned before it started.
type Index interface {
	// Upsert appends entries. All vectors must have the dimension of the index.
	Upsert(ctx context.Context, entries []*model.IndexEntry) error
	// Query returns up to config.TopK entries ranked by similarity, diversified
	// with maximal marginal relevance if config.Diversity is set.
	// An empty index yields an empty result.
	Query(ctx context.Context, vector []float32, config model.QueryConfig) ([]model.ScoredEntry, error)
	// QueryWithMetadataFilter returns the k most similar entries matching filter.
	QueryWithMetadataFilter(ctx context.Context, vector []float32, k int, filter *model.MetadataFilter) ([]model.ScoredEntry, error)
	// HasSource reports whether entries from source were upserted.
	HasSource(ctx context.Context, source string) (bool, error)
	Count(ctx context.Context) (int, error)
	// Scan calls fn for every entry in insertion order until fn returns an error.
	Scan(ctx context.Context, fn func(*model.IndexEntry) error) error
	Close() error
}

func filterConfig(k int, filter *model.MetadataFilter) model.QueryConfig {
	return model.QueryConfig{TopK: k, FetchK: k, Filter: filter}
}
