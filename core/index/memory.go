package index

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
)

// MemoryIndex is an in-process index. It lives as long as its owner and is
// used for ephemeral web research results.
type MemoryIndex struct {
	mu         sync.RWMutex
	dimensions int
	entries    []*model.IndexEntry
	sources    map[string]int
}

// NewMemoryIndex creates an empty index. With dimensions 0 the dimension
// is taken from the first upserted entry.
func NewMemoryIndex(dimensions int) *MemoryIndex {
	return &MemoryIndex{
		dimensions: dimensions,
		sources:    map[string]int{},
	}
}

// Upsert appends entries. Either all entries are added or none.
func (m *MemoryIndex) Upsert(ctx context.Context, entries []*model.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dimensions := m.dimensions
	for _, e := range entries {
		if e == nil {
			return helper.NewError("upsert", fmt.Errorf("nil entry"))
		}
		if dimensions == 0 {
			dimensions = len(e.Embedding.Vector)
		}
		if len(e.Embedding.Vector) != dimensions || dimensions == 0 {
			return helper.NewError("upsert", fmt.Errorf("entry %s has dimension %d, index has %d", e.ID, len(e.Embedding.Vector), dimensions))
		}
	}

	m.dimensions = dimensions
	for _, e := range entries {
		m.entries = append(m.entries, e)
		if source := e.Source(); source != "" {
			m.sources[source]++
		}
	}

	return nil
}

// Query ranks all entries matching config.Filter by cosine similarity.
// Equal scores keep insertion order.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, config model.QueryConfig) ([]model.ScoredEntry, error) {
	if err := config.Normalize(); err != nil {
		return nil, helper.NewError("query config", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 || config.TopK == 0 {
		return []model.ScoredEntry{}, nil
	}
	if len(vector) != m.dimensions {
		return nil, helper.NewError("query", fmt.Errorf("query has dimension %d, index has %d", len(vector), m.dimensions))
	}

	scored := make([]model.ScoredEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if !config.Filter.Match(e.Metadata) {
			continue
		}
		scored = append(scored, model.ScoredEntry{Entry: e, Score: CosineSimilarity(vector, e.Embedding.Vector)})
	}

	slices.SortStableFunc(scored, func(a, b model.ScoredEntry) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if !config.Diversity {
		return scored[:min(config.TopK, len(scored))], nil
	}

	candidates := scored[:min(config.FetchK, len(scored))]
	return MaximalMarginalRelevance(candidates, config.TopK, config.Lambda, config.DuplicateThreshold), nil
}

// QueryWithMetadataFilter returns the k most similar entries matching filter
func (m *MemoryIndex) QueryWithMetadataFilter(ctx context.Context, vector []float32, k int, filter *model.MetadataFilter) ([]model.ScoredEntry, error) {
	return m.Query(ctx, vector, filterConfig(k, filter))
}

func (m *MemoryIndex) HasSource(ctx context.Context, source string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sources[source] > 0, nil
}

// Sources returns the distinct sources in the index
func (m *MemoryIndex) Sources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sources := make([]string, 0, len(m.sources))
	for source := range m.sources {
		sources = append(sources, source)
	}
	slices.Sort(sources)
	return sources
}

func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Scan iterates over a snapshot of the entries taken when Scan is called
func (m *MemoryIndex) Scan(ctx context.Context, fn func(*model.IndexEntry) error) error {
	m.mu.RLock()
	snapshot := slices.Clone(m.entries)
	m.mu.RUnlock()

	for _, e := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Close drops all entries
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = nil
	m.sources = map[string]int{}
	return nil
}
