package model

// RetrievalResult is the ranked passage list of one query
type RetrievalResult struct {
	Passages []ScoredEntry `json:"passages"`
	Sources  []string      `json:"sources"`
}

// NewRetrievalResult collects the distinct sources of passages in first-seen order
func NewRetrievalResult(passages []ScoredEntry) *RetrievalResult {
	return &RetrievalResult{
		Passages: passages,
		Sources:  DistinctSources(passages),
	}
}

// DistinctSources returns the distinct passage sources in first-seen order
func DistinctSources(passages []ScoredEntry) []string {
	seen := make(map[string]bool, len(passages))
	sources := []string{}
	for _, p := range passages {
		if p.Entry == nil {
			continue
		}
		source := p.Entry.Source()
		if source == "" || seen[source] {
			continue
		}
		seen[source] = true
		sources = append(sources, source)
	}
	return sources
}

// Answer is a completed, grounded answer
type Answer struct {
	Text      string   `json:"text"`
	Citations []string `json:"citations"`
}

// IngestFailure is one item that could not be ingested
type IngestFailure struct {
	Item   string `json:"item"`
	Reason error  `json:"-"`
}

// IngestResult aggregates per-item outcomes of a batch ingestion
type IngestResult struct {
	Succeeded []string        `json:"succeeded"`
	Failed    []IngestFailure `json:"failed"`
}

func (r *IngestResult) AddSuccess(item string) {
	r.Succeeded = append(r.Succeeded, item)
}

func (r *IngestResult) AddFailure(item string, reason error) {
	r.Failed = append(r.Failed, IngestFailure{Item: item, Reason: reason})
}

// Merge appends the outcomes of other
func (r *IngestResult) Merge(other *IngestResult) {
	if other == nil {
		return
	}
	r.Succeeded = append(r.Succeeded, other.Succeeded...)
	r.Failed = append(r.Failed, other.Failed...)
}

func (r *IngestResult) HasFailures() bool {
	return len(r.Failed) > 0
}
