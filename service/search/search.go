package search

import "context"

// Result is one web search hit
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Searcher returns up to n results for a query
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]Result, error)
}
