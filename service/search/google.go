package search

import (
	"context"
	"fmt"

	"github.com/siherrmann/triage/helper"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Google allows at most ten results per request
const maxGoogleResults = 10

// GoogleSearcher queries a Google Programmable Search Engine
type GoogleSearcher struct {
	service  *customsearch.Service
	engineID string
}

// NewGoogleSearcher creates a searcher for the engine engineID.
// Additional options, e.g. option.WithEndpoint, are passed to the service.
func NewGoogleSearcher(ctx context.Context, apiKey string, engineID string, opts ...option.ClientOption) (*GoogleSearcher, error) {
	if apiKey == "" || engineID == "" {
		return nil, helper.NewError("google searcher", fmt.Errorf("api key and engine id are required"))
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, helper.NewError("customsearch service", err)
	}

	return &GoogleSearcher{
		service:  service,
		engineID: engineID,
	}, nil
}

func (s *GoogleSearcher) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if n <= 0 {
		return []Result{}, nil
	}
	n = min(n, maxGoogleResults)

	resp, err := s.service.Cse.List().Cx(s.engineID).Q(query).Num(int64(n)).Context(ctx).Do()
	if err != nil {
		return nil, helper.NewError("search", err)
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		results = append(results, Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}
