package model

import "fmt"

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	TopK int `json:"top_k"`

	// Maximal marginal relevance
	Diversity bool    `json:"diversity"`
	FetchK    int     `json:"fetch_k"`
	Lambda    float64 `json:"lambda"`

	// Candidates more similar than this to an already selected entry are
	// only used once no other candidates are left. Zero disables the check.
	DuplicateThreshold float64 `json:"duplicate_threshold"`

	Filter *MetadataFilter `json:"filter,omitempty"`
}

// DefaultQueryConfig returns the configuration used by the knowledge base
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:      2,
		Diversity: false,
		FetchK:    4,
		Lambda:    0.5,

		DuplicateThreshold: 0.95,
	}
}

// Normalize checks the config and raises FetchK to TopK if needed
func (c *QueryConfig) Normalize() error {
	if c.TopK < 0 {
		return fmt.Errorf("top k must not be negative")
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("lambda must be in [0, 1]")
	}
	if c.DuplicateThreshold < 0 || c.DuplicateThreshold > 1 {
		return fmt.Errorf("duplicate threshold must be in [0, 1]")
	}
	if c.FetchK < c.TopK {
		c.FetchK = c.TopK
	}
	return nil
}
