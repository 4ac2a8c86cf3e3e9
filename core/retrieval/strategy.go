package retrieval

import (
	"fmt"
	"strings"

	"github.com/siherrmann/triage/model"
)

// Strategy names how passages are ranked
type Strategy string

const (
	// StrategySimilarity returns the top k most similar passages
	StrategySimilarity Strategy = "similarity"
	// StrategyMMR diversifies the top fetch k passages with maximal marginal relevance
	StrategyMMR Strategy = "mmr"
)

// ParseStrategy parses a strategy name, case insensitive
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case StrategySimilarity:
		return StrategySimilarity, nil
	case StrategyMMR:
		return StrategyMMR, nil
	default:
		return "", fmt.Errorf("unknown retrieval strategy %q (use 'similarity' or 'mmr')", name)
	}
}

// Apply returns config ranked by the strategy
func (s Strategy) Apply(config model.QueryConfig) model.QueryConfig {
	config.Diversity = s == StrategyMMR
	return config
}
