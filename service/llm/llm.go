package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"

	anthropicOption "github.com/anthropics/anthropic-sdk-go/option"
	openaiOption "github.com/openai/openai-go/option"
	"github.com/siherrmann/triage/helper"
)

const (
	defaultMaxTokens      = 1024
	defaultOpenAIModel    = helper.DefaultOpenAIModel
	defaultAnthropicModel = helper.DefaultAnthropicModel
)

// Request is one prompt for a language model
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Model is a text completion model.
// Errors of both methods are *model.GenerationError.
type Model interface {
	Complete(ctx context.Context, req Request) (string, error)
	// Stream yields answer fragments in order. An error ends the sequence.
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Collect joins all fragments of a stream
func Collect(stream iter.Seq2[string, error]) (string, error) {
	var sb strings.Builder
	for fragment, err := range stream {
		if err != nil {
			return "", err
		}
		sb.WriteString(fragment)
	}
	return sb.String(), nil
}

// NewModel creates the model configured by config
func NewModel(config helper.LLMConfiguration) (Model, error) {
	switch config.Provider {
	case "openai", "":
		opts := []openaiOption.RequestOption{openaiOption.WithAPIKey(config.APIKey)}
		if config.BaseURL != "" {
			opts = append(opts, openaiOption.WithBaseURL(config.BaseURL))
		}
		return NewOpenAIModel(config.Model, opts...), nil
	case "anthropic":
		opts := []anthropicOption.RequestOption{anthropicOption.WithAPIKey(config.APIKey)}
		if config.BaseURL != "" {
			opts = append(opts, anthropicOption.WithBaseURL(config.BaseURL))
		}
		model := config.Model
		if model == "" {
			model = defaultAnthropicModel
		}
		return NewAnthropicModel(model, opts...), nil
	default:
		return nil, helper.NewError("new model", fmt.Errorf("unknown llm provider %q", config.Provider))
	}
}

func maxTokens(req Request) int64 {
	if req.MaxTokens > 0 {
		return int64(req.MaxTokens)
	}
	return defaultMaxTokens
}
