package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/siherrmann/triage/model"
)

// AnthropicModel talks to the Anthropic messages API
type AnthropicModel struct {
	client anthropic.Client
	model  string
}

// NewAnthropicModel creates a messages model. Options are passed to the client.
func NewAnthropicModel(modelName string, opts ...option.RequestOption) *AnthropicModel {
	return &AnthropicModel{
		client: anthropic.NewClient(opts...),
		model:  modelName,
	}
}

func (m *AnthropicModel) Complete(ctx context.Context, req Request) (string, error) {
	message, err := m.client.Messages.New(ctx, m.params(req))
	if err != nil {
		return "", &model.GenerationError{Err: err}
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &model.GenerationError{Err: fmt.Errorf("message without text content")}
	}
	return sb.String(), nil
}

func (m *AnthropicModel) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := m.client.Messages.NewStreaming(ctx, m.params(req))
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
				if !ok || delta.Text == "" {
					continue
				}
				if !yield(delta.Text, nil) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			yield("", &model.GenerationError{Err: err})
		}
	}
}

func (m *AnthropicModel) params(req Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: maxTokens(req),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	return params
}
