package llm

import (
	"context"
	"fmt"
	"iter"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/siherrmann/triage/model"
)

// OpenAIModel talks to the OpenAI chat completions API
type OpenAIModel struct {
	client openai.Client
	model  string
}

// NewOpenAIModel creates a chat model. Options are passed to the client,
// e.g. option.WithAPIKey or option.WithBaseURL.
func NewOpenAIModel(modelName string, opts ...option.RequestOption) *OpenAIModel {
	if modelName == "" {
		modelName = defaultOpenAIModel
	}
	return &OpenAIModel{
		client: openai.NewClient(opts...),
		model:  modelName,
	}
}

func (m *OpenAIModel) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := m.client.Chat.Completions.New(ctx, m.params(req))
	if err != nil {
		return "", &model.GenerationError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &model.GenerationError{Err: fmt.Errorf("completion without choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

func (m *OpenAIModel) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := m.client.Chat.Completions.NewStreaming(ctx, m.params(req))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			yield("", &model.GenerationError{Err: err})
		}
	}
}

func (m *OpenAIModel) params(req Request) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(m.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(maxTokens(req)),
	}
}
