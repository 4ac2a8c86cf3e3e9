package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/siherrmann/triage/core/pipeline"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
)

const DefaultModel = helper.DefaultOpenAIEmbeddingModel

// OpenAIEmbedder embeds texts with the OpenAI embeddings API
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an embedder. With dimensions 0 the default
// dimension of the model is used, other values are requested from the API.
func NewOpenAIEmbedder(modelName string, dimensions int, opts ...option.RequestOption) (*OpenAIEmbedder, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	if dimensions == 0 {
		dimensions = helper.EmbeddingDimensions[modelName]
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("unknown dimension for embedding model %q", modelName)
	}

	return &OpenAIEmbedder{
		client:     openai.NewClient(opts...),
		model:      modelName,
		dimensions: dimensions,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds all texts in one request. The result keeps the order of texts.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimensions != helper.EmbeddingDimensions[e.model] {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &model.EmbeddingServiceError{Err: err}
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(texts) {
			return nil, &model.EmbeddingServiceError{Err: fmt.Errorf("embedding index %d out of range", data.Index)}
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		vectors[data.Index] = vector
	}

	return pipeline.CheckVectors(vectors, len(texts), e.dimensions)
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}
