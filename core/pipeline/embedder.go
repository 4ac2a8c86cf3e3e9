package pipeline

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
)

// Embedder maps texts to fixed length vectors. EmbedBatch keeps input order.
// Failures are reported as *model.EmbeddingServiceError.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// LocalEmbedder runs a sentence transformer ONNX model in process
type LocalEmbedder struct {
	session    *hugot.Session
	pipeline   *pipelines.FeatureExtractionPipeline
	dimensions int
}

// DefaultModel is the model used by NewLocalEmbedder when no name is given.
// It produces 384-dimensional embeddings.
const DefaultModel = helper.DefaultLocalEmbeddingModel

// NewLocalEmbedder downloads the model into modelDir if needed and starts a
// hugot session with the pure Go backend.
func NewLocalEmbedder(modelDir, modelName string, dimensions int) (*LocalEmbedder, error) {
	if modelName == "" {
		modelName = DefaultModel
	}

	modelPath, err := helper.PrepareModel(modelDir, modelName, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return &LocalEmbedder{
		session:    session,
		pipeline:   sentencePipeline,
		dimensions: dimensions,
	}, nil
}

func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := e.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, &model.EmbeddingServiceError{Err: err}
	}

	return CheckVectors(result.Embeddings, len(texts), e.dimensions)
}

func (e *LocalEmbedder) Dimensions() int {
	return e.dimensions
}

// Close releases the hugot session
func (e *LocalEmbedder) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}

// CheckVectors validates an embedding service response against the request.
// A dimensions value of 0 skips the length check.
func CheckVectors(vectors [][]float32, want int, dimensions int) ([][]float32, error) {
	if len(vectors) != want {
		return nil, &model.EmbeddingServiceError{Err: fmt.Errorf("expected %d embeddings, got %d", want, len(vectors))}
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, &model.EmbeddingServiceError{Err: fmt.Errorf("embedding %d is empty", i)}
		}
		if dimensions > 0 && len(v) != dimensions {
			return nil, &model.EmbeddingServiceError{Err: fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), dimensions)}
		}
	}
	return vectors, nil
}
