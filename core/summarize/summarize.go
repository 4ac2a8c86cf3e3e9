package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/triage/core/pipeline"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
	"github.com/siherrmann/triage/service/llm"
)

// ErrEmptyText is returned when there is nothing to summarize
var ErrEmptyText = errors.New("empty text")

const summaryPrompt = "Write a concise summary of the following:\n\n\"%s\"\n\nCONCISE SUMMARY:"

// Summarizer summarizes long texts with map-reduce: every chunk is
// summarized on its own, then the chunk summaries are combined.
type Summarizer struct {
	model     llm.Model
	chunkSize int
	overlap   int
	log       *slog.Logger
}

func NewSummarizer(lm llm.Model, chunkSize, overlap int, logger *slog.Logger) (*Summarizer, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, helper.NewError("summarizer", fmt.Errorf("overlap must be in [0, %d)", chunkSize))
	}
	return &Summarizer{
		model:     lm,
		chunkSize: chunkSize,
		overlap:   overlap,
		log:       logger,
	}, nil
}

// Summarize makes one model call per chunk and one reduce call, also for
// a single chunk. Model failures are returned as *model.GenerationError.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	segments, err := pipeline.SplitText(text, s.chunkSize, s.overlap)
	if err != nil {
		return "", helper.NewError("split text", err)
	}
	if len(segments) == 0 {
		return "", ErrEmptyText
	}

	summaries := make([]string, len(segments))
	for i, segment := range segments {
		summary, err := s.complete(ctx, segment.Text)
		if err != nil {
			return "", helper.NewError(fmt.Sprintf("summarize chunk %d", i), err)
		}
		summaries[i] = summary
	}
	s.log.Debug("Summarized chunks", slog.Int("chunks", len(segments)))

	summary, err := s.complete(ctx, strings.Join(summaries, "\n"))
	if err != nil {
		return "", helper.NewError("combine summaries", err)
	}
	return summary, nil
}

func (s *Summarizer) complete(ctx context.Context, text string) (string, error) {
	answer, err := s.model.Complete(ctx, llm.Request{Prompt: fmt.Sprintf(summaryPrompt, text)})
	if err != nil {
		var generationErr *model.GenerationError
		if errors.As(err, &generationErr) {
			return "", err
		}
		return "", &model.GenerationError{Err: err}
	}
	return strings.TrimSpace(answer), nil
}
