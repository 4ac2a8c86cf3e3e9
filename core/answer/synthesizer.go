package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
	"github.com/siherrmann/triage/service/llm"
)

const systemPrompt = "You answer support questions. Use only the given context. If the context does not contain the answer, say that you don't know. Do not use outside knowledge."

// Synthesizer answers questions from retrieved passages
type Synthesizer struct {
	model       llm.Model
	temperature float64
	maxTokens   int
	log         *slog.Logger
}

func NewSynthesizer(lm llm.Model, temperature float64, maxTokens int, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		model:       lm,
		temperature: temperature,
		maxTokens:   maxTokens,
		log:         logger,
	}
}

// Answer streams the answer to sink and returns it with the distinct passage
// sources as citations. On any failure no answer is returned, the error is a
// *model.GenerationError unless the sink failed.
func (s *Synthesizer) Answer(ctx context.Context, question string, passages []model.ScoredEntry, sink Sink) (*model.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, helper.NewError("answer", fmt.Errorf("empty question"))
	}

	req := llm.Request{
		System:      systemPrompt,
		Prompt:      BuildPrompt(question, passages),
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}

	var sb strings.Builder
	for fragment, err := range s.model.Stream(ctx, req) {
		if err != nil {
			return nil, generationError(err)
		}
		if err := sink.Emit(fragment); err != nil {
			return nil, helper.NewError("emit fragment", err)
		}
		sb.WriteString(fragment)
	}
	if err := ctx.Err(); err != nil {
		return nil, generationError(err)
	}

	s.log.Debug("Generated answer", slog.Int("passages", len(passages)), slog.Int("length", sb.Len()))

	return &model.Answer{
		Text:      strings.TrimSpace(sb.String()),
		Citations: model.DistinctSources(passages),
	}, nil
}

// BuildPrompt numbers the passages with their sources and appends the question
func BuildPrompt(question string, passages []model.ScoredEntry) string {
	var passageText strings.Builder
	n := 0
	for _, p := range passages {
		if p.Entry == nil {
			continue
		}
		n++
		if n > 1 {
			passageText.WriteString("\n\n")
		}
		fmt.Fprintf(&passageText, "[%d] (source: %s)\n%s", n, p.Entry.Source(), p.Entry.Chunk.Text)
	}

	return fmt.Sprintf("Answer the question based only on the following context:\n%s\n\nQuestion: %s", passageText.String(), question)
}

func generationError(err error) error {
	var generationErr *model.GenerationError
	if errors.As(err, &generationErr) {
		return err
	}
	return &model.GenerationError{Err: err}
}
