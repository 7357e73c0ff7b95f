// Package extractive answers offline by quoting the context sentences that best match the question.
package extractive

import (
	"context"
	"strings"

	"nextraction/internal/domain"
	"nextraction/internal/generation"
	"nextraction/internal/summarizer"
)

// Generator needs no network or key.
type Generator struct {
	summarizer   *summarizer.FrequencySummarizer
	maxSentences int
}

// New returns an extractive generator that keeps up to maxSentences sentences.
func New(maxSentences int) *Generator {
	return &Generator{summarizer: summarizer.NewFrequencySummarizer(), maxSentences: maxSentences}
}

func (g *Generator) Name() string { return "extractive" }

func (g *Generator) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(p.Context) == "" {
		return domain.NoInformation, nil
	}
	return generation.NonEmpty(g.Name(), g.summarizer.SummarizeFor(p.Question, p.Context, g.maxSentences))
}
