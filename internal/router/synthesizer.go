package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docsd/internal/tools"
)

// LLMSynthesizer answers a question from retrieved context passages using
// the language model. It backs every category tool.
type LLMSynthesizer struct {
	llm    llms.Model
	logger *zap.Logger
}

// NewLLMSynthesizer creates a synthesizer over the given model.
func NewLLMSynthesizer(llm llms.Model, logger *zap.Logger) (*LLMSynthesizer, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMSynthesizer{llm: llm, logger: logger}, nil
}

// Synthesize answers the question strictly from the given context passages.
func (s *LLMSynthesizer) Synthesize(ctx context.Context, question string, contexts []string) (string, error) {
	if len(contexts) == 0 {
		return "", fmt.Errorf("no context passages to synthesize from")
	}

	var b strings.Builder
	b.WriteString("Context information is below.\n---------------------\n")
	for _, c := range contexts {
		b.WriteString(c)
		b.WriteString("\n---------------------\n")
	}
	b.WriteString("Given the context information and not prior knowledge, answer the question.\n")
	fmt.Fprintf(&b, "Question: %s\nAnswer:", question)

	text, err := llms.GenerateFromSinglePrompt(ctx, s.llm, b.String(), llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return text, nil
}

var _ tools.Synthesizer = (*LLMSynthesizer)(nil)
