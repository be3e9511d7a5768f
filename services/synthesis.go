package services

import (
	"context"
	"fmt"
	"strings"

	"edu-learning-platform/internal/ai"
	"edu-learning-platform/models"
	"edu-learning-platform/utils"
)

// SynthesisResult is a grounded answer with its usage accounting.
type SynthesisResult struct {
	Answer       string
	InputTokens  int
	OutputTokens int
	Cost         float64
}

// SynthesisService produces grounded answers from assembled context. Provider
// failures surface as typed errors; retries are the caller's policy.
type SynthesisService struct {
	llm ai.LLMClient
}

func NewSynthesisService(llm ai.LLMClient) *SynthesisService {
	return &SynthesisService{llm: llm}
}

// Synthesize answers the query from the numbered context items only.
func (ss *SynthesisService) Synthesize(ctx context.Context, query string, items []models.ContextItem) (*SynthesisResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, utils.NewError(utils.ErrValidation, "query must not be empty")
	}

	prompt := buildGroundedPrompt(query, items)
	completion, err := ss.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &SynthesisResult{
		Answer:       completion.Text,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		Cost:         ai.CostFor(ss.llm.Model(), completion.InputTokens, completion.OutputTokens),
	}, nil
}

// buildGroundedPrompt numbers each context item so answers stay attributable
// to specific sources.
func buildGroundedPrompt(query string, items []models.ContextItem) string {
	var sb strings.Builder

	sb.WriteString("You are a tutor for an online learning platform. ")
	sb.WriteString("Answer the learner's question using ONLY the numbered context below. ")
	sb.WriteString("If the context does not contain the answer, say you don't know. ")
	sb.WriteString("Keep answers attributable to specific context entries.\n\n")

	if len(items) == 0 {
		sb.WriteString("Context: (none available)\n")
	}
	for i, item := range items {
		label := "Course material"
		if item.Kind == models.ContextKindMemory {
			label = "Earlier in this conversation"
		}
		sb.WriteString(fmt.Sprintf("[%d] %s:\n%s\n\n", i+1, label, item.Text))
	}

	sb.WriteString("Question: ")
	sb.WriteString(query)
	return sb.String()
}
