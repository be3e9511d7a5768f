package services

import (
	"context"
	"math"
	"strings"
	"testing"

	"edu-learning-platform/internal/ai"
	"edu-learning-platform/models"
	"edu-learning-platform/utils"
)

func TestSynthesizeBuildsNumberedPrompt(t *testing.T) {
	llm := &fakeLLM{answer: "grounded answer"}
	svc := NewSynthesisService(llm)

	items := []models.ContextItem{
		{Kind: models.ContextKindChunk, Text: "chunk text one"},
		{Kind: models.ContextKindMemory, Text: "previous turn"},
	}
	result, err := svc.Synthesize(context.Background(), "what is recursion?", items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != "grounded answer" {
		t.Errorf("answer = %q", result.Answer)
	}

	if len(llm.prompts) != 1 {
		t.Fatalf("expected 1 LLM call, got %d", len(llm.prompts))
	}
	prompt := llm.prompts[0]
	for _, want := range []string{
		"[1] Course material:\nchunk text one",
		"[2] Earlier in this conversation:\nprevious turn",
		"Question: what is recursion?",
		"ONLY the numbered context",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\nprompt: %s", want, prompt)
		}
	}
}

func TestSynthesizeEmptyContext(t *testing.T) {
	llm := &fakeLLM{answer: "I don't know."}
	svc := NewSynthesisService(llm)

	_, err := svc.Synthesize(context.Background(), "anything?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(llm.prompts[0], "(none available)") {
		t.Errorf("empty context should be stated in the prompt")
	}
}

func TestSynthesizeEmptyQuery(t *testing.T) {
	svc := NewSynthesisService(&fakeLLM{})
	_, err := svc.Synthesize(context.Background(), "  ", nil)
	if utils.Category(err) != utils.ErrValidation {
		t.Errorf("category = %q, want %q", utils.Category(err), utils.ErrValidation)
	}
}

func TestSynthesizeCostAccounting(t *testing.T) {
	llm := &fakeLLM{answer: strings.Repeat("word ", 100)}
	svc := NewSynthesisService(llm)

	result, err := svc.Synthesize(context.Background(), "question", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.InputTokens <= 0 || result.OutputTokens <= 0 {
		t.Fatalf("token counts not propagated: in=%d out=%d", result.InputTokens, result.OutputTokens)
	}
	want := ai.CostFor("gemini-2.0-flash", result.InputTokens, result.OutputTokens)
	if math.Abs(result.Cost-want) > 1e-12 {
		t.Errorf("cost = %v, want %v", result.Cost, want)
	}
}

func TestSynthesizeProviderErrorPropagates(t *testing.T) {
	llm := &fakeLLM{failFor: "Question"}
	svc := NewSynthesisService(llm)

	if _, err := svc.Synthesize(context.Background(), "anything", nil); err == nil {
		t.Fatalf("provider failure must propagate, not be replaced by a fallback answer")
	}
}
