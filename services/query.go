package services

import (
	"context"
	"time"

	"edu-learning-platform/internal/logger"
	"edu-learning-platform/models"

	"github.com/google/uuid"
)

// QueryService runs the full memory-aware answer pipeline: context assembly,
// synthesis, citation tracking and conversation persistence.
type QueryService struct {
	memory        *MemoryService
	synthesis     *SynthesisService
	citations     *CitationService
	conversations ConversationStore
}

func NewQueryService(memory *MemoryService, synthesis *SynthesisService, citations *CitationService, conversations ConversationStore) *QueryService {
	return &QueryService{
		memory:        memory,
		synthesis:     synthesis,
		citations:     citations,
		conversations: conversations,
	}
}

// Answer handles one learner query end to end. Citations reference exactly
// the chunks that were part of the synthesis context, never more.
func (qs *QueryService) Answer(ctx context.Context, identity string, req models.QueryRequest) (*models.QueryResponse, error) {
	started := time.Now()
	queryID := uuid.NewString()

	assembled, err := qs.memory.BuildContext(ctx, identity, req.Query, req.ConversationID, req.TopK)
	if err != nil {
		return nil, err
	}

	result, err := qs.synthesis.Synthesize(ctx, req.Query, assembled.Items)
	if err != nil {
		return nil, err
	}

	citations, err := qs.citations.RecordCitations(ctx, queryID, assembled.Retrieved)
	if err != nil {
		return nil, err
	}

	if req.ConversationID != "" && qs.conversations != nil {
		qs.appendTurns(ctx, identity, req, result)
	}

	avgRelevance := 0.0
	for _, chunk := range assembled.Retrieved {
		avgRelevance += chunk.Score
	}
	if len(assembled.Retrieved) > 0 {
		avgRelevance /= float64(len(assembled.Retrieved))
	}

	return &models.QueryResponse{
		QueryID:          queryID,
		Answer:           result.Answer,
		Sources:          citations,
		HasMemoryContext: assembled.HasMemoryContext,
		Metadata: models.QueryMetadata{
			SourcesUsed:  len(assembled.Retrieved),
			AvgRelevance: avgRelevance,
			LatencyMs:    time.Since(started).Milliseconds(),
			Cost:         result.Cost,
			InputTokens:  result.InputTokens,
			OutputTokens: result.OutputTokens,
		},
		Timestamp: time.Now(),
	}, nil
}

// appendTurns records the question and answer so later queries in the
// conversation can use them as memory. Failures here don't fail the answer.
func (qs *QueryService) appendTurns(ctx context.Context, identity string, req models.QueryRequest, result *SynthesisResult) {
	now := time.Now()
	turns := []models.ConversationMessage{
		{
			ConversationID: req.ConversationID,
			UserID:         identity,
			Role:           models.RoleUser,
			Content:        req.Query,
			Timestamp:      now,
		},
		{
			ConversationID: req.ConversationID,
			UserID:         identity,
			Role:           models.RoleAssistant,
			Content:        result.Answer,
			TokenCost:      result.InputTokens + result.OutputTokens,
			Timestamp:      now.Add(time.Millisecond),
		},
	}
	for i := range turns {
		if err := qs.conversations.AppendMessage(ctx, &turns[i]); err != nil {
			logger.Warn("Failed to append conversation turn", "conversation_id", req.ConversationID, "error", err)
			return
		}
	}
}
