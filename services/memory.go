package services

import (
	"context"
	"sort"

	"edu-learning-platform/internal/logger"
	"edu-learning-platform/models"
	"edu-learning-platform/utils"
)

// AssembledContext is the budgeted context handed to the synthesizer.
type AssembledContext struct {
	Items            []models.ContextItem
	Retrieved        []models.RetrievedChunk
	HasMemoryContext bool
}

// MemoryService merges retrieved chunks with relevant prior conversation
// turns into a single context under a character budget.
type MemoryService struct {
	retrieval     *RetrievalService
	conversations ConversationStore
	budgetChars   int
	turnLimit     int
}

func NewMemoryService(retrieval *RetrievalService, conversations ConversationStore, budgetChars, turnLimit int) *MemoryService {
	return &MemoryService{
		retrieval:     retrieval,
		conversations: conversations,
		budgetChars:   budgetChars,
		turnLimit:     turnLimit,
	}
}

// BuildContext retrieves chunks for the query and, when a conversation id is
// present, folds in the most relevant recent turns. Items are deduplicated
// and trimmed lowest-relevance-first until the budget is satisfied.
func (ms *MemoryService) BuildContext(ctx context.Context, identity, query, conversationID string, topK int) (*AssembledContext, error) {
	retrieved, err := ms.retrieval.Retrieve(ctx, identity, query, topK)
	if err != nil {
		return nil, err
	}

	items := make([]models.ContextItem, 0, len(retrieved)+ms.turnLimit)
	for _, chunk := range retrieved {
		items = append(items, models.ContextItem{
			Kind:       models.ContextKindChunk,
			ChunkID:    chunk.ChunkID,
			DocumentID: chunk.DocumentID,
			Text:       chunk.Text,
			Relevance:  chunk.Score,
		})
	}

	hasMemory := false
	if conversationID != "" && ms.conversations != nil {
		turns, err := ms.relevantTurns(ctx, conversationID, query)
		if err != nil {
			// Memory is auxiliary context; retrieval results still stand.
			logger.Warn("Failed to load conversation memory", "conversation_id", conversationID, "error", err)
		} else if len(turns) > 0 {
			hasMemory = true
			items = append(items, turns...)
		}
	}

	items = dedupeItems(items)
	items = enforceBudget(items, ms.budgetChars)

	// Budget trimming can drop every memory turn; report what survived.
	if hasMemory {
		hasMemory = false
		for _, item := range items {
			if item.Kind == models.ContextKindMemory {
				hasMemory = true
				break
			}
		}
	}

	return &AssembledContext{
		Items:            items,
		Retrieved:        filterRetrieved(retrieved, items),
		HasMemoryContext: hasMemory,
	}, nil
}

// relevantTurns scores recent turns by keyword overlap with the query, with
// a small recency bonus so newer turns win ties.
func (ms *MemoryService) relevantTurns(ctx context.Context, conversationID, query string) ([]models.ContextItem, error) {
	fetchLimit := ms.turnLimit * 4
	messages, err := ms.conversations.RecentMessages(ctx, conversationID, fetchLimit)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}

	queryTerms := tokenize(query)
	type scoredTurn struct {
		item  models.ContextItem
		order int
	}
	scored := make([]scoredTurn, 0, len(messages))
	for i, msg := range messages {
		overlap := lexicalOverlap(queryTerms, msg.Content)
		// messages arrive oldest-first; i/len is the recency bonus
		recency := float64(i) / float64(len(messages))
		scored = append(scored, scoredTurn{
			item: models.ContextItem{
				Kind:      models.ContextKindMemory,
				Text:      msg.Content,
				Relevance: 0.8*overlap + 0.2*recency,
			},
			order: i,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].item.Relevance != scored[j].item.Relevance {
			return scored[i].item.Relevance > scored[j].item.Relevance
		}
		return scored[i].order > scored[j].order
	})

	limit := ms.turnLimit
	if len(scored) < limit {
		limit = len(scored)
	}

	turns := make([]models.ContextItem, 0, limit)
	for _, st := range scored[:limit] {
		if st.item.Relevance > 0 {
			turns = append(turns, st.item)
		}
	}
	return turns, nil
}

// dedupeItems drops items with identical text, keeping the first (highest
// relevance within its kind ordering).
func dedupeItems(items []models.ContextItem) []models.ContextItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		key := utils.HashText(item.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// enforceBudget drops the lowest-relevance items until the total character
// count fits, preserving relevance order in the result.
func enforceBudget(items []models.ContextItem, budget int) []models.ContextItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Relevance > items[j].Relevance
	})

	total := 0
	for _, item := range items {
		total += len(item.Text)
	}
	for total > budget && len(items) > 0 {
		last := items[len(items)-1]
		total -= len(last.Text)
		items = items[:len(items)-1]
	}
	return items
}

// filterRetrieved keeps only the retrieved chunks that survived dedupe and
// budget trimming; only these may be cited.
func filterRetrieved(retrieved []models.RetrievedChunk, items []models.ContextItem) []models.RetrievedChunk {
	kept := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Kind == models.ContextKindChunk {
			kept[item.ChunkID] = struct{}{}
		}
	}

	out := make([]models.RetrievedChunk, 0, len(kept))
	for _, chunk := range retrieved {
		if _, ok := kept[chunk.ChunkID]; ok {
			out = append(out, chunk)
		}
	}
	return out
}
