package services

import (
	"context"
	"strings"
	"testing"

	"edu-learning-platform/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func memoryFixture(texts ...string) *fakeChunkStore {
	docID := primitive.NewObjectID()
	store := &fakeChunkStore{
		docs: []models.Document{
			{ID: docID, Title: "Course", Visibility: models.VisibilitySystem, CurrentGeneration: "g1"},
		},
	}
	embeddings := [][]float32{{1, 0, 0}, {0.8, 0.6, 0}, {0, 1, 0}, {0, 0.5, 0.5}}
	for i, text := range texts {
		store.chunks = append(store.chunks, models.Chunk{
			ChunkID:    string(rune('a'+i)) + "-chunk",
			DocumentID: docID,
			Generation: "g1",
			Text:       text,
			Embedding:  embeddings[i%len(embeddings)],
		})
	}
	return store
}

func TestBuildContextBudgetDropsLowestRelevance(t *testing.T) {
	store := memoryFixture(
		strings.Repeat("x", 40),
		strings.Repeat("y", 40),
		strings.Repeat("z", 40),
	)
	retrieval := NewRetrievalService(&fakeEmbedder{}, store, noopCache{}, 8, 50)
	memory := NewMemoryService(retrieval, nil, 80, 6)

	assembled, err := memory.BuildContext(context.Background(), "alice", "unrelated query", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(assembled.Items) != 2 {
		t.Fatalf("expected 2 items under an 80-char budget, got %d", len(assembled.Items))
	}
	// Highest vector similarity survives; the orthogonal chunk is dropped.
	if assembled.Items[0].Relevance < assembled.Items[1].Relevance {
		t.Errorf("items not ordered by descending relevance")
	}
	if len(assembled.Retrieved) != 2 {
		t.Errorf("citable chunks must match surviving items, got %d", len(assembled.Retrieved))
	}
}

func TestBuildContextDedupesIdenticalText(t *testing.T) {
	store := memoryFixture("the same text", "the same text")
	retrieval := NewRetrievalService(&fakeEmbedder{}, store, noopCache{}, 8, 50)
	memory := NewMemoryService(retrieval, nil, 8000, 6)

	assembled, err := memory.BuildContext(context.Background(), "alice", "question", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assembled.Items) != 1 {
		t.Errorf("expected duplicate text to collapse to 1 item, got %d", len(assembled.Items))
	}
	if len(assembled.Retrieved) != 1 {
		t.Errorf("only the kept duplicate may be cited, got %d", len(assembled.Retrieved))
	}
}

func TestBuildContextIncludesRelevantMemory(t *testing.T) {
	store := memoryFixture("recursion calls itself")
	retrieval := NewRetrievalService(&fakeEmbedder{}, store, noopCache{}, 8, 50)
	conversations := &fakeConversationStore{
		messages: map[string][]models.ConversationMessage{
			"conv-1": {
				{ConversationID: "conv-1", Role: models.RoleUser, Content: "tell me about recursion"},
				{ConversationID: "conv-1", Role: models.RoleAssistant, Content: "completely unrelated reply"},
			},
		},
	}
	memory := NewMemoryService(retrieval, conversations, 8000, 6)

	assembled, err := memory.BuildContext(context.Background(), "alice", "recursion question", "conv-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !assembled.HasMemoryContext {
		t.Errorf("expected memory context for an overlapping prior turn")
	}

	memoryItems := 0
	for _, item := range assembled.Items {
		if item.Kind == models.ContextKindMemory {
			memoryItems++
		}
	}
	if memoryItems == 0 {
		t.Errorf("no memory items in assembled context")
	}
}

func TestBuildContextMemoryFlagClearedByBudget(t *testing.T) {
	store := memoryFixture(strings.Repeat("recursion ", 10))
	retrieval := NewRetrievalService(&fakeEmbedder{}, store, noopCache{}, 8, 50)
	conversations := &fakeConversationStore{
		messages: map[string][]models.ConversationMessage{
			"conv-1": {
				{ConversationID: "conv-1", Role: models.RoleUser, Content: "recursion recursion please"},
			},
		},
	}
	// Budget fits only the retrieved chunk.
	memory := NewMemoryService(retrieval, conversations, 100, 6)

	assembled, err := memory.BuildContext(context.Background(), "alice", "recursion", "conv-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, item := range assembled.Items {
		if item.Kind == models.ContextKindMemory {
			t.Fatalf("memory item should have been trimmed by the budget")
		}
	}
	if assembled.HasMemoryContext {
		t.Errorf("HasMemoryContext must reflect the post-trim context")
	}
}

func TestBuildContextSurvivesMemoryFailure(t *testing.T) {
	store := memoryFixture("some course text")
	retrieval := NewRetrievalService(&fakeEmbedder{}, store, noopCache{}, 8, 50)
	memory := NewMemoryService(retrieval, &fakeConversationStore{failing: true}, 8000, 6)

	assembled, err := memory.BuildContext(context.Background(), "alice", "question", "conv-1", 0)
	if err != nil {
		t.Fatalf("memory failure must not fail the query: %v", err)
	}
	if assembled.HasMemoryContext {
		t.Errorf("no memory context should be reported after a load failure")
	}
	if len(assembled.Items) != 1 {
		t.Errorf("retrieval results should still stand, got %d items", len(assembled.Items))
	}
}
