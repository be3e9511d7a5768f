package services

import (
	"context"
	"math"
	"testing"

	"edu-learning-platform/models"
	"edu-learning-platform/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"mismatched length", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-5 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tc.want)
			}
		})
	}
}

// retrievalFixture seeds one private document per learner plus a shared
// system document.
func retrievalFixture() *fakeChunkStore {
	aliceDoc := primitive.NewObjectID()
	bobDoc := primitive.NewObjectID()
	systemDoc := primitive.NewObjectID()

	return &fakeChunkStore{
		docs: []models.Document{
			{ID: aliceDoc, OwnerID: "alice", Title: "Alice Notes", Visibility: models.VisibilityPrivate, CurrentGeneration: "g1"},
			{ID: bobDoc, OwnerID: "bob", Title: "Bob Notes", Visibility: models.VisibilityPrivate, CurrentGeneration: "g1"},
			{ID: systemDoc, Title: "Course Intro", Visibility: models.VisibilitySystem, CurrentGeneration: "g1"},
		},
		chunks: []models.Chunk{
			{ChunkID: "alice-1", DocumentID: aliceDoc, Generation: "g1", Text: "alice private notes", Embedding: []float32{0.5, 0.5, 0}, OwnerID: "alice", Visibility: models.VisibilityPrivate},
			{ChunkID: "bob-1", DocumentID: bobDoc, Generation: "g1", Text: "bob secret notes", Embedding: []float32{1, 0, 0}, OwnerID: "bob", Visibility: models.VisibilityPrivate},
			{ChunkID: "system-1", DocumentID: systemDoc, Generation: "g1", Text: "course introduction", Embedding: []float32{0, 1, 0}, Visibility: models.VisibilitySystem},
		},
	}
}

func TestRetrieveVisibilityBeforeRanking(t *testing.T) {
	store := retrievalFixture()
	svc := NewRetrievalService(&fakeEmbedder{}, store, noopCache{}, 8, 50)

	// Bob's chunk is the perfect vector match; it still must never show up
	// for alice, no matter how large topK is.
	results, err := svc.Retrieve(context.Background(), "alice", "notes", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, r := range results {
		if r.ChunkID == "bob-1" {
			t.Fatalf("bob's private chunk leaked into alice's results")
		}
	}
	if len(results) != 2 {
		t.Fatalf("expected alice's own chunk plus the system chunk, got %d results", len(results))
	}
}

func TestRetrieveDeterministicTieBreak(t *testing.T) {
	docID := primitive.NewObjectID()
	store := &fakeChunkStore{
		docs: []models.Document{
			{ID: docID, Title: "Shared", Visibility: models.VisibilitySystem, CurrentGeneration: "g1"},
		},
		chunks: []models.Chunk{
			{ChunkID: "chunk-b", DocumentID: docID, Generation: "g1", Text: "same text", Embedding: []float32{1, 0, 0}},
			{ChunkID: "chunk-a", DocumentID: docID, Generation: "g1", Text: "same text", Embedding: []float32{1, 0, 0}},
		},
	}
	svc := NewRetrievalService(&fakeEmbedder{}, store, noopCache{}, 8, 50)

	for i := 0; i < 5; i++ {
		results, err := svc.Retrieve(context.Background(), "alice", "anything", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].ChunkID != "chunk-a" || results[1].ChunkID != "chunk-b" {
			t.Fatalf("tie not broken by ascending chunk id: %q before %q", results[0].ChunkID, results[1].ChunkID)
		}
	}
}

func TestRetrieveTopKClamped(t *testing.T) {
	store := retrievalFixture()
	svc := NewRetrievalService(&fakeEmbedder{}, store, noopCache{}, 1, 1)

	results, err := svc.Retrieve(context.Background(), "alice", "notes", 999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("topK should be capped at maxTopK=1, got %d results", len(results))
	}
}

func TestRetrieveHybridScore(t *testing.T) {
	docID := primitive.NewObjectID()
	store := &fakeChunkStore{
		docs: []models.Document{
			{ID: docID, Title: "Shared", Visibility: models.VisibilitySystem, CurrentGeneration: "g1"},
		},
		chunks: []models.Chunk{
			{ChunkID: "c1", DocumentID: docID, Generation: "g1", Text: "recursion base case", Embedding: []float32{1, 0, 0}},
		},
	}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"recursion base": {1, 0, 0},
	}}
	svc := NewRetrievalService(embedder, store, noopCache{}, 8, 50)

	results, err := svc.Retrieve(context.Background(), "alice", "recursion base", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if math.Abs(r.Similarity-1) > 1e-5 {
		t.Errorf("similarity = %v, want 1", r.Similarity)
	}
	if math.Abs(r.LexicalScore-1) > 1e-5 {
		t.Errorf("lexical score = %v, want 1 (both query terms present)", r.LexicalScore)
	}
	want := 0.7*r.Similarity + 0.3*r.LexicalScore
	if math.Abs(r.Score-want) > 1e-9 {
		t.Errorf("fused score = %v, want %v", r.Score, want)
	}
}

func TestRetrieveValidation(t *testing.T) {
	svc := NewRetrievalService(&fakeEmbedder{}, &fakeChunkStore{}, noopCache{}, 8, 50)

	_, err := svc.Retrieve(context.Background(), "alice", "   ", 0)
	if utils.Category(err) != utils.ErrValidation {
		t.Errorf("empty query: category = %q, want %q", utils.Category(err), utils.ErrValidation)
	}

	_, err = svc.Retrieve(context.Background(), "", "valid query", 0)
	if utils.Category(err) != utils.ErrAuth {
		t.Errorf("missing identity: category = %q, want %q", utils.Category(err), utils.ErrAuth)
	}
}

func TestRetrieveSkipsStaleGenerations(t *testing.T) {
	docID := primitive.NewObjectID()
	store := &fakeChunkStore{
		docs: []models.Document{
			{ID: docID, Title: "Shared", Visibility: models.VisibilitySystem, CurrentGeneration: "g2"},
		},
		chunks: []models.Chunk{
			{ChunkID: "old-1", DocumentID: docID, Generation: "g1", Text: "outdated", Embedding: []float32{1, 0, 0}},
			{ChunkID: "new-1", DocumentID: docID, Generation: "g2", Text: "current", Embedding: []float32{1, 0, 0}},
		},
	}
	svc := NewRetrievalService(&fakeEmbedder{}, store, noopCache{}, 8, 50)

	results, err := svc.Retrieve(context.Background(), "alice", "anything", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "new-1" {
		t.Errorf("expected only the current generation's chunk, got %+v", results)
	}
}
