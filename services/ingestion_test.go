package services

import (
	"context"
	"strings"
	"testing"

	"edu-learning-platform/models"
	"edu-learning-platform/utils"
)

func ingestionFixture(embedder *fakeEmbedder) (*IngestionService, *fakeDocumentStore, *fakeChunkStore) {
	chunker, _ := NewChunkingService(1000, 200)
	docs := newFakeDocumentStore()
	chunks := &fakeChunkStore{}
	svc := NewIngestionService(chunker, embedder, docs, chunks, 1000, 10)
	return svc, docs, chunks
}

func TestIngestSingleChunkDocument(t *testing.T) {
	svc, docs, chunks := ingestionFixture(&fakeEmbedder{})

	content := strings.Repeat("TypeScript is a typed superset of JavaScript. ", 20)
	if len(content) > 1000 {
		content = content[:1000]
	}

	doc, created, err := svc.Ingest(context.Background(), "TypeScript Basics", content, "alice", models.VisibilityPrivate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 1 {
		t.Errorf("chunks created = %d, want 1 for content within one window", created)
	}

	stored, err := docs.GetDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("document not stored: %v", err)
	}
	if stored.Status != models.DocStatusReady {
		t.Errorf("status = %q, want ready", stored.Status)
	}
	if stored.CurrentGeneration == "" {
		t.Errorf("generation pointer not set")
	}
	if len(chunks.inserted) != 1 {
		t.Fatalf("inserted chunks = %d", len(chunks.inserted))
	}
	if chunks.inserted[0].Generation != stored.CurrentGeneration {
		t.Errorf("chunk generation %q does not match document pointer %q", chunks.inserted[0].Generation, stored.CurrentGeneration)
	}
	if chunks.inserted[0].OwnerID != "alice" || chunks.inserted[0].Visibility != models.VisibilityPrivate {
		t.Errorf("chunk did not inherit document ownership: %+v", chunks.inserted[0])
	}
}

func TestIngestVisibilityRules(t *testing.T) {
	svc, _, _ := ingestionFixture(&fakeEmbedder{})

	cases := []struct {
		name       string
		owner      string
		visibility string
	}{
		{"system content with owner", "alice", models.VisibilitySystem},
		{"private content without owner", "", models.VisibilityPrivate},
		{"public content without owner", "", models.VisibilityPublic},
		{"unknown visibility", "alice", "everyone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Ingest(context.Background(), "t", "content", tc.owner, tc.visibility)
			if utils.Category(err) != utils.ErrValidation {
				t.Errorf("category = %q, want %q", utils.Category(err), utils.ErrValidation)
			}
		})
	}
}

func TestIngestEmbeddingFailureMarksDocumentFailed(t *testing.T) {
	svc, docs, chunks := ingestionFixture(&fakeEmbedder{failFor: "poison"})

	doc, _, err := svc.Ingest(context.Background(), "Bad", "poison content", "alice", models.VisibilityPrivate)
	if err == nil {
		t.Fatalf("embedding failure must abort ingestion")
	}
	if doc != nil {
		t.Errorf("no document should be returned on failure")
	}

	// The row exists but is marked failed; no chunks were written.
	var failed *models.Document
	for _, d := range docs.docs {
		failed = d
	}
	if failed == nil || failed.Status != models.DocStatusFailed {
		t.Errorf("document not marked failed: %+v", failed)
	}
	if len(chunks.inserted) != 0 {
		t.Errorf("no chunks may be persisted on failure, got %d", len(chunks.inserted))
	}
}

func TestReingestSwapsAndDeletesOldGeneration(t *testing.T) {
	svc, docs, chunks := ingestionFixture(&fakeEmbedder{})

	doc, _, err := svc.Ingest(context.Background(), "Doc", "first version", "alice", models.VisibilityPrivate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstGen := doc.CurrentGeneration

	created, err := svc.Reingest(context.Background(), doc.ID, "second version with new content")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 1 {
		t.Errorf("chunks created = %d, want 1", created)
	}

	stored, _ := docs.GetDocument(context.Background(), doc.ID)
	if stored.CurrentGeneration == firstGen {
		t.Errorf("generation pointer did not change")
	}
	if len(chunks.deletedGens) != 1 || chunks.deletedGens[0] != firstGen {
		t.Errorf("old generation not deleted: %v", chunks.deletedGens)
	}

	// Only the new generation's chunks remain.
	for _, chunk := range chunks.chunks {
		if chunk.Generation == firstGen {
			t.Errorf("stale chunk survived: %+v", chunk)
		}
	}
}

func TestDeleteCascades(t *testing.T) {
	svc, docs, chunks := ingestionFixture(&fakeEmbedder{})

	doc, _, err := svc.Ingest(context.Background(), "Doc", "some content", "alice", models.VisibilityPrivate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(context.Background(), doc.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := docs.GetDocument(context.Background(), doc.ID); err == nil {
		t.Errorf("document should be gone")
	}
	if len(chunks.chunks) != 0 {
		t.Errorf("chunks should be cascade-deleted, %d remain", len(chunks.chunks))
	}
}

func TestCreatePending(t *testing.T) {
	svc, docs, _ := ingestionFixture(&fakeEmbedder{})

	doc, err := svc.CreatePending(context.Background(), "Big Doc", "alice", models.VisibilityPrivate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := docs.GetDocument(context.Background(), doc.ID)
	if stored.Status != models.DocStatusPending {
		t.Errorf("status = %q, want pending", stored.Status)
	}
	if stored.CurrentGeneration != "" {
		t.Errorf("pending document must have no live generation")
	}
}
