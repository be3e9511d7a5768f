package services

import (
	"context"
	"testing"

	"edu-learning-platform/models"
	"edu-learning-platform/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRecordCitationsRanksInContextOrder(t *testing.T) {
	store := &fakeCitationStore{}
	svc := NewCitationService(store)

	docID := primitive.NewObjectID().Hex()
	chunks := []models.RetrievedChunk{
		{ChunkID: "c-high", DocumentID: docID, Score: 0.9},
		{ChunkID: "c-low", DocumentID: docID, Score: 0.4},
	}

	citations, err := svc.RecordCitations(context.Background(), "query-1", chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(citations))
	}
	if citations[0].Rank != 1 || citations[1].Rank != 2 {
		t.Errorf("ranks = %d,%d, want 1,2", citations[0].Rank, citations[1].Rank)
	}
	if citations[0].Relevance != 0.9 || citations[1].Relevance != 0.4 {
		t.Errorf("relevance not carried over: %+v", citations)
	}
	if len(store.rows) != 2 {
		t.Errorf("citations not persisted")
	}
}

func TestRecordCitationsEmpty(t *testing.T) {
	svc := NewCitationService(&fakeCitationStore{})

	citations, err := svc.RecordCitations(context.Background(), "query-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(citations) != 0 {
		t.Errorf("expected no citations for an empty context")
	}

	if _, err := svc.RecordCitations(context.Background(), "", nil); utils.Category(err) != utils.ErrValidation {
		t.Errorf("missing query id should be a validation error")
	}
}

func TestRecordCitationsRejectsBadDocumentID(t *testing.T) {
	svc := NewCitationService(&fakeCitationStore{})

	_, err := svc.RecordCitations(context.Background(), "query-1", []models.RetrievedChunk{
		{ChunkID: "c", DocumentID: "not-a-hex-id"},
	})
	if utils.Category(err) != utils.ErrValidation {
		t.Errorf("category = %q, want %q", utils.Category(err), utils.ErrValidation)
	}
}
