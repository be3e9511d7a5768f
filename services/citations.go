package services

import (
	"context"
	"time"

	"edu-learning-platform/models"
	"edu-learning-platform/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CitationService persists provenance links between an answer and the chunks
// that grounded it. Rows are append-only; only chunks that were part of the
// actual synthesis context for the query may be recorded.
type CitationService struct {
	citations CitationStore
}

func NewCitationService(citations CitationStore) *CitationService {
	return &CitationService{citations: citations}
}

// RecordCitations writes one row per cited chunk, ranked in the order the
// chunks were supplied to the synthesizer.
func (cs *CitationService) RecordCitations(ctx context.Context, queryID string, chunks []models.RetrievedChunk) ([]models.Citation, error) {
	if queryID == "" {
		return nil, utils.NewError(utils.ErrValidation, "query id is required")
	}
	if len(chunks) == 0 {
		return []models.Citation{}, nil
	}

	now := time.Now()
	citations := make([]models.Citation, 0, len(chunks))
	for i, chunk := range chunks {
		docID, err := primitive.ObjectIDFromHex(chunk.DocumentID)
		if err != nil {
			return nil, utils.WrapError(utils.ErrValidation, "invalid document id in citation", err)
		}
		citations = append(citations, models.Citation{
			QueryID:    queryID,
			ChunkID:    chunk.ChunkID,
			DocumentID: docID,
			Rank:       i + 1,
			Relevance:  chunk.Score,
			CreatedAt:  now,
		})
	}

	if err := cs.citations.InsertCitations(ctx, citations); err != nil {
		return nil, utils.WrapError(utils.ErrInternal, "failed to persist citations", err)
	}
	return citations, nil
}

// CitationsForQuery returns the provenance trail of a past answer.
func (cs *CitationService) CitationsForQuery(ctx context.Context, queryID string) ([]models.Citation, error) {
	if queryID == "" {
		return nil, utils.NewError(utils.ErrValidation, "query id is required")
	}
	return cs.citations.CitationsByQuery(ctx, queryID)
}
