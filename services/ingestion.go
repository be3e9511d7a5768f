package services

import (
	"context"
	"time"

	"edu-learning-platform/internal/ai"
	"edu-learning-platform/internal/logger"
	"edu-learning-platform/models"
	"edu-learning-platform/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/time/rate"
)

// IngestionService runs the chunk+embed+store write path for documents.
// Bulk embedding calls are paced through a token bucket so ingestion cannot
// exhaust the provider's rate budget.
type IngestionService struct {
	chunker   *ChunkingService
	embedder  ai.Embedder
	documents DocumentStore
	chunks    ChunkStore
	limiter   *rate.Limiter
}

func NewIngestionService(chunker *ChunkingService, embedder ai.Embedder, documents DocumentStore, chunks ChunkStore, ratePerSecond float64, burst int) *IngestionService {
	return &IngestionService{
		chunker:   chunker,
		embedder:  embedder,
		documents: documents,
		chunks:    chunks,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Ingest creates a document and writes its first chunk generation. An
// embedding failure aborts the call and marks the document failed.
func (is *IngestionService) Ingest(ctx context.Context, title, content, ownerID, visibility string) (*models.Document, int, error) {
	if err := validateVisibility(visibility, ownerID); err != nil {
		return nil, 0, err
	}

	doc := &models.Document{
		OwnerID:    ownerID,
		Title:      title,
		Visibility: visibility,
		Status:     models.DocStatusProcessing,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	id, err := is.documents.InsertDocument(ctx, doc)
	if err != nil {
		return nil, 0, utils.WrapError(utils.ErrInternal, "failed to create document", err)
	}
	doc.ID = id

	created, err := is.writeGeneration(ctx, doc, content)
	if err != nil {
		is.documents.SetDocumentStatus(context.WithoutCancel(ctx), id, models.DocStatusFailed, err.Error())
		return nil, 0, err
	}

	doc.Status = models.DocStatusReady
	doc.ChunkCount = created
	return doc, created, nil
}

// CreatePending registers a document whose content will be chunked and
// embedded by the background worker.
func (is *IngestionService) CreatePending(ctx context.Context, title, ownerID, visibility string) (*models.Document, error) {
	if err := validateVisibility(visibility, ownerID); err != nil {
		return nil, err
	}

	doc := &models.Document{
		OwnerID:    ownerID,
		Title:      title,
		Visibility: visibility,
		Status:     models.DocStatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	id, err := is.documents.InsertDocument(ctx, doc)
	if err != nil {
		return nil, utils.WrapError(utils.ErrInternal, "failed to create document", err)
	}
	doc.ID = id
	return doc, nil
}

// Reingest replaces a document's content under a fresh generation. The old
// generation stays readable until the pointer flips, then gets deleted.
func (is *IngestionService) Reingest(ctx context.Context, docID primitive.ObjectID, content string) (int, error) {
	doc, err := is.documents.GetDocument(ctx, docID)
	if err != nil {
		return 0, err
	}

	oldGeneration := doc.CurrentGeneration
	created, err := is.writeGeneration(ctx, doc, content)
	if err != nil {
		is.documents.SetDocumentStatus(context.WithoutCancel(ctx), docID, models.DocStatusFailed, err.Error())
		return 0, err
	}

	if oldGeneration != "" {
		removed, err := is.chunks.DeleteGeneration(ctx, docID, oldGeneration)
		if err != nil {
			// The worker's sweep reclaims generations this delete missed.
			logger.Warn("Failed to delete superseded generation", "document_id", docID.Hex(), "generation", oldGeneration, "error", err)
		} else {
			logger.Debug("Deleted superseded generation", "document_id", docID.Hex(), "chunks", removed)
		}
	}
	return created, nil
}

// Delete removes a document and cascades to all of its chunks.
func (is *IngestionService) Delete(ctx context.Context, docID primitive.ObjectID) error {
	if _, err := is.documents.GetDocument(ctx, docID); err != nil {
		return err
	}
	if _, err := is.chunks.DeleteByDocument(ctx, docID); err != nil {
		return utils.WrapError(utils.ErrInternal, "failed to delete chunks", err)
	}
	return is.documents.DeleteDocument(ctx, docID)
}

// writeGeneration chunks and embeds the content into a new generation and
// atomically points the document at it.
func (is *IngestionService) writeGeneration(ctx context.Context, doc *models.Document, content string) (int, error) {
	textChunks := is.chunker.ChunkText(content)
	if len(textChunks) == 0 {
		return 0, utils.NewError(utils.ErrValidation, "document content is empty")
	}

	generation := uuid.NewString()
	rows := make([]models.Chunk, 0, len(textChunks))
	for i, tc := range textChunks {
		if err := is.limiter.Wait(ctx); err != nil {
			return 0, utils.WrapError(utils.ErrRateLimit, "embedding pace wait aborted", err)
		}
		vector, err := is.embedder.Embed(ctx, tc.Text)
		if err != nil {
			return 0, err
		}
		rows = append(rows, models.Chunk{
			ChunkID:    uuid.NewString(),
			DocumentID: doc.ID,
			Generation: generation,
			Ordinal:    i,
			Text:       tc.Text,
			Heading:    tc.Heading,
			IsCode:     tc.IsCode,
			WordCount:  tc.WordCount,
			Embedding:  vector,
			OwnerID:    doc.OwnerID,
			Visibility: doc.Visibility,
		})
	}

	if err := is.chunks.InsertChunks(ctx, rows); err != nil {
		return 0, utils.WrapError(utils.ErrInternal, "failed to write chunk generation", err)
	}
	if err := is.documents.SwapGeneration(ctx, doc.ID, generation, len(rows), len(content)); err != nil {
		return 0, utils.WrapError(utils.ErrInternal, "failed to swap chunk generation", err)
	}

	doc.CurrentGeneration = generation
	return len(rows), nil
}

func validateVisibility(visibility, ownerID string) error {
	switch visibility {
	case models.VisibilityPrivate, models.VisibilityPublic:
		if ownerID == "" {
			return utils.NewError(utils.ErrValidation, "owned visibility requires an owner id")
		}
	case models.VisibilitySystem:
		if ownerID != "" {
			return utils.NewError(utils.ErrValidation, "system documents must not have an owner")
		}
	default:
		return utils.NewError(utils.ErrValidation, "visibility must be private, public or system")
	}
	return nil
}
