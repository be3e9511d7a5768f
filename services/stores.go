package services

import (
	"context"

	"edu-learning-platform/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store interfaces consumed by the services. Production implementations are
// Mongo-backed (store package); tests inject in-memory fakes.

// DocumentStore manages document rows and their generation pointers.
type DocumentStore interface {
	InsertDocument(ctx context.Context, doc *models.Document) (primitive.ObjectID, error)
	GetDocument(ctx context.Context, id primitive.ObjectID) (*models.Document, error)
	ListDocuments(ctx context.Context, identity string) ([]models.Document, error)

	// SwapGeneration atomically points the document at a freshly written
	// chunk generation. Readers observe either the old or the new set.
	SwapGeneration(ctx context.Context, id primitive.ObjectID, generation string, chunkCount, charCount int) error

	SetDocumentStatus(ctx context.Context, id primitive.ObjectID, status, errMsg string) error
	DeleteDocument(ctx context.Context, id primitive.ObjectID) error
}

// ChunkStore persists chunk generations and serves retrieval candidates.
// Implementations return chunk text already decompressed.
type ChunkStore interface {
	InsertChunks(ctx context.Context, chunks []models.Chunk) error

	// CandidateDocuments returns the documents whose chunks the identity may
	// read: system-owned, owned by the identity, or public. Visibility is
	// enforced here, before any ranking or truncation.
	CandidateDocuments(ctx context.Context, identity string) ([]models.Document, error)

	// ChunksByGenerations loads the chunks of the given document generations
	// (document id -> current generation).
	ChunksByGenerations(ctx context.Context, generations map[primitive.ObjectID]string) ([]models.Chunk, error)

	DeleteGeneration(ctx context.Context, docID primitive.ObjectID, generation string) (int64, error)
	DeleteByDocument(ctx context.Context, docID primitive.ObjectID) (int64, error)

	// SweepStaleGenerations removes chunks whose generation no longer matches
	// their document's current pointer. Run periodically by the worker.
	SweepStaleGenerations(ctx context.Context) (int64, error)
}

// ConversationStore reads and appends learner conversation turns.
type ConversationStore interface {
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.ConversationMessage, error)
	AllMessages(ctx context.Context, conversationID string) ([]models.ConversationMessage, error)
	AppendMessage(ctx context.Context, msg *models.ConversationMessage) error
}

// CitationStore appends provenance rows; citations are never mutated.
type CitationStore interface {
	InsertCitations(ctx context.Context, citations []models.Citation) error
	CitationsByQuery(ctx context.Context, queryID string) ([]models.Citation, error)
}

// EvaluationStore persists datasets, questions and run results.
type EvaluationStore interface {
	CreateDataset(ctx context.Context, dataset *models.EvaluationDataset, questions []models.EvaluationQuestion) (primitive.ObjectID, error)
	GetDataset(ctx context.Context, id primitive.ObjectID) (*models.EvaluationDataset, error)
	QuestionsByDataset(ctx context.Context, id primitive.ObjectID, limit int) ([]models.EvaluationQuestion, error)
	InsertResults(ctx context.Context, results []models.EvaluationResult) error
}

// EmbeddingCache caches query embeddings; lookups fail open.
type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vector []float32)
}
