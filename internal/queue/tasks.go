package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"edu-learning-platform/internal/logger"
	"edu-learning-platform/services"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// TaskIngestDocument chunks and embeds content too large for the
	// synchronous ingestion path.
	TaskIngestDocument = "document:ingest"
)

type IngestPayload struct {
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
}

// NewIngestTask queues the chunk+embed work for a pending document.
func NewIngestTask(documentID, content string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		DocumentID: documentID,
		Content:    content,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("ingestion"),
	), nil
}

// TaskProcessor handles queued ingestion work in the worker process.
type TaskProcessor struct {
	ingestion *services.IngestionService
}

func NewTaskProcessor(ingestion *services.IngestionService) *TaskProcessor {
	return &TaskProcessor{ingestion: ingestion}
}

func (p *TaskProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	docID, err := primitive.ObjectIDFromHex(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", payload.DocumentID, asynq.SkipRetry)
	}

	logger.Info("Processing queued ingestion", "document_id", payload.DocumentID, "chars", len(payload.Content))

	created, err := p.ingestion.Reingest(ctx, docID, payload.Content)
	if err != nil {
		logger.Error("Queued ingestion failed", "document_id", payload.DocumentID, "error", err)
		return err
	}

	logger.Info("Queued ingestion complete", "document_id", payload.DocumentID, "chunks", created)
	return nil
}

// Register wires task handlers onto an asynq mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskIngestDocument, p.ProcessIngest)
}
