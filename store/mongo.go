package store

import (
	"context"
	"encoding/base64"
	"time"

	"edu-learning-platform/internal/logger"
	"edu-learning-platform/models"
	"edu-learning-platform/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements the service store interfaces on MongoDB collections.
type MongoStore struct {
	documents     *mongo.Collection
	chunks        *mongo.Collection
	citations     *mongo.Collection
	messages      *mongo.Collection
	evalDatasets  *mongo.Collection
	evalQuestions *mongo.Collection
	evalResults   *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		documents:     db.Collection("documents"),
		chunks:        db.Collection("chunks"),
		citations:     db.Collection("citations"),
		messages:      db.Collection("conversation_messages"),
		evalDatasets:  db.Collection("evaluation_datasets"),
		evalQuestions: db.Collection("evaluation_questions"),
		evalResults:   db.Collection("evaluation_results"),
	}
}

// --- documents ---

func (s *MongoStore) InsertDocument(ctx context.Context, doc *models.Document) (primitive.ObjectID, error) {
	res, err := s.documents.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (s *MongoStore) GetDocument(ctx context.Context, id primitive.ObjectID) (*models.Document, error) {
	var doc models.Document
	err := s.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewError(utils.ErrNotFound, "document not found")
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *MongoStore) ListDocuments(ctx context.Context, identity string) ([]models.Document, error) {
	cursor, err := s.documents.Find(ctx, visibilityFilter(identity),
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]models.Document, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// SwapGeneration flips the current generation pointer in a single update, so
// concurrent readers see either the old chunk set or the new one, never a mix.
func (s *MongoStore) SwapGeneration(ctx context.Context, id primitive.ObjectID, generation string, chunkCount, charCount int) error {
	_, err := s.documents.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"current_generation": generation,
			"chunk_count":        chunkCount,
			"char_count":         charCount,
			"status":             models.DocStatusReady,
			"error":              "",
			"updated_at":         time.Now(),
		},
	})
	return err
}

func (s *MongoStore) SetDocumentStatus(ctx context.Context, id primitive.ObjectID, status, errMsg string) error {
	_, err := s.documents.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status":     status,
			"error":      errMsg,
			"updated_at": time.Now(),
		},
	})
	return err
}

func (s *MongoStore) DeleteDocument(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.documents.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// --- chunks ---

func (s *MongoStore) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		data, compressed, err := utils.CompressText(chunk.Text)
		if err != nil {
			return err
		}
		if compressed {
			chunk.Text = base64.StdEncoding.EncodeToString(data)
			chunk.Compressed = true
		}
		rows = append(rows, chunk)
	}

	_, err := s.chunks.InsertMany(ctx, rows)
	return err
}

func (s *MongoStore) CandidateDocuments(ctx context.Context, identity string) ([]models.Document, error) {
	filter := visibilityFilter(identity)
	filter["current_generation"] = bson.M{"$ne": ""}

	cursor, err := s.documents.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]models.Document, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *MongoStore) ChunksByGenerations(ctx context.Context, generations map[primitive.ObjectID]string) ([]models.Chunk, error) {
	if len(generations) == 0 {
		return []models.Chunk{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(generations))
	for id := range generations {
		ids = append(ids, id)
	}

	cursor, err := s.chunks.Find(ctx, bson.M{"document_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	chunks := make([]models.Chunk, 0)
	for cursor.Next(ctx) {
		var chunk models.Chunk
		if err := cursor.Decode(&chunk); err != nil {
			return nil, err
		}
		// Generations flip under concurrent re-ingestion; keep only the
		// chunks the document currently points at.
		if generations[chunk.DocumentID] != chunk.Generation {
			continue
		}
		if err := expandChunk(&chunk); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, cursor.Err()
}

func (s *MongoStore) DeleteGeneration(ctx context.Context, docID primitive.ObjectID, generation string) (int64, error) {
	res, err := s.chunks.DeleteMany(ctx, bson.M{"document_id": docID, "generation": generation})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) DeleteByDocument(ctx context.Context, docID primitive.ObjectID) (int64, error) {
	res, err := s.chunks.DeleteMany(ctx, bson.M{"document_id": docID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// SweepStaleGenerations reclaims chunks left behind by interrupted
// re-ingestions and deleted documents.
func (s *MongoStore) SweepStaleGenerations(ctx context.Context) (int64, error) {
	cursor, err := s.documents.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1, "current_generation": 1}))
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	type docGen struct {
		ID                primitive.ObjectID `bson:"_id"`
		CurrentGeneration string             `bson:"current_generation"`
	}

	liveIDs := make([]primitive.ObjectID, 0)
	var removed int64
	for cursor.Next(ctx) {
		var dg docGen
		if err := cursor.Decode(&dg); err != nil {
			return removed, err
		}
		liveIDs = append(liveIDs, dg.ID)

		res, err := s.chunks.DeleteMany(ctx, bson.M{
			"document_id": dg.ID,
			"generation":  bson.M{"$ne": dg.CurrentGeneration},
		})
		if err != nil {
			return removed, err
		}
		removed += res.DeletedCount
	}
	if err := cursor.Err(); err != nil {
		return removed, err
	}

	// Chunks whose parent document is gone.
	res, err := s.chunks.DeleteMany(ctx, bson.M{"document_id": bson.M{"$nin": liveIDs}})
	if err != nil {
		return removed, err
	}
	removed += res.DeletedCount

	if removed > 0 {
		logger.Info("Swept stale chunk generations", "removed", removed)
	}
	return removed, nil
}

// --- conversations ---

func (s *MongoStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.ConversationMessage, error) {
	cursor, err := s.messages.Find(ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().SetSort(bson.M{"timestamp": -1}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := make([]models.ConversationMessage, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	// Callers expect oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *MongoStore) AllMessages(ctx context.Context, conversationID string) ([]models.ConversationMessage, error) {
	cursor, err := s.messages.Find(ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().SetSort(bson.M{"timestamp": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := make([]models.ConversationMessage, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *MongoStore) AppendMessage(ctx context.Context, msg *models.ConversationMessage) error {
	_, err := s.messages.InsertOne(ctx, msg)
	return err
}

// --- citations ---

func (s *MongoStore) InsertCitations(ctx context.Context, citations []models.Citation) error {
	if len(citations) == 0 {
		return nil
	}
	rows := make([]interface{}, len(citations))
	for i, citation := range citations {
		rows[i] = citation
	}
	_, err := s.citations.InsertMany(ctx, rows)
	return err
}

func (s *MongoStore) CitationsByQuery(ctx context.Context, queryID string) ([]models.Citation, error) {
	cursor, err := s.citations.Find(ctx,
		bson.M{"query_id": queryID},
		options.Find().SetSort(bson.M{"rank": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	citations := make([]models.Citation, 0)
	if err := cursor.All(ctx, &citations); err != nil {
		return nil, err
	}
	return citations, nil
}

// --- evaluations ---

func (s *MongoStore) CreateDataset(ctx context.Context, dataset *models.EvaluationDataset, questions []models.EvaluationQuestion) (primitive.ObjectID, error) {
	res, err := s.evalDatasets.InsertOne(ctx, dataset)
	if err != nil {
		return primitive.NilObjectID, err
	}
	datasetID := res.InsertedID.(primitive.ObjectID)

	rows := make([]interface{}, len(questions))
	for i := range questions {
		questions[i].DatasetID = datasetID
		rows[i] = questions[i]
	}
	if len(rows) > 0 {
		if _, err := s.evalQuestions.InsertMany(ctx, rows); err != nil {
			return primitive.NilObjectID, err
		}
	}
	return datasetID, nil
}

func (s *MongoStore) GetDataset(ctx context.Context, id primitive.ObjectID) (*models.EvaluationDataset, error) {
	var dataset models.EvaluationDataset
	err := s.evalDatasets.FindOne(ctx, bson.M{"_id": id}).Decode(&dataset)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewError(utils.ErrNotFound, "evaluation dataset not found")
	}
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

func (s *MongoStore) QuestionsByDataset(ctx context.Context, id primitive.ObjectID, limit int) ([]models.EvaluationQuestion, error) {
	opts := options.Find().SetSort(bson.M{"_id": 1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.evalQuestions.Find(ctx, bson.M{"dataset_id": id}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	questions := make([]models.EvaluationQuestion, 0)
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *MongoStore) InsertResults(ctx context.Context, results []models.EvaluationResult) error {
	if len(results) == 0 {
		return nil
	}
	rows := make([]interface{}, len(results))
	for i, result := range results {
		rows[i] = result
	}
	_, err := s.evalResults.InsertMany(ctx, rows)
	return err
}

// --- helpers ---

// visibilityFilter selects documents the identity may read: system content
// (no owner), the identity's own documents, and public documents.
func visibilityFilter(identity string) bson.M {
	return bson.M{
		"$or": bson.A{
			bson.M{"owner_id": bson.M{"$exists": false}},
			bson.M{"owner_id": ""},
			bson.M{"owner_id": identity},
			bson.M{"visibility": models.VisibilityPublic},
		},
	}
}

// expandChunk restores compressed chunk text in place.
func expandChunk(chunk *models.Chunk) error {
	if !chunk.Compressed {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(chunk.Text)
	if err != nil {
		return err
	}
	text, err := utils.DecompressText(data, true)
	if err != nil {
		return err
	}
	chunk.Text = text
	chunk.Compressed = false
	return nil
}
