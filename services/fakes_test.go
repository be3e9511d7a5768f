package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"edu-learning-platform/internal/ai"
	"edu-learning-platform/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeEmbedder returns canned vectors keyed by text, falling back to a unit
// vector so every text embeds deterministically.
type fakeEmbedder struct {
	vectors map[string][]float32
	failFor string
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failFor != "" && strings.Contains(text, f.failFor) {
		return nil, errors.New("embedding provider down")
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

type fakeChunkStore struct {
	docs   []models.Document
	chunks []models.Chunk

	inserted       []models.Chunk
	deletedGens    []string
	deletedDocs    []primitive.ObjectID
	sweepReclaimed int64
}

func (f *fakeChunkStore) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	f.inserted = append(f.inserted, chunks...)
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeChunkStore) CandidateDocuments(ctx context.Context, identity string) ([]models.Document, error) {
	out := make([]models.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		if doc.CurrentGeneration == "" {
			continue
		}
		if doc.VisibleTo(identity) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeChunkStore) ChunksByGenerations(ctx context.Context, generations map[primitive.ObjectID]string) ([]models.Chunk, error) {
	out := make([]models.Chunk, 0, len(f.chunks))
	for _, chunk := range f.chunks {
		if gen, ok := generations[chunk.DocumentID]; ok && gen == chunk.Generation {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (f *fakeChunkStore) DeleteGeneration(ctx context.Context, docID primitive.ObjectID, generation string) (int64, error) {
	f.deletedGens = append(f.deletedGens, generation)
	kept := f.chunks[:0]
	var removed int64
	for _, chunk := range f.chunks {
		if chunk.DocumentID == docID && chunk.Generation == generation {
			removed++
			continue
		}
		kept = append(kept, chunk)
	}
	f.chunks = kept
	return removed, nil
}

func (f *fakeChunkStore) DeleteByDocument(ctx context.Context, docID primitive.ObjectID) (int64, error) {
	f.deletedDocs = append(f.deletedDocs, docID)
	kept := f.chunks[:0]
	var removed int64
	for _, chunk := range f.chunks {
		if chunk.DocumentID == docID {
			removed++
			continue
		}
		kept = append(kept, chunk)
	}
	f.chunks = kept
	return removed, nil
}

func (f *fakeChunkStore) SweepStaleGenerations(ctx context.Context) (int64, error) {
	return f.sweepReclaimed, nil
}

type fakeDocumentStore struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*models.Document
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[primitive.ObjectID]*models.Document)}
}

func (f *fakeDocumentStore) InsertDocument(ctx context.Context, doc *models.Document) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := primitive.NewObjectID()
	copied := *doc
	copied.ID = id
	f.docs[id] = &copied
	return id, nil
}

func (f *fakeDocumentStore) GetDocument(ctx context.Context, id primitive.ObjectID) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, errors.New("document not found")
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocumentStore) ListDocuments(ctx context.Context, identity string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		if doc.VisibleTo(identity) {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) SwapGeneration(ctx context.Context, id primitive.ObjectID, generation string, chunkCount, charCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return errors.New("document not found")
	}
	doc.CurrentGeneration = generation
	doc.ChunkCount = chunkCount
	doc.CharCount = charCount
	doc.Status = models.DocStatusReady
	return nil
}

func (f *fakeDocumentStore) SetDocumentStatus(ctx context.Context, id primitive.ObjectID, status, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		doc.Error = errMsg
	}
	return nil
}

func (f *fakeDocumentStore) DeleteDocument(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

type fakeConversationStore struct {
	messages map[string][]models.ConversationMessage
	failing  bool
	appended []models.ConversationMessage
}

func (f *fakeConversationStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.ConversationMessage, error) {
	if f.failing {
		return nil, errors.New("conversation store unavailable")
	}
	msgs := f.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (f *fakeConversationStore) AllMessages(ctx context.Context, conversationID string) ([]models.ConversationMessage, error) {
	if f.failing {
		return nil, errors.New("conversation store unavailable")
	}
	return f.messages[conversationID], nil
}

func (f *fakeConversationStore) AppendMessage(ctx context.Context, msg *models.ConversationMessage) error {
	if f.failing {
		return errors.New("conversation store unavailable")
	}
	f.appended = append(f.appended, *msg)
	if f.messages == nil {
		f.messages = make(map[string][]models.ConversationMessage)
	}
	f.messages[msg.ConversationID] = append(f.messages[msg.ConversationID], *msg)
	return nil
}

type fakeCitationStore struct {
	rows []models.Citation
}

func (f *fakeCitationStore) InsertCitations(ctx context.Context, citations []models.Citation) error {
	f.rows = append(f.rows, citations...)
	return nil
}

func (f *fakeCitationStore) CitationsByQuery(ctx context.Context, queryID string) ([]models.Citation, error) {
	out := make([]models.Citation, 0)
	for _, row := range f.rows {
		if row.QueryID == queryID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeEvaluationStore struct {
	dataset   *models.EvaluationDataset
	questions []models.EvaluationQuestion
	inserted  []models.EvaluationResult
}

func (f *fakeEvaluationStore) CreateDataset(ctx context.Context, dataset *models.EvaluationDataset, questions []models.EvaluationQuestion) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	dataset.ID = id
	f.dataset = dataset
	f.questions = questions
	return id, nil
}

func (f *fakeEvaluationStore) GetDataset(ctx context.Context, id primitive.ObjectID) (*models.EvaluationDataset, error) {
	if f.dataset == nil {
		return nil, errors.New("dataset not found")
	}
	return f.dataset, nil
}

func (f *fakeEvaluationStore) QuestionsByDataset(ctx context.Context, id primitive.ObjectID, limit int) ([]models.EvaluationQuestion, error) {
	questions := f.questions
	if limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}
	return questions, nil
}

func (f *fakeEvaluationStore) InsertResults(ctx context.Context, results []models.EvaluationResult) error {
	f.inserted = append(f.inserted, results...)
	return nil
}

// fakeLLM answers with either a fixed response or a per-prompt function, and
// can fail for prompts containing a marker string.
type fakeLLM struct {
	mu      sync.Mutex
	answer  string
	respond func(prompt string) string
	failFor string
	prompts []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (*ai.Completion, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.failFor != "" && strings.Contains(prompt, f.failFor) {
		return nil, errors.New("llm provider down")
	}

	text := f.answer
	if f.respond != nil {
		text = f.respond(prompt)
	}
	return &ai.Completion{
		Text:         text,
		InputTokens:  len(prompt) / 4,
		OutputTokens: len(text) / 4,
	}, nil
}

func (f *fakeLLM) Model() string { return "gemini-2.0-flash" }

type noopCache struct{}

func (noopCache) Get(ctx context.Context, key string) ([]float32, bool) { return nil, false }
func (noopCache) Set(ctx context.Context, key string, vector []float32) {}
