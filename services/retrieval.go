package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"edu-learning-platform/internal/ai"
	"edu-learning-platform/internal/logger"
	"edu-learning-platform/models"
	"edu-learning-platform/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Fixed fusion weights for hybrid scoring. Vector similarity dominates;
// lexical overlap rescues exact-term matches the embedding misses.
const (
	vectorWeight  = 0.7
	lexicalWeight = 0.3
)

// RetrievalService ranks visibility-eligible chunks for a query by fused
// vector+lexical score. Results are deterministic for a fixed store state:
// equal scores break ties by ascending chunk id.
type RetrievalService struct {
	embedder    ai.Embedder
	chunkStore  ChunkStore
	cache       EmbeddingCache
	defaultTopK int
	maxTopK     int
}

func NewRetrievalService(embedder ai.Embedder, chunkStore ChunkStore, cache EmbeddingCache, defaultTopK, maxTopK int) *RetrievalService {
	return &RetrievalService{
		embedder:    embedder,
		chunkStore:  chunkStore,
		cache:       cache,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
	}
}

// Retrieve returns the top chunks for the query, visible to the identity.
// The visibility filter is applied when loading candidates, before ranking
// and truncation, so private content can never displace public results.
func (rs *RetrievalService) Retrieve(ctx context.Context, identity, query string, topK int) ([]models.RetrievedChunk, error) {
	tracer := otel.Tracer("retrieval")
	ctx, span := tracer.Start(ctx, "retrieval.hybrid_search")
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, utils.NewError(utils.ErrValidation, "query must not be empty")
	}
	if identity == "" {
		return nil, utils.NewError(utils.ErrAuth, "requesting identity is required")
	}
	if topK <= 0 {
		topK = rs.defaultTopK
	}
	if topK > rs.maxTopK {
		topK = rs.maxTopK
	}
	span.SetAttributes(attribute.Int("retrieval.top_k", topK))

	queryVector, err := rs.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	docs, err := rs.chunkStore.CandidateDocuments(ctx, identity)
	if err != nil {
		return nil, utils.WrapError(utils.ErrInternal, "failed to load candidate documents", err)
	}
	if len(docs) == 0 {
		return []models.RetrievedChunk{}, nil
	}

	generations := make(map[primitive.ObjectID]string, len(docs))
	titles := make(map[primitive.ObjectID]string, len(docs))
	for _, doc := range docs {
		generations[doc.ID] = doc.CurrentGeneration
		titles[doc.ID] = doc.Title
	}

	chunks, err := rs.chunkStore.ChunksByGenerations(ctx, generations)
	if err != nil {
		return nil, utils.WrapError(utils.ErrInternal, "failed to load candidate chunks", err)
	}

	queryTerms := tokenize(query)
	results := make([]models.RetrievedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		sim := CosineSimilarity(queryVector, chunk.Embedding)
		lex := lexicalOverlap(queryTerms, chunk.Text)
		results = append(results, models.RetrievedChunk{
			ChunkID:       chunk.ChunkID,
			DocumentID:    chunk.DocumentID.Hex(),
			DocumentTitle: titles[chunk.DocumentID],
			Text:          chunk.Text,
			Heading:       chunk.Heading,
			Similarity:    sim,
			LexicalScore:  lex,
			Score:         vectorWeight*sim + lexicalWeight*lex,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > topK {
		results = results[:topK]
	}

	span.SetAttributes(attribute.Int("retrieval.results", len(results)))
	logger.Debug("Hybrid retrieval complete", "candidates", len(chunks), "returned", len(results))
	return results, nil
}

// embedQuery consults the cache before calling the provider.
func (rs *RetrievalService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	key := utils.HashText(query)
	if rs.cache != nil {
		if vector, ok := rs.cache.Get(ctx, key); ok {
			return vector, nil
		}
	}

	vector, err := rs.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	if rs.cache != nil {
		rs.cache.Set(ctx, key, vector)
	}
	return vector, nil
}

// CosineSimilarity computes dot(a,b)/(|a|*|b|). Mismatched lengths or zero
// vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// lexicalOverlap scores how many distinct query terms appear in the chunk,
// normalized to [0,1].
func lexicalOverlap(queryTerms []string, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}

	chunkTerms := make(map[string]struct{})
	for _, term := range tokenize(text) {
		chunkTerms[term] = struct{}{}
	}

	matched := 0
	seen := make(map[string]struct{}, len(queryTerms))
	distinct := 0
	for _, term := range queryTerms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		distinct++
		if _, ok := chunkTerms[term]; ok {
			matched++
		}
	}
	if distinct == 0 {
		return 0
	}
	return float64(matched) / float64(distinct)
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
