package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Citation is an append-only provenance record linking an answer to one chunk
// that grounded it. Only chunks actually passed to the synthesizer for the
// query may be cited.
type Citation struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	QueryID    string             `bson:"query_id" json:"query_id"`
	ChunkID    string             `bson:"chunk_id" json:"chunk_id"`
	DocumentID primitive.ObjectID `bson:"document_id" json:"document_id"`
	Rank       int                `bson:"rank" json:"rank"`
	Relevance  float64            `bson:"relevance" json:"relevance"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// QueryRequest is the payload for POST /query.
type QueryRequest struct {
	Query          string `json:"query" binding:"required,min=1,max=2000"`
	ConversationID string `json:"conversation_id,omitempty"`
	TopK           int    `json:"top_k,omitempty"`
}

// QueryMetadata summarizes a single answered query for billing and audit.
type QueryMetadata struct {
	SourcesUsed  int     `json:"sources_used"`
	AvgRelevance float64 `json:"avg_relevance"`
	LatencyMs    int64   `json:"latency_ms"`
	Cost         float64 `json:"cost"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
}

// QueryResponse is the full answer payload for POST /query.
type QueryResponse struct {
	QueryID          string        `json:"query_id"`
	Answer           string        `json:"answer"`
	Sources          []Citation    `json:"sources"`
	HasMemoryContext bool          `json:"has_memory_context"`
	Metadata         QueryMetadata `json:"metadata"`
	Timestamp        time.Time     `json:"timestamp"`
}
