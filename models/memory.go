package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation turn roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationMessage is one prior turn of a learner conversation, used as
// auxiliary context by the memory integrator.
type ConversationMessage struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	UserID         string             `bson:"user_id" json:"user_id"`
	Role           string             `bson:"role" json:"role"`
	Content        string             `bson:"content" json:"content"`
	TokenCost      int                `bson:"token_cost,omitempty" json:"token_cost,omitempty"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}

// Context item kinds produced by the memory integrator.
const (
	ContextKindChunk  = "chunk"
	ContextKindMemory = "memory"
)

// ContextItem is one entry of the assembled synthesis context: either a
// retrieved chunk or a relevant prior conversation turn.
type ContextItem struct {
	Kind       string  `json:"kind"`
	ChunkID    string  `json:"chunk_id,omitempty"`
	DocumentID string  `json:"document_id,omitempty"`
	Text       string  `json:"text"`
	Relevance  float64 `json:"relevance"`
}

// ConversationHistory is the payload for GET /conversations/:id.
type ConversationHistory struct {
	ConversationID string                `json:"conversation_id"`
	Messages       []ConversationMessage `json:"messages"`
	TotalTokens    int                   `json:"total_tokens"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}
