package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Chunk is the unit of retrieval: a bounded, overlapping slice of a
// document's text with its embedding. Chunks are denormalized into their own
// collection so candidate scans can filter on visibility and generation
// without loading parent documents.
type Chunk struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChunkID    string             `bson:"chunk_id" json:"chunk_id"`
	DocumentID primitive.ObjectID `bson:"document_id" json:"document_id"`
	Generation string             `bson:"generation" json:"generation"`
	Ordinal    int                `bson:"ordinal" json:"ordinal"`
	Text       string             `bson:"text" json:"text"`

	// Compressed marks the Text field as gzip+base64; large chunks are
	// compressed before storage and expanded transparently on read.
	Compressed bool `bson:"compressed,omitempty" json:"-"`

	Heading   string    `bson:"heading,omitempty" json:"heading,omitempty"`
	IsCode    bool      `bson:"is_code" json:"is_code"`
	WordCount int       `bson:"word_count" json:"word_count"`
	Embedding []float32 `bson:"embedding,omitempty" json:"-"`

	// Denormalized from the parent document for visibility filtering.
	OwnerID    string `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	Visibility string `bson:"visibility" json:"visibility"`
}

// TextChunk is the Chunker's output before embedding and persistence.
type TextChunk struct {
	Text      string
	Heading   string
	IsCode    bool
	WordCount int
}

// RetrievedChunk is one ranked hybrid-search hit.
type RetrievedChunk struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	Text          string  `json:"text"`
	Heading       string  `json:"heading,omitempty"`
	Similarity    float64 `json:"similarity"`
	LexicalScore  float64 `json:"lexical_score"`
	Score         float64 `json:"score"`
}
