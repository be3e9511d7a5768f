package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document visibility levels
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
	VisibilitySystem  = "system"
)

// Document processing status
const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusReady      = "ready"
	DocStatusFailed     = "failed"
)

// Document is an ingested piece of curriculum content. Its text lives in the
// chunks collection; the document row carries ownership, visibility and the
// current chunk generation pointer.
type Document struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// OwnerID is empty for system-owned content.
	OwnerID    string `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	Title      string `bson:"title" json:"title"`
	Visibility string `bson:"visibility" json:"visibility"`

	// CurrentGeneration identifies the live chunk set. Re-chunking writes a
	// new generation first and flips this pointer afterwards, so readers
	// never see a mixed or empty chunk set.
	CurrentGeneration string `bson:"current_generation" json:"current_generation"`

	ChunkCount int    `bson:"chunk_count" json:"chunk_count"`
	CharCount  int    `bson:"char_count" json:"char_count"`
	Status     string `bson:"status" json:"status"`
	Error      string `bson:"error,omitempty" json:"error,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// VisibleTo reports whether the document may be read by the given identity.
// System content (no owner) is visible to everyone, private content only to
// its owner, public content to anyone.
func (d *Document) VisibleTo(identity string) bool {
	if d.OwnerID == "" || d.Visibility == VisibilitySystem {
		return true
	}
	if d.OwnerID == identity {
		return true
	}
	return d.Visibility == VisibilityPublic
}

// IngestRequest is the payload for POST /documents.
type IngestRequest struct {
	Title      string `json:"title" binding:"required,min=1,max=300"`
	Content    string `json:"content" binding:"required,min=1"`
	Visibility string `json:"visibility,omitempty"`
	OwnerID    string `json:"owner_id,omitempty"`
}

// IngestResponse reports what an ingestion created.
type IngestResponse struct {
	DocumentID    string `json:"document_id"`
	ChunksCreated int    `json:"chunks_created"`
	Status        string `json:"status"`
}

// UpdateRequest replaces a document's content, triggering a full
// re-chunk and re-embed under a fresh generation.
type UpdateRequest struct {
	Content string `json:"content" binding:"required,min=1"`
}
