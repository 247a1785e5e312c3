package model

import (
	"time"
)

// Document intake statuses.
const (
	DocumentStatusPending = "pending"
	DocumentStatusIndexed = "indexed"
	DocumentStatusFailed  = "failed"
	DocumentStatusRemoved = "removed"
)

// Document represents a source document a venture uploaded for grounding.
// LastVerifiedAt drives the freshness component of retrieval scoring; it
// defaults to the upload time and moves forward when the founder re-verifies
// the material.
type Document struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	WorkspaceID    string    `json:"workspace_id" gorm:"type:varchar(64);index:idx_doc_workspace;not null"`
	VentureID      string    `json:"venture_id" gorm:"type:varchar(64);index:idx_doc_venture;not null"`
	Title          string    `json:"title" gorm:"type:varchar(255);not null"`
	Source         string    `json:"source" gorm:"type:varchar(512)"` // file path or URL
	Content        string    `json:"content,omitempty" gorm:"type:longtext"`
	Hash           string    `json:"hash" gorm:"type:varchar(64);index"` // content hash for deduplication
	ChunkNum       int       `json:"chunk_num" gorm:"default:0"`
	Status         string    `json:"status" gorm:"type:varchar(32);default:'pending'"`
	LastVerifiedAt time.Time `json:"last_verified_at"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Document.
func (Document) TableName() string {
	return "documents"
}

// Chunk is an immutable slice of a document. Chunks are never edited in
// place: re-ingesting a document replaces its chunk set wholesale.
type Chunk struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	DocumentID string    `json:"document_id" gorm:"type:varchar(64);index:idx_chunk_document;not null"`
	VentureID  string    `json:"venture_id" gorm:"type:varchar(64);index:idx_chunk_venture;not null"`
	Seq        int       `json:"seq" gorm:"not null"` // position within the document
	Content    string    `json:"content" gorm:"type:text;not null"`
	StartPos   int       `json:"start_pos" gorm:"default:0"`
	EndPos     int       `json:"end_pos" gorm:"default:0"`
	VectorID   int64     `json:"vector_id" gorm:"index"` // ID in Milvus, 0 when lexical only
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Chunk.
func (Chunk) TableName() string {
	return "chunks"
}
