package model

import (
	"time"
)

// Provenance kinds a proposal may cite.
const (
	ProvenanceKindDocument = "document" // ref is a document ID
	ProvenanceKindChat     = "chat"     // ref is a message ID
	ProvenanceKindManual   = "manual"   // ref is a user ID
)

// Proposal outcomes.
const (
	ProposalStatePending    = "pending"
	ProposalStateApplied    = "applied"    // created or corroborated an entity
	ProposalStateConflicted = "conflicted" // disagreed with confirmed knowledge
	ProposalStateDuplicate  = "duplicate"  // same value and provenance already recorded
	ProposalStateAccepted   = "accepted"   // resolved by an operator
	ProposalStateRejected   = "rejected"
)

// Proposal is a request to assert one entity value, produced by document
// extraction, chat analysis, or manual entry. Proposals are the only path
// by which the knowledge graph changes.
type Proposal struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(64)"`
	WorkspaceID string `json:"workspace_id" gorm:"type:varchar(64);index:idx_proposal_workspace;not null"`
	VentureID   string `json:"venture_id" gorm:"type:varchar(64);index:idx_proposal_venture;not null"`

	EntityType string `json:"entity_type" gorm:"type:varchar(32);not null"`
	EntityName string `json:"entity_name" gorm:"type:varchar(255);not null"`
	Value      string `json:"value" gorm:"type:text;not null"` // JSON payload

	// ProvenanceKind and ProvenanceRef identify where the assertion came
	// from. The pair deduplicates repeat submissions.
	ProvenanceKind string `json:"provenance_kind" gorm:"type:varchar(32);not null"`
	ProvenanceRef  string `json:"provenance_ref" gorm:"type:varchar(64);not null"`

	// Confidence is the proposer's trust in the assertion, 0..1.
	Confidence float64 `json:"confidence" gorm:"default:0.5"`

	State string `json:"state" gorm:"type:varchar(32);default:'pending';index:idx_proposal_state"`

	// EntityID links to the entity the proposal touched once processed.
	EntityID string `json:"entity_id,omitempty" gorm:"type:varchar(64);index"`

	// Note carries the processing outcome detail, e.g. the conflict reason.
	Note string `json:"note,omitempty" gorm:"type:varchar(512)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Proposal.
func (Proposal) TableName() string {
	return "entity_proposals"
}

// Evidence records one distinct provenance source behind an entity's
// current value. It backs the auto-confirm evidence count and makes
// duplicate submissions idempotent.
type Evidence struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	EntityID       string    `json:"entity_id" gorm:"type:varchar(64);uniqueIndex:uk_evidence;not null"`
	ProvenanceKind string    `json:"provenance_kind" gorm:"type:varchar(32);uniqueIndex:uk_evidence;not null"`
	ProvenanceRef  string    `json:"provenance_ref" gorm:"type:varchar(64);uniqueIndex:uk_evidence;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Evidence.
func (Evidence) TableName() string {
	return "entity_evidence"
}
