package model

import (
	"time"

	"gorm.io/gorm"
)

// Entity types tracked in a venture's knowledge graph.
const (
	EntityTypeVenture           = "venture"
	EntityTypeMarket            = "market"
	EntityTypeICP               = "icp"
	EntityTypeCompetitor        = "competitor"
	EntityTypeProduct           = "product"
	EntityTypeTeamMember        = "team_member"
	EntityTypeMetric            = "metric"
	EntityTypeFundingAssumption = "funding_assumption"
	EntityTypeRisk              = "risk"
)

// Entity lifecycle statuses, ordered by trust.
const (
	EntityStatusSuggested   = "suggested"
	EntityStatusNeedsReview = "needs_review"
	EntityStatusConfirmed   = "confirmed"
	EntityStatusPinned      = "pinned"
)

// EntityStatusRank orders statuses by trust so retrieval can sort
// confirmed knowledge ahead of suggestions.
func EntityStatusRank(status string) int {
	switch status {
	case EntityStatusPinned:
		return 3
	case EntityStatusConfirmed:
		return 2
	case EntityStatusNeedsReview:
		return 1
	case EntityStatusSuggested:
		return 0
	default:
		return -1
	}
}

// ValidEntityType reports whether t names a known entity type.
func ValidEntityType(t string) bool {
	switch t {
	case EntityTypeVenture, EntityTypeMarket, EntityTypeICP, EntityTypeCompetitor,
		EntityTypeProduct, EntityTypeTeamMember, EntityTypeMetric,
		EntityTypeFundingAssumption, EntityTypeRisk:
		return true
	}
	return false
}

// Entity is one fact in a venture's knowledge graph. The (venture, type,
// name) triple is the canonical key; Value holds the JSON-encoded payload.
// Entities mutate only through accepted proposals or explicit review
// operations, never directly.
type Entity struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(64)"`
	WorkspaceID string `json:"workspace_id" gorm:"type:varchar(64);index:idx_entity_workspace;not null"`
	VentureID   string `json:"venture_id" gorm:"type:varchar(64);uniqueIndex:uk_entity_key;not null"`
	Type        string `json:"type" gorm:"type:varchar(32);uniqueIndex:uk_entity_key;not null"`
	Name        string `json:"name" gorm:"type:varchar(255);uniqueIndex:uk_entity_key;not null"`
	Value       string `json:"value" gorm:"type:text;not null"` // JSON payload

	Status string `json:"status" gorm:"type:varchar(32);default:'suggested';index:idx_entity_status"`

	// Confidence is the blended trust in the current value, 0..1,
	// recomputed as a provenance-weighted average on each corroboration.
	Confidence float64 `json:"confidence" gorm:"default:0"`

	// EvidenceCount is the number of distinct provenance sources that
	// asserted the current value.
	EvidenceCount int `json:"evidence_count" gorm:"default:1"`

	// CompetingValue records the most recent conflicting value while the
	// entity sits in needs_review. Empty otherwise.
	CompetingValue string `json:"competing_value,omitempty" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for Entity.
func (Entity) TableName() string {
	return "entities"
}
