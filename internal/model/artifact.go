package model

import (
	"time"

	"gorm.io/gorm"
)

// Artifact kinds produced during advisory work.
const (
	ArtifactKindPitchDeck      = "pitch_deck"
	ArtifactKindOnePager       = "one_pager"
	ArtifactKindFinancialModel = "financial_model"
	ArtifactKindMemo           = "memo"
)

// Artifact workflow statuses.
const (
	ArtifactStatusDraft      = "draft"
	ArtifactStatusInProgress = "in_progress"
	ArtifactStatusReady      = "ready"
	ArtifactStatusArchived   = "archived"
)

// Artifact is a versioned work product. CurrentVersion is the optimistic
// concurrency token: writers must present the version they based their
// edit on, and a mismatch rejects the write.
type Artifact struct {
	ID             string         `json:"id" gorm:"primaryKey;type:varchar(64)"`
	WorkspaceID    string         `json:"workspace_id" gorm:"type:varchar(64);index:idx_artifact_workspace;not null"`
	VentureID      string         `json:"venture_id" gorm:"type:varchar(64);index:idx_artifact_venture;not null"`
	Kind           string         `json:"kind" gorm:"type:varchar(32);not null"`
	Title          string         `json:"title" gorm:"type:varchar(255);not null"`
	Status         string         `json:"status" gorm:"type:varchar(32);default:'draft'"`
	OwnerAgentID   string         `json:"owner_agent_id,omitempty" gorm:"type:varchar(64)"`
	CurrentVersion int            `json:"current_version" gorm:"not null;default:1"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for Artifact.
func (Artifact) TableName() string {
	return "artifacts"
}

// ArtifactVersion is one immutable snapshot of an artifact's content.
// Versions are dense per artifact starting at 1 and are never rewritten.
type ArtifactVersion struct {
	ID         int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	ArtifactID string `json:"artifact_id" gorm:"type:varchar(64);uniqueIndex:uk_artifact_version;not null"`
	Version    int    `json:"version" gorm:"uniqueIndex:uk_artifact_version;not null"`

	// Content is the canonicalized JSON payload of this snapshot.
	Content string `json:"content" gorm:"type:longtext;not null"`

	// Diff is a unidiff-style patch from the previous version, empty for
	// the first version.
	Diff string `json:"diff,omitempty" gorm:"type:longtext"`

	// WriterID identifies who produced this version, a user or an agent.
	WriterID string `json:"writer_id" gorm:"type:varchar(64);not null"`

	// Note is an optional change summary supplied by the writer.
	Note string `json:"note,omitempty" gorm:"type:varchar(512)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for ArtifactVersion.
func (ArtifactVersion) TableName() string {
	return "artifact_versions"
}
