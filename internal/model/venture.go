// Package model provides data models for the Advisor-X platform.
package model

import (
	"time"

	"gorm.io/gorm"
)

// Venture represents a startup under advisory. All knowledge, sessions
// and artifacts hang off a venture within a workspace.
type Venture struct {
	ID          string         `json:"id" gorm:"primaryKey;type:varchar(64)"`
	WorkspaceID string         `json:"workspace_id" gorm:"type:varchar(64);index:idx_venture_workspace;not null"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Stage       string         `json:"stage" gorm:"type:varchar(32)"` // idea, pre-seed, seed, series-a
	Summary     string         `json:"summary" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for Venture.
func (Venture) TableName() string {
	return "ventures"
}
