package model

import (
	"time"
)

// Message roles persisted in the transcript.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Session groups the turns of one advisory conversation.
type Session struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	WorkspaceID string    `json:"workspace_id" gorm:"type:varchar(64);index:idx_session_workspace;not null"`
	VentureID   string    `json:"venture_id" gorm:"type:varchar(64);index:idx_session_venture;not null"`
	Title       string    `json:"title" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Session.
func (Session) TableName() string {
	return "chat_sessions"
}

// Message is one transcript entry. The transcript is append-only: messages
// are never updated or deleted, and Seq is dense per session so ordering
// survives clock skew.
type Message struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(64)"`
	SessionID string `json:"session_id" gorm:"type:varchar(64);uniqueIndex:uk_message_seq;not null"`
	Seq       int    `json:"seq" gorm:"uniqueIndex:uk_message_seq;not null"`
	Role      string `json:"role" gorm:"type:varchar(16);not null"`
	Content   string `json:"content" gorm:"type:longtext;not null"`

	// RoutingPlan holds the JSON-encoded routing decision for assistant
	// messages, empty for user messages.
	RoutingPlan string `json:"routing_plan,omitempty" gorm:"type:text"`

	// Citations holds the JSON-encoded retrieval citations backing an
	// assistant message.
	Citations string `json:"citations,omitempty" gorm:"type:text"`

	// ArtifactID links an assistant message to the artifact it produced.
	ArtifactID string `json:"artifact_id,omitempty" gorm:"type:varchar(64)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "chat_messages"
}
