package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/advisor-x/internal/model"
)

type sessions struct {
	db *gorm.DB
}

func newSessions(db *gorm.DB) *sessions {
	return &sessions{db}
}

// Create creates a new session.
func (s *sessions) Create(ctx context.Context, session *model.Session) error {
	return s.db.WithContext(ctx).Create(session).Error
}

// Get retrieves a session scoped by workspace.
func (s *sessions) Get(ctx context.Context, workspaceID, id string) (*model.Session, error) {
	var session model.Session
	if err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByVenture lists a venture's sessions, most recently active first.
func (s *sessions) ListByVenture(ctx context.Context, workspaceID, ventureID string, offset, limit int) (int64, []*model.Session, error) {
	var count int64
	var list []*model.Session

	q := s.db.WithContext(ctx).Model(&model.Session{}).
		Where("workspace_id = ? AND venture_id = ?", workspaceID, ventureID)
	if err := q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if err := q.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return 0, nil, err
	}
	return count, list, nil
}

// Touch bumps the session's updated_at after a completed turn.
func (s *sessions) Touch(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

type messages struct {
	db *gorm.DB
}

func newMessages(db *gorm.DB) *messages {
	return &messages{db}
}

// Append appends one message to the transcript.
func (m *messages) Append(ctx context.Context, msg *model.Message) error {
	return m.db.WithContext(ctx).Create(msg).Error
}

// AppendPair persists a user message and the assistant reply atomically
// with consecutive sequence numbers. A turn is either fully on the
// transcript or not at all.
func (m *messages) AppendPair(ctx context.Context, userMsg, assistantMsg *model.Message) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := nextSeq(tx, userMsg.SessionID)
		if err != nil {
			return err
		}
		userMsg.Seq = next
		assistantMsg.Seq = next + 1

		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		return tx.Create(assistantMsg).Error
	})
}

// ListBySession lists transcript messages in order.
func (m *messages) ListBySession(ctx context.Context, sessionID string, offset, limit int) (int64, []*model.Message, error) {
	var count int64
	var list []*model.Message

	q := m.db.WithContext(ctx).Model(&model.Message{}).Where("session_id = ?", sessionID)
	if err := q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if err := q.Order("seq ASC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return 0, nil, err
	}
	return count, list, nil
}

// NextSeq returns the next dense sequence number for a session.
func (m *messages) NextSeq(ctx context.Context, sessionID string) (int, error) {
	return nextSeq(m.db.WithContext(ctx), sessionID)
}

func nextSeq(db *gorm.DB, sessionID string) (int, error) {
	var maxSeq int
	err := db.Model(&model.Message{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return 0, err
	}
	return maxSeq + 1, nil
}
