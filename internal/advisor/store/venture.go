package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/advisor-x/internal/model"
)

type ventures struct {
	db *gorm.DB
}

func newVentures(db *gorm.DB) *ventures {
	return &ventures{db}
}

// Create creates a new venture.
func (v *ventures) Create(ctx context.Context, venture *model.Venture) error {
	return v.db.WithContext(ctx).Create(venture).Error
}

// Get retrieves a venture scoped by workspace.
func (v *ventures) Get(ctx context.Context, workspaceID, id string) (*model.Venture, error) {
	var venture model.Venture
	if err := v.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		First(&venture).Error; err != nil {
		return nil, err
	}
	return &venture, nil
}

// List lists ventures in a workspace with pagination.
func (v *ventures) List(ctx context.Context, workspaceID string, offset, limit int) (int64, []*model.Venture, error) {
	var count int64
	var list []*model.Venture

	q := v.db.WithContext(ctx).Model(&model.Venture{}).Where("workspace_id = ?", workspaceID)
	if err := q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return 0, nil, err
	}
	return count, list, nil
}

// Exists reports whether the venture exists in the workspace.
func (v *ventures) Exists(ctx context.Context, workspaceID, id string) (bool, error) {
	var count int64
	err := v.db.WithContext(ctx).Model(&model.Venture{}).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Count(&count).Error
	return count > 0, err
}
