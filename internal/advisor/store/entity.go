package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kart-io/advisor-x/internal/model"
)

type entities struct {
	db *gorm.DB
}

func newEntities(db *gorm.DB) *entities {
	return &entities{db}
}

// Create creates a new entity.
func (e *entities) Create(ctx context.Context, entity *model.Entity) error {
	return e.db.WithContext(ctx).Create(entity).Error
}

// Update updates an existing entity.
func (e *entities) Update(ctx context.Context, entity *model.Entity) error {
	return e.db.WithContext(ctx).Save(entity).Error
}

// Get retrieves an entity scoped by workspace.
func (e *entities) Get(ctx context.Context, workspaceID, id string) (*model.Entity, error) {
	var entity model.Entity
	if err := e.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetByKey retrieves an entity by its canonical (venture, type, name) key.
// Returns nil without error when the entity does not exist.
func (e *entities) GetByKey(ctx context.Context, ventureID, entityType, name string) (*model.Entity, error) {
	var entity model.Entity
	err := e.db.WithContext(ctx).
		Where("venture_id = ? AND type = ? AND name = ?", ventureID, entityType, name).
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// ListByVenture returns a venture's entities, most trusted first.
func (e *entities) ListByVenture(ctx context.Context, workspaceID, ventureID string) ([]*model.Entity, error) {
	var list []*model.Entity
	if err := e.db.WithContext(ctx).
		Where("workspace_id = ? AND venture_id = ?", workspaceID, ventureID).
		Order("updated_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// AddEvidence records a provenance source for an entity. It reports false
// when the same (entity, kind, ref) was already recorded, which makes
// repeat submissions idempotent.
func (e *entities) AddEvidence(ctx context.Context, ev *model.Evidence) (bool, error) {
	result := e.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ev)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountEvidence returns the number of distinct provenance sources.
func (e *entities) CountEvidence(ctx context.Context, entityID string) (int64, error) {
	var count int64
	err := e.db.WithContext(ctx).Model(&model.Evidence{}).
		Where("entity_id = ?", entityID).
		Count(&count).Error
	return count, err
}

// DeleteEvidence clears an entity's evidence, used when a review decision
// replaces the value and prior corroboration no longer applies.
func (e *entities) DeleteEvidence(ctx context.Context, entityID string) error {
	return e.db.WithContext(ctx).Where("entity_id = ?", entityID).Delete(&model.Evidence{}).Error
}

type proposals struct {
	db *gorm.DB
}

func newProposals(db *gorm.DB) *proposals {
	return &proposals{db}
}

// Create creates a new proposal.
func (p *proposals) Create(ctx context.Context, proposal *model.Proposal) error {
	return p.db.WithContext(ctx).Create(proposal).Error
}

// Update updates an existing proposal.
func (p *proposals) Update(ctx context.Context, proposal *model.Proposal) error {
	return p.db.WithContext(ctx).Save(proposal).Error
}

// Get retrieves a proposal scoped by workspace.
func (p *proposals) Get(ctx context.Context, workspaceID, id string) (*model.Proposal, error) {
	var proposal model.Proposal
	if err := p.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		First(&proposal).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

// ListByVenture lists a venture's proposals, optionally filtered by state.
func (p *proposals) ListByVenture(ctx context.Context, workspaceID, ventureID, state string, offset, limit int) (int64, []*model.Proposal, error) {
	var count int64
	var list []*model.Proposal

	q := p.db.WithContext(ctx).Model(&model.Proposal{}).
		Where("workspace_id = ? AND venture_id = ?", workspaceID, ventureID)
	if state != "" {
		q = q.Where("state = ?", state)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return 0, nil, err
	}
	return count, list, nil
}
