package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/advisor-x/internal/model"
)

type documents struct {
	db *gorm.DB
}

func newDocuments(db *gorm.DB) *documents {
	return &documents{db}
}

// Create creates a new document.
func (d *documents) Create(ctx context.Context, doc *model.Document) error {
	return d.db.WithContext(ctx).Create(doc).Error
}

// Update updates an existing document.
func (d *documents) Update(ctx context.Context, doc *model.Document) error {
	return d.db.WithContext(ctx).Save(doc).Error
}

// Get retrieves a document scoped by workspace.
func (d *documents) Get(ctx context.Context, workspaceID, id string) (*model.Document, error) {
	var doc model.Document
	if err := d.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetByHash finds a venture's document by content hash, for deduplication.
func (d *documents) GetByHash(ctx context.Context, ventureID, hash string) (*model.Document, error) {
	var doc model.Document
	if err := d.db.WithContext(ctx).
		Where("venture_id = ? AND hash = ?", ventureID, hash).
		First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetByIDs retrieves documents by ID.
func (d *documents) GetByIDs(ctx context.Context, ids []string) ([]*model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []*model.Document
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListByVenture lists a venture's documents with pagination.
func (d *documents) ListByVenture(ctx context.Context, workspaceID, ventureID string, offset, limit int) (int64, []*model.Document, error) {
	var count int64
	var list []*model.Document

	q := d.db.WithContext(ctx).Model(&model.Document{}).
		Where("workspace_id = ? AND venture_id = ?", workspaceID, ventureID)
	if err := q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return 0, nil, err
	}
	return count, list, nil
}

type chunks struct {
	db *gorm.DB
}

func newChunks(db *gorm.DB) *chunks {
	return &chunks{db}
}

// CreateBatch inserts a document's chunk set.
func (c *chunks) CreateBatch(ctx context.Context, list []*model.Chunk) error {
	if len(list) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).CreateInBatches(list, 200).Error
}

// GetByIDs retrieves chunks by ID.
func (c *chunks) GetByIDs(ctx context.Context, ids []string) ([]*model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []*model.Chunk
	if err := c.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListByVenture returns all chunks for a venture, used by the lexical
// fallback scorer.
func (c *chunks) ListByVenture(ctx context.Context, ventureID string) ([]*model.Chunk, error) {
	var list []*model.Chunk
	if err := c.db.WithContext(ctx).
		Where("venture_id = ?", ventureID).
		Order("document_id, seq").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteByDocument removes a document's chunk set before re-ingestion.
func (c *chunks) DeleteByDocument(ctx context.Context, documentID string) error {
	return c.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error
}
