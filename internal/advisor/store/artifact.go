package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kart-io/advisor-x/internal/model"
)

// ErrStaleVersion is returned by WriteVersion when the caller's base
// version no longer matches the artifact's current version.
var ErrStaleVersion = errors.New("artifact version is stale")

type artifacts struct {
	db *gorm.DB
}

func newArtifacts(db *gorm.DB) *artifacts {
	return &artifacts{db}
}

// Create creates an artifact together with its first version.
func (a *artifacts) Create(ctx context.Context, artifact *model.Artifact, first *model.ArtifactVersion) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(artifact).Error; err != nil {
			return err
		}
		first.ArtifactID = artifact.ID
		first.Version = artifact.CurrentVersion
		return tx.Create(first).Error
	})
}

// Get retrieves an artifact scoped by workspace.
func (a *artifacts) Get(ctx context.Context, workspaceID, id string) (*model.Artifact, error) {
	var artifact model.Artifact
	if err := a.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		First(&artifact).Error; err != nil {
		return nil, err
	}
	return &artifact, nil
}

// UpdateStatus advances an artifact's workflow status.
func (a *artifacts) UpdateStatus(ctx context.Context, workspaceID, id, status string) error {
	return a.db.WithContext(ctx).Model(&model.Artifact{}).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Update("status", status).Error
}

// GetVersion retrieves one version snapshot.
func (a *artifacts) GetVersion(ctx context.Context, artifactID string, version int) (*model.ArtifactVersion, error) {
	var v model.ArtifactVersion
	if err := a.db.WithContext(ctx).
		Where("artifact_id = ? AND version = ?", artifactID, version).
		First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVersions lists an artifact's versions in ascending order.
func (a *artifacts) ListVersions(ctx context.Context, artifactID string) ([]*model.ArtifactVersion, error) {
	var list []*model.ArtifactVersion
	if err := a.db.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Order("version ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListByVenture lists a venture's artifacts with pagination.
func (a *artifacts) ListByVenture(ctx context.Context, workspaceID, ventureID string, offset, limit int) (int64, []*model.Artifact, error) {
	var count int64
	var list []*model.Artifact

	q := a.db.WithContext(ctx).Model(&model.Artifact{}).
		Where("workspace_id = ? AND venture_id = ?", workspaceID, ventureID)
	if err := q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if err := q.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return 0, nil, err
	}
	return count, list, nil
}

// WriteVersion appends a new version under optimistic concurrency. The
// compare-and-swap is a single UPDATE guarded on current_version, so two
// writers racing from the same base version cannot both win.
func (a *artifacts) WriteVersion(ctx context.Context, artifactID string, baseVersion int, version *model.ArtifactVersion) (*model.Artifact, error) {
	var updated model.Artifact

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Artifact{}).
			Where("id = ? AND current_version = ?", artifactID, baseVersion).
			Update("current_version", baseVersion+1)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Distinguish a stale version from a missing artifact.
			var count int64
			if err := tx.Model(&model.Artifact{}).Where("id = ?", artifactID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrStaleVersion
		}

		version.ArtifactID = artifactID
		version.Version = baseVersion + 1
		if err := tx.Create(version).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", artifactID).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
