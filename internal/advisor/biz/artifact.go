package biz

import (
	"context"
	stderrors "errors"

	"github.com/bytedance/sonic"
	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"
	"gorm.io/gorm"

	"github.com/kart-io/advisor-x/internal/advisor/store"
	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	"github.com/kart-io/advisor-x/pkg/id"
)

// CreateArtifactRequest creates an artifact with its first version.
type CreateArtifactRequest struct {
	VentureID    string `json:"venture_id" binding:"required"`
	Kind         string `json:"kind" binding:"required"`
	Title        string `json:"title" binding:"required"`
	Content      string `json:"content" binding:"required"` // JSON payload
	WriterID     string `json:"writer_id" binding:"required"`
	OwnerAgentID string `json:"owner_agent_id"`
}

// UpdateArtifactRequest appends a new version on top of ExpectedVersion.
type UpdateArtifactRequest struct {
	Content         string `json:"content" binding:"required"` // JSON payload
	ExpectedVersion int    `json:"expected_version" binding:"required"`
	WriterID        string `json:"writer_id" binding:"required"`
	Note            string `json:"note"`
	Status          string `json:"status"`
}

// ArtifactService manages versioned work products. Every write is
// optimistic: a writer names the version it read, and a stale base is
// rejected with the current state so the caller can rebase.
type ArtifactService struct {
	store store.Factory
	idGen *id.Generator
}

// NewArtifactService creates an ArtifactService.
func NewArtifactService(factory store.Factory) *ArtifactService {
	return &ArtifactService{
		store: factory,
		idGen: id.NewGenerator("art"),
	}
}

// Create materializes a new artifact at version 1.
func (s *ArtifactService) Create(ctx context.Context, workspaceID string, req *CreateArtifactRequest) (*model.Artifact, error) {
	switch req.Kind {
	case model.ArtifactKindPitchDeck, model.ArtifactKindOnePager,
		model.ArtifactKindFinancialModel, model.ArtifactKindMemo:
	default:
		return nil, errors.ErrInvalidParameter.WithMessagef("未知制品类型: %s", req.Kind)
	}

	exists, err := s.store.Ventures().Exists(ctx, workspaceID, req.VentureID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if !exists {
		return nil, errors.ErrVentureNotFound
	}

	content, err := canonicalJSON(req.Content)
	if err != nil {
		return nil, errors.ErrInvalidParameter.WithMessage("制品内容必须是合法 JSON").WithCause(err)
	}

	artifact := &model.Artifact{
		ID:             s.idGen.New(),
		WorkspaceID:    workspaceID,
		VentureID:      req.VentureID,
		Kind:           req.Kind,
		Title:          req.Title,
		Status:         model.ArtifactStatusDraft,
		OwnerAgentID:   req.OwnerAgentID,
		CurrentVersion: 1,
	}
	first := &model.ArtifactVersion{
		Content:  content,
		WriterID: req.WriterID,
	}
	if err := s.store.Artifacts().Create(ctx, artifact, first); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return artifact, nil
}

// Update appends a new version. When the caller's expected version is
// stale the error carries the artifact's current state and content, so
// the client can show a merge view without a second round trip.
func (s *ArtifactService) Update(ctx context.Context, workspaceID, artifactID string, req *UpdateArtifactRequest) (*model.Artifact, error) {
	content, err := canonicalJSON(req.Content)
	if err != nil {
		return nil, errors.ErrInvalidParameter.WithMessage("制品内容必须是合法 JSON").WithCause(err)
	}

	if req.Status != "" && !validArtifactStatus(req.Status) {
		return nil, errors.ErrInvalidParameter.WithMessagef("未知制品状态: %s", req.Status)
	}

	// 先校验归属, 防止跨工作区写
	artifact, err := s.store.Artifacts().Get(ctx, workspaceID, artifactID)
	if err != nil {
		return nil, errors.ErrArtifactNotFound.WithCause(err)
	}

	prev, err := s.store.Artifacts().GetVersion(ctx, artifactID, req.ExpectedVersion)
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	version := &model.ArtifactVersion{
		Content:  content,
		WriterID: req.WriterID,
		Note:     req.Note,
	}
	if prev != nil {
		version.Diff = patchText(prev.Content, content)
	}

	updated, err := s.store.Artifacts().WriteVersion(ctx, artifactID, req.ExpectedVersion, version)
	if err != nil {
		if stderrors.Is(err, store.ErrStaleVersion) {
			return nil, s.staleConflict(ctx, workspaceID, artifactID)
		}
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrArtifactNotFound
		}
		return nil, errors.ErrDatabase.WithCause(err)
	}

	if req.Status != "" && req.Status != artifact.Status {
		// 状态推进不走 CAS, 附在版本写之后
		if err := s.store.Artifacts().UpdateStatus(ctx, workspaceID, artifactID, req.Status); err != nil {
			return nil, errors.ErrDatabase.WithCause(err)
		}
		updated.Status = req.Status
	}
	return updated, nil
}

// staleConflict builds the version-conflict error with the current head
// attached, best effort.
func (s *ArtifactService) staleConflict(ctx context.Context, workspaceID, artifactID string) error {
	conflict := errors.ErrVersionConflict
	artifact, err := s.store.Artifacts().Get(ctx, workspaceID, artifactID)
	if err != nil {
		return conflict
	}
	head, err := s.store.Artifacts().GetVersion(ctx, artifactID, artifact.CurrentVersion)
	if err != nil {
		return conflict.WithData(map[string]any{"artifact": artifact})
	}
	return conflict.WithData(map[string]any{
		"artifact":        artifact,
		"current_version": head,
	})
}

// Get returns an artifact.
func (s *ArtifactService) Get(ctx context.Context, workspaceID, artifactID string) (*model.Artifact, error) {
	artifact, err := s.store.Artifacts().Get(ctx, workspaceID, artifactID)
	if err != nil {
		return nil, errors.ErrArtifactNotFound.WithCause(err)
	}
	return artifact, nil
}

// GetVersion returns one version snapshot.
func (s *ArtifactService) GetVersion(ctx context.Context, workspaceID, artifactID string, version int) (*model.ArtifactVersion, error) {
	if _, err := s.store.Artifacts().Get(ctx, workspaceID, artifactID); err != nil {
		return nil, errors.ErrArtifactNotFound.WithCause(err)
	}
	v, err := s.store.Artifacts().GetVersion(ctx, artifactID, version)
	if err != nil {
		return nil, errors.ErrNotFound.WithMessagef("版本 %d 不存在", version).WithCause(err)
	}
	return v, nil
}

// ListVersions returns an artifact's full version history, oldest first.
func (s *ArtifactService) ListVersions(ctx context.Context, workspaceID, artifactID string) ([]*model.ArtifactVersion, error) {
	if _, err := s.store.Artifacts().Get(ctx, workspaceID, artifactID); err != nil {
		return nil, errors.ErrArtifactNotFound.WithCause(err)
	}
	return s.store.Artifacts().ListVersions(ctx, artifactID)
}

// ListByVenture lists a venture's artifacts.
func (s *ArtifactService) ListByVenture(ctx context.Context, workspaceID, ventureID string, offset, limit int) (int64, []*model.Artifact, error) {
	return s.store.Artifacts().ListByVenture(ctx, workspaceID, ventureID, offset, limit)
}

func validArtifactStatus(status string) bool {
	switch status {
	case model.ArtifactStatusDraft, model.ArtifactStatusInProgress,
		model.ArtifactStatusReady, model.ArtifactStatusArchived:
		return true
	}
	return false
}

// canonicalJSON re-encodes a JSON payload with sorted keys so equal
// payloads diff as equal regardless of the writer's field order.
func canonicalJSON(raw string) (string, error) {
	var value any
	if err := sonic.UnmarshalString(raw, &value); err != nil {
		return "", err
	}
	return sonic.ConfigStd.MarshalToString(value)
}

// patchText renders a unidiff-style patch between two snapshots.
func patchText(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	return dmp.PatchToText(dmp.PatchMake(before, diffs))
}
