package biz

import (
	"context"

	"github.com/kart-io/advisor-x/internal/advisor/store"
	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	"github.com/kart-io/advisor-x/pkg/id"
)

// CreateVentureRequest registers one venture under a workspace.
type CreateVentureRequest struct {
	Name    string `json:"name" binding:"required"`
	Stage   string `json:"stage"`
	Summary string `json:"summary"`
}

// VentureService manages the ventures everything else hangs off of.
type VentureService struct {
	store store.Factory
	idGen *id.Generator
}

// NewVentureService creates a VentureService.
func NewVentureService(factory store.Factory) *VentureService {
	return &VentureService{
		store: factory,
		idGen: id.NewGenerator("vnt"),
	}
}

// Create registers a venture.
func (s *VentureService) Create(ctx context.Context, workspaceID string, req *CreateVentureRequest) (*model.Venture, error) {
	venture := &model.Venture{
		ID:          s.idGen.New(),
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Stage:       req.Stage,
		Summary:     req.Summary,
	}
	if err := s.store.Ventures().Create(ctx, venture); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return venture, nil
}

// Get returns one venture.
func (s *VentureService) Get(ctx context.Context, workspaceID, id string) (*model.Venture, error) {
	venture, err := s.store.Ventures().Get(ctx, workspaceID, id)
	if err != nil {
		return nil, errors.ErrVentureNotFound.WithCause(err)
	}
	return venture, nil
}

// List returns a workspace's ventures.
func (s *VentureService) List(ctx context.Context, workspaceID string, offset, limit int) (int64, []*model.Venture, error) {
	return s.store.Ventures().List(ctx, workspaceID, offset, limit)
}
