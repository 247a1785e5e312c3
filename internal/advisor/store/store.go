// Package store provides the persistence layer for the advisor service.
package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/advisor-x/internal/model"
)

// Factory defines the factory interface for creating stores.
type Factory interface {
	Ventures() VentureStore
	Documents() DocumentStore
	Chunks() ChunkStore
	Entities() EntityStore
	Proposals() ProposalStore
	Sessions() SessionStore
	Messages() MessageStore
	Artifacts() ArtifactStore
	AutoMigrate() error
	Close() error
}

// VentureStore defines venture storage.
type VentureStore interface {
	Create(ctx context.Context, venture *model.Venture) error
	Get(ctx context.Context, workspaceID, id string) (*model.Venture, error)
	List(ctx context.Context, workspaceID string, offset, limit int) (int64, []*model.Venture, error)
	Exists(ctx context.Context, workspaceID, id string) (bool, error)
}

// DocumentStore defines document storage.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	Update(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, workspaceID, id string) (*model.Document, error)
	GetByHash(ctx context.Context, ventureID, hash string) (*model.Document, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.Document, error)
	ListByVenture(ctx context.Context, workspaceID, ventureID string, offset, limit int) (int64, []*model.Document, error)
}

// ChunkStore defines chunk storage. Chunks are immutable; replacing a
// document's chunks deletes the old set and inserts the new one.
type ChunkStore interface {
	CreateBatch(ctx context.Context, chunks []*model.Chunk) error
	GetByIDs(ctx context.Context, ids []string) ([]*model.Chunk, error)
	ListByVenture(ctx context.Context, ventureID string) ([]*model.Chunk, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// EntityStore defines knowledge graph entity storage.
type EntityStore interface {
	Create(ctx context.Context, entity *model.Entity) error
	Update(ctx context.Context, entity *model.Entity) error
	Get(ctx context.Context, workspaceID, id string) (*model.Entity, error)
	GetByKey(ctx context.Context, ventureID, entityType, name string) (*model.Entity, error)
	ListByVenture(ctx context.Context, workspaceID, ventureID string) ([]*model.Entity, error)
	AddEvidence(ctx context.Context, ev *model.Evidence) (added bool, err error)
	CountEvidence(ctx context.Context, entityID string) (int64, error)
	DeleteEvidence(ctx context.Context, entityID string) error
}

// ProposalStore defines proposal storage.
type ProposalStore interface {
	Create(ctx context.Context, proposal *model.Proposal) error
	Update(ctx context.Context, proposal *model.Proposal) error
	Get(ctx context.Context, workspaceID, id string) (*model.Proposal, error)
	ListByVenture(ctx context.Context, workspaceID, ventureID, state string, offset, limit int) (int64, []*model.Proposal, error)
}

// SessionStore defines chat session storage.
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, workspaceID, id string) (*model.Session, error)
	ListByVenture(ctx context.Context, workspaceID, ventureID string, offset, limit int) (int64, []*model.Session, error)
	Touch(ctx context.Context, id string) error
}

// MessageStore defines transcript storage. Append is the only mutation.
type MessageStore interface {
	Append(ctx context.Context, msg *model.Message) error
	AppendPair(ctx context.Context, userMsg, assistantMsg *model.Message) error
	ListBySession(ctx context.Context, sessionID string, offset, limit int) (int64, []*model.Message, error)
	NextSeq(ctx context.Context, sessionID string) (int, error)
}

// ArtifactStore defines versioned artifact storage.
type ArtifactStore interface {
	Create(ctx context.Context, artifact *model.Artifact, first *model.ArtifactVersion) error
	Get(ctx context.Context, workspaceID, id string) (*model.Artifact, error)
	UpdateStatus(ctx context.Context, workspaceID, id, status string) error
	GetVersion(ctx context.Context, artifactID string, version int) (*model.ArtifactVersion, error)
	ListVersions(ctx context.Context, artifactID string) ([]*model.ArtifactVersion, error)
	ListByVenture(ctx context.Context, workspaceID, ventureID string, offset, limit int) (int64, []*model.Artifact, error)
	// WriteVersion appends a version if and only if the artifact's current
	// version still equals baseVersion. It returns the updated artifact, or
	// ErrStaleVersion when another writer got there first.
	WriteVersion(ctx context.Context, artifactID string, baseVersion int, version *model.ArtifactVersion) (*model.Artifact, error)
}

// datastore implements Factory on a gorm DB.
type datastore struct {
	db *gorm.DB
}

// NewFactory creates a storage factory backed by the given DB.
func NewFactory(db *gorm.DB) Factory {
	return &datastore{db: db}
}

func (ds *datastore) Ventures() VentureStore   { return newVentures(ds.db) }
func (ds *datastore) Documents() DocumentStore { return newDocuments(ds.db) }
func (ds *datastore) Chunks() ChunkStore       { return newChunks(ds.db) }
func (ds *datastore) Entities() EntityStore    { return newEntities(ds.db) }
func (ds *datastore) Proposals() ProposalStore { return newProposals(ds.db) }
func (ds *datastore) Sessions() SessionStore   { return newSessions(ds.db) }
func (ds *datastore) Messages() MessageStore   { return newMessages(ds.db) }
func (ds *datastore) Artifacts() ArtifactStore { return newArtifacts(ds.db) }

// AutoMigrate migrates the database schema.
func (ds *datastore) AutoMigrate() error {
	return ds.db.AutoMigrate(
		&model.Venture{},
		&model.Document{},
		&model.Chunk{},
		&model.Entity{},
		&model.Evidence{},
		&model.Proposal{},
		&model.Session{},
		&model.Message{},
		&model.Artifact{},
		&model.ArtifactVersion{},
	)
}

// Close closes the factory and underlying connections.
func (ds *datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
