// Package milvus wraps the Milvus SDK client behind the small surface the
// retrieval engine needs: one collection of chunk vectors scoped by
// workspace, inserted at intake time and searched at query time.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/advisor-x/pkg/options/milvus"
)

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{client: c, opts: opts}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// EnsureChunkCollection creates the chunk collection when missing. Each row
// carries the chunk embedding plus the identifiers the retrieval engine
// needs to map hits back to relational rows without a second lookup.
func (c *Client) EnsureChunkCollection(ctx context.Context, name string, dimension int) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	schema := entity.NewSchema().
		WithName(name).
		WithDescription("document chunk embeddings").
		WithAutoID(true).
		WithField(entity.NewField().
			WithName("id").
			WithDataType(entity.FieldTypeInt64).
			WithIsPrimaryKey(true).
			WithIsAutoID(true)).
		WithField(entity.NewField().
			WithName("embedding").
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dimension))).
		WithField(entity.NewField().
			WithName("chunk_id").
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(64)).
		WithField(entity.NewField().
			WithName("workspace_id").
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(64)).
		WithField(entity.NewField().
			WithName("venture_id").
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(64))

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(entity.COSINE, 128)
	createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, "embedding", idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// ChunkVector is one chunk embedding with its identifiers.
type ChunkVector struct {
	ChunkID     string
	WorkspaceID string
	VentureID   string
	Embedding   []float32
}

// InsertChunks inserts chunk vectors and returns the assigned vector IDs
// aligned with the input order.
func (c *Client) InsertChunks(ctx context.Context, collection string, chunks []ChunkVector) ([]int64, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(chunks))
	chunkIDs := make([]string, len(chunks))
	workspaceIDs := make([]string, len(chunks))
	ventureIDs := make([]string, len(chunks))
	for i, ch := range chunks {
		embeddings[i] = ch.Embedding
		chunkIDs[i] = ch.ChunkID
		workspaceIDs[i] = ch.WorkspaceID
		ventureIDs[i] = ch.VentureID
	}

	result, err := c.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(collection,
		column.NewColumnFloatVector("embedding", len(embeddings[0]), embeddings),
		column.NewColumnVarChar("chunk_id", chunkIDs),
		column.NewColumnVarChar("workspace_id", workspaceIDs),
		column.NewColumnVarChar("venture_id", ventureIDs),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert data: %w", err)
	}

	// Flush so freshly ingested documents are searchable in the same turn
	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collection))
	if err != nil {
		return nil, fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for flush: %w", err)
	}

	return result.IDs.(*column.ColumnInt64).Data(), nil
}

// ChunkHit is a single similarity search result.
type ChunkHit struct {
	ChunkID string
	Score   float32
}

// SearchChunks performs a similarity search scoped to one venture.
func (c *Client) SearchChunks(ctx context.Context, collection string, vector []float32, topK int, workspaceID, ventureID string) ([]ChunkHit, error) {
	filter := fmt.Sprintf("workspace_id == %q && venture_id == %q", workspaceID, ventureID)

	results, err := c.client.Search(ctx, milvusclient.NewSearchOption(
		collection,
		topK,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField("embedding").
		WithSearchParam("nprobe", "16").
		WithFilter(filter).
		WithOutputFields("chunk_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(results) == 0 {
		return []ChunkHit{}, nil
	}

	hits := make([]ChunkHit, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		hit := ChunkHit{Score: results[0].Scores[i]}
		for _, field := range results[0].Fields {
			if col, ok := field.(*column.ColumnVarChar); ok && col.Name() == "chunk_id" {
				hit.ChunkID = col.Data()[i]
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteByChunkIDs removes vectors by chunk ID, used when a document is
// withdrawn.
func (c *Client) DeleteByChunkIDs(ctx context.Context, collection string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	if _, err := c.client.Delete(ctx, milvusclient.NewDeleteOption(collection).WithStringIDs("chunk_id", chunkIDs)); err != nil {
		return fmt.Errorf("failed to delete by chunk ids: %w", err)
	}
	return nil
}

// CollectionRowCount returns the number of vectors in a collection.
func (c *Client) CollectionRowCount(ctx context.Context, collection string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collection))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}
	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
