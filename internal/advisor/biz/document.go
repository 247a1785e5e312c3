package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kart-io/logger"

	"github.com/kart-io/advisor-x/internal/advisor/store"
	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/component/milvus"
	"github.com/kart-io/advisor-x/pkg/errors"
	"github.com/kart-io/advisor-x/pkg/id"
	"github.com/kart-io/advisor-x/pkg/llm"
	brainopts "github.com/kart-io/advisor-x/pkg/options/brain"
)

// IngestRequest submits one document for chunking and indexing.
type IngestRequest struct {
	VentureID string `json:"venture_id" binding:"required"`
	Title     string `json:"title" binding:"required"`
	Source    string `json:"source"`
	Content   string `json:"content" binding:"required"`
}

// DocumentService ingests source documents: dedupe by content hash, split
// into chunks, embed and index. Re-ingesting changed content replaces the
// document's chunk set wholesale; chunks themselves never mutate.
type DocumentService struct {
	store    store.Factory
	embedder llm.EmbeddingProvider // nil when vector indexing is disabled
	vectors  *milvus.Client        // nil when vector indexing is disabled
	opts     *brainopts.Options

	docID   *id.Generator
	chunkID *id.Generator
}

// NewDocumentService creates a DocumentService. embedder and vectors may
// be nil, in which case retrieval falls back to lexical scoring.
func NewDocumentService(factory store.Factory, embedder llm.EmbeddingProvider, vectors *milvus.Client, opts *brainopts.Options) *DocumentService {
	return &DocumentService{
		store:    factory,
		embedder: embedder,
		vectors:  vectors,
		opts:     opts,
		docID:    id.NewGenerator("doc"),
		chunkID:  id.NewGenerator("chunk"),
	}
}

// Ingest processes one document. Identical content for the same venture is
// detected by hash: the existing document's verification timestamp moves
// forward instead of re-indexing.
func (s *DocumentService) Ingest(ctx context.Context, workspaceID string, req *IngestRequest) (*model.Document, error) {
	exists, err := s.store.Ventures().Exists(ctx, workspaceID, req.VentureID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if !exists {
		return nil, errors.ErrVentureNotFound
	}

	sum := sha256.Sum256([]byte(req.Content))
	hash := hex.EncodeToString(sum[:])

	if existing, err := s.store.Documents().GetByHash(ctx, req.VentureID, hash); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	} else if existing != nil {
		if existing.Status == model.DocumentStatusIndexed || existing.Status == model.DocumentStatusPending {
			// 内容未变, 刷新验证时间即可
			existing.LastVerifiedAt = time.Now()
			if err := s.store.Documents().Update(ctx, existing); err != nil {
				return nil, errors.ErrDatabase.WithCause(err)
			}
			return existing, nil
		}
		// 墓碑或失败文档: 清掉残留分块后重新走索引流程
		if err := s.store.Chunks().DeleteByDocument(ctx, existing.ID); err != nil {
			return nil, errors.ErrDatabase.WithCause(err)
		}
		existing.Content = req.Content
		existing.Title = req.Title
		existing.LastVerifiedAt = time.Now()
		if err := s.index(ctx, existing); err != nil {
			existing.Status = model.DocumentStatusFailed
			if uerr := s.store.Documents().Update(ctx, existing); uerr != nil {
				logger.Errorw("document status update failed", "document_id", existing.ID, "error", uerr.Error())
			}
			return nil, err
		}
		return existing, nil
	}

	doc := &model.Document{
		ID:             s.docID.New(),
		WorkspaceID:    workspaceID,
		VentureID:      req.VentureID,
		Title:          req.Title,
		Source:         req.Source,
		Content:        req.Content,
		Hash:           hash,
		Status:         model.DocumentStatusPending,
		LastVerifiedAt: time.Now(),
	}
	if err := s.store.Documents().Create(ctx, doc); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	if err := s.index(ctx, doc); err != nil {
		doc.Status = model.DocumentStatusFailed
		if uerr := s.store.Documents().Update(ctx, doc); uerr != nil {
			logger.Errorw("document status update failed", "document_id", doc.ID, "error", uerr.Error())
		}
		return nil, err
	}
	return doc, nil
}

// index splits, embeds and persists a document's chunks.
func (s *DocumentService) index(ctx context.Context, doc *model.Document) error {
	pieces := splitText(doc.Content, s.opts.ChunkSize, s.opts.ChunkOverlap)
	chunks := make([]*model.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = &model.Chunk{
			ID:         s.chunkID.New(),
			DocumentID: doc.ID,
			VentureID:  doc.VentureID,
			Seq:        i,
			Content:    p.text,
			StartPos:   p.start,
			EndPos:     p.end,
		}
	}

	if s.vectors != nil && s.embedder != nil && len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		embeddings, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return errors.ErrEmbeddingFailure.WithCause(err)
		}
		vecs := make([]milvus.ChunkVector, len(chunks))
		for i, c := range chunks {
			vecs[i] = milvus.ChunkVector{
				ChunkID:     c.ID,
				WorkspaceID: doc.WorkspaceID,
				VentureID:   doc.VentureID,
				Embedding:   embeddings[i],
			}
		}
		vectorIDs, err := s.vectors.InsertChunks(ctx, s.opts.Collection, vecs)
		if err != nil {
			return errors.ErrUpstreamFailure.WithCause(err)
		}
		for i, c := range chunks {
			c.VectorID = vectorIDs[i]
		}
	}

	if err := s.store.Chunks().CreateBatch(ctx, chunks); err != nil {
		return errors.ErrDatabase.WithCause(err)
	}

	doc.ChunkNum = len(chunks)
	doc.Status = model.DocumentStatusIndexed
	if err := s.store.Documents().Update(ctx, doc); err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	return nil
}

// Verify moves a document's freshness anchor forward without re-indexing.
func (s *DocumentService) Verify(ctx context.Context, workspaceID, documentID string) (*model.Document, error) {
	doc, err := s.store.Documents().Get(ctx, workspaceID, documentID)
	if err != nil {
		return nil, errors.ErrDocumentNotFound.WithCause(err)
	}
	doc.LastVerifiedAt = time.Now()
	if err := s.store.Documents().Update(ctx, doc); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return doc, nil
}

// Get returns one document.
func (s *DocumentService) Get(ctx context.Context, workspaceID, documentID string) (*model.Document, error) {
	doc, err := s.store.Documents().Get(ctx, workspaceID, documentID)
	if err != nil {
		return nil, errors.ErrDocumentNotFound.WithCause(err)
	}
	return doc, nil
}

// ListByVenture lists a venture's documents.
func (s *DocumentService) ListByVenture(ctx context.Context, workspaceID, ventureID string, offset, limit int) (int64, []*model.Document, error) {
	return s.store.Documents().ListByVenture(ctx, workspaceID, ventureID, offset, limit)
}

// Remove deletes a document's chunks from both stores. The document row
// is kept as a tombstone so ingest history stays auditable.
func (s *DocumentService) Remove(ctx context.Context, workspaceID, documentID string) error {
	doc, err := s.store.Documents().Get(ctx, workspaceID, documentID)
	if err != nil {
		return errors.ErrDocumentNotFound.WithCause(err)
	}

	if s.vectors != nil {
		chunks, err := s.store.Chunks().ListByVenture(ctx, doc.VentureID)
		if err != nil {
			return errors.ErrDatabase.WithCause(err)
		}
		ids := make([]string, 0, len(chunks))
		for _, c := range chunks {
			if c.DocumentID == doc.ID {
				ids = append(ids, c.ID)
			}
		}
		if len(ids) > 0 {
			if err := s.vectors.DeleteByChunkIDs(ctx, s.opts.Collection, ids); err != nil {
				logger.Warnw("vector delete failed", "document_id", doc.ID, "error", err.Error())
			}
		}
	}

	if err := s.store.Chunks().DeleteByDocument(ctx, doc.ID); err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	doc.ChunkNum = 0
	doc.Status = model.DocumentStatusRemoved
	if err := s.store.Documents().Update(ctx, doc); err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	return nil
}

type textPiece struct {
	text  string
	start int
	end   int
}

// splitText cuts content into overlapping windows, breaking on whitespace
// when one is near the window edge so words survive intact.
func splitText(content string, size, overlap int) []textPiece {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(content)
	var pieces []textPiece
	for start := 0; start < len(runes); {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		} else {
			// 向后找最近的空白, 避免把词切断
			for i := end; i > start+size/2; i-- {
				if isSpaceRune(runes[i-1]) {
					end = i
					break
				}
			}
		}

		text := strings.TrimSpace(string(runes[start:end]))
		if text != "" {
			pieces = append(pieces, textPiece{text: text, start: start, end: end})
		}

		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return pieces
}

func isSpaceRune(r rune) bool {
	if r == utf8.RuneError {
		return false
	}
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
