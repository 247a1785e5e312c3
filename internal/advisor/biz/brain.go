package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/kart-io/logger"

	"github.com/kart-io/advisor-x/internal/advisor/store"
	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/cache"
	"github.com/kart-io/advisor-x/pkg/component/milvus"
	"github.com/kart-io/advisor-x/pkg/llm"
	brainopts "github.com/kart-io/advisor-x/pkg/options/brain"
)

// ScoredChunk is a chunk with its retrieval scores.
type ScoredChunk struct {
	Chunk      *model.Chunk `json:"chunk"`
	Similarity float64      `json:"similarity"`
	Freshness  float64      `json:"freshness"`
	FinalScore float64      `json:"final_score"`
}

// RetrievalResult is the ranked evidence for one query.
type RetrievalResult struct {
	Chunks    []ScoredChunk    `json:"chunks"`
	Entities  []*model.Entity  `json:"entities"`
	Citations []model.Citation `json:"citations"`
}

// BrainService ranks a venture's evidence against a query. It reads
// chunks, documents and entities but never mutates entity state; its only
// write is access telemetry.
//
// 向量索引与查询缓存都是可选的: 没有 Milvus 时退化为词法打分,
// 没有缓存时每次查询都重新计算。
type BrainService struct {
	store    store.Factory
	embedder llm.EmbeddingProvider // nil when vector search is disabled
	vectors  *milvus.Client        // nil when vector search is disabled
	opts     *brainopts.Options

	queryCache cache.Cache[string, []byte]  // nil disables caching
	telemetry  *cache.Memory[string, int64] // chunk id -> access count
}

// NewBrainService creates a BrainService. embedder and vectors may be nil,
// queryCache may be nil.
func NewBrainService(factory store.Factory, embedder llm.EmbeddingProvider, vectors *milvus.Client, queryCache cache.Cache[string, []byte], opts *brainopts.Options) *BrainService {
	return &BrainService{
		store:      factory,
		embedder:   embedder,
		vectors:    vectors,
		opts:       opts,
		queryCache: queryCache,
		telemetry:  cache.NewMemory[string, int64](cache.WithMaxSize(65536)),
	}
}

// Query returns ranked chunks and entities for a query. An empty corpus
// yields empty lists, not an error.
func (s *BrainService) Query(ctx context.Context, workspaceID, ventureID, query string, entityTypes []string, maxChunks int) (*RetrievalResult, error) {
	if maxChunks <= 0 || maxChunks > s.opts.MaxChunks {
		maxChunks = s.opts.MaxChunks
	}

	cacheKey := s.cacheKey(ventureID, query, entityTypes, maxChunks)
	if s.queryCache != nil && s.opts.QueryCacheTTL > 0 {
		if data, ok := s.queryCache.Get(ctx, cacheKey); ok {
			var cached RetrievalResult
			if err := sonic.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	chunks, err := s.rankChunks(ctx, workspaceID, ventureID, query, maxChunks)
	if err != nil {
		return nil, err
	}

	entities, err := s.rankEntities(ctx, workspaceID, ventureID, entityTypes)
	if err != nil {
		return nil, err
	}

	result := &RetrievalResult{
		Chunks:    chunks,
		Entities:  entities,
		Citations: buildCitations(chunks, entities),
	}

	s.recordAccess(ctx, chunks)

	if s.queryCache != nil && s.opts.QueryCacheTTL > 0 {
		if data, err := sonic.Marshal(result); err == nil {
			s.queryCache.Set(ctx, cacheKey, data, s.opts.QueryCacheTTL)
		}
	}
	return result, nil
}

// rankChunks scores all of a venture's chunks and returns the top slice.
func (s *BrainService) rankChunks(ctx context.Context, workspaceID, ventureID, query string, maxChunks int) ([]ScoredChunk, error) {
	similarities, chunks, err := s.similarities(ctx, workspaceID, ventureID, query)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []ScoredChunk{}, nil
	}

	// 文档的 last_verified_at 决定新鲜度
	docIDs := make([]string, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.DocumentID]; !ok {
			seen[c.DocumentID] = struct{}{}
			docIDs = append(docIDs, c.DocumentID)
		}
	}
	docs, err := s.store.Documents().GetByIDs(ctx, docIDs)
	if err != nil {
		return nil, err
	}
	docByID := make(map[string]*model.Document, len(docs))
	for _, d := range docs {
		docByID[d.ID] = d
	}

	now := time.Now()
	scored := make([]ScoredChunk, 0, len(chunks))
	for i, c := range chunks {
		sim := similarities[i]
		if sim < s.opts.MinSimilarity {
			continue
		}
		freshness := 1.0
		if doc, ok := docByID[c.DocumentID]; ok {
			freshness = s.freshness(now, doc.LastVerifiedAt)
		}
		w := s.opts.FreshnessWeight
		scored = append(scored, ScoredChunk{
			Chunk:      c,
			Similarity: sim,
			Freshness:  freshness,
			FinalScore: sim*(1-w) + freshness*w,
		})
	}

	// 排序: final_score 降序; 平分时按文档新鲜度再按块序号, 保证确定性
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].FinalScore != scored[j].FinalScore {
			return scored[i].FinalScore > scored[j].FinalScore
		}
		di, dj := docByID[scored[i].Chunk.DocumentID], docByID[scored[j].Chunk.DocumentID]
		if di != nil && dj != nil && !di.LastVerifiedAt.Equal(dj.LastVerifiedAt) {
			return di.LastVerifiedAt.After(dj.LastVerifiedAt)
		}
		if scored[i].Chunk.DocumentID != scored[j].Chunk.DocumentID {
			return scored[i].Chunk.DocumentID < scored[j].Chunk.DocumentID
		}
		return scored[i].Chunk.Seq < scored[j].Chunk.Seq
	})

	if len(scored) > maxChunks {
		scored = scored[:maxChunks]
	}
	return scored, nil
}

// similarities returns per-chunk similarity scores aligned with the
// returned chunk slice, via the vector index when available and lexical
// overlap otherwise.
func (s *BrainService) similarities(ctx context.Context, workspaceID, ventureID, query string) ([]float64, []*model.Chunk, error) {
	if s.vectors != nil && s.embedder != nil {
		vector, err := s.embedder.EmbedSingle(ctx, query)
		if err != nil {
			logger.Warnw("embedding failed, falling back to lexical scoring", "error", err.Error())
		} else {
			// 取一个富余量, 过滤与截断在上层做
			hits, err := s.vectors.SearchChunks(ctx, s.opts.Collection, vector, s.opts.MaxChunks*4, workspaceID, ventureID)
			if err != nil {
				logger.Warnw("vector search failed, falling back to lexical scoring", "error", err.Error())
			} else {
				ids := make([]string, len(hits))
				simByID := make(map[string]float64, len(hits))
				for i, h := range hits {
					ids[i] = h.ChunkID
					simByID[h.ChunkID] = float64(h.Score)
				}
				chunks, err := s.store.Chunks().GetByIDs(ctx, ids)
				if err != nil {
					return nil, nil, err
				}
				sims := make([]float64, len(chunks))
				for i, c := range chunks {
					sims[i] = simByID[c.ID]
				}
				return sims, chunks, nil
			}
		}
	}

	chunks, err := s.store.Chunks().ListByVenture(ctx, ventureID)
	if err != nil {
		return nil, nil, err
	}
	queryTokens := tokenize(query)
	sims := make([]float64, len(chunks))
	for i, c := range chunks {
		sims[i] = lexicalSimilarity(queryTokens, c.Content)
	}
	return sims, chunks, nil
}

// freshness decays exponentially with the document's age since last
// verification: 1.0 when just verified, 0.5 after one half-life.
func (s *BrainService) freshness(now time.Time, lastVerified time.Time) float64 {
	if lastVerified.IsZero() || !lastVerified.Before(now) {
		return 1.0
	}
	age := now.Sub(lastVerified)
	return math.Exp(-math.Ln2 * float64(age) / float64(s.opts.FreshnessHalfLife))
}

// rankEntities returns the venture's entities filtered by type and sorted
// by status trust then confidence.
func (s *BrainService) rankEntities(ctx context.Context, workspaceID, ventureID string, entityTypes []string) ([]*model.Entity, error) {
	entities, err := s.store.Entities().ListByVenture(ctx, workspaceID, ventureID)
	if err != nil {
		return nil, err
	}

	if len(entityTypes) > 0 {
		wanted := make(map[string]struct{}, len(entityTypes))
		for _, t := range entityTypes {
			wanted[t] = struct{}{}
		}
		filtered := entities[:0]
		for _, e := range entities {
			if _, ok := wanted[e.Type]; ok {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}

	sort.SliceStable(entities, func(i, j int) bool {
		ri, rj := model.EntityStatusRank(entities[i].Status), model.EntityStatusRank(entities[j].Status)
		if ri != rj {
			return ri > rj
		}
		return entities[i].Confidence > entities[j].Confidence
	})

	if len(entities) > s.opts.MaxEntities {
		entities = entities[:s.opts.MaxEntities]
	}
	return entities, nil
}

func buildCitations(chunks []ScoredChunk, entities []*model.Entity) []model.Citation {
	citations := make([]model.Citation, 0, len(chunks)+len(entities))
	for _, sc := range chunks {
		citations = append(citations, model.Citation{
			ChunkID:    sc.Chunk.ID,
			DocumentID: sc.Chunk.DocumentID,
			Score:      sc.FinalScore,
		})
	}
	for _, e := range entities {
		citations = append(citations, model.Citation{
			EntityID: e.ID,
			Title:    e.Name,
			Score:    e.Confidence,
		})
	}
	return citations
}

// recordAccess bumps in-process access counters; advisory only.
func (s *BrainService) recordAccess(ctx context.Context, chunks []ScoredChunk) {
	for _, sc := range chunks {
		n, _ := s.telemetry.Get(ctx, sc.Chunk.ID)
		s.telemetry.Set(ctx, sc.Chunk.ID, n+1, 0)
	}
}

// AccessCount returns how many times a chunk was served since startup.
func (s *BrainService) AccessCount(chunkID string) int64 {
	n, _ := s.telemetry.Get(context.Background(), chunkID)
	return n
}

func (s *BrainService) cacheKey(ventureID, query string, entityTypes []string, maxChunks int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", ventureID, query, strings.Join(entityTypes, ","), maxChunks)))
	return hex.EncodeToString(h[:])
}

// lexicalSimilarity is a token-overlap score in [0, 1]: the fraction of
// query tokens present in the content, dampened by content length.
func lexicalSimilarity(queryTokens map[string]int, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	contentTokens := tokenize(content)
	matched := 0
	for tok := range queryTokens {
		if _, ok := contentTokens[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}
