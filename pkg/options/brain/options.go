// Package brain provides retrieval engine configuration options.
package brain

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/advisor-x/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains retrieval engine configuration.
type Options struct {
	// MaxChunks 单次检索返回的最大分块数。
	MaxChunks int `json:"max-chunks" mapstructure:"max-chunks"`

	// MaxEntities 单次检索返回的最大实体数。
	MaxEntities int `json:"max-entities" mapstructure:"max-entities"`

	// MinSimilarity 相似度下限，低于该值的分块被丢弃。
	MinSimilarity float64 `json:"min-similarity" mapstructure:"min-similarity"`

	// FreshnessWeight 新鲜度在综合评分中的权重, 0 表示仅按相似度。
	FreshnessWeight float64 `json:"freshness-weight" mapstructure:"freshness-weight"`

	// FreshnessHalfLife 新鲜度衰减半衰期。
	FreshnessHalfLife time.Duration `json:"freshness-half-life" mapstructure:"freshness-half-life"`

	// ChunkSize 文档切分的分块大小（字符）。
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap 相邻分块的重叠（字符）。
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// Collection Milvus 集合名。
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingDim 向量维度。
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// QueryCacheTTL 查询结果缓存时长, 0 关闭缓存。
	QueryCacheTTL time.Duration `json:"query-cache-ttl" mapstructure:"query-cache-ttl"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		MaxChunks:         8,
		MaxEntities:       12,
		MinSimilarity:     0.25,
		FreshnessWeight:   0.2,
		FreshnessHalfLife: 30 * 24 * time.Hour,
		ChunkSize:         512,
		ChunkOverlap:      50,
		Collection:        "advisor_chunks",
		EmbeddingDim:      768, // nomic-embed-text dimension
		QueryCacheTTL:     0,
	}
}

// AddFlags implements options.IOptions.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.MaxChunks, options.FlagName("max-chunks", prefixes...), o.MaxChunks, "Maximum chunks returned per retrieval.")
	fs.IntVar(&o.MaxEntities, options.FlagName("max-entities", prefixes...), o.MaxEntities, "Maximum entities returned per retrieval.")
	fs.Float64Var(&o.MinSimilarity, options.FlagName("min-similarity", prefixes...), o.MinSimilarity, "Similarity floor below which chunks are dropped.")
	fs.Float64Var(&o.FreshnessWeight, options.FlagName("freshness-weight", prefixes...), o.FreshnessWeight, "Weight of freshness in the blended score, 0..1.")
	fs.DurationVar(&o.FreshnessHalfLife, options.FlagName("freshness-half-life", prefixes...), o.FreshnessHalfLife, "Half-life of the freshness decay.")
	fs.IntVar(&o.ChunkSize, options.FlagName("chunk-size", prefixes...), o.ChunkSize, "Size of text chunks in characters.")
	fs.IntVar(&o.ChunkOverlap, options.FlagName("chunk-overlap", prefixes...), o.ChunkOverlap, "Overlap between adjacent chunks.")
	fs.StringVar(&o.Collection, options.FlagName("collection", prefixes...), o.Collection, "Milvus collection name.")
	fs.IntVar(&o.EmbeddingDim, options.FlagName("embedding-dim", prefixes...), o.EmbeddingDim, "Embedding vector dimension.")
	fs.DurationVar(&o.QueryCacheTTL, options.FlagName("query-cache-ttl", prefixes...), o.QueryCacheTTL, "TTL for cached retrieval results, 0 disables the cache.")
}

// Validate implements options.IOptions.
func (o *Options) Validate() []error {
	var errs []error
	if o.MaxChunks <= 0 {
		errs = append(errs, fmt.Errorf("max-chunks must be positive"))
	}
	if o.MaxEntities < 0 {
		errs = append(errs, fmt.Errorf("max-entities must not be negative"))
	}
	if o.MinSimilarity < 0 || o.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("min-similarity must be within [0, 1]"))
	}
	if o.FreshnessWeight < 0 || o.FreshnessWeight > 1 {
		errs = append(errs, fmt.Errorf("freshness-weight must be within [0, 1]"))
	}
	if o.FreshnessHalfLife <= 0 {
		errs = append(errs, fmt.Errorf("freshness-half-life must be positive"))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk-overlap must be within [0, chunk-size)"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	return errs
}
