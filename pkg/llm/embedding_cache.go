package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/advisor-x/pkg/cache"
)

// EmbeddingCacheConfig Embedding 缓存配置。
type EmbeddingCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// MaxEntries 缓存条目上限。
	MaxEntries int
}

// DefaultEmbeddingCacheConfig 返回默认的 Embedding 缓存配置。
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		Enabled:    true,
		TTL:        24 * time.Hour, // Embedding 结果相对稳定，可以缓存更长时间
		MaxEntries: 4096,
	}
}

// CachedEmbeddingProvider 提供 Embedding 缓存功能的包装器。
// 同一段文本的向量只计算一次。
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	cache    cache.Cache[string, []float32]
	config   *EmbeddingCacheConfig
}

// NewCachedEmbeddingProvider 创建带缓存的 Embedding Provider。
func NewCachedEmbeddingProvider(provider EmbeddingProvider, config *EmbeddingCacheConfig) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	return &CachedEmbeddingProvider{
		provider: provider,
		cache:    cache.NewMemory[string, []float32](cache.WithMaxSize(config.MaxEntries)),
		config:   config,
	}
}

// cacheKey 基于文本生成缓存键（使用 SHA256 哈希）。
func cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// EmbedSingle 生成单个文本的 Embedding（带缓存）。
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if !c.config.Enabled {
		return c.provider.EmbedSingle(ctx, text)
	}

	key := cacheKey(text)
	if v, ok := c.cache.Get(ctx, key); ok {
		logger.Debugw("embedding cache hit", "text_length", len(text))
		return v, nil
	}

	embedding, err := c.provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, embedding, c.config.TTL)
	return embedding, nil
}

// Embed 生成多个文本的 Embedding，只为未命中的文本调用底层 provider。
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.config.Enabled {
		return c.provider.Embed(ctx, texts)
	}

	results := make([][]float32, len(texts))
	var (
		missTexts   []string
		missIndexes []int
	)
	for i, text := range texts {
		if v, ok := c.cache.Get(ctx, cacheKey(text)); ok {
			results[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	embeddings, err := c.provider.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIndexes {
		results[idx] = embeddings[j]
		c.cache.Set(ctx, cacheKey(missTexts[j]), embeddings[j], c.config.TTL)
	}
	return results, nil
}

// Name 返回底层供应商名称。
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name()
}
