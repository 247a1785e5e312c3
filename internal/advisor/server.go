// Package advisor assembles the advisory decision core service.
package advisor

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/advisor-x/internal/advisor/agent"
	"github.com/kart-io/advisor-x/internal/advisor/biz"
	"github.com/kart-io/advisor-x/internal/advisor/handler"
	"github.com/kart-io/advisor-x/internal/advisor/router"
	"github.com/kart-io/advisor-x/internal/advisor/store"
	"github.com/kart-io/advisor-x/pkg/cache"
	"github.com/kart-io/advisor-x/pkg/component/milvus"
	"github.com/kart-io/advisor-x/pkg/llm"
	brainopts "github.com/kart-io/advisor-x/pkg/options/brain"
	dbopts "github.com/kart-io/advisor-x/pkg/options/database"
	httpopts "github.com/kart-io/advisor-x/pkg/options/http"
	knowledgeopts "github.com/kart-io/advisor-x/pkg/options/knowledge"
	llmopts "github.com/kart-io/advisor-x/pkg/options/llm"
	logopts "github.com/kart-io/advisor-x/pkg/options/log"
	milvusopts "github.com/kart-io/advisor-x/pkg/options/milvus"
	redisopts "github.com/kart-io/advisor-x/pkg/options/redis"
	routingopts "github.com/kart-io/advisor-x/pkg/options/routing"
	"github.com/kart-io/advisor-x/pkg/server"

	// 注册 LLM 供应商工厂
	_ "github.com/kart-io/advisor-x/pkg/llm/ollama"
	_ "github.com/kart-io/advisor-x/pkg/llm/openai"
)

// Config is the complete runtime configuration of the advisor service.
type Config struct {
	HTTP      *httpopts.Options
	Log       *logopts.Options
	Database  *dbopts.Options
	Embedding *llmopts.ProviderOptions
	Chat      *llmopts.ProviderOptions
	Brain     *brainopts.Options
	Routing   *routingopts.Options
	Knowledge *knowledgeopts.Options
	Redis     *redisopts.Options
	Milvus    *milvusopts.Options
}

// Server is the assembled advisor service.
type Server struct {
	cfg       *Config
	http      *server.HTTPServer
	store     store.Factory
	knowledge *biz.KnowledgeService
}

// NewServer wires the service from its configuration.
func NewServer(cfg *Config) (*Server, error) {
	// 1. 初始化日志
	if err := cfg.Log.Init(); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	// 2. 打开数据库并迁移
	db, err := cfg.Database.NewDB()
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	factory := store.NewFactory(db)
	if err := factory.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	// 3. LLM 供应商: embedding 带缓存, chat 必须支持流式
	embedder, err := llm.NewEmbeddingProvider(cfg.Embedding.Provider, cfg.Embedding.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("创建 Embedding 供应商失败: %w", err)
	}
	cachedEmbedder := llm.NewCachedEmbeddingProvider(embedder, llm.DefaultEmbeddingCacheConfig())

	chatProvider, err := llm.NewChatProvider(cfg.Chat.Provider, cfg.Chat.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("创建 Chat 供应商失败: %w", err)
	}
	streamProvider, ok := chatProvider.(llm.StreamProvider)
	if !ok {
		return nil, fmt.Errorf("供应商 %s 不支持流式输出", cfg.Chat.Provider)
	}

	// 4. 可选组件: Milvus 向量索引与 Redis 查询缓存
	var vectors *milvus.Client
	if cfg.Milvus != nil && cfg.Milvus.Enabled {
		vectors, err = milvus.New(cfg.Milvus)
		if err != nil {
			return nil, fmt.Errorf("连接 Milvus 失败: %w", err)
		}
		if err := vectors.EnsureChunkCollection(context.Background(), cfg.Brain.Collection, cfg.Brain.EmbeddingDim); err != nil {
			return nil, fmt.Errorf("初始化向量集合失败: %w", err)
		}
		logger.Infow("vector index enabled", "address", cfg.Milvus.Address, "collection", cfg.Brain.Collection)
	}

	var queryCache cache.Cache[string, []byte]
	if cfg.Redis != nil && cfg.Redis.Enabled {
		queryCache = cache.NewRedis(cfg.Redis.NewClient(), "advisor:query:")
		logger.Infow("redis query cache enabled")
	}

	// 5. 业务服务
	registry := agent.NewDefaultRegistry()
	routerSvc := biz.NewRouterService(registry, cfg.Routing)
	brain := biz.NewBrainService(factory, cachedEmbedder, vectors, queryCache, cfg.Brain)
	knowledge, err := biz.NewKnowledgeService(factory, cfg.Knowledge)
	if err != nil {
		return nil, err
	}
	artifacts := biz.NewArtifactService(factory)
	chat := biz.NewChatService(factory, routerSvc, brain, knowledge, artifacts, registry, streamProvider, cfg.Routing)
	ventures := biz.NewVentureService(factory)
	documents := biz.NewDocumentService(factory, cachedEmbedder, vectors, cfg.Brain)

	// 6. HTTP 服务与路由
	httpServer := server.New(cfg.HTTP)
	router.Register(httpServer.Engine(), &router.Handlers{
		Chat:      handler.NewChatHandler(chat),
		Retrieval: handler.NewRetrievalHandler(brain),
		Knowledge: handler.NewKnowledgeHandler(knowledge),
		Venture:   handler.NewVentureHandler(ventures),
		Document:  handler.NewDocumentHandler(documents),
		Artifact:  handler.NewArtifactHandler(artifacts),
	})

	return &Server{
		cfg:       cfg,
		http:      httpServer,
		store:     factory,
		knowledge: knowledge,
	}, nil
}

// Run serves until the context is cancelled, then shuts down cleanly.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		s.knowledge.Close()
		if err := s.store.Close(); err != nil {
			logger.Errorw("store close failed", "error", err.Error())
		}
	}()
	return s.http.Run(ctx)
}
