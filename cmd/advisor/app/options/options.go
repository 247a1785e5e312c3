// Package options contains flags and options for initializing the advisor
// server.
package options

import (
	stderrors "errors"
	"fmt"

	advisor "github.com/kart-io/advisor-x/internal/advisor"
	cliflag "github.com/kart-io/advisor-x/pkg/app/cliflag"
	"github.com/kart-io/advisor-x/pkg/options"
	brainopts "github.com/kart-io/advisor-x/pkg/options/brain"
	dbopts "github.com/kart-io/advisor-x/pkg/options/database"
	httpopts "github.com/kart-io/advisor-x/pkg/options/http"
	knowledgeopts "github.com/kart-io/advisor-x/pkg/options/knowledge"
	llmopts "github.com/kart-io/advisor-x/pkg/options/llm"
	logopts "github.com/kart-io/advisor-x/pkg/options/log"
	milvusopts "github.com/kart-io/advisor-x/pkg/options/milvus"
	redisopts "github.com/kart-io/advisor-x/pkg/options/redis"
	routingopts "github.com/kart-io/advisor-x/pkg/options/routing"
)

// ServerOptions contains the configuration options for the advisor server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// DatabaseOptions contains relational storage configuration.
	DatabaseOptions *dbopts.Options `json:"database" mapstructure:"database"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// BrainOptions contains retrieval engine configuration.
	BrainOptions *brainopts.Options `json:"brain" mapstructure:"brain"`

	// RoutingOptions contains router configuration.
	RoutingOptions *routingopts.Options `json:"routing" mapstructure:"routing"`

	// KnowledgeOptions contains knowledge graph lifecycle configuration.
	KnowledgeOptions *knowledgeopts.Options `json:"knowledge" mapstructure:"knowledge"`

	// RedisOptions contains the optional query cache configuration.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// MilvusOptions contains the optional vector index configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		DatabaseOptions:  dbopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		BrainOptions:     brainopts.NewOptions(),
		RoutingOptions:   routingopts.NewOptions(),
		KnowledgeOptions: knowledgeopts.NewOptions(),
		RedisOptions:     redisopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.DatabaseOptions.AddFlags(fss.FlagSet("database"), "database.")
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding.")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat.")
	o.BrainOptions.AddFlags(fss.FlagSet("brain"), "brain.")
	o.RoutingOptions.AddFlags(fss.FlagSet("routing"), "routing.")
	o.KnowledgeOptions.AddFlags(fss.FlagSet("knowledge"), "knowledge.")
	o.RedisOptions.AddFlags(fss.FlagSet("redis"), "redis.")
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"), "milvus.")
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := options.Join(
		o.HTTPOptions,
		o.LogOptions,
		o.DatabaseOptions,
		o.EmbeddingOptions,
		o.ChatOptions,
		o.BrainOptions,
		o.RoutingOptions,
		o.KnowledgeOptions,
		o.RedisOptions,
		o.MilvusOptions,
	)
	return stderrors.Join(errs...)
}

// Config builds an advisor.Config based on ServerOptions.
func (o *ServerOptions) Config() (*advisor.Config, error) {
	return &advisor.Config{
		HTTP:      o.HTTPOptions,
		Log:       o.LogOptions,
		Database:  o.DatabaseOptions,
		Embedding: o.EmbeddingOptions,
		Chat:      o.ChatOptions,
		Brain:     o.BrainOptions,
		Routing:   o.RoutingOptions,
		Knowledge: o.KnowledgeOptions,
		Redis:     o.RedisOptions,
		Milvus:    o.MilvusOptions,
	}, nil
}
