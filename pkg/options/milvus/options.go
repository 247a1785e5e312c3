// Package milvusopts provides options for Milvus client configuration.
package milvusopts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/advisor-x/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Milvus client configuration. Milvus is optional: the
// retrieval engine degrades to lexical scoring when it is disabled.
type Options struct {
	// Enabled toggles the vector index.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Address is the Milvus server address (host:port).
	Address string `json:"address" mapstructure:"address"`

	// Database is the database name to use.
	Database string `json:"database" mapstructure:"database"`

	// Username for authentication.
	Username string `json:"username" mapstructure:"username"`

	// Password for authentication.
	Password string `json:"password" mapstructure:"password"`

	// Timeout for connection and operations.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Enabled:  false,
		Address:  "localhost:19530",
		Database: "default",
		Timeout:  30 * time.Second,
	}
}

// AddFlags implements options.IOptions.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, options.FlagName("enabled", prefixes...), o.Enabled, "Enable the Milvus vector index.")
	fs.StringVar(&o.Address, options.FlagName("address", prefixes...), o.Address, "Milvus server address (host:port).")
	fs.StringVar(&o.Database, options.FlagName("database", prefixes...), o.Database, "Milvus database name.")
	fs.StringVar(&o.Username, options.FlagName("username", prefixes...), o.Username, "Milvus username for authentication.")
	fs.StringVar(&o.Password, options.FlagName("password", prefixes...), o.Password, "Milvus password for authentication.")
	fs.DurationVar(&o.Timeout, options.FlagName("timeout", prefixes...), o.Timeout, "Connection and operation timeout.")
}

// Validate implements options.IOptions.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.Address == "" {
		errs = append(errs, fmt.Errorf("milvus address is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("milvus timeout must be positive"))
	}
	return errs
}
