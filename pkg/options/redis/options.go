// Package redis provides Redis client configuration options.
package redis

import (
	"fmt"
	"os"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/kart-io/advisor-x/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options defines configuration options for Redis. Redis is optional: the
// retrieval query cache falls back to in-process memory when disabled.
type Options struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	Host         string        `json:"host" mapstructure:"host"`
	Port         int           `json:"port" mapstructure:"port"`
	Password     string        `json:"-" mapstructure:"password"` // excluded from JSON serialization
	Database     int           `json:"database" mapstructure:"database"`
	MaxRetries   int           `json:"max-retries" mapstructure:"max-retries"`
	PoolSize     int           `json:"pool-size" mapstructure:"pool-size"`
	MinIdleConns int           `json:"min-idle-conns" mapstructure:"min-idle-conns"`
	DialTimeout  time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`
	ReadTimeout  time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Enabled:      false,
		Host:         "127.0.0.1",
		Port:         6379,
		Database:     0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// String returns a representation safe for logging.
func (o *Options) String() string {
	password := "[REDACTED]"
	if o.Password == "" {
		password = ""
	}
	return fmt.Sprintf("Redis{enabled=%t, host=%s, port=%d, password=%s, database=%d}",
		o.Enabled, o.Host, o.Port, password, o.Database)
}

// AddFlags implements options.IOptions.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, options.FlagName("enabled", prefixes...), o.Enabled, "Enable the Redis-backed query cache.")
	fs.StringVar(&o.Host, options.FlagName("host", prefixes...), o.Host, "Redis host.")
	fs.IntVar(&o.Port, options.FlagName("port", prefixes...), o.Port, "Redis port.")
	fs.StringVar(&o.Password, options.FlagName("password", prefixes...), o.Password, "Redis password (prefer REDIS_PASSWORD env var).")
	fs.IntVar(&o.Database, options.FlagName("database", prefixes...), o.Database, "Redis database index.")
	fs.IntVar(&o.MaxRetries, options.FlagName("max-retries", prefixes...), o.MaxRetries, "Max retries per command.")
	fs.IntVar(&o.PoolSize, options.FlagName("pool-size", prefixes...), o.PoolSize, "Connection pool size.")
	fs.IntVar(&o.MinIdleConns, options.FlagName("min-idle-conns", prefixes...), o.MinIdleConns, "Minimum idle connections.")
	fs.DurationVar(&o.DialTimeout, options.FlagName("dial-timeout", prefixes...), o.DialTimeout, "Dial timeout.")
	fs.DurationVar(&o.ReadTimeout, options.FlagName("read-timeout", prefixes...), o.ReadTimeout, "Read timeout.")
	fs.DurationVar(&o.WriteTimeout, options.FlagName("write-timeout", prefixes...), o.WriteTimeout, "Write timeout.")
}

// Validate implements options.IOptions.
func (o *Options) Validate() []error {
	if !o.Enabled {
		return nil
	}
	if o.Password == "" {
		o.Password = os.Getenv("REDIS_PASSWORD")
	}

	var errs []error
	if o.Host == "" {
		errs = append(errs, fmt.Errorf("redis host is required"))
	}
	if o.Port < 1 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid redis port %d", o.Port))
	}
	if o.Database < 0 {
		errs = append(errs, fmt.Errorf("redis database must not be negative"))
	}
	return errs
}

// NewClient builds a Redis client from the options.
func (o *Options) NewClient() *redisv9.Client {
	return redisv9.NewClient(&redisv9.Options{
		Addr:         fmt.Sprintf("%s:%d", o.Host, o.Port),
		Password:     o.Password,
		DB:           o.Database,
		MaxRetries:   o.MaxRetries,
		PoolSize:     o.PoolSize,
		MinIdleConns: o.MinIdleConns,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
	})
}
