// Package http provides HTTP server options.
package http

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/advisor-x/pkg/options"
)

// Options holds HTTP server configuration.
type Options struct {
	Addr            string        `json:"addr" mapstructure:"addr"`
	Mode            string        `json:"mode" mapstructure:"mode"`
	ReadTimeout     time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewOptions returns default HTTP options.
func NewOptions() *Options {
	return &Options{
		Addr:            "0.0.0.0:8480",
		Mode:            "release",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    0, // streaming endpoints manage their own deadlines
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate implements options.IOptions.
func (o *Options) Validate() []error {
	var errs []error

	host, portStr, err := net.SplitHostPort(o.Addr)
	if err != nil {
		return append(errs, fmt.Errorf("invalid http addr %q: %w", o.Addr, err))
	}
	_ = host
	if port, err := strconv.Atoi(portStr); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid http port %q", portStr))
	}

	switch o.Mode {
	case "debug", "test", "release":
	default:
		errs = append(errs, fmt.Errorf("invalid http mode %q, must be one of debug, test, release", o.Mode))
	}
	return errs
}

// AddFlags implements options.IOptions.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, options.FlagName("addr", prefixes...), o.Addr, "HTTP listen address, host:port.")
	fs.StringVar(&o.Mode, options.FlagName("mode", prefixes...), o.Mode, "Gin mode: debug, test or release.")
	fs.DurationVar(&o.ReadTimeout, options.FlagName("read-timeout", prefixes...), o.ReadTimeout, "Max duration for reading a request.")
	fs.DurationVar(&o.WriteTimeout, options.FlagName("write-timeout", prefixes...), o.WriteTimeout, "Max duration for writing a response, 0 disables it.")
	fs.DurationVar(&o.ShutdownTimeout, options.FlagName("shutdown-timeout", prefixes...), o.ShutdownTimeout, "Grace period for in-flight requests on shutdown.")
}
