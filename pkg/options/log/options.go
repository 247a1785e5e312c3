// Package log provides logger configuration options.
package log

import (
	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
	"github.com/kart-io/logger/option"
	"github.com/spf13/pflag"

	"github.com/kart-io/advisor-x/pkg/options"
)

// Options wraps the logger option.LogOption.
type Options struct {
	*option.LogOption `json:",inline" mapstructure:",squash"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		LogOption: option.DefaultLogOption(),
	}
}

// Validate implements options.IOptions.
func (o *Options) Validate() []error {
	if err := o.LogOption.Validate(); err != nil {
		return []error{err}
	}
	return nil
}

// AddFlags implements options.IOptions.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Engine, options.FlagName("engine", prefixes...), o.Engine, "Logging engine (zap|slog).")
	fs.StringVar(&o.Level, options.FlagName("level", prefixes...), o.Level, "Log level (DEBUG|INFO|WARN|ERROR|FATAL).")
	fs.StringVar(&o.Format, options.FlagName("format", prefixes...), o.Format, "Log format (json|console).")
	fs.StringSliceVar(&o.OutputPaths, options.FlagName("output-paths", prefixes...), o.OutputPaths, "Output paths for logs.")
	fs.BoolVar(&o.Development, options.FlagName("development", prefixes...), o.Development, "Enable development mode.")
	fs.BoolVar(&o.DisableCaller, options.FlagName("disable-caller", prefixes...), o.DisableCaller, "Disable caller detection.")
	fs.BoolVar(&o.DisableStacktrace, options.FlagName("disable-stacktrace", prefixes...), o.DisableStacktrace, "Disable stacktrace capture.")
}

// CreateLogger creates a logger instance from the options.
func (o *Options) CreateLogger() (core.Logger, error) {
	return logger.New(o.LogOption)
}

// Init builds the logger and installs it as the global logger.
func (o *Options) Init() error {
	log, err := o.CreateLogger()
	if err != nil {
		return err
	}
	logger.SetGlobal(log)
	return nil
}
