// Package routing provides agent routing configuration options.
package routing

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/advisor-x/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains routing configuration.
type Options struct {
	// MinScoreFloor 最低可路由得分, 低于该值回退到通用智能体。
	MinScoreFloor float64 `json:"min-score-floor" mapstructure:"min-score-floor"`

	// AmbiguityMargin 头两名得分差小于该值时判定为模糊路由。
	AmbiguityMargin float64 `json:"ambiguity-margin" mapstructure:"ambiguity-margin"`

	// FallbackAgent 回退智能体 ID。
	FallbackAgent string `json:"fallback-agent" mapstructure:"fallback-agent"`

	// TurnTimeout 单轮对话的总超时时间。
	TurnTimeout time.Duration `json:"turn-timeout" mapstructure:"turn-timeout"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		MinScoreFloor:   0.15,
		AmbiguityMargin: 0.1,
		FallbackAgent:   "generalist",
		TurnTimeout:     5 * time.Minute,
	}
}

// AddFlags implements options.IOptions.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.Float64Var(&o.MinScoreFloor, options.FlagName("min-score-floor", prefixes...), o.MinScoreFloor, "Score floor below which routing falls back to the generalist.")
	fs.Float64Var(&o.AmbiguityMargin, options.FlagName("ambiguity-margin", prefixes...), o.AmbiguityMargin, "Top-two score margin below which routing confidence degrades.")
	fs.StringVar(&o.FallbackAgent, options.FlagName("fallback-agent", prefixes...), o.FallbackAgent, "Agent used when no specialist scores above the floor.")
	fs.DurationVar(&o.TurnTimeout, options.FlagName("turn-timeout", prefixes...), o.TurnTimeout, "Overall timeout for a single chat turn.")
}

// Validate implements options.IOptions.
func (o *Options) Validate() []error {
	var errs []error
	if o.MinScoreFloor < 0 {
		errs = append(errs, fmt.Errorf("min-score-floor must not be negative"))
	}
	if o.AmbiguityMargin < 0 {
		errs = append(errs, fmt.Errorf("ambiguity-margin must not be negative"))
	}
	if o.FallbackAgent == "" {
		errs = append(errs, fmt.Errorf("fallback-agent is required"))
	}
	if o.TurnTimeout <= 0 {
		errs = append(errs, fmt.Errorf("turn-timeout must be positive"))
	}
	return errs
}
