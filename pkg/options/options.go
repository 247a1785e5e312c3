// Package options defines the contract every configurable component
// implements so the application bootstrap can validate configuration and
// register command line flags uniformly.
package options

import (
	"github.com/spf13/pflag"
)

// IOptions is implemented by each options section.
type IOptions interface {
	// Validate returns all configuration problems at once so the
	// operator can fix them in a single pass.
	Validate() []error

	// AddFlags registers the section's flags. prefixes, when given,
	// namespace the flag names, e.g. "brain" yields --brain.max-chunks.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Join concatenates validation errors from multiple sections.
func Join(optsList ...IOptions) []error {
	var errs []error
	for _, opts := range optsList {
		errs = append(errs, opts.Validate()...)
	}
	return errs
}

// FlagName joins prefixes and a flag name with dots.
func FlagName(name string, prefixes ...string) string {
	s := ""
	for _, p := range prefixes {
		if p != "" {
			s += p + "."
		}
	}
	return s + name
}
