package app

import (
	"github.com/kart-io/advisor-x/pkg/app/cliflag"
)

// CliOptions is the interface application-level options implement to be
// used with App.
type CliOptions interface {
	// Flags returns the named flag sets for the command line.
	Flags() cliflag.NamedFlagSets
	// Validate validates the options.
	Validate() error
	// Complete completes the options with defaults.
	Complete() error
}
