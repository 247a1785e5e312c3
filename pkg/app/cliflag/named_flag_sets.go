// Package cliflag groups pflag FlagSets by section so help output stays
// readable as the option surface grows.
package cliflag

import (
	"github.com/spf13/pflag"
)

// NamedFlagSets stores named flag sets in the order they were created.
type NamedFlagSets struct {
	// Order is the order in which flag sets were added.
	Order []string

	// FlagSets maps a name to its flag set.
	FlagSets map[string]*pflag.FlagSet
}

// FlagSet returns the flag set for the given name, creating it on first use.
func (nfs *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if nfs.FlagSets == nil {
		nfs.FlagSets = map[string]*pflag.FlagSet{}
	}
	if _, ok := nfs.FlagSets[name]; !ok {
		nfs.FlagSets[name] = pflag.NewFlagSet(name, pflag.ExitOnError)
		nfs.Order = append(nfs.Order, name)
	}
	return nfs.FlagSets[name]
}
