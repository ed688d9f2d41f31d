package app

import "github.com/kart-io/bookrag/pkg/app/cliflag"

// CliOptions abstracts configuration options for reading parameters from the
// command line.
type CliOptions interface {
	// Flags returns the flag sets grouped by section.
	Flags() cliflag.NamedFlagSets
	// Complete fills in derived values after flags and config are loaded.
	Complete() error
	// Validate validates the options.
	Validate() error
}
