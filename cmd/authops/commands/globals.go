package commands

import "github.com/systmms/authops/internal/logging"

// Globals carries the state shared by every subcommand, populated from the
// root command's persistent flags before any RunE fires.
type Globals struct {
	// ConfigFile is the provider settings file path.
	ConfigFile string

	// ConfigExplicit is true when --config was passed, making a missing
	// file an error instead of a silent default.
	ConfigExplicit bool

	// Debug mirrors the --debug flag for components that take it directly.
	Debug bool

	// Logger is the shared stderr logger.
	Logger *logging.Logger
}
