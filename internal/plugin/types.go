package plugin

import (
	"fmt"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
)

// Record is the registration state of one controller.
type Record struct {
	// ID is the registration key and the name of the controllers.<id> config section.
	ID string
	// Handle names the provider the controller was built from.
	Handle string
	// Source is the manifest path, or "builtin".
	Source string
	// Controller is nil for config-only records.
	Controller Controller
	// Config is the merged controllers.<id> section.
	Config config.View

	seq int
}

// Priority returns the merged priority.
func (r *Record) Priority() float64 {
	return r.Config.FloatOr("priority", DefaultPriority)
}

// Enabled returns the merged enabled flag.
func (r *Record) Enabled() bool {
	return r.Config.BoolOr("enabled", DefaultEnabled)
}

// Name returns the configured display name, falling back to metadata and id.
func (r *Record) Name() string {
	if n := r.Config.String("name"); n != "" {
		return n
	}
	if r.Controller != nil && r.Controller.Metadata().Name != "" {
		return r.Controller.Metadata().Name
	}
	return r.ID
}

// Manifest is the on-disk description of a discovered controller.
//
//	handle: blog
//	config:
//	  priority: 80
//	  path: /journal
type Manifest struct {
	// Handle selects a provided controller; defaults to the unit's id.
	Handle string         `yaml:"handle"`
	Config map[string]any `yaml:"config"`

	path string
}

// PluginError represents an error that occurred within a controller.
type PluginError struct {
	// PluginName identifies which controller failed.
	PluginName string

	// Operation is "init" or "run".
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s failed during %s: %v", e.PluginName, e.Operation, e.Err)
}

// Unwrap returns the underlying error for error inspection.
func (e *PluginError) Unwrap() error {
	return e.Err
}

// NewPluginError creates a new plugin error.
func NewPluginError(pluginName, operation string, err error) *PluginError {
	return &PluginError{
		PluginName: pluginName,
		Operation:  operation,
		Err:        err,
	}
}
