// Package plugin implements controllers: content generating units that are
// discovered, configured from layered defaults, ordered by priority and run
// once per build.
package plugin

import "context"

// Global defaults every controller record starts from.
const (
	DefaultPriority = 50.0
	DefaultEnabled  = false
)

// Controller is the static contract of a controller handle.
type Controller interface {
	// Metadata returns the controller's descriptive metadata.
	Metadata() Metadata

	// Defaults returns the controller's declared configuration defaults.
	// Dotted keys are allowed. An "enabled" key is ignored: controllers are
	// enabled by site configuration only.
	Defaults() map[string]any
}

// Initializer is implemented by controllers that need setup before any
// controller runs.
type Initializer interface {
	Init(ctx context.Context, bc *BuildContext) error
}

// Runner is implemented by controllers that generate output. A controller
// without Run is skipped.
type Runner interface {
	Run(ctx context.Context, bc *BuildContext) error
}

// Metadata describes a controller.
type Metadata struct {
	Name        string
	Description string
	Author      string
	URL         string
}

// Factory constructs a fresh controller handle.
type Factory func() Controller

// BaseController can be embedded to declare no defaults.
type BaseController struct{}

// Defaults returns nil.
func (BaseController) Defaults() map[string]any { return nil }
