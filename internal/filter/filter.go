// Package filter implements named text transforms and the registry that
// resolves and applies filter chains to post bodies.
package filter

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
)

// Metadata describes a filter.
type Metadata struct {
	Name        string
	Description string
	// Aliases are additional lookup keys resolving to the same filter.
	Aliases []string
}

// Filter transforms text. Run must not depend on state other than its input
// and the configuration received through Init.
type Filter interface {
	Metadata() Metadata
	Run(text string) (string, error)
}

// Initializer is implemented by filters that need per-build setup.
type Initializer interface {
	Init(ctx context.Context, env *Env) error
}

// Env is handed to filters once per build.
type Env struct {
	// StagingDir is the private output root of the running build.
	StagingDir string
	Site       *config.Site
	// Config is the filter's own section (filters.<id>).
	Config config.View
	Logger *slog.Logger
}

// Func adapts a plain function to the Filter interface.
type Func struct {
	Meta Metadata
	Fn   func(string) (string, error)
}

// Metadata implements Filter.
func (f Func) Metadata() Metadata { return f.Meta }

// Run implements Filter.
func (f Func) Run(text string) (string, error) { return f.Fn(text) }
