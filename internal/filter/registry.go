package filter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// Registry maps filter ids and aliases to filters.
type Registry struct {
	mu      sync.RWMutex
	ids     []string          // canonical ids in registration order
	filters map[string]Filter // canonical id -> filter
	lookup  map[string]string // id or alias -> canonical id
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		filters: make(map[string]Filter),
		lookup:  make(map[string]string),
	}
}

// Register adds f under id and each of its aliases.
func (r *Registry) Register(id string, f Filter) error {
	if id == "" || f == nil {
		return errors.ValidationError("filter id and handle are required").Build()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string{id}, f.Metadata().Aliases...)
	for _, key := range keys {
		if owner, taken := r.lookup[key]; taken && owner != id {
			return errors.ConfigError("filter name already registered").
				WithContext("filter", key).WithContext("owner", owner).Build()
		}
	}
	if _, exists := r.filters[id]; !exists {
		r.ids = append(r.ids, id)
	}
	r.filters[id] = f
	for _, key := range keys {
		r.lookup[key] = id
	}
	return nil
}

// Lookup finds a filter by id or alias.
func (r *Registry) Lookup(name string) (Filter, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.lookup[name]
	if !ok {
		return nil, "", false
	}
	return r.filters[id], id, true
}

// IDs returns the canonical filter ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.ids...)
}

// ParseChain splits a comma separated chain. Blank entries and the token
// "none" (any case) are dropped.
func ParseChain(chain string) []string {
	var parts []string
	for _, p := range strings.Split(chain, ",") {
		p = strings.TrimSpace(p)
		if p == "" || strings.EqualFold(p, "none") {
			continue
		}
		parts = append(parts, p)
	}
	return parts
}

// Resolve turns a chain specification (a comma separated string, a list, or
// nil) into canonical filter ids. Unknown names are configuration errors.
func (r *Registry) Resolve(spec any) ([]string, error) {
	var names []string
	switch t := spec.(type) {
	case nil:
		return nil, nil
	case string:
		names = ParseChain(t)
	case []string:
		names = ParseChain(strings.Join(t, ","))
	case []any:
		raw := make([]string, 0, len(t))
		for _, item := range t {
			if item != nil {
				raw = append(raw, fmt.Sprint(item))
			}
		}
		names = ParseChain(strings.Join(raw, ","))
	default:
		return nil, errors.ConfigError("unsupported filter chain").
			WithContext("chain", fmt.Sprintf("%T", spec)).Build()
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		_, id, ok := r.Lookup(name)
		if !ok {
			return nil, errors.ConfigError("unknown filter "+name).
				WithContext("filter", name).Build()
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Apply runs text through the chain, feeding each output to the next filter.
func (r *Registry) Apply(chain []string, text string) (string, error) {
	for _, name := range chain {
		f, id, ok := r.Lookup(name)
		if !ok {
			return "", errors.ConfigError("unknown filter "+name).
				WithContext("filter", name).Build()
		}
		out, err := f.Run(text)
		if err != nil {
			return "", errors.WrapError(err, errors.CategoryRender, "filter failed").
				Fatal().WithContext("filter", id).Build()
		}
		text = out
	}
	return text, nil
}

// InitAll calls Init on every filter that implements Initializer.
// cfg supplies each filter's own section.
func (r *Registry) InitAll(ctx context.Context, env Env, cfg *config.Store) error {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, id := range r.IDs() {
		f, _, _ := r.Lookup(id)
		initializer, ok := f.(Initializer)
		if !ok {
			continue
		}
		filterEnv := env
		filterEnv.Logger = logger.With(logfields.Filter(id))
		if cfg != nil {
			filterEnv.Config = cfg.Sub("filters." + id)
		}
		if err := initializer.Init(ctx, &filterEnv); err != nil {
			return errors.WrapError(err, errors.CategoryPlugin, "filter init failed").
				Fatal().WithContext("filter", id).Build()
		}
		filterEnv.Logger.Debug("Filter initialized")
	}
	return nil
}
