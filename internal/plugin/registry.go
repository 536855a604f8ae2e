package plugin

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// SourceBuiltin marks records registered without a manifest.
const SourceBuiltin = "builtin"

// Registry manages controller providers, discovered manifests and
// registration records for one configuration store.
type Registry struct {
	mu        sync.RWMutex
	store     *config.Store
	logger    *slog.Logger
	providers map[string]Factory
	manifests map[string]Manifest
	records   map[string]*Record
	aliases   map[string]string
	seq       int
}

// NewRegistry creates an empty registry writing controller defaults into store.
func NewRegistry(store *config.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:     store,
		logger:    logger,
		providers: make(map[string]Factory),
		manifests: make(map[string]Manifest),
		records:   make(map[string]*Record),
		aliases:   make(map[string]string),
	}
}

// Provide makes a controller implementation available under handle.
func (r *Registry) Provide(handle string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[handle] = factory
}

// Register creates the record for id, merging configuration layers in
// increasing precedence: the global default record, the controller's declared
// defaults (without "enabled"), user configuration and overrides. The latter
// two already live in the store. Registering an id twice returns the
// existing record.
func (r *Registry) Register(id string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[id]; ok {
		return rec, nil
	}

	manifest, discovered := r.manifests[id]
	handle := id
	if discovered && manifest.Handle != "" {
		handle = manifest.Handle
	}

	factory, provided := r.providers[handle]
	switch {
	case !provided && discovered && manifest.Handle != "":
		return nil, errors.ConfigError("unknown controller handle "+handle).
			WithContext("plugin", id).WithContext("path", manifest.path).Build()
	case !provided && !discovered:
		return nil, errors.ConfigError("unknown controller "+id).
			WithContext("plugin", id).Build()
	}

	rec := &Record{
		ID:     id,
		Handle: handle,
		Source: SourceBuiltin,
		Config: r.store.Sub("controllers." + id),
		seq:    r.seq,
	}
	r.seq++
	if discovered {
		rec.Source = manifest.path
	}

	section := "controllers." + id
	r.store.Set(config.LayerDefaults, section, map[string]any{
		"name":     nil,
		"priority": DefaultPriority,
		"enabled":  DefaultEnabled,
	})

	declared := map[string]any{}
	if provided {
		rec.Controller = factory()
		maps.Copy(declared, rec.Controller.Defaults())
	}
	if discovered {
		maps.Copy(declared, manifest.Config)
	}
	if _, ok := declared["enabled"]; ok {
		r.logger.Debug("Ignoring enabled flag declared by controller", logfields.Plugin(id))
		delete(declared, "enabled")
	}
	r.store.Set(config.LayerPlugins, section, declared)

	r.records[id] = rec
	for _, alias := range rec.Config.StringSlice("aliases") {
		if _, taken := r.aliases[alias]; !taken {
			r.aliases[alias] = id
		}
	}

	r.logger.Debug("Registered controller",
		logfields.Plugin(id),
		slog.String("handle", handle),
		slog.String("source", rec.Source),
		logfields.Priority(rec.Priority()),
		slog.Bool("enabled", rec.Enabled()))
	return rec, nil
}

// RegisterAll registers every provided handle and every discovered manifest.
func (r *Registry) RegisterAll() error {
	r.mu.RLock()
	ids := make(map[string]struct{}, len(r.providers)+len(r.manifests))
	for id := range r.providers {
		ids[id] = struct{}{}
	}
	for id := range r.manifests {
		ids[id] = struct{}{}
	}
	r.mu.RUnlock()

	for _, id := range slices.Sorted(maps.Keys(ids)) {
		if _, err := r.Register(id); err != nil {
			return err
		}
	}
	return nil
}

// Lookup finds a record by id or alias.
func (r *Registry) Lookup(name string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.records[name]; ok {
		return rec, true
	}
	if id, ok := r.aliases[name]; ok {
		return r.records[id], true
	}
	return nil, false
}

// Records returns the records sorted by descending priority. Equal priorities
// keep registration order. With onlyEnabled, disabled records are dropped.
func (r *Registry) Records(onlyEnabled bool) []*Record {
	r.mu.RLock()
	all := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		all = append(all, rec)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	sort.SliceStable(all, func(i, j int) bool { return all[i].Priority() > all[j].Priority() })

	if !onlyEnabled {
		return all
	}
	enabled := all[:0]
	for _, rec := range all {
		if rec.Enabled() {
			enabled = append(enabled, rec)
		}
	}
	return enabled
}

// Ordered returns record ids in execution order.
func (r *Registry) Ordered(onlyEnabled bool) []string {
	recs := r.Records(onlyEnabled)
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids
}

// OrderedEnabled returns the ids of enabled controllers in execution order.
func (r *Registry) OrderedEnabled() []string {
	return r.Ordered(true)
}

// InitAll calls Init on every enabled controller that implements Initializer.
func (r *Registry) InitAll(ctx context.Context, bc *BuildContext) error {
	for _, rec := range r.Records(true) {
		initializer, ok := rec.Controller.(Initializer)
		if !ok {
			continue
		}
		if err := initializer.Init(ctx, bc.forRecord(rec)); err != nil {
			return wrapPluginError(rec.ID, "init", err)
		}
	}
	return nil
}

// RunAll runs every enabled controller in priority order. Controllers without
// Run are skipped; the first failing controller aborts the build.
func (r *Registry) RunAll(ctx context.Context, bc *BuildContext) error {
	for _, rec := range r.Records(true) {
		scoped := bc.forRecord(rec)
		if rec.Controller == nil {
			scoped.Logger.Warn("Controller has no implementation; skipping", slog.String("source", rec.Source))
			continue
		}
		runner, ok := rec.Controller.(Runner)
		if !ok {
			scoped.Logger.Debug("Controller has no run entry point; skipping")
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		scoped.Logger.Info("Running controller", logfields.Priority(rec.Priority()))
		if err := runner.Run(ctx, scoped); err != nil {
			return wrapPluginError(rec.ID, "run", err)
		}
	}
	return nil
}

func wrapPluginError(id, op string, err error) error {
	return errors.WrapError(NewPluginError(id, op, err), errors.CategoryPlugin, "controller failed").
		Fatal().
		WithContext("plugin", id).
		Build()
}
