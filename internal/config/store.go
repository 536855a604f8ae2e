package config

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Layer identifies one level of configuration precedence.
type Layer int

// Layers in increasing precedence. A value set in a higher layer wins over the
// same key in any lower layer; nested maps are merged key by key.
const (
	LayerDefaults Layer = iota
	LayerPlugins
	LayerUser
	LayerOverrides
	numLayers
)

func (l Layer) String() string {
	switch l {
	case LayerDefaults:
		return "defaults"
	case LayerPlugins:
		return "plugins"
	case LayerUser:
		return "user"
	case LayerOverrides:
		return "overrides"
	default:
		return "layer(" + strconv.Itoa(int(l)) + ")"
	}
}

// Store is a layered hierarchical configuration addressed by dotted key paths.
type Store struct {
	mu     sync.RWMutex
	layers [numLayers]map[string]any
	merged map[string]any // nil when stale
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.layers {
		s.layers[i] = map[string]any{}
	}
	return s
}

// Set stores value at the dotted key in layer. Map values are merged into an
// existing subtree instead of replacing it.
func (s *Store) Set(layer Layer, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setPath(s.layers[layer], splitKey(key), normalize(value))
	s.merged = nil
}

// Merge deep-merges values into layer. Dotted keys inside values are expanded.
func (s *Store) Merge(layer Layer, values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deepMerge(s.layers[layer], normalize(values).(map[string]any))
	s.merged = nil
}

// Get resolves a dotted key against the merged view of all layers. Map results
// are copies and safe to modify.
func (s *Store) Get(key string) (any, bool) {
	v, ok := lookup(s.view(), splitKey(key))
	if !ok {
		return nil, false
	}
	return clone(v), true
}

// Has reports whether key resolves to a value (including an explicit null).
func (s *Store) Has(key string) bool {
	_, ok := lookup(s.view(), splitKey(key))
	return ok
}

// Keys returns the sorted child keys of the map at prefix ("" for the root).
func (s *Store) Keys(prefix string) []string {
	v, ok := lookup(s.view(), splitKey(prefix))
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(m))
}

// Sub returns a view rooted at prefix.
func (s *Store) Sub(prefix string) View {
	return View{store: s, prefix: strings.Trim(prefix, ".")}
}

func (s *Store) String(key string) string { return s.Sub("").String(key) }
func (s *Store) Int(key string) int { return s.Sub("").Int(key) }
func (s *Store) Float(key string) float64 { return s.Sub("").Float(key) }
func (s *Store) Bool(key string) bool { return s.Sub("").Bool(key) }
func (s *Store) StringSlice(key string) []string { return s.Sub("").StringSlice(key) }
func (s *Store) Map(key string) map[string]any { return s.Sub("").Map(key) }
func (s *Store) StringMap(key string) map[string]string { return s.Sub("").StringMap(key) }

// Snapshot returns a deep copy of the merged configuration.
func (s *Store) Snapshot() map[string]any {
	return clone(s.view()).(map[string]any)
}

func (s *Store) view() map[string]any {
	s.mu.RLock()
	merged := s.merged
	s.mu.RUnlock()
	if merged != nil {
		return merged
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.merged == nil {
		out := map[string]any{}
		for _, layer := range s.layers {
			deepMerge(out, layer)
		}
		s.merged = out
	}
	return s.merged
}

// View is a read-only window onto a Store below a key prefix. Every typed
// accessor resolves to the zero value when the key is absent or has an
// incompatible type; use the *Or variants to supply a different default.
type View struct {
	store  *Store
	prefix string
}

// Prefix returns the dotted prefix of the view.
func (v View) Prefix() string { return v.prefix }

func (v View) key(k string) string {
	k = strings.Trim(k, ".")
	switch {
	case v.prefix == "":
		return k
	case k == "":
		return v.prefix
	default:
		return v.prefix + "." + k
	}
}

// Sub narrows the view further.
func (v View) Sub(prefix string) View {
	return View{store: v.store, prefix: v.key(prefix)}
}

// Get is the untyped escape hatch.
func (v View) Get(key string) (any, bool) { return v.store.Get(v.key(key)) }

// Has reports whether key is set in any layer.
func (v View) Has(key string) bool { return v.store.Has(v.key(key)) }

// Keys lists the child keys below key.
func (v View) Keys(key string) []string { return v.store.Keys(v.key(key)) }

// String returns a scalar value formatted as a string.
func (v View) String(key string) string { return v.StringOr(key, "") }

// StringOr returns the string at key or def.
func (v View) StringOr(key, def string) string {
	raw, ok := v.Get(key)
	if !ok || raw == nil {
		return def
	}
	switch t := raw.(type) {
	case string:
		return t
	case map[string]any, []any:
		return def
	default:
		return fmt.Sprint(t)
	}
}

// Int returns the integer at key.
func (v View) Int(key string) int { return v.IntOr(key, 0) }

// IntOr returns the integer at key or def.
func (v View) IntOr(key string, def int) int {
	raw, ok := v.Get(key)
	if !ok {
		return def
	}
	switch t := raw.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case uint64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// Float returns the number at key.
func (v View) Float(key string) float64 { return v.FloatOr(key, 0) }

// FloatOr returns the number at key or def.
func (v View) FloatOr(key string, def float64) float64 {
	raw, ok := v.Get(key)
	if !ok {
		return def
	}
	switch t := raw.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return def
}

// Bool returns the boolean at key.
func (v View) Bool(key string) bool { return v.BoolOr(key, false) }

// BoolOr returns the boolean at key or def. Strings are parsed with
// strconv.ParseBool plus yes/no/on/off.
func (v View) BoolOr(key string, def bool) bool {
	raw, ok := v.Get(key)
	if !ok {
		return def
	}
	switch t := raw.(type) {
	case bool:
		return t
	case string:
		return ParseBool(t, def)
	case int:
		return t != 0
	}
	return def
}

// StringSlice returns a list value as strings. A scalar becomes a one element list.
func (v View) StringSlice(key string) []string {
	raw, ok := v.Get(key)
	if !ok || raw == nil {
		return nil
	}
	switch t := raw.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case map[string]any:
		return nil
	default:
		return []string{fmt.Sprint(t)}
	}
}

// Map returns a copy of the subtree at key.
func (v View) Map(key string) map[string]any {
	raw, ok := v.Get(key)
	if !ok {
		return nil
	}
	m, _ := raw.(map[string]any)
	return m
}

// StringMap returns the scalar entries of the subtree at key as strings.
func (v View) StringMap(key string) map[string]string {
	m := v.Map(key)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		switch t := val.(type) {
		case nil:
			out[k] = ""
		case map[string]any, []any:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}

// ParseBool accepts the usual spellings of true and false.
func ParseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "y", "on":
		return true
	case "0", "f", "false", "no", "n", "off":
		return false
	}
	return def
}

func splitKey(key string) []string {
	key = strings.Trim(key, ".")
	if key == "" {
		return nil
	}
	return strings.Split(key, ".")
}

func lookup(root map[string]any, path []string) (any, bool) {
	var cur any = root
	for _, part := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(root map[string]any, path []string, value any) {
	if len(path) == 0 {
		if m, ok := value.(map[string]any); ok {
			deepMerge(root, m)
		}
		return
	}
	cur := root
	for _, part := range path[:len(path)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	last := path[len(path)-1]
	if src, ok := value.(map[string]any); ok {
		if dst, ok := cur[last].(map[string]any); ok {
			deepMerge(dst, src)
			return
		}
		cur[last] = clone(src)
		return
	}
	cur[last] = value
}

// deepMerge copies src into dst. Nested maps merge recursively; any other
// value (including nil and false) replaces what dst held.
func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				deepMerge(dm, sm)
				continue
			}
			fresh := map[string]any{}
			deepMerge(fresh, sm)
			dst[k] = fresh
			continue
		}
		dst[k] = clone(v)
	}
}

// normalize converts decoded YAML into map[string]any trees and expands
// dotted keys into nested maps.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := map[string]any{}
		for _, k := range slices.Sorted(maps.Keys(t)) {
			setPath(out, splitKey(k), normalize(t[k]))
		}
		return out
	case map[any]any:
		out := map[string]any{}
		for k, val := range t {
			setPath(out, splitKey(fmt.Sprint(k)), normalize(val))
		}
		return out
	case map[string]string:
		out := map[string]any{}
		for k, val := range t {
			setPath(out, splitKey(k), val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = clone(val)
		}
		return out
	default:
		return v
	}
}
