package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LayerPrecedence(t *testing.T) {
	s := NewStore()
	s.Set(LayerDefaults, "controllers.blog.priority", 50.0)
	s.Set(LayerPlugins, "controllers.blog.priority", 90)
	s.Set(LayerUser, "controllers.blog.priority", 70)

	assert.Equal(t, 70, s.Int("controllers.blog.priority"))

	s.Set(LayerOverrides, "controllers.blog.priority", 10)
	assert.Equal(t, 10, s.Int("controllers.blog.priority"))
}

func TestStore_DottedKeysMergeHierarchically(t *testing.T) {
	s := NewStore()
	s.Merge(LayerDefaults, map[string]any{
		"blog": map[string]any{
			"auto_permalink": map[string]any{"enabled": true, "path": ":blog_path/:title"},
			"posts_per_page": 5,
		},
	})
	s.Merge(LayerUser, map[string]any{"blog.auto_permalink.path": "/:year/:title"})

	assert.True(t, s.Bool("blog.auto_permalink.enabled"), "sibling keys survive a dotted override")
	assert.Equal(t, "/:year/:title", s.String("blog.auto_permalink.path"))
	assert.Equal(t, 5, s.Int("blog.posts_per_page"))
}

func TestStore_FalseAndNilOverride(t *testing.T) {
	s := NewStore()
	s.Set(LayerDefaults, "a.enabled", true)
	s.Set(LayerDefaults, "a.name", "x")
	s.Set(LayerUser, "a.enabled", false)
	s.Set(LayerUser, "a.name", nil)

	assert.False(t, s.Sub("").BoolOr("a.enabled", true))
	assert.True(t, s.Has("a.name"))
	assert.Equal(t, "fallback", s.Sub("a").StringOr("name", "fallback"))
}

func TestStore_SetMapMergesSubtree(t *testing.T) {
	s := NewStore()
	s.Set(LayerUser, "site", map[string]any{"url": "http://a"})
	s.Set(LayerUser, "site", map[string]any{"output_dir": "out"})

	assert.Equal(t, "http://a", s.String("site.url"))
	assert.Equal(t, "out", s.String("site.output_dir"))
}

func TestStore_GetReturnsCopies(t *testing.T) {
	s := NewStore()
	s.Set(LayerUser, "a.b", 1)

	m := s.Map("a")
	m["b"] = 2
	assert.Equal(t, 1, s.Int("a.b"))
}

func TestView_TypedAccessors(t *testing.T) {
	s := NewStore()
	s.Merge(LayerUser, map[string]any{
		"x": map[string]any{
			"int_str":  "12",
			"float":    2.5,
			"bool_str": "yes",
			"list":     []any{"a", 1},
			"scalar":   "one",
			"strs":     map[string]any{"k": 1, "nested": map[string]any{}},
		},
	})
	v := s.Sub("x")

	assert.Equal(t, 12, v.Int("int_str"))
	assert.InDelta(t, 2.5, v.Float("float"), 0.0001)
	assert.True(t, v.Bool("bool_str"))
	assert.Equal(t, []string{"a", "1"}, v.StringSlice("list"))
	assert.Equal(t, []string{"one"}, v.StringSlice("scalar"))
	assert.Equal(t, map[string]string{"k": "1"}, v.StringMap("strs"))
	assert.Equal(t, 7, v.IntOr("missing", 7))
	assert.Equal(t, "x.strs", v.Sub("strs").Prefix())
	assert.Equal(t, []string{"k", "nested"}, v.Keys("strs"))
}

func TestStore_Snapshot(t *testing.T) {
	s := NewStore()
	ApplyDefaults(s)
	snap := s.Snapshot()
	require.Contains(t, snap, "site")
	snap["site"] = nil
	assert.Equal(t, "http://www.yoursite.com", s.String("site.url"))
}
