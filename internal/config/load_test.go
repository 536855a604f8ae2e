package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func TestLoad_MissingConfig(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoad_UserOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_config.yaml"), []byte(`
site:
  url: http://example.com/~ryan/site1/
controllers.blog.enabled: true
controllers:
  blog:
    posts_per_page: 2
`), 0o600))

	store, err := Load(dir)
	require.NoError(t, err)

	assert.True(t, store.Bool("controllers.blog.enabled"))
	assert.Equal(t, 2, store.Int("controllers.blog.posts_per_page"))
	assert.Equal(t, "murphy", store.String("filters.syntax_highlight.style"))

	site, err := store.Site()
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/~ryan/site1", site.URL)
	assert.Equal(t, "/~ryan/site1", site.Path)
	assert.Equal(t, DefaultOutputDir, site.OutputDir)
}

func TestLoad_ExpandsEnvFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BLOGBUILDER_TEST_URL=http://env.example.com\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_config.yml"), []byte("site:\n  url: ${BLOGBUILDER_TEST_URL}\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("BLOGBUILDER_TEST_URL") })

	store, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example.com", store.String("site.url"))
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_config.yaml"), []byte("site: [\n"), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}
