package testing

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
)

// SiteBuilder provides a fluent interface for creating site source trees.
type SiteBuilder struct {
	t      *testing.T
	dir    string
	config *config.Store
	files  map[string]string
}

// NewSiteBuilder creates a builder for a site with the blog controller
// enabled in UTC. The tree is created below t.TempDir() by Build.
func NewSiteBuilder(t *testing.T) *SiteBuilder {
	t.Helper()
	store := config.NewStore()
	store.Set(config.LayerUser, "site.url", DefaultSiteURL)
	store.Set(config.LayerUser, "controllers.blog.enabled", true)
	store.Set(config.LayerUser, "controllers.blog.timezone", "UTC")
	return &SiteBuilder{
		t:      t,
		dir:    t.TempDir(),
		config: store,
		files:  make(map[string]string),
	}
}

// WithSiteURL sets site.url.
func (sb *SiteBuilder) WithSiteURL(url string) *SiteBuilder {
	return sb.WithConfig("site.url", url)
}

// WithConfig sets a dotted configuration key.
func (sb *SiteBuilder) WithConfig(key string, value any) *SiteBuilder {
	sb.config.Set(config.LayerUser, key, value)
	return sb
}

// WithBlog sets a key of the blog controller section.
func (sb *SiteBuilder) WithBlog(key string, value any) *SiteBuilder {
	return sb.WithConfig("controllers.blog."+key, value)
}

// WithPost adds a post below _posts with the given metadata.
func (sb *SiteBuilder) WithPost(name string, fields map[string]any, body string) *SiteBuilder {
	sb.t.Helper()
	meta, err := yaml.Marshal(fields)
	if err != nil {
		sb.t.Fatalf("Failed to marshal post metadata: %v", err)
	}
	return sb.WithFile(filepath.Join("_posts", name), "---\n"+string(meta)+"---\n"+body)
}

// WithFile adds a file at the slash separated path rel.
func (sb *SiteBuilder) WithFile(rel, content string) *SiteBuilder {
	sb.files[filepath.FromSlash(rel)] = content
	return sb
}

// Dir returns the source directory, which exists once Build ran.
func (sb *SiteBuilder) Dir() string { return sb.dir }

// Build writes the configuration file and every added file, returning the
// source directory.
func (sb *SiteBuilder) Build() string {
	sb.t.Helper()
	data, err := yaml.Marshal(sb.config.Snapshot())
	if err != nil {
		sb.t.Fatalf("Failed to marshal config: %v", err)
	}
	sb.write(config.FileNames[0], string(data))
	for rel, content := range sb.files {
		sb.write(rel, content)
	}
	return sb.dir
}

func (sb *SiteBuilder) write(rel, content string) {
	sb.t.Helper()
	full := filepath.Join(sb.dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), testDirPermissions); err != nil {
		sb.t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), testFilePermissions); err != nil {
		sb.t.Fatalf("Failed to write %s: %v", rel, err)
	}
}
