package blog

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/filter"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

var fixedNow = time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestSettings(t *testing.T, siteURL string, overrides map[string]any) *Settings {
	t.Helper()
	store := config.NewStore()
	store.Set(config.LayerDefaults, "site.url", siteURL)
	store.Set(config.LayerPlugins, "controllers.blog", Defaults())
	store.Set(config.LayerUser, "controllers.blog.timezone", "UTC")
	for k, v := range overrides {
		store.Set(config.LayerUser, "controllers.blog."+k, v)
	}
	site, err := store.Site()
	require.NoError(t, err)
	s, err := NewSettings(site, store.Sub("controllers.blog"))
	require.NoError(t, err)
	s.Now = func() time.Time { return fixedNow }
	return s
}

func TestParsePost_Fields(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", nil)
	src := `---
title: First Post
date: 2009/08/29 15:00:00
categories: Go, Web
tags: [b, a, b]
author: Ryan
custom: 42
---
This is *the* first post.
`
	p, err := ParsePost(src, "first.markdown", s, filter.NewDefaultRegistry())
	require.NoError(t, err)

	assert.Equal(t, "First Post", p.Title)
	assert.Equal(t, time.Date(2009, 8, 29, 15, 0, 0, 0, time.UTC), p.Date)
	assert.Equal(t, p.Date, p.Updated)
	require.Len(t, p.Categories, 2)
	assert.Equal(t, "Go", p.Categories[0].Name)
	assert.Equal(t, "/blog/category/go", p.Categories[0].Path)
	assert.Equal(t, []string{"a", "b"}, p.Tags)
	assert.Equal(t, "Ryan", p.Author)
	assert.Equal(t, "first-post", p.Slug)
	assert.Equal(t, "http://www.example.com/blog/2009/08/29/first-post", p.Permalink)
	assert.Equal(t, p.Permalink, p.GUID)
	assert.Equal(t, "/blog/2009/08/29/first-post", p.Path())
	assert.Equal(t, []string{"syntax_highlight", "markdown"}, p.Filters)
	assert.Contains(t, p.Content, "<em>the</em>")
	assert.Equal(t, "This is the first post.", p.Excerpt)
	assert.NotEmpty(t, p.Fingerprint)
	assert.Equal(t, 42, p.Extra["custom"])
	assert.Equal(t, 42, p.Get("custom"))
	assert.Nil(t, p.Get("missing"))
}

func TestParsePost_Defaults(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", nil)
	p, err := ParsePost("---\nauthor: x\n---\nbody\n", "untitled.md", s, filter.NewDefaultRegistry())
	require.NoError(t, err)

	assert.Equal(t, "Untitled - 2020-01-02 03:04:05", p.Title)
	assert.Equal(t, fixedNow, p.Date)
	require.Len(t, p.Categories, 1)
	assert.Equal(t, UncategorizedName, p.Categories[0].Name)
	assert.Equal(t, "http://www.example.com/blog/2020/01/02/untitled-2020-01-02-03-04-05", p.Permalink)
}

func TestParsePost_NoMetadataIsParseError(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", nil)
	_, err := ParsePost("just text\n", "plain.txt", s, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryParse))
}

func TestParsePost_BadDateIsParseError(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", nil)
	_, err := ParsePost("---\ndate: someday\n---\nx\n", "bad.md", s, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryParse))
}

func TestParsePost_ForeignPermalinkIsConfigError(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", nil)
	_, err := ParsePost("---\npermalink: http://other.example.org/x\n---\nx\n", "foreign.md", s, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.ErrorIs(t, err, ErrForeignPermalink)
}

func TestParsePost_RelativePermalinkOnSubpathSite(t *testing.T) {
	s := newTestSettings(t, "http://example.com/site", nil)
	for _, raw := range []string{"/x", "/site/x"} {
		p, err := ParsePost("---\npermalink: "+raw+"\n---\nx\n", "rel.md", s, nil)
		require.NoError(t, err)
		assert.Equal(t, "http://example.com/site/x", p.Permalink, raw)
	}
}

func TestParsePost_FilterSelection(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", nil)
	reg := filter.NewDefaultRegistry()

	none, err := ParsePost("---\nfilters: none\n---\n*raw*\n", "a.markdown", s, reg)
	require.NoError(t, err)
	assert.Empty(t, none.Filters)
	assert.Equal(t, "*raw*\n", none.Content)

	explicit, err := ParsePost("---\nfilter: md\n---\n*md*\n", "b.html", s, reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"markdown"}, explicit.Filters)

	plain, err := ParsePost("---\ntitle: t\n---\n*txt*\n", "c.txt", s, reg)
	require.NoError(t, err)
	assert.Empty(t, plain.Filters)

	_, err = ParsePost("---\nfilters: nope\n---\nx\n", "d.md", s, reg)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestParsePost_ReservedInternalKeysAreIgnored(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", nil)
	p, err := ParsePost("---\nfilename: evil.md\ncontent: nope\n---\nbody\n", "real.md", s, nil)
	require.NoError(t, err)
	assert.Equal(t, "real.md", p.Filename)
	assert.NotContains(t, p.Extra, "content")
	assert.NotContains(t, p.Extra, "filename")
}

func writePost(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestParseDirectory(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "a.markdown", "---\ntitle: A\ndate: 2009/01/01 00:00:00\n---\na\n")
	writePost(t, dir, "b.md", "---\ntitle: B\ndate: 2009/02/01 00:00:00\n---\nb\n")
	writePost(t, dir, "DRAFT-c.markdown", "---\ntitle: C\ndate: 2009/03/01 00:00:00\n---\nc\n")
	writePost(t, dir, "d.markdown", "---\ntitle: D\ndraft: true\n---\nd\n")
	writePost(t, dir, "e.txt", "no metadata here\n")
	writePost(t, dir, "notes.json", "{}")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2010"), 0o750))
	writePost(t, dir, filepath.Join("2010", "f.md"), "---\ntitle: F\ndate: 2010/01/01 00:00:00\n---\nf\n")

	s := newTestSettings(t, "http://www.example.com", nil)
	posts, err := ParseDirectory(dir, s, filter.NewDefaultRegistry(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"F", "B", "A"}, titles(posts))

	s.PublishDrafts = true
	posts, err = ParseDirectory(dir, s, filter.NewDefaultRegistry(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"F", "C", "B", "A"}, titles(posts))
}

func TestParseDirectory_DuplicatesAreReported(t *testing.T) {
	dir := t.TempDir()
	doc := "---\ntitle: Same\ndate: 2009/01/01 00:00:00\n---\nsame\n"
	writePost(t, dir, "one.md", doc)
	writePost(t, dir, "two.md", doc)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	posts, err := ParseDirectory(dir, newTestSettings(t, "http://www.example.com", nil), nil, logger)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Contains(t, buf.String(), "duplicate_of=one.md")
}

func TestParseDirectory_UnknownFilterAbortsBuild(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "a.markdown", "---\ntitle: A\nfilters: textile\n---\na\n")
	writePost(t, dir, "b.markdown", "---\ntitle: B\n---\nb\n")

	posts, err := ParseDirectory(dir, newTestSettings(t, "http://www.example.com", nil), filter.NewDefaultRegistry(), nil)
	require.Error(t, err)
	assert.Nil(t, posts)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.Contains(t, err.Error(), "textile")
}

func TestParseDirectory_ForeignPermalinkSkipsPost(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "a.markdown", "---\ntitle: A\npermalink: http://other.example.org/a\n---\na\n")
	writePost(t, dir, "b.markdown", "---\ntitle: B\n---\nb\n")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	posts, err := ParseDirectory(dir, newTestSettings(t, "http://www.example.com", nil), filter.NewDefaultRegistry(), logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, titles(posts))
	assert.Contains(t, buf.String(), "post=a.markdown")
}

func TestParseDirectory_MissingDir(t *testing.T) {
	posts, err := ParseDirectory(filepath.Join(t.TempDir(), "nope"), newTestSettings(t, "http://www.example.com", nil), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func titles(posts []*Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}
