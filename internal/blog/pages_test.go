package blog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renderCall struct {
	template string
	out      string
	env      map[string]any
}

// recordingRenderer captures Materialize calls instead of writing files.
type recordingRenderer struct {
	calls []renderCall
}

func (r *recordingRenderer) Materialize(_ context.Context, templateID, out string, env map[string]any) error {
	r.calls = append(r.calls, renderCall{template: templateID, out: out, env: env})
	return nil
}

func (r *recordingRenderer) outputs() []string {
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.out
	}
	return out
}

func (r *recordingRenderer) call(t *testing.T, out string) renderCall {
	t.Helper()
	for _, c := range r.calls {
		if c.out == out {
			return c
		}
	}
	t.Fatalf("no page written to %s", out)
	return renderCall{}
}

func newTestBlog(s *Settings, posts ...*Post) *Blog {
	SortByDate(posts)
	return &Blog{Settings: s, Index: s.Classify(posts), Name: "Blog", Posts: posts}
}

func TestWritePages_TwoPosts(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", map[string]any{"posts_per_page": 1})
	first := post(s, "First", time.Date(2009, 8, 29, 15, 0, 0, 0, time.UTC), "Go")
	second := post(s, "Second", time.Date(2009, 9, 2, 10, 0, 0, 0, time.UTC), "Go", "Web")
	b := newTestBlog(s, first, second)

	r := &recordingRenderer{}
	n, err := b.WritePages(context.Background(), r, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	assert.Equal(t, []string{
		"blog/2009/09/02/second/index.html",
		"blog/2009/08/29/first/index.html",
		"blog/page/1/index.html",
		"blog/page/2/index.html",
		"blog/index.html",
		"blog/archive/2009/09/1/index.html",
		"blog/archive/2009/09/index.html",
		"blog/archive/2009/08/1/index.html",
		"blog/archive/2009/08/index.html",
		"blog/category/go/feed/index.xml",
		"blog/category/go/feed/atom/index.xml",
		"blog/category/go/1/index.html",
		"blog/category/go/index.html",
		"blog/category/go/2/index.html",
		"blog/category/web/feed/index.xml",
		"blog/category/web/feed/atom/index.xml",
		"blog/category/web/1/index.html",
		"blog/category/web/index.html",
		"blog/feed/index.xml",
		"blog/feed/atom/index.xml",
	}, r.outputs())

	perma := r.call(t, "blog/2009/08/29/first/index.html")
	assert.Equal(t, PermapageTemplate, perma.template)
	assert.Same(t, first, perma.env["post"])
	assert.Same(t, second, perma.env["next_post"])
	assert.Nil(t, perma.env["prev_post"])

	page1 := r.call(t, "blog/page/1/index.html")
	assert.Equal(t, ChronologicalTemplate, page1.template)
	assert.Nil(t, page1.env["prev_link"])
	assert.Equal(t, "../2", page1.env["next_link"])
	assert.Equal(t, "../1", r.call(t, "blog/page/2/index.html").env["prev_link"])

	index := r.call(t, "blog/index.html")
	assert.Equal(t, "/blog/page/2", index.env["next_link"])
	assert.Equal(t, []*Post{second}, index.env["posts"])

	goPage2 := r.call(t, "blog/category/go/2/index.html")
	assert.Equal(t, "/blog/category/go/1", goPage2.env["prev_link"])
	assert.Equal(t, "Go", goPage2.env["name"])

	archive := r.call(t, "blog/archive/2009/08/index.html")
	assert.Equal(t, "August 2009", archive.env["name"])

	feed := r.call(t, "blog/category/web/feed/atom/index.xml")
	assert.Equal(t, AtomTemplate, feed.template)
	assert.Equal(t, "blog/category/web/feed/atom", feed.env["root"])
	assert.Equal(t, []*Post{second}, feed.env["posts"])
}

func TestWritePages_EmptyBlog(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", nil)
	r := &recordingRenderer{}
	n, err := newTestBlog(s).WritePages(context.Background(), r, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"blog/index.html", "blog/feed/index.xml", "blog/feed/atom/index.xml"}, r.outputs())
	assert.Nil(t, r.call(t, "blog/index.html").env["next_link"])
	assert.True(t, r.call(t, "blog/feed/atom/index.xml").env["updated"].(time.Time).IsZero())
}

func TestWritePages_FeedUpdatedIsNewestEdit(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", nil)
	older := post(s, "Older", time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC))
	older.Updated = time.Date(2011, 5, 5, 0, 0, 0, 0, time.UTC)
	newer := post(s, "Newer", time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))
	newer.Updated = newer.Date

	r := &recordingRenderer{}
	_, err := newTestBlog(s, older, newer).WritePages(context.Background(), r, nil)
	require.NoError(t, err)
	for _, out := range []string{"blog/feed/index.xml", "blog/feed/atom/index.xml"} {
		assert.Equal(t, older.Updated, r.call(t, out).env["updated"], out)
	}
}

func TestLatestUpdate(t *testing.T) {
	assert.True(t, LatestUpdate(nil).IsZero())
	a := &Post{Updated: time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := &Post{Updated: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, a.Updated, LatestUpdate([]*Post{b, a}))
}

func TestWritePages_SkipsPermapageAtSiteRoot(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", nil)
	root := post(s, "Home", time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))
	root.Permalink = "http://www.example.com"
	other := post(s, "Other", time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC))

	r := &recordingRenderer{}
	_, err := newTestBlog(s, root, other).WritePages(context.Background(), r, nil)
	require.NoError(t, err)
	assert.NotContains(t, r.outputs(), "index.html")
	assert.Contains(t, r.outputs(), "blog/2009/01/01/other/index.html")
}

func TestWritePages_CustomIndex(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", map[string]any{"custom_index": true})
	r := &recordingRenderer{}
	_, err := newTestBlog(s, post(s, "Only", time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))).
		WritePages(context.Background(), r, nil)
	require.NoError(t, err)
	assert.NotContains(t, r.outputs(), "blog/index.html")
	assert.Contains(t, r.outputs(), "blog/page/1/index.html")
}

func TestWritePages_Canceled(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := newTestBlog(s, post(s, "Only", time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))).
		WritePages(ctx, &recordingRenderer{}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}
