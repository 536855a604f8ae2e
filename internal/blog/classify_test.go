package blog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(s *Settings, title string, date time.Time, categories ...string) *Post {
	p := &Post{Title: title, Date: date, Slug: Slugify(title), Filename: Slugify(title) + ".md"}
	p.Categories = s.categorySet(categories)
	if len(p.Categories) == 0 {
		p.Categories = s.categorySet([]string{UncategorizedName})
	}
	p.Permalink = s.ExpandPermalink(s.PermalinkPattern, p)
	p.GUID = p.Permalink
	return p
}

func TestClassify(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", nil)
	posts := []*Post{
		post(s, "Three", time.Date(2009, 8, 30, 0, 0, 0, 0, time.UTC), "Go"),
		post(s, "Two", time.Date(2009, 8, 2, 0, 0, 0, 0, time.UTC), "Web", "Go"),
		post(s, "One", time.Date(2009, 7, 1, 0, 0, 0, 0, time.UTC)),
	}

	idx := s.Classify(posts)

	require.Len(t, idx.ArchiveLinks, 2)
	aug := idx.ArchiveLinks[0]
	assert.Equal(t, ArchiveKey{Year: 2009, Month: time.August}, aug.Key)
	assert.Equal(t, "/blog/archive/2009/08", aug.Path)
	assert.Equal(t, "August 2009", aug.Label)
	assert.Equal(t, 2, aug.Count)
	assert.Equal(t, []*Post{posts[0], posts[1]}, idx.ArchivedPosts[aug.Key])
	assert.Equal(t, "2009/07", idx.ArchiveLinks[1].Key.Dir())

	names := make([]string, 0, len(idx.AllCategories))
	for _, cc := range idx.AllCategories {
		names = append(names, cc.Category.Name)
	}
	assert.Equal(t, []string{"Go", UncategorizedName, "Web"}, names)
	assert.Equal(t, 2, idx.AllCategories[0].Count)
	assert.Equal(t, []*Post{posts[0], posts[1]}, idx.CategorizedPosts["Go"])
}

func TestClassify_UsesBlogTimezone(t *testing.T) {
	s := newTestSettings(t, "http://www.example.com", map[string]any{"timezone": "US/Eastern"})
	late := post(s, "Late", time.Date(2009, 9, 1, 2, 0, 0, 0, time.UTC))

	idx := s.Classify([]*Post{late})
	require.Len(t, idx.ArchiveLinks, 1)
	assert.Equal(t, ArchiveKey{Year: 2009, Month: time.August}, idx.ArchiveLinks[0].Key)
}

func TestClassify_Empty(t *testing.T) {
	idx := newTestSettings(t, "http://www.example.com", nil).Classify(nil)
	assert.Empty(t, idx.ArchiveLinks)
	assert.Empty(t, idx.AllCategories)
}
