package blog

import (
	"fmt"
	"sort"
	"time"
)

// ArchiveKey identifies a month bucket in the blog timezone.
type ArchiveKey struct {
	Year  int
	Month time.Month
}

// Dir is the key's path segment below the archive dir ("2009/08").
func (k ArchiveKey) Dir() string {
	return fmt.Sprintf("%04d/%02d", k.Year, int(k.Month))
}

// ArchiveLink describes one archive bucket for navigation.
type ArchiveLink struct {
	Key ArchiveKey
	// Path is the absolute URL path of the bucket index.
	Path  string
	Label string
	Count int
}

// CategoryCount pairs a category with the number of posts filed under it.
type CategoryCount struct {
	Category Category
	Count    int
}

// Index groups the published posts by month and by category. Every post
// list keeps the newest-first order of the input.
type Index struct {
	ArchivedPosts map[ArchiveKey][]*Post
	// ArchiveLinks is sorted newest bucket first.
	ArchiveLinks []ArchiveLink

	// CategorizedPosts is keyed by category name.
	CategorizedPosts map[string][]*Post
	// AllCategories is sorted by name.
	AllCategories []CategoryCount
}

// Classify builds the archive and category groupings. posts must already be
// sorted newest first.
func (s *Settings) Classify(posts []*Post) *Index {
	idx := &Index{
		ArchivedPosts:    make(map[ArchiveKey][]*Post),
		CategorizedPosts: make(map[string][]*Post),
	}
	categories := make(map[string]Category)

	for _, p := range posts {
		d := p.Date.In(s.Location)
		key := ArchiveKey{Year: d.Year(), Month: d.Month()}
		idx.ArchivedPosts[key] = append(idx.ArchivedPosts[key], p)

		for _, c := range p.Categories {
			categories[c.Name] = c
			idx.CategorizedPosts[c.Name] = append(idx.CategorizedPosts[c.Name], p)
		}
	}

	for key, bucket := range idx.ArchivedPosts {
		idx.ArchiveLinks = append(idx.ArchiveLinks, ArchiveLink{
			Key:   key,
			Path:  s.SitePath(s.ArchiveDir, key.Dir()),
			Label: fmt.Sprintf("%s %d", key.Month, key.Year),
			Count: len(bucket),
		})
	}
	sort.Slice(idx.ArchiveLinks, func(i, j int) bool {
		a, b := idx.ArchiveLinks[i].Key, idx.ArchiveLinks[j].Key
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.Month > b.Month
	})

	for name, c := range categories {
		idx.AllCategories = append(idx.AllCategories, CategoryCount{Category: c, Count: len(idx.CategorizedPosts[name])})
	}
	sort.Slice(idx.AllCategories, func(i, j int) bool {
		return idx.AllCategories[i].Category.Name < idx.AllCategories[j].Category.Name
	})
	return idx
}
