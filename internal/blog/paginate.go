package blog

// Page is one window of a paginated post list. Links are nil when absent so
// templates can test them directly.
type Page struct {
	Number   int
	Posts    []*Post
	PrevLink any
	NextLink any
}

// Paginate splits posts into windows of size posts. N posts give ceil(N/size)
// pages; no posts give no pages. link builds the link to a page number.
func Paginate(posts []*Post, size int, link func(n int) string) []Page {
	if size < 1 {
		size = 1
	}
	var pages []Page
	for start, n := 0, 1; start < len(posts); start, n = start+size, n+1 {
		end := min(start+size, len(posts))
		page := Page{Number: n, Posts: posts[start:end]}
		if n > 1 {
			page.PrevLink = link(n - 1)
		}
		if end < len(posts) {
			page.NextLink = link(n + 1)
		}
		pages = append(pages, page)
	}
	return pages
}
