package blog

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Excerpt returns the first n words of the visible text of an HTML fragment,
// followed by "..." when the text is longer.
func Excerpt(fragment string, n int) string {
	if n <= 0 {
		return ""
	}
	var text strings.Builder
	skipDepth := 0

	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			words := strings.Fields(text.String())
			if len(words) <= n {
				return strings.Join(words, " ")
			}
			return strings.Join(words[:n], " ") + "..."
		case html.StartTagToken:
			if skipped(z) {
				skipDepth++
			}
		case html.EndTagToken:
			if skipped(z) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				text.Write(z.Text())
				text.WriteByte(' ')
			}
		}
	}
}

func skipped(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style, atom.Pre:
		return true
	}
	return false
}
