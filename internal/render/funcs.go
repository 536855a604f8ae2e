package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"reflect"
	"strings"
	"text/template"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
)

// fielder is implemented by records exposing metadata by name.
type fielder interface {
	Get(name string) any
}

func funcMap(site *config.Site) template.FuncMap {
	return template.FuncMap{
		"site_path":    site.SitePath,
		"absolute_url": site.AbsoluteURL,
		"xml_escape":   xmlEscape,
		"html_escape":  html.EscapeString,
		"rfc3339":      func(t time.Time) string { return t.Format(time.RFC3339) },
		"rfc822":       func(t time.Time) string { return t.Format(time.RFC1123Z) },
		"date":         func(layout string, t time.Time) string { return t.Format(layout) },
		"join":         join,
		// safe marks already escaped markup; text templates never escape.
		"safe": func(s string) string { return s },
		"field": func(v fielder, name string) any {
			if v == nil {
				return nil
			}
			return v.Get(name)
		},
	}
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return html.EscapeString(s)
	}
	return buf.String()
}

// join formats the elements of any slice and joins them with sep.
func join(sep string, items any) string {
	switch t := items.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(t, sep)
	}
	v := reflect.ValueOf(items)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return fmt.Sprint(items)
	}
	parts := make([]string, v.Len())
	for i := range parts {
		parts[i] = fmt.Sprint(v.Index(i).Interface())
	}
	return strings.Join(parts, sep)
}
