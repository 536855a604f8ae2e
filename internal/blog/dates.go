package blog

import (
	"fmt"
	"strings"
	"time"
)

var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'e': "_2",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'b': "Jan",
	'h': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'j': "002",
	'z': "-0700",
	'Z': "MST",
	'f': "000000",
	'%': "%",
}

// StrftimeLayout translates a strftime format into a Go time layout.
// Unknown directives are kept literally.
func StrftimeLayout(format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			b.WriteByte(c)
			continue
		}
		i++
		if layout, ok := strftimeDirectives[format[i]]; ok {
			b.WriteString(layout)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(format[i])
	}
	return b.String()
}

var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04",
	"2006/01/02",
}

// parseDate interprets a metadata date value in the blog timezone. Strings are
// tried against the configured layout first, then common ISO forms.
func (s *Settings) parseDate(value any) (time.Time, error) {
	switch t := value.(type) {
	case time.Time:
		if t.Location() == time.UTC {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), s.Location), nil
		}
		return t, nil
	case string:
		raw := strings.TrimSpace(t)
		for _, layout := range append([]string{s.DateLayout}, fallbackLayouts...) {
			if parsed, err := time.ParseInLocation(layout, raw, s.Location); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("date %q does not match %q", raw, s.DateLayout)
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %v", value)
	}
}
