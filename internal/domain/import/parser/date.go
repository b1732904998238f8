package parser

import (
	"strings"
	"time"
)

// DefaultDateLayouts are tried in order. Day-first wins over month-first, so
// "03/05/2020" reads as 3 May.
var DefaultDateLayouts = []string{
	"2/1/2006", // DD/MM/YYYY
	"1/2/2006", // MM/DD/YYYY
	"2006-1-2", // ISO 8601
	"2-1-2006", // DD-MM-YYYY
	"2.1.2006", // DD.MM.YYYY
}

// DateParser parses statement dates against an ordered list of layouts.
type DateParser struct {
	Layouts []string
}

// Parse returns the first successful interpretation of s, truncated to a
// UTC calendar day. ok is false when no layout matches.
func (p DateParser) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	layouts := p.Layouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate parses s with DefaultDateLayouts.
func ParseDate(s string) (time.Time, bool) {
	return DateParser{}.Parse(s)
}
