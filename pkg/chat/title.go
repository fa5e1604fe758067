package chat

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxTitleRunes caps session titles, counted in Unicode code points.
	MaxTitleRunes = 60
	DefaultTitle  = "New chat"
)

// DeriveTitle picks the first non-blank candidate, trims it and cuts it to
// MaxTitleRunes code points. Callers pass the explicit title first and the
// latest prompt second.
func DeriveTitle(candidates ...string) string {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		return truncateRunes(c, MaxTitleRunes)
	}
	return DefaultTitle
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return strings.TrimSpace(s[:i])
		}
		n++
	}
	return s
}
