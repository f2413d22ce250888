package op

import (
	"fmt"
	"regexp"
	"strings"

	"mudio/tags"
)

// Plural filter names select the one-pattern-per-value matching mode
// instead of being folded into their singular fields.
const (
	fieldArtists      = "artists"
	fieldAlbumArtists = "albumartists"
)

// Filter is a predicate over a file's fields. Literal patterns match
// case-insensitively as substrings, regex patterns case-insensitively
// anywhere in the value. The artist and albumartist fields match any
// one value; their plural spellings split the pattern on ";" and
// require a distinct matching value per part; every other field matches
// against its values joined with ";".
type Filter struct {
	Field   string
	Pattern string
	Regex   bool

	matchers []matcher
}

// NewFilter builds a filter for the field, canonicalising its name
// except for the plural spellings. A regex pattern that does not
// compile fails here with [ErrInvalidPattern].
func NewFilter(field, pattern string, isRegex bool) (Filter, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	f := Filter{Field: field, Pattern: pattern, Regex: isRegex}

	switch field {
	case fieldArtists, fieldAlbumArtists:
		for _, p := range splitList(pattern, ";") {
			m, err := newMatcher(p, isRegex)
			if err != nil {
				return Filter{}, err
			}
			f.matchers = append(f.matchers, m)
		}
	default:
		f.Field = tags.CanonKey(field)
		m, err := newMatcher(pattern, isRegex)
		if err != nil {
			return Filter{}, err
		}
		f.matchers = []matcher{m}
	}
	return f, nil
}

func (f Filter) Match(fields tags.Fields) bool {
	switch f.Field {
	case fieldArtists:
		return assign(f.matchers, fields[tags.Artist])
	case fieldAlbumArtists:
		return assign(f.matchers, fields[tags.AlbumArtist])
	case tags.Artist, tags.AlbumArtist:
		return matchAny(f.matchers[0], fields[f.Field])
	}
	return f.matchers[0].match(strings.Join(fields[f.Field], ";"))
}

// MatchAll reports whether the fields satisfy every filter.
func MatchAll(filters []Filter, fields tags.Fields) bool {
	for _, f := range filters {
		if !f.Match(fields) {
			return false
		}
	}
	return true
}

type matcher struct {
	pattern string
	re      *regexp.Regexp
}

func newMatcher(pattern string, isRegex bool) (matcher, error) {
	if !isRegex {
		return matcher{pattern: strings.TrimSpace(pattern)}, nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return matcher{}, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	return matcher{pattern: pattern, re: re}, nil
}

func (m matcher) match(value string) bool {
	if m.re != nil {
		return m.re.MatchString(value)
	}
	return strings.Contains(tags.Fold(value), tags.Fold(m.pattern))
}

func matchAny(m matcher, values []string) bool {
	for _, v := range values {
		if m.match(v) {
			return true
		}
	}
	return false
}
