package op

import (
	"strings"

	"mudio/tags"
)

// Normalize canonicalises a value sequence per the field's class. The
// cleared sentinel passes through untouched so that a deliberately
// blanked field survives every later step. Otherwise values are
// trimmed, blanks dropped, single-valued fields keep their first value,
// comments keep duplicates, and the remaining multi-valued fields
// deduplicate case-insensitively with the first occurrence's casing
// winning. The result is never nil.
func Normalize(field string, values []string) []string {
	if tags.IsCleared(values) {
		return tags.Cleared()
	}

	trimmed := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			trimmed = append(trimmed, v)
		}
	}

	switch tags.FieldKind(field) {
	case tags.KindSingle:
		if len(trimmed) == 0 {
			return []string{}
		}
		return trimmed[:1]
	case tags.KindComment:
		return trimmed
	}

	seen := make(map[string]struct{}, len(trimmed))
	out := make([]string, 0, len(trimmed))
	for _, v := range trimmed {
		key := tags.Fold(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
