// Package op implements the operations that transform field value
// sequences, their ordered sequencing with change tracking, and the
// filter predicates that decide which files are eligible.
package op

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"mudio/tags"
)

// ErrInvalidPattern is returned when a find pattern or filter pattern
// fails to compile. It is always reported at construction time, never
// during application.
var ErrInvalidPattern = errors.New("invalid pattern")

// Op transforms the value sequence of exactly one field. Apply receives
// the current normalised values and returns the replacement sequence;
// [Compute] normalises the result and tracks the change.
type Op struct {
	Field string
	Apply func(values []string) []string
}

// Write replaces the field's values wholesale. Multi-valued fields
// parse the input by the delimiter; single-valued fields take the input
// as one value, or the cleared sentinel when it is blank.
func Write(field, value, delim string) Op {
	var vals []string
	if tags.FieldKind(field) == tags.KindSingle {
		if strings.TrimSpace(value) == "" {
			vals = tags.Cleared()
		} else {
			vals = []string{value}
		}
	} else {
		vals = splitList(value, delim)
	}
	return Op{Field: field, Apply: func([]string) []string {
		return slices.Clone(vals)
	}}
}

// FindReplace substitutes the pattern in every existing value. The find
// pattern is taken literally unless isRegex is set, in which case the
// replacement may expand $1 style groups. On multi-valued fields a
// result containing the delimiter is re-split into separate values.
func FindReplace(field, find, replace string, isRegex bool, delim string) (Op, error) {
	pat := find
	if !isRegex {
		pat = regexp.QuoteMeta(find)
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return Op{}, fmt.Errorf("%w %q: %v", ErrInvalidPattern, find, err)
	}
	resplit := tags.FieldKind(field) != tags.KindSingle && delim != ""
	return Op{Field: field, Apply: func(values []string) []string {
		out := make([]string, 0, len(values))
		for _, v := range values {
			var nv string
			if isRegex {
				nv = re.ReplaceAllString(v, replace)
			} else {
				nv = re.ReplaceAllLiteralString(v, replace)
			}
			if resplit && strings.Contains(nv, delim) {
				out = append(out, splitList(nv, delim)...)
			} else {
				out = append(out, nv)
			}
		}
		return out
	}}, nil
}

// Append adds the value onto the end of every existing entry. It never
// introduces new list items; on an empty field it creates the value.
func Append(field, value string) Op {
	return Op{Field: field, Apply: func(values []string) []string {
		if len(values) == 0 {
			return []string{value}
		}
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = v + value
		}
		return out
	}}
}

// Prefix adds the value onto the front of every existing entry.
func Prefix(field, value string) Op {
	return Op{Field: field, Apply: func(values []string) []string {
		if len(values) == 0 {
			return []string{value}
		}
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = value + v
		}
		return out
	}}
}

// Enlist adds each delimiter-split input item as a new value unless an
// existing value already matches it case-insensitively. On single-valued
// fields it degrades to Append.
func Enlist(field, value, delim string) Op {
	if tags.FieldKind(field) == tags.KindSingle {
		return Append(field, value)
	}
	entries := splitList(value, delim)
	return Op{Field: field, Apply: func(values []string) []string {
		out := slices.Clone(values)
		for _, e := range entries {
			key := tags.Fold(e)
			exists := slices.ContainsFunc(out, func(v string) bool {
				return tags.Fold(strings.TrimSpace(v)) == key
			})
			if !exists {
				out = append(out, e)
			}
		}
		return out
	}}
}

// Delist removes every existing value matching any delimiter-split
// input item, case-insensitively.
func Delist(field, value, delim string) Op {
	remove := make(map[string]struct{})
	for _, e := range splitList(value, delim) {
		remove[tags.Fold(e)] = struct{}{}
	}
	return Op{Field: field, Apply: func(values []string) []string {
		return slices.DeleteFunc(slices.Clone(values), func(v string) bool {
			_, ok := remove[tags.Fold(strings.TrimSpace(v))]
			return ok
		})
	}}
}

// Clear blanks the field while keeping it present: the result is the
// cleared sentinel for every field class.
func Clear(field string) Op {
	return Op{Field: field, Apply: func([]string) []string {
		return tags.Cleared()
	}}
}

// Delete removes the field entirely, a distinct outcome from Clear.
func Delete(field string) Op {
	return Op{Field: field, Apply: func([]string) []string {
		return []string{}
	}}
}

// Changes records which fields an operation list altered.
type Changes map[string]bool

func (c Changes) Any() bool {
	for _, changed := range c {
		if changed {
			return true
		}
	}
	return false
}

// Fields returns the changed field names, sorted.
func (c Changes) Fields() []string {
	var out []string
	for f, changed := range c {
		if changed {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return out
}

// Compute applies the operations in order against a copy of the
// original fields. Each op runs against the running value for its
// target, normalised before and after, and the change map accumulates:
// once an op alters a field it stays marked changed. Target resolution
// is case-insensitive against fields already present; an unmatched
// target becomes a brand-new field.
func Compute(orig tags.Fields, ops []Op) (tags.Fields, Changes) {
	planned := orig.Clone()
	index := make(map[string]string, len(planned))
	for _, k := range slices.Sorted(maps.Keys(planned)) {
		if _, ok := index[tags.Fold(k)]; !ok {
			index[tags.Fold(k)] = k
		}
	}

	changes := make(Changes)
	for _, o := range ops {
		if o.Field == "" || o.Apply == nil {
			continue
		}
		target := o.Field
		if actual, ok := index[tags.Fold(target)]; ok {
			target = actual
		} else {
			index[tags.Fold(target)] = target
		}

		before := Normalize(target, planned[target])
		after := Normalize(target, o.Apply(before))
		planned[target] = after
		changes[target] = changes[target] || !slices.Equal(before, after)
	}
	return planned, changes
}

// splitList splits on the delimiter, trims each part, and drops blanks.
func splitList(s, delim string) []string {
	if delim == "" {
		delim = ";"
	}
	var out []string
	for _, p := range strings.Split(s, delim) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
