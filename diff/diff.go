// Package diff renders planned field changes as before and after pairs.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"mudio/op"
	"mudio/tags"
)

var dmp = diffmatchpatch.New()

type Diff struct {
	Field         string
	Before, After string
	Changes       []diffmatchpatch.Diff
}

// Fields diffs original against planned for every changed field, in
// sorted field order. Multi valued fields are joined for display.
func Fields(original, planned tags.Fields, changes op.Changes) []Diff {
	var diffs []Diff
	for _, field := range changes.Fields() {
		before := strings.Join(original[field], "; ")
		after := strings.Join(planned[field], "; ")
		diffs = append(diffs, Diff{
			Field:   field,
			Before:  before,
			After:   after,
			Changes: dmp.DiffMain(before, after, false),
		})
	}
	return diffs
}

// BeforeText renders the old value with insertions dropped, coloured
// for terminals.
func (d Diff) BeforeText() string {
	return prettyText(filterFunc(d.Changes, func(c diffmatchpatch.Diff) bool { return c.Type <= diffmatchpatch.DiffEqual }))
}

// AfterText renders the new value with deletions dropped, coloured for
// terminals.
func (d Diff) AfterText() string {
	return prettyText(filterFunc(d.Changes, func(c diffmatchpatch.Diff) bool { return c.Type >= diffmatchpatch.DiffEqual }))
}

func prettyText(changes []diffmatchpatch.Diff) string {
	if t := dmp.DiffPrettyText(changes); t != "" {
		return t
	}
	return "[empty]"
}

func filterFunc[T any](items []T, f func(T) bool) []T {
	var r []T
	for _, item := range items {
		if f(item) {
			r = append(r, item)
		}
	}
	return r
}
