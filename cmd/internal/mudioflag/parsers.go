package mudioflag

import (
	"flag"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"mudio/tags"
)

var _ flag.Value = (*fieldsParser)(nil)
var _ flag.Value = (*extsParser)(nil)
var _ flag.Value = (*filtersParser)(nil)
var _ flag.Value = (*schemaParser)(nil)
var _ flag.Value = (*fileSizeParser)(nil)

type fieldsParser struct{ fields *[]string }

func (f *fieldsParser) Set(value string) error {
	var fields []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key := tags.CanonKey(part)
		if !slices.Contains(fields, key) {
			fields = append(fields, key)
		}
	}
	if len(fields) == 0 {
		return fmt.Errorf("empty field list")
	}
	*f.fields = fields
	return nil
}
func (f fieldsParser) String() string {
	if f.fields == nil {
		return ""
	}
	return strings.Join(*f.fields, ",")
}

type extsParser struct{ exts *[]string }

func (e *extsParser) Set(value string) error {
	var exts []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			exts = append(exts, part)
		}
	}
	if len(exts) == 0 {
		return fmt.Errorf("empty extension list")
	}
	*e.exts = exts
	return nil
}
func (e extsParser) String() string {
	if e.exts == nil {
		return ""
	}
	return strings.Join(*e.exts, ",")
}

type filtersParser struct{ filters *[]FilterExpr }

func (f *filtersParser) Set(value string) error {
	field, pattern, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("invalid filter format. expected eg \"artist=pattern\"")
	}
	field = strings.ToLower(strings.TrimSpace(field))
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return fmt.Errorf("empty filter pattern")
	}
	switch field {
	case "artists", "albumartists":
		// plural spellings match value-per-value, keep them as is
	default:
		field = tags.CanonKey(field)
		if !tags.IsCanonical(field) {
			return fmt.Errorf("unknown filter field %q", field)
		}
	}
	*f.filters = append(*f.filters, FilterExpr{Field: field, Pattern: pattern})
	return nil
}
func (f filtersParser) String() string {
	if f.filters == nil {
		return ""
	}
	var parts []string
	for _, expr := range *f.filters {
		parts = append(parts, fmt.Sprintf("%s=%s", expr.Field, expr.Pattern))
	}
	return strings.Join(parts, ", ")
}

type schemaParser struct{ schema *tags.Schema }

func (s *schemaParser) Set(value string) error {
	schema, err := tags.ParseSchema(value)
	if err != nil {
		return err
	}
	*s.schema = schema
	return nil
}
func (s schemaParser) String() string {
	if s.schema == nil {
		return ""
	}
	return string(*s.schema)
}

// fileSizeParser reads megabytes from the flag and stores bytes.
type fileSizeParser struct{ bytes *int64 }

func (f *fileSizeParser) Set(value string) error {
	mb, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fmt.Errorf("parse size: %w", err)
	}
	if mb < 0 {
		return fmt.Errorf("negative size")
	}
	*f.bytes = mb << 20
	return nil
}
func (f fileSizeParser) String() string {
	if f.bytes == nil {
		return ""
	}
	return strconv.FormatInt(*f.bytes>>20, 10)
}
