package tags

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"go.senan.xyz/taglib"
)

// CanRead reports whether the codec supports a path's extension.
func CanRead(absPath string) bool {
	switch ext := strings.ToLower(filepath.Ext(absPath)); ext {
	case ".mp3", ".flac", ".opus", ".aac", ".aiff", ".ape", ".m4a", ".m4b",
		".mp2", ".mpc", ".oga", ".ogg", ".spx", ".tak", ".wav", ".wma", ".wv":
		return true
	}
	return false
}

// Taglib reads and writes canonical field maps through go-taglib's
// format-independent property layer.
type Taglib struct{}

func (Taglib) CanRead(path string) bool {
	return CanRead(path)
}

func (Taglib) ReadFields(path string, schema Schema) (Fields, error) {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return nil, err
	}
	return fieldsFromRaw(raw, schema), nil
}

// WriteFields overlays the planned fields onto the file's current
// properties and saves the result. Canonical keys mirror the planned map
// exactly (an empty sequence removes the tag); custom keys are touched
// only when present in the map.
func (Taglib) WriteFields(path string, fields Fields) error {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return err
	}
	return taglib.WriteTags(path, rawFromFields(raw, fields), taglib.Clear|taglib.DiffBeforeWrite)
}

// propNames maps the plain canonical fields to their taglib property
// keys. Track and disc numbering are handled separately since their
// totals may be packed into the same property.
var propNames = map[string]string{
	Title:       "TITLE",
	Artist:      "ARTIST",
	Album:       "ALBUM",
	AlbumArtist: "ALBUMARTIST",
	Genre:       "GENRE",
	Comment:     "COMMENT",
	Composer:    "COMPOSER",
	Performer:   "PERFORMER",
	Date:        "DATE",
}

func fieldsFromRaw(raw map[string][]string, schema Schema) Fields {
	if schema == SchemaRaw {
		out := make(Fields, len(raw))
		for k, vs := range raw {
			out[k] = slices.Clone(vs)
		}
		return out
	}

	out := make(Fields, len(CanonicalFields)+4)
	for _, c := range CanonicalFields {
		out[c] = []string{}
	}

	// Sorted key order keeps alias merging deterministic: the first
	// key to claim a canonical field wins.
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		vs := raw[k]
		if len(vs) == 0 {
			continue
		}
		canon := CanonKey(k)
		switch canon {
		case Track, Disc:
			totalField := TotalTracks
			if canon == Disc {
				totalField = TotalDiscs
			}
			if vs[0] == "" {
				if len(out[canon]) == 0 {
					out[canon] = Cleared()
				}
				continue
			}
			num, total, _ := strings.Cut(vs[0], "/")
			if num != "" && len(out[canon]) == 0 {
				out[canon] = []string{num}
			}
			if total != "" && len(out[totalField]) == 0 {
				out[totalField] = []string{total}
			}
		default:
			if !IsCanonical(canon) {
				if schema == SchemaCanonical {
					continue
				}
				if _, ok := out[canon]; !ok {
					out[canon] = slices.Clone(vs)
				}
				continue
			}
			if len(out[canon]) == 0 {
				out[canon] = slices.Clone(vs)
			}
		}
	}
	return out
}

func rawFromFields(current map[string][]string, fields Fields) map[string][]string {
	out := make(map[string][]string, len(current)+len(fields))
	for k, vs := range current {
		canon := CanonKey(k)
		if IsCanonical(canon) {
			continue
		}
		if _, ok := fields[canon]; ok {
			continue
		}
		out[k] = slices.Clone(vs)
	}

	for k, vs := range fields {
		if IsCanonical(k) || len(vs) == 0 {
			continue
		}
		out[strings.ToUpper(k)] = slices.Clone(vs)
	}

	for canon, prop := range propNames {
		if vs := fields[canon]; len(vs) > 0 {
			out[prop] = slices.Clone(vs)
		}
	}

	encodeNumbering(out, "TRACKNUMBER", "TRACKTOTAL", fields[Track], fields[TotalTracks])
	encodeNumbering(out, "DISCNUMBER", "DISCTOTAL", fields[Disc], fields[TotalDiscs])
	return out
}

// encodeNumbering writes a number/total pair back to taglib properties,
// packing "N/M" into the number property when both halves are present.
func encodeNumbering(out map[string][]string, numProp, totalProp string, num, total []string) {
	switch {
	case IsCleared(num):
		out[numProp] = Cleared()
	case len(num) > 0 && len(total) > 0 && !IsCleared(total):
		out[numProp] = []string{num[0] + "/" + total[0]}
	case len(num) > 0:
		out[numProp] = []string{num[0]}
	}
	switch {
	case IsCleared(total):
		out[totalProp] = Cleared()
	case len(total) > 0 && len(num) == 0:
		out[totalProp] = []string{total[0]}
	}
}
