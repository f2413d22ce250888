// Package tags models audio metadata as canonical field maps and
// normalises the many on-disk spellings of each field to one key.
package tags

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Canonical field names. Every codec key is folded onto one of these, or
// passed through as a custom field when nothing matches.
const (
	Title       = "title"
	Artist      = "artist"
	Album       = "album"
	AlbumArtist = "albumartist"
	Genre       = "genre"
	Comment     = "comment"
	Composer    = "composer"
	Performer   = "performer"
	Date        = "date"
	Track       = "track"
	TotalTracks = "totaltracks"
	Disc        = "disc"
	TotalDiscs  = "totaldiscs"
)

// CanonicalFields lists every canonical field in display order.
var CanonicalFields = []string{
	Title, Artist, Album, AlbumArtist, Genre, Comment, Composer,
	Performer, Date, Track, TotalTracks, Disc, TotalDiscs,
}

func IsCanonical(field string) bool {
	return slices.Contains(CanonicalFields, field)
}

// Kind classifies how a field's value sequence behaves under
// normalisation and the list operations.
type Kind uint8

const (
	// KindMulti fields hold independent items, deduplicated
	// case-insensitively with first occurrence winning.
	KindMulti Kind = iota
	// KindSingle fields keep only their first non-blank value.
	KindSingle
	// KindComment fields keep order and duplicates, dropping only
	// blank entries.
	KindComment
)

// FieldKind returns the classification for a field. Unknown custom
// fields are treated as multi-valued.
func FieldKind(field string) Kind {
	switch field {
	case Title, Album, Date, Track, TotalTracks, Disc, TotalDiscs:
		return KindSingle
	case Comment:
		return KindComment
	}
	return KindMulti
}

// https://taglib.org/api/p_propertymapping.html
// https://mutagen.readthedocs.io/en/latest/api/id3_frames.html
var aliases = map[string]string{
	"tit2": Title,

	"artists": Artist,
	"tpe1":    Artist,

	"talb": Album,

	"albumartists":  AlbumArtist,
	"album_artist":  AlbumArtist,
	"album_artists": AlbumArtist,
	"tpe2":          AlbumArtist,
	"aart":          AlbumArtist,

	"tcon": Genre,
	"comm": Comment,
	"tcom": Composer,

	"performers": Performer,
	"perf":       Performer,
	"tpe3":       Performer,

	"year":         Date,
	"originaldate": Date,
	"tdrc":         Date,
	"tory":         Date,
	"tdat":         Date,

	"tracknumber":  Track,
	"track_number": Track,
	"trck":         Track,

	"tracktotal":  TotalTracks,
	"track_total": TotalTracks,

	"discnumber":  Disc,
	"disc_number": Disc,
	"tpos":        Disc,

	"disctotal":  TotalDiscs,
	"disc_total": TotalDiscs,
}

// CanonKey maps any incoming key, canonical, alias, or custom, to the
// canonical keyspace. Custom keys come back lowercased with separator
// runs collapsed to underscores.
func CanonKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if c, ok := aliases[k]; ok {
		return c
	}
	k = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, k)
	if c, ok := aliases[k]; ok {
		return c
	}
	return k
}

// Fields maps canonical field name to an ordered value sequence. An
// absent key or empty sequence means the field does not exist; the
// cleared sentinel (see [Cleared]) means present but blank.
type Fields map[string][]string

func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, vs := range f {
		out[k] = slices.Clone(vs)
	}
	return out
}

func (f Fields) Equal(other Fields) bool {
	return maps.EqualFunc(f, other, slices.Equal)
}

// SortedKeys returns the field names in display order, canonical fields
// first, then custom fields sorted.
func (f Fields) SortedKeys() []string {
	keys := make([]string, 0, len(f))
	for _, c := range CanonicalFields {
		if _, ok := f[c]; ok {
			keys = append(keys, c)
		}
	}
	var custom []string
	for k := range f {
		if !IsCanonical(k) {
			custom = append(custom, k)
		}
	}
	slices.Sort(custom)
	return append(keys, custom...)
}

// Cleared is the "present but intentionally blank" sentinel, distinct
// from an absent field which signals deletion.
func Cleared() []string {
	return []string{""}
}

func IsCleared(values []string) bool {
	return len(values) == 1 && values[0] == ""
}

// Fold returns a comparison key that is insensitive to case and to
// unicode composition, so "Sigur Rós" compares equal however the ó was
// encoded.
func Fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// Schema selects how much of a file's native keyspace a read surfaces.
type Schema string

const (
	// SchemaCanonical surfaces the canonical fields only.
	SchemaCanonical Schema = "canonical"
	// SchemaExtended surfaces canonical fields plus canonicalised
	// custom keys. The default.
	SchemaExtended Schema = "extended"
	// SchemaRaw surfaces the codec's native keys untouched, for
	// diagnostics. Read only.
	SchemaRaw Schema = "raw"
)

func ParseSchema(s string) (Schema, error) {
	switch sc := Schema(strings.ToLower(strings.TrimSpace(s))); sc {
	case SchemaCanonical, SchemaExtended, SchemaRaw:
		return sc, nil
	}
	return "", fmt.Errorf("unknown schema %q", s)
}
