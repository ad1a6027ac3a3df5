package record

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Field names of a record. These double as XML element names in imported
// documents and as column and index names in the store.
const (
	FieldArtist = "artist"
	FieldTitle  = "title"
	FieldSongs  = "songs"
	FieldYear   = "year"
	FieldGenre  = "genre"
)

// Fields lists the required fields in canonical order.
// Parsing reports missing fields in this order.
var Fields = []string{FieldArtist, FieldTitle, FieldSongs, FieldYear, FieldGenre}

// Record is one imported album.
type Record struct {
	ID     int64  `json:"id"` // Store-assigned, zero before first write
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Songs  string `json:"songs"` // Opaque text, no numeric coercion
	Year   string `json:"year"`  // Opaque text, no numeric coercion
	Genre  string `json:"genre"`
}

// IsField reports whether name is one of the record fields.
func IsField(name string) bool {
	for _, f := range Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Get returns the value of the named field.
func (r Record) Get(field string) (string, error) {
	switch field {
	case FieldArtist:
		return r.Artist, nil
	case FieldTitle:
		return r.Title, nil
	case FieldSongs:
		return r.Songs, nil
	case FieldYear:
		return r.Year, nil
	case FieldGenre:
		return r.Genre, nil
	}
	return "", fmt.Errorf("unknown record field %q", field)
}

// Set assigns the value of the named field.
func (r *Record) Set(field, value string) error {
	switch field {
	case FieldArtist:
		r.Artist = value
	case FieldTitle:
		r.Title = value
	case FieldSongs:
		r.Songs = value
	case FieldYear:
		r.Year = value
	case FieldGenre:
		r.Genre = value
	default:
		return fmt.Errorf("unknown record field %q", field)
	}
	return nil
}

// Values returns the field values in Fields order.
func (r Record) Values() []string {
	return []string{r.Artist, r.Title, r.Songs, r.Year, r.Genre}
}

// WithoutID returns a copy of r with the identity cleared.
// Used to compare stored records against parsed ones.
func (r Record) WithoutID() Record {
	r.ID = 0
	return r
}

// NormalizeText returns s in canonical form: NFC normalized with leading and
// trailing whitespace removed. Interior whitespace is preserved.
func NormalizeText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
