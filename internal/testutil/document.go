package testutil

import (
	"encoding/xml"
	"strings"

	"github.com/roach88/crate/internal/record"
)

// Document renders records as an album catalogue document.
// Field values are escaped, so any text round-trips through the parser.
func Document(records ...record.Record) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<albums>\n")
	for _, rec := range records {
		b.WriteString("  <album>")
		values := rec.Values()
		for i, field := range record.Fields {
			b.WriteString("<" + field + ">")
			xml.EscapeText(&b, []byte(values[i]))
			b.WriteString("</" + field + ">")
		}
		b.WriteString("</album>\n")
	}
	b.WriteString("</albums>\n")
	return []byte(b.String())
}
