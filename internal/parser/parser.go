package parser

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/roach88/crate/internal/record"
)

// EntryElement is the local name of the element holding one album.
const EntryElement = "album"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse decodes a catalogue document held in memory.
func Parse(data []byte) ([]record.Record, error) {
	return ParseReader(bytes.NewReader(data))
}

// ParseReader decodes a catalogue document from r.
//
// Records are returned in document order with ID unset. The whole document
// is tokenized before a field error is reported, so a document that is both
// incomplete and ill-formed reports MalformedDocumentError.
func ParseReader(r io.Reader) ([]record.Record, error) {
	br := bufio.NewReader(r)
	if prefix, _ := br.Peek(len(utf8BOM)); bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	dec := xml.NewDecoder(br)
	dec.CharsetReader = charsetReader

	var (
		records  []record.Record
		fieldErr error
		current  *entry
		depth    int
		sawRoot  bool
		entries  int
	)

	malformed := func(err error) error {
		return &MalformedDocumentError{Offset: dec.InputOffset(), Err: err}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if sawRoot {
					return nil, malformed(errors.New("multiple root elements"))
				}
				sawRoot = true
			}
			depth++

			if current != nil {
				current.start(t.Name.Local)
				continue
			}
			if t.Name.Local == EntryElement {
				current = newEntry(entries)
				entries++
			}

		case xml.EndElement:
			depth--
			if current == nil || !current.end() {
				continue
			}
			if fieldErr == nil {
				rec, err := current.record()
				if err != nil {
					fieldErr = err
				} else {
					records = append(records, rec)
				}
			}
			current = nil

		case xml.CharData:
			if current != nil {
				current.text(t)
				continue
			}
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, malformed(errors.New("text outside root element"))
			}
		}
	}

	if !sawRoot {
		return nil, malformed(errors.New("no root element"))
	}
	if fieldErr != nil {
		return nil, fieldErr
	}
	if records == nil {
		records = []record.Record{}
	}
	return records, nil
}

// charsetReader decodes documents that declare a non-UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// entry accumulates the fields of one album element while it is open.
type entry struct {
	index  int
	depth  int
	values map[string]string

	capturing    string
	captureDepth int
	buf          strings.Builder
}

func newEntry(index int) *entry {
	return &entry{
		index:  index,
		depth:  1,
		values: make(map[string]string, len(record.Fields)),
	}
}

// start handles an element opened inside the entry.
// Only the first occurrence of a field is captured.
func (e *entry) start(name string) {
	e.depth++
	if e.capturing != "" || !record.IsField(name) {
		return
	}
	if _, seen := e.values[name]; seen {
		return
	}
	e.capturing = name
	e.captureDepth = e.depth
	e.buf.Reset()
}

// end handles a closing tag and reports whether the entry itself closed.
func (e *entry) end() bool {
	if e.capturing != "" && e.depth == e.captureDepth {
		e.values[e.capturing] = e.buf.String()
		e.capturing = ""
	}
	e.depth--
	return e.depth == 0
}

func (e *entry) text(data xml.CharData) {
	if e.capturing != "" {
		e.buf.Write(data)
	}
}

// record converts the captured values, failing on the first absent field.
func (e *entry) record() (record.Record, error) {
	var rec record.Record
	for _, field := range record.Fields {
		v, ok := e.values[field]
		if !ok {
			return record.Record{}, &MissingFieldError{EntryIndex: e.index, Field: field}
		}
		if err := rec.Set(field, record.NormalizeText(v)); err != nil {
			return record.Record{}, err
		}
	}
	return rec, nil
}
