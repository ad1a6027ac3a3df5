package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crate/internal/record"
)

const twoAlbums = `<?xml version="1.0" encoding="UTF-8"?>
<albums>
  <album>
    <artist>A1</artist>
    <title>T1</title>
    <songs>10</songs>
    <year>1999</year>
    <genre>Rock</genre>
  </album>
  <album>
    <artist>A2</artist>
    <title>T2</title>
    <songs>8</songs>
    <year>2001</year>
    <genre>Jazz</genre>
  </album>
</albums>`

func TestParse_TwoEntriesInDocumentOrder(t *testing.T) {
	records, err := Parse([]byte(twoAlbums))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, record.Record{Artist: "A1", Title: "T1", Songs: "10", Year: "1999", Genre: "Rock"}, records[0])
	assert.Equal(t, record.Record{Artist: "A2", Title: "T2", Songs: "8", Year: "2001", Genre: "Jazz"}, records[1])
	for _, r := range records {
		assert.Zero(t, r.ID, "parser must not assign ids")
	}
}

func TestParse_EmptyRoot(t *testing.T) {
	records, err := Parse([]byte(`<albums/>`))
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestParse_MissingGenre(t *testing.T) {
	doc := `<albums><album>
		<artist>A1</artist><title>T1</title><songs>10</songs><year>1999</year>
	</album></albums>`

	records, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Nil(t, records)

	var mf *MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, 0, mf.EntryIndex)
	assert.Equal(t, "genre", mf.Field)
	assert.True(t, IsMissingField(err))
	assert.False(t, IsMalformed(err))
}

func TestParse_MissingFieldReportsFirstBadEntry(t *testing.T) {
	doc := `<albums>
		<album><artist>A1</artist><title>T1</title><songs>1</songs><year>1</year><genre>G</genre></album>
		<album><artist>A2</artist><songs>1</songs><year>1</year></album>
		<album><title>T3</title></album>
	</albums>`

	_, err := Parse([]byte(doc))

	var mf *MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, 1, mf.EntryIndex)
	assert.Equal(t, "title", mf.Field, "fields are checked in canonical order")
	assert.Equal(t, `entry 1: missing required field "title"`, err.Error())
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty input", ""},
		{"whitespace only", "  \n "},
		{"plain text", "not xml at all"},
		{"unclosed element", "<albums><album><artist>A1</artist>"},
		{"mismatched tags", "<albums><album></albums></album>"},
		{"two roots", "<albums/><albums/>"},
		{"undeclared entity", "<albums><album><artist>&nbsp;</artist></album></albums>"},
		{"unknown charset", `<?xml version="1.0" encoding="x-no-such-charset"?><albums/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Nil(t, records)
			assert.True(t, IsMalformed(err), "got %T: %v", err, err)
		})
	}
}

func TestParse_MalformedWinsOverMissingField(t *testing.T) {
	doc := `<albums><album><artist>A1</artist></album><album>`

	_, err := Parse([]byte(doc))
	assert.True(t, IsMalformed(err))
}

func TestParse_TextContentIsNormalized(t *testing.T) {
	doc := "<albums><album>" +
		"<artist>\n   Björk  </artist>" +
		"<title><![CDATA[Homo <Sapiens>]]></title>" +
		"<songs> 12 </songs>" +
		"<year>1997</year>" +
		"<genre>Art <b>Pop</b></genre>" +
		"</album></albums>"

	records, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Björk", records[0].Artist)
	assert.Equal(t, "Homo <Sapiens>", records[0].Title)
	assert.Equal(t, "12", records[0].Songs, "stored as text, trimmed only")
	assert.Equal(t, "Art Pop", records[0].Genre, "text content spans child elements")
}

func TestParse_EmptyFieldIsPresent(t *testing.T) {
	doc := `<albums><album><artist/><title>T</title><songs></songs><year>Y</year><genre>G</genre></album></albums>`

	records, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].Artist)
	assert.Equal(t, "", records[0].Songs)
}

func TestParse_FirstDuplicateWins(t *testing.T) {
	doc := `<albums><album>
		<artist>First</artist><artist>Second</artist>
		<title>T</title><songs>1</songs><year>Y</year><genre>G</genre>
	</album></albums>`

	records, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "First", records[0].Artist)
}

func TestParse_EntriesAtAnyDepth(t *testing.T) {
	doc := `<catalogue><shelf>
		<album><artist>A</artist><title>T</title><songs>1</songs><year>Y</year><genre>G</genre></album>
	</shelf><notes>ignored</notes></catalogue>`

	records, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].Artist)
}

func TestParse_NestedAlbumIsContent(t *testing.T) {
	doc := `<albums><album>
		<artist>Outer</artist><title>T</title><songs>1</songs><year>Y</year><genre>G</genre>
		<album><artist>Inner</artist></album>
	</album></albums>`

	records, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Outer", records[0].Artist)
}

func TestParse_Latin1Declaration(t *testing.T) {
	// "Canción" with ó encoded as a single ISO-8859-1 byte.
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
		"<albums><album><artist>Man\xe1</artist><title>Canci\xf3n</title>" +
		"<songs>9</songs><year>1999</year><genre>Pop</genre></album></albums>"

	records, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Maná", records[0].Artist)
	assert.Equal(t, "Canción", records[0].Title)
}

func TestParse_ByteOrderMark(t *testing.T) {
	records, err := Parse(append([]byte{0xEF, 0xBB, 0xBF}, twoAlbums...))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestParseReader(t *testing.T) {
	records, err := ParseReader(strings.NewReader(twoAlbums))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestErrorMessages(t *testing.T) {
	_, err := Parse([]byte("<albums>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed document at offset")

	var me *MalformedDocumentError
	require.ErrorAs(t, err, &me)
	assert.NotNil(t, me.Unwrap())
}
