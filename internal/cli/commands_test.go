package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crate/internal/record"
	"github.com/roach88/crate/internal/store"
	"github.com/roach88/crate/internal/testutil"
)

// writeDocument writes records as a document file in dir.
func writeDocument(t *testing.T, dir, name string, records ...record.Record) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, testutil.Document(records...), 0644))
	return path
}

func album(artist, title, year, genre string) record.Record {
	return record.Record{Artist: artist, Title: title, Songs: "10", Year: year, Genre: genre}
}

// decodeData decodes the data field of a JSON CLIResponse into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func setupCatalogue(t *testing.T) (db, dir string) {
	t.Helper()
	dir = t.TempDir()
	db = filepath.Join(dir, "crate.db")
	doc := writeDocument(t, dir, "albums.xml",
		album("Miles Davis", "Kind of Blue", "1959", "Jazz"),
		album("Radiohead", "OK Computer", "1997", "Rock"),
		album("Portishead", "Dummy", "1994", "Trip Hop"),
	)
	_, err := executeCommand(t, "--db", db, "import", doc)
	require.NoError(t, err)
	return db, dir
}

func TestImport_Text(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "crate.db")
	a := writeDocument(t, dir, "a.xml", album("A1", "T1", "1999", "Rock"), album("A2", "T2", "2001", "Jazz"))
	b := writeDocument(t, dir, "b.xml", album("A3", "T3", "2003", "Pop"))

	out, err := executeCommand(t, "--db", db, "import", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 records from "+a+" (ids 1-2")
	assert.Contains(t, out, "imported 1 records from "+b+" (ids 3,")
	assert.Contains(t, out, "3 records in 2 batches")
}

func TestImport_JSON(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "crate.db")
	doc := writeDocument(t, dir, "a.xml", album("A1", "T1", "1999", "Rock"))

	out, err := executeCommand(t, "--db", db, "--format", "json", "import", doc)
	require.NoError(t, err)

	var summary importSummary
	decodeData(t, out, &summary)
	assert.Equal(t, 1, summary.Records)
	require.Len(t, summary.Batches, 1)
	assert.Equal(t, int64(1), summary.Batches[0].FirstID)
	assert.Equal(t, doc, summary.Batches[0].Source)
}

func TestImport_Show(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "crate.db")
	doc := writeDocument(t, dir, "a.xml", album("Nick Drake", "Pink Moon", "1972", "Folk"))

	out, err := executeCommand(t, "--db", db, "import", "--show", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "ARTIST")
	assert.Contains(t, out, "Pink Moon")
	assert.Contains(t, out, "1 records\n")
}

func TestImport_MissingFieldLeavesCatalogueUnchanged(t *testing.T) {
	db, dir := setupCatalogue(t)
	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte(`<albums><album><artist>X</artist></album></albums>`), 0644))

	out, err := executeCommand(t, "--db", db, "import", bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "Error [MissingFieldError]")
	assert.Contains(t, out, `missing required field "title"`)

	out, err = executeCommand(t, "--db", db, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "3 records\n")
}

func TestImport_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte(`<albums><album>`), 0644))

	out, err := executeCommand(t, "--db", filepath.Join(dir, "crate.db"), "--format", "json", "import", bad)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MalformedDocumentError", resp.Error.Kind)
}

func TestImport_RequiresFiles(t *testing.T) {
	_, err := executeCommand(t, "--db", filepath.Join(t.TempDir(), "crate.db"), "import")
	require.Error(t, err)
}

func TestList(t *testing.T) {
	db, _ := setupCatalogue(t)

	out, err := executeCommand(t, "--db", db, "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Kind of Blue")
	assert.Contains(t, lines[3], "Dummy")
	assert.Equal(t, "3 records", lines[4])
}

func TestList_JSON(t *testing.T) {
	db, _ := setupCatalogue(t)

	out, err := executeCommand(t, "--db", db, "--format", "json", "list")
	require.NoError(t, err)

	var records []record.Record
	decodeData(t, out, &records)
	require.Len(t, records, 3)
	assert.Equal(t, record.Record{ID: 2, Artist: "Radiohead", Title: "OK Computer", Songs: "10", Year: "1997", Genre: "Rock"}, records[1])
}

func TestList_EmptyJSON(t *testing.T) {
	out, err := executeCommand(t, "--db", filepath.Join(t.TempDir(), "crate.db"), "--format", "json", "list")
	require.NoError(t, err)

	var records []record.Record
	decodeData(t, out, &records)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestLookup_Value(t *testing.T) {
	db, _ := setupCatalogue(t)

	out, err := executeCommand(t, "--db", db, "--format", "json", "lookup", "--field", "genre", "--value", "Jazz")
	require.NoError(t, err)

	var records []record.Record
	decodeData(t, out, &records)
	require.Len(t, records, 1)
	assert.Equal(t, "Miles Davis", records[0].Artist)
}

func TestLookup_Range(t *testing.T) {
	db, _ := setupCatalogue(t)

	out, err := executeCommand(t, "--db", db, "lookup", "--field", "year", "--from", "1990", "--to", "1999")
	require.NoError(t, err)
	assert.Contains(t, out, "OK Computer")
	assert.Contains(t, out, "Dummy")
	assert.NotContains(t, out, "Kind of Blue")
	assert.Contains(t, out, "2 records\n")
}

func TestLookup_ValueAndRangeConflict(t *testing.T) {
	db, _ := setupCatalogue(t)

	_, err := executeCommand(t, "--db", db, "lookup", "--field", "year", "--value", "1997", "--from", "1990")
	require.Error(t, err)
}

func TestLookup_UndeclaredIndex(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "crate.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("database: "+filepath.Join(dir, "crate.db")+"\nindexes:\n  - field: genre\n"), 0644))

	out, err := executeCommand(t, "--config", cfg, "lookup", "--field", "artist", "--value", "X")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `no index on field "artist"`)
}

func TestHistory(t *testing.T) {
	db, dir := setupCatalogue(t)
	empty := writeDocument(t, dir, "empty.xml")
	_, err := executeCommand(t, "--db", db, "import", empty)
	require.NoError(t, err)

	out, err := executeCommand(t, "--db", db, "--format", "json", "history")
	require.NoError(t, err)

	var batches []store.Batch
	decodeData(t, out, &batches)
	require.Len(t, batches, 2)
	assert.Equal(t, 3, batches[0].Count)
	assert.Equal(t, int64(2), batches[1].Seq)
	assert.Equal(t, 0, batches[1].Count)

	out, err = executeCommand(t, "--db", db, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, "1-3")
}

func TestHistory_Empty(t *testing.T) {
	out, err := executeCommand(t, "--db", filepath.Join(t.TempDir(), "crate.db"), "history")
	require.NoError(t, err)
	assert.Equal(t, "No imports.\n", out)
}

func TestVerify(t *testing.T) {
	db, _ := setupCatalogue(t)

	out, err := executeCommand(t, "--db", db, "verify")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}

func TestInfo(t *testing.T) {
	db, _ := setupCatalogue(t)

	out, err := executeCommand(t, "--db", db, "--format", "json", "info")
	require.NoError(t, err)

	var info store.Info
	decodeData(t, out, &info)
	assert.Equal(t, "albums", info.Collection)
	assert.Equal(t, 1, info.Version)
	assert.Equal(t, 3, info.Count)
	assert.Equal(t, 1, info.Imports)
	assert.Len(t, info.Indexes, 5)

	out, err = executeCommand(t, "--db", db, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "collection:")
	assert.Contains(t, out, "records:")
}

func TestConfig_Collection(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "crate.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("collection: vinyl\nversion: 2\n"), 0644))
	db := filepath.Join(dir, "crate.db")

	out, err := executeCommand(t, "--config", cfg, "--db", db, "--format", "json", "info")
	require.NoError(t, err)

	var info store.Info
	decodeData(t, out, &info)
	assert.Equal(t, "vinyl", info.Collection)
	assert.Equal(t, 2, info.Version)
	assert.Equal(t, db, info.Path)
}

func TestConfig_Invalid(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "crate.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("version: -1\n"), 0644))

	_, err := executeCommand(t, "--config", cfg, "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestOpen_SchemaVersionConflict(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "crate.db")
	v2 := filepath.Join(dir, "v2.yaml")
	require.NoError(t, os.WriteFile(v2, []byte("version: 2\n"), 0644))

	_, err := executeCommand(t, "--config", v2, "--db", db, "info")
	require.NoError(t, err)

	_, err = executeCommand(t, "--db", db, "info")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, store.IsVersionConflict(err))
}

func TestOpen_Locked(t *testing.T) {
	db := filepath.Join(t.TempDir(), "crate.db")
	st, err := store.Open(context.Background(), store.Options{Path: db})
	require.NoError(t, err)
	defer st.Close()

	_, err = executeCommand(t, "--db", db, "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrLocked)
}
