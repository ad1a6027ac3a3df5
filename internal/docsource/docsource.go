// Package docsource reads catalogue documents from disk.
//
// Files ending in .gz or .zst are decompressed transparently so archived
// catalogues can be imported without unpacking them first.
package docsource

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// MaxDocumentSize bounds the decompressed size of a single document.
const MaxDocumentSize = 256 << 20

// ReadFile returns the raw (decompressed) bytes of the document at path.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	defer f.Close()

	return ReadAll(f, path)
}

// ReadAll reads a document from r, choosing the decompressor from name's
// extension.
func ReadAll(r io.Reader, name string) ([]byte, error) {
	var src io.Reader = r

	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("read document %s: gzip: %w", name, err)
		}
		defer zr.Close()
		src = zr
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("read document %s: zstd: %w", name, err)
		}
		defer zr.Close()
		src = zr
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(src, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}
	if n > MaxDocumentSize {
		return nil, fmt.Errorf("read document %s: larger than %d bytes", name, MaxDocumentSize)
	}
	return buf.Bytes(), nil
}
