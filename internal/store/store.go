package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/crate/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// Defaults applied by Open when Options leave a value unset.
const (
	DefaultCollection = "albums"
	DefaultVersion    = 1
	DefaultCacheSize  = 1024
)

// maxOpenConns allows readers to proceed while the single writer holds a
// transaction. WAL mode keeps them on the last committed snapshot.
const maxOpenConns = 4

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options configures Open.
type Options struct {
	// Path is the SQLite database file. Required.
	Path string

	// Collection names the primary table. Default: "albums".
	Collection string

	// Version is the requested schema version. Default: 1.
	Version int

	// Indexes declares the secondary indexes. Default: DefaultIndexes().
	Indexes []IndexSpec

	// CacheSize bounds the Get cache. Default: 1024 entries.
	CacheSize int

	// Logger receives diagnostics. Default: slog.Default().
	Logger *slog.Logger

	// NewBatchID generates import batch ids. Default: UUIDv7.
	NewBatchID func() string
}

// Store provides durable storage for album records.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db         *sql.DB
	lock       *flock.Flock
	path       string
	collection string
	version    int
	indexes    []IndexSpec
	cache      *lru.Cache[int64, record.Record]
	log        *slog.Logger
	newBatchID func() string

	// writeMu serializes write transactions (single writer).
	writeMu sync.Mutex
}

// Open creates or opens the store at opts.Path.
//
// On first open at a given version the collection, the import log and every
// declared index are created; on later opens the existing structures are
// attached and missing indexes are added. Both steps are idempotent.
//
// Open fails with SchemaVersionConflictError when opts.Version is lower than
// the persisted version, and with StorageIOError when the file cannot be
// opened or another handle holds the store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	opts, err := withDefaults(opts)
	if err != nil {
		return nil, err
	}

	// Acquire the process-wide handle before touching the database
	lock := flock.New(opts.Path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, ioError("open", fmt.Errorf("acquire lock: %w", err))
	}
	if !locked {
		return nil, ioError("open", ErrLocked)
	}

	s, err := open(ctx, opts, lock)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return s, nil
}

func open(ctx context.Context, opts Options, lock *flock.Flock) (*Store, error) {
	// Per-connection pragmas go in the DSN so every pooled connection gets them
	dsn := opts.Path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, ioError("open", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, ioError("open", fmt.Errorf("connect: %w", err))
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	cache, err := lru.New[int64, record.Record](opts.CacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache: %w", err)
	}

	s := &Store{
		db:         db,
		lock:       lock,
		path:       opts.Path,
		collection: opts.Collection,
		version:    opts.Version,
		indexes:    append([]IndexSpec(nil), opts.Indexes...),
		cache:      cache,
		log:        opts.Logger,
		newBatchID: opts.NewBatchID,
	}

	if err := s.applySchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.log.Debug("store opened",
		"path", s.path,
		"collection", s.collection,
		"version", s.version,
		"indexes", len(s.indexes))
	return s, nil
}

func withDefaults(opts Options) (Options, error) {
	if opts.Path == "" {
		return opts, errors.New("open store: path is required")
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if !identRe.MatchString(opts.Collection) || strings.EqualFold(opts.Collection, "imports") {
		return opts, fmt.Errorf("open store: invalid collection name %q", opts.Collection)
	}
	if opts.Version == 0 {
		opts.Version = DefaultVersion
	}
	if opts.Version < 1 {
		return opts, fmt.Errorf("open store: invalid version %d", opts.Version)
	}
	if opts.Indexes == nil {
		opts.Indexes = DefaultIndexes()
	}
	if err := validateIndexes(opts.Indexes); err != nil {
		return opts, fmt.Errorf("open store: %w", err)
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewBatchID == nil {
		opts.NewBatchID = newBatchID
	}
	return opts, nil
}

// newBatchID returns a time-sortable UUIDv7.
func newBatchID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Close releases the database and the store lock.
// Safe to call more than once.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Collection returns the primary table name.
func (s *Store) Collection() string {
	return s.collection
}

// Version returns the schema version the store was opened at.
func (s *Store) Version() int {
	return s.version
}

func (s *Store) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

// applySchema creates or attaches the collection and indexes, then records
// the schema version. Runs in one transaction so a crash leaves either the
// old layout or the new one.
func (s *Store) applySchema(ctx context.Context) error {
	var persisted int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&persisted); err != nil {
		return ioError("open", fmt.Errorf("get user_version: %w", err))
	}
	if s.version < persisted {
		return &SchemaVersionConflictError{Requested: s.version, Persisted: persisted}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ioError("open", fmt.Errorf("begin schema tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	ddl := strings.ReplaceAll(schemaSQL, "{{collection}}", quoteIdent(s.collection))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return ioError("open", fmt.Errorf("execute schema: %w", err))
	}

	if err := s.ensureIndexes(ctx, tx); err != nil {
		return ioError("open", err)
	}

	if s.version > persisted {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", s.version)); err != nil {
			return ioError("open", fmt.Errorf("set user_version: %w", err))
		}
		s.log.Info("schema initialized", "collection", s.collection, "from", persisted, "to", s.version)
	}

	if err := tx.Commit(); err != nil {
		return ioError("open", fmt.Errorf("commit schema: %w", err))
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// quoteIdent quotes a validated SQL identifier.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
