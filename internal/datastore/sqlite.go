package datastore

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)

	dberrors "github.com/lepinkainen/dbupload/internal/errors"
)

const (
	// DriverModernc is the pure Go SQLite driver and the default
	DriverModernc = "sqlite"
	// DriverCGO is github.com/mattn/go-sqlite3, which requires cgo
	DriverCGO = "sqlite3"

	dirPermissions = 0o750
)

// Options configures how SQLiteStore opens its database
type Options struct {
	// Driver is the database/sql driver name, DriverModernc or DriverCGO.
	Driver string
	// ForeignKeys enables foreign key enforcement on the connection.
	ForeignKeys bool
	// BusyTimeout is how long the engine waits on a locked database. Zero keeps the engine default.
	BusyTimeout time.Duration
	// JournalMode sets PRAGMA journal_mode (e.g. "WAL"). Empty keeps the engine default.
	JournalMode string
	// CreateDirs creates the parent directory of the database file before opening it.
	CreateDirs bool
}

// DefaultOptions returns the options used by NewSQLiteStore
func DefaultOptions() Options {
	return Options{
		Driver:      DriverModernc,
		ForeignKeys: true,
	}
}

// SQLiteStore implements the Store interface for a local SQLite database file.
// It holds a single connection; it is not safe for concurrent use.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	opts   Options
}

// NewSQLiteStore creates a new SQLiteStore instance with DefaultOptions
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return NewSQLiteStoreWithOptions(dbPath, DefaultOptions())
}

// NewSQLiteStoreWithOptions creates a new SQLiteStore instance
func NewSQLiteStoreWithOptions(dbPath string, opts Options) *SQLiteStore {
	if opts.Driver == "" {
		opts.Driver = DriverModernc
	}
	return &SQLiteStore{
		dbPath: dbPath,
		opts:   opts,
	}
}

// Path returns the database path the store was created with
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// IsOpen reports whether the store currently holds a connection
func (s *SQLiteStore) IsOpen() bool {
	return s.db != nil
}

// Connect opens the SQLite database, creating the file if needed.
// Connect on an open store does nothing.
func (s *SQLiteStore) Connect() error {
	if s.db != nil {
		slog.Debug("Database already connected", "path", s.dbPath)
		return nil
	}

	if mode := strings.TrimSpace(s.opts.JournalMode); mode != "" && !validJournalModes[strings.ToUpper(mode)] {
		return dberrors.NewIOError(s.dbPath, fmt.Errorf("unsupported journal mode %q", mode))
	}

	if s.opts.CreateDirs && !isURIPath(s.dbPath) {
		if err := os.MkdirAll(filepath.Dir(s.dbPath), dirPermissions); err != nil {
			return dberrors.NewIOError(s.dbPath, fmt.Errorf("failed to create database directory: %w", err))
		}
	}

	db, err := sql.Open(s.opts.Driver, s.dbPath)
	if err != nil {
		return dberrors.NewIOError(s.dbPath, fmt.Errorf("failed to open database: %w", err))
	}

	// One connection: the store is a single handle, and :memory: databases
	// are per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return dberrors.NewIOError(s.dbPath, fmt.Errorf("failed to connect to database: %w", err))
	}

	for _, pragma := range s.pragmas() {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return dberrors.NewIOError(s.dbPath, fmt.Errorf("failed to apply %q: %w", pragma, err))
		}
	}

	s.db = db
	slog.Debug("Connected to database", "path", s.dbPath, "driver", s.opts.Driver)
	return nil
}

func (s *SQLiteStore) pragmas() []string {
	var pragmas []string
	if s.opts.ForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}
	if s.opts.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout = %d", s.opts.BusyTimeout.Milliseconds()))
	}
	if mode := strings.ToUpper(strings.TrimSpace(s.opts.JournalMode)); mode != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = "+mode)
	}
	return pragmas
}

// validJournalModes lists the values PRAGMA journal_mode accepts
var validJournalModes = map[string]bool{
	"DELETE":   true,
	"TRUNCATE": true,
	"PERSIST":  true,
	"MEMORY":   true,
	"WAL":      true,
	"OFF":      true,
}

// isURIPath reports paths that don't name a plain file on disk
func isURIPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}

// CreateTable creates a table with the given schema if it doesn't exist
func (s *SQLiteStore) CreateTable(name string, schema Schema) error {
	if s.db == nil {
		return dberrors.NewNotConnectedError("create_table")
	}
	if err := schema.Validate(name); err != nil {
		return err
	}

	if _, err := s.db.Exec(createTableSQL(name, schema)); err != nil {
		return dberrors.NewSchemaError(name, "", "failed to create table", err)
	}
	slog.Debug("Table ready", "table", name, "columns", len(schema))
	return nil
}

// UploadData inserts records into table inside a single transaction.
// Each record inserts only its own columns; the others take their defaults.
// On any failure nothing is inserted and an UploadError is returned.
func (s *SQLiteStore) UploadData(table string, records []Record) (int, error) {
	if s.db == nil {
		return 0, dberrors.NewNotConnectedError("upload_data")
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := ValidateIdentifier(table); err != nil {
		return 0, dberrors.NewUploadError(table, -1, err)
	}
	for i, record := range records {
		if err := validateRecordColumns(record); err != nil {
			return 0, dberrors.NewUploadError(table, i, err)
		}
	}

	batch := uuid.NewString()
	slog.Debug("Uploading batch", "table", table, "rows", len(records), "batch", batch)

	// Start a transaction for batch insert
	tx, err := s.db.Begin()
	if err != nil {
		return 0, dberrors.NewUploadError(table, -1, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		// Rollback if we don't commit - ignore errors as they're expected if transaction was committed
		_ = tx.Rollback()
	}()

	// Records may differ in their column sets, so statements are prepared per column list
	stmts := make(map[string]*sql.Stmt)
	defer func() {
		for _, stmt := range stmts {
			_ = stmt.Close()
		}
	}()

	for i, record := range records {
		query := insertSQL(table, record.Columns())
		stmt, ok := stmts[query]
		if !ok {
			stmt, err = tx.Prepare(query)
			if err != nil {
				return 0, dberrors.NewUploadError(table, i, fmt.Errorf("failed to prepare statement: %w", err))
			}
			stmts[query] = stmt
		}

		if _, err := stmt.Exec(record.args()...); err != nil {
			return 0, dberrors.NewUploadError(table, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, dberrors.NewUploadError(table, -1, fmt.Errorf("failed to commit transaction: %w", err))
	}

	slog.Debug("Batch committed", "table", table, "rows", len(records), "batch", batch)
	return len(records), nil
}

// QueryData returns every row of table matching the equality filter in where.
// An empty filter returns the whole table.
func (s *SQLiteStore) QueryData(table string, where Record) ([]Record, error) {
	if s.db == nil {
		return nil, dberrors.NewNotConnectedError("query_data")
	}
	if err := ValidateIdentifier(table); err != nil {
		return nil, dberrors.NewQueryError(table, "invalid table name", err)
	}
	for _, col := range where.Columns() {
		if err := ValidateIdentifier(col); err != nil {
			return nil, dberrors.NewQueryError(table, "invalid filter column", err)
		}
	}

	exists, err := s.TableExists(table)
	if err != nil {
		return nil, dberrors.NewQueryError(table, "", err)
	}
	if !exists {
		return nil, dberrors.NewQueryError(table, "", dberrors.ErrNoSuchTable)
	}

	columns, err := s.tableColumns(table)
	if err != nil {
		return nil, dberrors.NewQueryError(table, "", err)
	}
	if where.Len() > 0 {
		known := make(map[string]bool, len(columns))
		for _, col := range columns {
			known[strings.ToLower(col)] = true
		}
		for _, col := range where.Columns() {
			if !known[strings.ToLower(col)] {
				return nil, dberrors.NewQueryError(table, fmt.Sprintf("unknown filter column %q", col), nil)
			}
		}
	}

	clause, args := whereSQL(where)
	rows, err := s.db.Query(selectSQL(table, columns)+clause, args...)
	if err != nil {
		return nil, dberrors.NewQueryError(table, "", err)
	}
	defer func() { _ = rows.Close() }()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, dberrors.NewQueryError(table, "", err)
	}
	return records, nil
}

// TableExists reports whether a table or view with the given name exists
func (s *SQLiteStore) TableExists(table string) (bool, error) {
	if s.db == nil {
		return false, dberrors.NewNotConnectedError("table_exists")
	}
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ? COLLATE NOCASE",
		table,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to look up table: %w", err)
	}
	return count > 0, nil
}

// tableColumns returns the columns of table in declaration order, including
// generated columns. Filters are checked against it because SQLite reads an
// unknown double-quoted identifier as a string literal.
func (s *SQLiteStore) tableColumns(table string) ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM pragma_table_xinfo(?) WHERE hidden IN (0, 2, 3) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("failed to read table columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, dberrors.ErrNoSuchTable
	}
	return columns, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	records := []Record{}
	for rows.Next() {
		raw := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record := NewRecord()
		for i, col := range columns {
			v, err := ValueOf(raw[i])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", col, err)
			}
			record.Set(col, v)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return records, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
