// Package db provides the embedded SQLite storage layer for pantry.
//
// The database runs in embedded mode via ncruces/go-sqlite3 (WASM build, no
// cgo) with WAL for concurrent reads. The dump engine, the watch daemon, and
// the CLI all go through this package; nothing else touches SQL.
//
// Architecture:
//   - Database file: pantry.db (configurable)
//   - WAL mode: concurrent readers during writes
//   - Schema: sources, ingredients, metadata, recipes plus the two join tables
//   - Foreign keys enforced; joins cascade on recipe deletion
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pantrydb/pantry/internal/schema"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the SQLite connection with pantry-specific functionality.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a database connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If the file doesn't exist it is created; the schema is not applied until
// InitSchema is called.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	database, err := db.Open("pantry.db")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
func Open(path string) (*DB, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// busy_timeout and foreign_keys are per-connection pragmas; the DSN
	// applies them to every connection the pool opens, not just the first.
	connStr := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	database := &DB{
		conn: conn,
		path: path,
	}

	// Enable WAL mode for concurrent reads. Unlike the pragmas above this
	// persists in the database file, so once is enough.
	if _, err := database.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return database, nil
}

// Path returns the filesystem path the database was opened with.
func (db *DB) Path() string {
	return db.path
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	// Checkpoint WAL before closing
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the database schema if it doesn't exist.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
// Idempotent; safe to call on an already-initialized database.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	ddl := `
	-- Parent tables
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT,  -- book, website, magazine, family
		url TEXT,
		author TEXT
	);

	CREATE TABLE IF NOT EXISTS ingredients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT
	);

	CREATE TABLE IF NOT EXISTS metadata (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,  -- cuisine, diet, course, tag
		label TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		servings INTEGER NOT NULL DEFAULT 0,
		prep_minutes INTEGER NOT NULL DEFAULT 0,
		cook_minutes INTEGER NOT NULL DEFAULT 0,
		source_id TEXT,
		instructions TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (source_id) REFERENCES sources(id) ON DELETE SET NULL
	);

	-- Join tables
	CREATE TABLE IF NOT EXISTS recipe_ingredients (
		recipe_id TEXT NOT NULL,
		ingredient_id TEXT NOT NULL,
		quantity TEXT NOT NULL DEFAULT '',
		unit TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (recipe_id, ingredient_id),
		FOREIGN KEY (recipe_id) REFERENCES recipes(id) ON DELETE CASCADE,
		FOREIGN KEY (ingredient_id) REFERENCES ingredients(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS recipe_metadata (
		recipe_id TEXT NOT NULL,
		metadata_id TEXT NOT NULL,
		PRIMARY KEY (recipe_id, metadata_id),
		FOREIGN KEY (recipe_id) REFERENCES recipes(id) ON DELETE CASCADE,
		FOREIGN KEY (metadata_id) REFERENCES metadata(id) ON DELETE CASCADE
	);

	-- Indexes for common queries
	CREATE INDEX IF NOT EXISTS idx_recipes_source ON recipes(source_id);
	CREATE INDEX IF NOT EXISTS idx_recipes_name ON recipes(name);
	CREATE INDEX IF NOT EXISTS idx_metadata_kind ON metadata(kind);
	CREATE INDEX IF NOT EXISTS idx_recipe_ingredients_ingredient
	    ON recipe_ingredients(ingredient_id);
	CREATE INDEX IF NOT EXISTS idx_recipe_metadata_metadata
	    ON recipe_metadata(metadata_id);
	`

	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// expectedColumns maps each declared table to the column set InitSchema
// creates. CheckSchema compares the live database against this.
var expectedColumns = map[string][]string{
	"sources":            {"id", "name", "kind", "url", "author"},
	"ingredients":        {"id", "name", "category"},
	"metadata":           {"id", "kind", "label"},
	"recipes":            {"id", "name", "description", "servings", "prep_minutes", "cook_minutes", "source_id", "instructions", "created_at", "updated_at"},
	"recipe_ingredients": {"recipe_id", "ingredient_id", "quantity", "unit", "note"},
	"recipe_metadata":    {"recipe_id", "metadata_id"},
}

// CheckSchema verifies every declared table exists with the expected columns.
func (db *DB) CheckSchema() error {
	return db.CheckSchemaContext(context.Background())
}

// CheckSchemaContext verifies the live schema with context support.
//
// A missing table or a column-set mismatch returns an error naming the
// table; extra tables in the database are ignored.
func (db *DB) CheckSchemaContext(ctx context.Context) error {
	for _, tbl := range schema.Tables() {
		cols, err := db.tableColumns(ctx, tbl.Name)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			return fmt.Errorf("table %s does not exist", tbl.Name)
		}

		want := expectedColumns[tbl.Name]
		if len(cols) != len(want) {
			return fmt.Errorf("table %s has columns %v, want %v", tbl.Name, cols, want)
		}
		have := make(map[string]bool, len(cols))
		for _, c := range cols {
			have[c] = true
		}
		for _, c := range want {
			if !have[c] {
				return fmt.Errorf("table %s is missing column %s", tbl.Name, c)
			}
		}
	}
	return nil
}

// tableColumns returns the column names of a table, empty if it is absent.
func (db *DB) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info for %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table info for %s: %w", table, err)
	}
	return cols, nil
}

// Counts returns the row count of every declared table.
func (db *DB) Counts() (map[string]int, error) {
	return db.CountsContext(context.Background())
}

// CountsContext returns per-table row counts with context support.
func (db *DB) CountsContext(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, tbl := range schema.Tables() {
		var n int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", tbl.Name)
		if err := db.conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", tbl.Name, err)
		}
		counts[tbl.Name] = n
	}
	return counts, nil
}

// InstructionCountContext returns how many recipes carry non-empty
// instructions.
func (db *DB) InstructionCountContext(ctx context.Context) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM recipes WHERE instructions != ''`
	if err := db.conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count instructions: %w", err)
	}
	return n, nil
}

// LatestUpdateContext returns the most recent recipes.updated_at value, or
// the zero time when the table is empty. Export uses this to stamp the
// README without breaking determinism.
func (db *DB) LatestUpdateContext(ctx context.Context) (time.Time, error) {
	var latest sql.NullString
	query := `SELECT MAX(updated_at) FROM recipes`
	if err := db.conn.QueryRowContext(ctx, query).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest update: %w", err)
	}
	if !latest.Valid || latest.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, latest.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse latest update %q: %w", latest.String, err)
	}
	return t, nil
}

// Tx wraps a database transaction with typed row operations. Obtain one
// through WithTx; the callback either commits by returning nil or rolls
// back by returning an error.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction.
func (db *DB) WithTx(fn func(*Tx) error) error {
	return db.WithTxContext(context.Background(), fn)
}

// WithTxContext runs fn inside a transaction with context support.
// The transaction commits if fn returns nil and rolls back otherwise.
func (db *DB) WithTxContext(ctx context.Context, fn func(*Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// stringToNullString converts "" to SQL NULL. Foreign-key columns must be
// NULL rather than empty when no parent is referenced.
func stringToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringToString converts a nullable SQL string to a plain string.
func nullStringToString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}
