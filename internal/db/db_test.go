package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pantrydb/pantry/internal/schema"
)

// setupTestDB creates an opened, schema-initialized database in a temp dir.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return database
}

// TestOpen_Success tests database creation.
func TestOpen_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer database.Close()

	if database.Path() != path {
		t.Errorf("Path() = %q, want %q", database.Path(), path)
	}
}

// TestInitSchema_Success tests that all declared tables are created.
func TestInitSchema_Success(t *testing.T) {
	database := setupTestDB(t)

	for _, tbl := range schema.Tables() {
		var count int
		query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
		if err := database.conn.QueryRow(query, tbl.Name).Scan(&count); err != nil {
			t.Fatalf("Failed to query table %s: %v", tbl.Name, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", tbl.Name)
		}
	}
}

// TestInitSchema_Idempotent tests that schema initialization is idempotent.
func TestInitSchema_Idempotent(t *testing.T) {
	database := setupTestDB(t)

	if err := database.InitSchema(); err != nil {
		t.Errorf("Second InitSchema() failed: %v", err)
	}
}

// TestCheckSchema_Valid tests schema verification against a fresh database.
func TestCheckSchema_Valid(t *testing.T) {
	database := setupTestDB(t)

	if err := database.CheckSchema(); err != nil {
		t.Errorf("CheckSchema() on initialized database failed: %v", err)
	}
}

// TestCheckSchema_MissingTable tests that an uninitialized database fails
// verification.
func TestCheckSchema_MissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer database.Close()

	if err := database.CheckSchema(); err == nil {
		t.Error("CheckSchema() on empty database should fail")
	}
}

// TestCheckSchema_ColumnMismatch tests that a wrong column set is detected.
func TestCheckSchema_ColumnMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer database.Close()

	// A sources table with the wrong shape
	ddl := `CREATE TABLE sources (id TEXT PRIMARY KEY, wrong TEXT)`
	if _, err := database.RawDB().Exec(ddl); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}

	if err := database.CheckSchema(); err == nil {
		t.Error("CheckSchema() should fail on column mismatch")
	}
}

// TestCounts_Empty tests counts on a fresh database.
func TestCounts_Empty(t *testing.T) {
	database := setupTestDB(t)

	counts, err := database.Counts()
	if err != nil {
		t.Fatalf("Counts() failed: %v", err)
	}
	if len(counts) != len(schema.Tables()) {
		t.Errorf("Counts() has %d entries, want %d", len(counts), len(schema.Tables()))
	}
	for table, n := range counts {
		if n != 0 {
			t.Errorf("count for %s = %d, want 0", table, n)
		}
	}
}

// TestWithTx_Commit tests that a successful callback commits.
func TestWithTx_Commit(t *testing.T) {
	database := setupTestDB(t)
	ctx := t.Context()

	err := database.WithTxContext(ctx, func(tx *Tx) error {
		return tx.InsertSource(ctx, &schema.SourceFile{ID: "s1", Name: "Test Book"})
	})
	if err != nil {
		t.Fatalf("WithTxContext() failed: %v", err)
	}

	counts, err := database.Counts()
	if err != nil {
		t.Fatalf("Counts() failed: %v", err)
	}
	if counts["sources"] != 1 {
		t.Errorf("sources count = %d, want 1", counts["sources"])
	}
}

// TestWithTx_Rollback tests that an error from the callback rolls back.
func TestWithTx_Rollback(t *testing.T) {
	database := setupTestDB(t)
	ctx := t.Context()

	sentinel := &schema.SourceFile{ID: "s1", Name: "Test Book"}
	err := database.WithTxContext(ctx, func(tx *Tx) error {
		if err := tx.InsertSource(ctx, sentinel); err != nil {
			return err
		}
		// Duplicate insert must fail and roll everything back
		return tx.InsertSource(ctx, sentinel)
	})
	if err == nil {
		t.Fatal("WithTxContext() should propagate the duplicate-insert error")
	}

	counts, err := database.Counts()
	if err != nil {
		t.Fatalf("Counts() failed: %v", err)
	}
	if counts["sources"] != 0 {
		t.Errorf("sources count after rollback = %d, want 0", counts["sources"])
	}
}

// TestLatestUpdate tests the data-derived timestamp used by export.
func TestLatestUpdate(t *testing.T) {
	database := setupTestDB(t)
	ctx := t.Context()

	latest, err := database.LatestUpdateContext(ctx)
	if err != nil {
		t.Fatalf("LatestUpdateContext() on empty db failed: %v", err)
	}
	if !latest.IsZero() {
		t.Errorf("latest update on empty db = %v, want zero", latest)
	}

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, rec := range []*schema.RecipeFile{
		{ID: "r1", Name: "One", CreatedAt: older, UpdatedAt: older},
		{ID: "r2", Name: "Two", CreatedAt: older, UpdatedAt: newer},
	} {
		if err := database.UpsertRecipe(rec); err != nil {
			t.Fatalf("UpsertRecipe() failed: %v", err)
		}
	}

	latest, err = database.LatestUpdateContext(ctx)
	if err != nil {
		t.Fatalf("LatestUpdateContext() failed: %v", err)
	}
	if !latest.Equal(newer) {
		t.Errorf("latest update = %v, want %v", latest, newer)
	}
}
