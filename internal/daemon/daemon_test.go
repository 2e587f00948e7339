package daemon

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/schema"
)

var quiet = log.New(io.Discard, "", 0)

// setupTestDB creates an opened, schema-initialized database in a temp dir.
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return database
}

// setupDumpDir creates a dump tree with every watched subdirectory.
func setupDumpDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range watchDirs() {
		if err := os.MkdirAll(filepath.Join(dir, name), 0755); err != nil {
			t.Fatalf("MkdirAll() failed: %v", err)
		}
	}
	return dir
}

// recordingNotifier captures daemon events for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	upserted []string
	deleted  []string
	syncs    int
}

func (n *recordingNotifier) OnRecordUpserted(table, id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.upserted = append(n.upserted, table+":"+id)
}

func (n *recordingNotifier) OnRecordDeleted(table, id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, table+":"+id)
}

func (n *recordingNotifier) OnSyncComplete(int, time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.syncs++
}

func newTestDaemon(t *testing.T, database *db.DB, dir string) (*Daemon, *recordingNotifier) {
	t.Helper()

	notifier := &recordingNotifier{}
	d, err := NewWithConfig(database, dir, &Config{
		DebounceInterval: 10 * time.Millisecond,
		Logger:           quiet,
		Notifier:         notifier,
	})
	if err != nil {
		t.Fatalf("NewWithConfig() failed: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d, notifier
}

func TestNew_Validation(t *testing.T) {
	database := setupTestDB(t)

	if _, err := NewWithConfig(nil, "dump", nil); err == nil {
		t.Error("nil database should be rejected")
	}
	if _, err := NewWithConfig(database, "", nil); err == nil {
		t.Error("empty dir should be rejected")
	}
}

func TestFullSync(t *testing.T) {
	database := setupTestDB(t)
	dir := setupDumpDir(t)

	writeSampleTree(t, dir)

	d, notifier := newTestDaemon(t, database, dir)
	applied, err := d.FullSync(t.Context())
	if err != nil {
		t.Fatalf("FullSync() failed: %v", err)
	}
	// 5 records + 1 instruction file
	if applied != 6 {
		t.Errorf("applied = %d, want 6", applied)
	}
	if notifier.syncs != 1 {
		t.Errorf("syncs = %d, want 1", notifier.syncs)
	}

	rec, err := database.GetRecipe("r1")
	if err != nil {
		t.Fatalf("GetRecipe() failed: %v", err)
	}
	if rec.Instructions != "Boil water." {
		t.Errorf("instructions = %q, want %q", rec.Instructions, "Boil water.")
	}
}

// TestFullSync_SkipsBadFiles verifies one broken record does not stall the
// mirror.
func TestFullSync_SkipsBadFiles(t *testing.T) {
	database := setupTestDB(t)
	dir := setupDumpDir(t)

	writeSampleTree(t, dir)
	bad := filepath.Join(dir, "sources", "bad.json")
	if err := os.WriteFile(bad, []byte("{oops"), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	d, _ := newTestDaemon(t, database, dir)
	applied, err := d.FullSync(t.Context())
	if err != nil {
		t.Fatalf("FullSync() failed: %v", err)
	}
	if applied != 6 {
		t.Errorf("applied = %d, want 6 (bad file skipped)", applied)
	}
}

func TestApplyChange_UpsertAndDelete(t *testing.T) {
	database := setupTestDB(t)
	dir := setupDumpDir(t)
	ctx := t.Context()

	d, notifier := newTestDaemon(t, database, dir)

	ingDir := filepath.Join(dir, "ingredients")
	ing := &schema.IngredientFile{ID: "i-salt", Name: "Salt"}
	if err := schema.WriteIngredientFile(ingDir, ing); err != nil {
		t.Fatalf("WriteIngredientFile() failed: %v", err)
	}

	path := filepath.Join(ingDir, ing.Filename())
	if err := d.applyChange(ctx, path); err != nil {
		t.Fatalf("applyChange(upsert) failed: %v", err)
	}

	ingredients, err := database.ListIngredients()
	if err != nil {
		t.Fatalf("ListIngredients() failed: %v", err)
	}
	if len(ingredients) != 1 {
		t.Fatalf("ingredient count = %d, want 1", len(ingredients))
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if err := d.applyChange(ctx, path); err != nil {
		t.Fatalf("applyChange(delete) failed: %v", err)
	}

	ingredients, err = database.ListIngredients()
	if err != nil {
		t.Fatalf("ListIngredients() failed: %v", err)
	}
	if len(ingredients) != 0 {
		t.Errorf("ingredient count after delete = %d, want 0", len(ingredients))
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.upserted) != 1 || notifier.upserted[0] != "ingredients:i-salt" {
		t.Errorf("upserted = %v", notifier.upserted)
	}
	if len(notifier.deleted) != 1 || notifier.deleted[0] != "ingredients:i-salt" {
		t.Errorf("deleted = %v", notifier.deleted)
	}
}

func TestApplyChange_JoinDelete(t *testing.T) {
	database := setupTestDB(t)
	dir := setupDumpDir(t)
	ctx := t.Context()

	writeSampleTree(t, dir)
	d, _ := newTestDaemon(t, database, dir)
	if _, err := d.FullSync(ctx); err != nil {
		t.Fatalf("FullSync() failed: %v", err)
	}

	path := filepath.Join(dir, "recipe_ingredients", "r1--i-water.json")
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if err := d.applyChange(ctx, path); err != nil {
		t.Fatalf("applyChange(join delete) failed: %v", err)
	}

	joins, err := database.ListRecipeIngredients()
	if err != nil {
		t.Fatalf("ListRecipeIngredients() failed: %v", err)
	}
	if len(joins) != 0 {
		t.Errorf("join count = %d, want 0", len(joins))
	}
}

func TestApplyChange_InstructionUpdateAndRemove(t *testing.T) {
	database := setupTestDB(t)
	dir := setupDumpDir(t)
	ctx := t.Context()

	writeSampleTree(t, dir)
	d, _ := newTestDaemon(t, database, dir)
	if _, err := d.FullSync(ctx); err != nil {
		t.Fatalf("FullSync() failed: %v", err)
	}

	insDir := filepath.Join(dir, schema.InstructionsDir)
	if err := schema.WriteInstructionFile(insDir, "r1", "Simmer, do not boil."); err != nil {
		t.Fatalf("WriteInstructionFile() failed: %v", err)
	}
	path := filepath.Join(insDir, schema.InstructionFilename("r1"))
	if err := d.applyChange(ctx, path); err != nil {
		t.Fatalf("applyChange(instruction) failed: %v", err)
	}

	rec, err := database.GetRecipe("r1")
	if err != nil {
		t.Fatalf("GetRecipe() failed: %v", err)
	}
	if rec.Instructions != "Simmer, do not boil." {
		t.Errorf("instructions = %q", rec.Instructions)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if err := d.applyChange(ctx, path); err != nil {
		t.Fatalf("applyChange(instruction remove) failed: %v", err)
	}

	rec, err = database.GetRecipe("r1")
	if err != nil {
		t.Fatalf("GetRecipe() failed: %v", err)
	}
	if rec.Instructions != "" {
		t.Errorf("instructions after removal = %q, want empty", rec.Instructions)
	}
}

func TestClassifyEvent(t *testing.T) {
	root := "/dump"
	tests := []struct {
		name      string
		event     fsnotify.Event
		wantTable string
		wantOp    EventOp
		wantOK    bool
	}{
		{
			name:      "record create",
			event:     fsnotify.Event{Name: "/dump/recipes/r1.json", Op: fsnotify.Create},
			wantTable: "recipes", wantOp: OpCreate, wantOK: true,
		},
		{
			name:      "record write",
			event:     fsnotify.Event{Name: "/dump/sources/s1.json", Op: fsnotify.Write},
			wantTable: "sources", wantOp: OpModify, wantOK: true,
		},
		{
			name:      "join remove",
			event:     fsnotify.Event{Name: "/dump/recipe_metadata/r1--m1.json", Op: fsnotify.Remove},
			wantTable: "recipe_metadata", wantOp: OpDelete, wantOK: true,
		},
		{
			name:      "rename treated as delete",
			event:     fsnotify.Event{Name: "/dump/recipes/r1.json", Op: fsnotify.Rename},
			wantTable: "recipes", wantOp: OpDelete, wantOK: true,
		},
		{
			name:      "instruction text file",
			event:     fsnotify.Event{Name: "/dump/instructions/r1.txt", Op: fsnotify.Write},
			wantTable: "instructions", wantOp: OpModify, wantOK: true,
		},
		{
			name:   "txt in a table dir ignored",
			event:  fsnotify.Event{Name: "/dump/recipes/notes.txt", Op: fsnotify.Write},
			wantOK: false,
		},
		{
			name:   "json in instructions dir ignored",
			event:  fsnotify.Event{Name: "/dump/instructions/r1.json", Op: fsnotify.Write},
			wantOK: false,
		},
		{
			name:   "unknown directory ignored",
			event:  fsnotify.Event{Name: "/dump/notes/x.json", Op: fsnotify.Create},
			wantOK: false,
		},
		{
			name:   "README ignored",
			event:  fsnotify.Event{Name: "/dump/README.md", Op: fsnotify.Write},
			wantOK: false,
		},
		{
			name:   "chmod ignored",
			event:  fsnotify.Event{Name: "/dump/recipes/r1.json", Op: fsnotify.Chmod},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe, ok := classifyEvent(root, tt.event)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if fe.Table != tt.wantTable {
				t.Errorf("table = %q, want %q", fe.Table, tt.wantTable)
			}
			if fe.Op != tt.wantOp {
				t.Errorf("op = %v, want %v", fe.Op, tt.wantOp)
			}
		})
	}
}

func TestProcessPendingChanges_Debounce(t *testing.T) {
	database := setupTestDB(t)
	dir := setupDumpDir(t)

	d, _ := newTestDaemon(t, database, dir)

	ingDir := filepath.Join(dir, "ingredients")
	ing := &schema.IngredientFile{ID: "i-pepper", Name: "Pepper"}
	if err := schema.WriteIngredientFile(ingDir, ing); err != nil {
		t.Fatalf("WriteIngredientFile() failed: %v", err)
	}
	d.queueChange(filepath.Join(ingDir, ing.Filename()))

	// Queued just now: still inside the debounce window, nothing applies.
	d.processPendingChanges()
	if got, _ := database.ListIngredients(); len(got) != 0 {
		t.Fatalf("change applied before debounce window elapsed")
	}

	time.Sleep(2 * d.config.DebounceInterval)
	d.processPendingChanges()
	if got, _ := database.ListIngredients(); len(got) != 1 {
		t.Errorf("change not applied after debounce window")
	}
}

// writeSampleTree writes a minimal consistent dump: one recipe, one
// ingredient, one join, one metadata link, one instruction file.
func writeSampleTree(t *testing.T, dir string) {
	t.Helper()

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &schema.RecipeFile{ID: "r1", Name: "Hot Water", CreatedAt: ts, UpdatedAt: ts}
	if err := schema.WriteRecipeFile(filepath.Join(dir, "recipes"), rec); err != nil {
		t.Fatalf("WriteRecipeFile() failed: %v", err)
	}

	ing := &schema.IngredientFile{ID: "i-water", Name: "Water"}
	if err := schema.WriteIngredientFile(filepath.Join(dir, "ingredients"), ing); err != nil {
		t.Fatalf("WriteIngredientFile() failed: %v", err)
	}

	md := &schema.MetadataFile{ID: "m-drink", Kind: "course", Label: "Drink"}
	if err := schema.WriteMetadataFile(filepath.Join(dir, "metadata"), md); err != nil {
		t.Fatalf("WriteMetadataFile() failed: %v", err)
	}

	ri := &schema.RecipeIngredientFile{RecipeID: "r1", IngredientID: "i-water", Quantity: "1", Unit: "l"}
	if err := schema.WriteRecipeIngredientFile(filepath.Join(dir, "recipe_ingredients"), ri); err != nil {
		t.Fatalf("WriteRecipeIngredientFile() failed: %v", err)
	}

	rm := &schema.RecipeMetadataFile{RecipeID: "r1", MetadataID: "m-drink"}
	if err := schema.WriteRecipeMetadataFile(filepath.Join(dir, "recipe_metadata"), rm); err != nil {
		t.Fatalf("WriteRecipeMetadataFile() failed: %v", err)
	}

	if err := schema.WriteInstructionFile(filepath.Join(dir, schema.InstructionsDir), "r1", "Boil water."); err != nil {
		t.Fatalf("WriteInstructionFile() failed: %v", err)
	}
}
