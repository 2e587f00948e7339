package dump

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/schema"
)

// quiet is a logger that discards everything; tests that care about log
// output build their own.
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

// seedSampleData loads a small but complete data set: every table populated,
// one recipe with instructions and one without.
func seedSampleData(t *testing.T, database *db.DB) {
	t.Helper()

	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, src := range []*schema.SourceFile{
		{ID: "s-joy", Name: "The Joy of Cooking", Kind: "book", Author: "Irma S. Rombauer"},
		{ID: "s-nonna", Name: "Nonna's notebook", Kind: "family"},
	} {
		if err := database.UpsertSource(src); err != nil {
			t.Fatalf("UpsertSource(%s) failed: %v", src.ID, err)
		}
	}

	for _, ing := range []*schema.IngredientFile{
		{ID: "i-flour", Name: "Flour", Category: "pantry"},
		{ID: "i-egg", Name: "Egg", Category: "dairy"},
		{ID: "i-salt", Name: "Salt", Category: "pantry"},
	} {
		if err := database.UpsertIngredient(ing); err != nil {
			t.Fatalf("UpsertIngredient(%s) failed: %v", ing.ID, err)
		}
	}

	for _, md := range []*schema.MetadataFile{
		{ID: "m-italian", Kind: "cuisine", Label: "Italian"},
		{ID: "m-dinner", Kind: "course", Label: "Dinner"},
	} {
		if err := database.UpsertMetadata(md); err != nil {
			t.Fatalf("UpsertMetadata(%s) failed: %v", md.ID, err)
		}
	}

	for _, rec := range []*schema.RecipeFile{
		{
			ID: "r-pasta", Name: "Fresh Pasta", Description: "Egg pasta from scratch",
			Servings: 4, PrepMinutes: 30, CookMinutes: 5, SourceID: "s-nonna",
			Instructions: "Mound the flour. Crack in the eggs. Knead 10 minutes.\n",
			CreatedAt:    created, UpdatedAt: updated,
		},
		{
			ID: "r-boiled-egg", Name: "Boiled Egg",
			Servings: 1, CookMinutes: 7,
			CreatedAt: created, UpdatedAt: created,
		},
	} {
		if err := database.UpsertRecipe(rec); err != nil {
			t.Fatalf("UpsertRecipe(%s) failed: %v", rec.ID, err)
		}
	}

	for _, ri := range []*schema.RecipeIngredientFile{
		{RecipeID: "r-pasta", IngredientID: "i-flour", Quantity: "400", Unit: "g"},
		{RecipeID: "r-pasta", IngredientID: "i-egg", Quantity: "4"},
		{RecipeID: "r-pasta", IngredientID: "i-salt", Quantity: "1", Unit: "pinch"},
		{RecipeID: "r-boiled-egg", IngredientID: "i-egg", Quantity: "1"},
	} {
		if err := database.UpsertRecipeIngredient(ri); err != nil {
			t.Fatalf("UpsertRecipeIngredient(%s/%s) failed: %v", ri.RecipeID, ri.IngredientID, err)
		}
	}

	for _, rm := range []*schema.RecipeMetadataFile{
		{RecipeID: "r-pasta", MetadataID: "m-italian"},
		{RecipeID: "r-pasta", MetadataID: "m-dinner"},
	} {
		if err := database.UpsertRecipeMetadata(rm); err != nil {
			t.Fatalf("UpsertRecipeMetadata(%s/%s) failed: %v", rm.RecipeID, rm.MetadataID, err)
		}
	}
}

// exportSample seeds a database and exports it, returning db and dump dir.
func exportSample(t *testing.T, opts ExportOptions) (*db.DB, string) {
	t.Helper()

	database := setupTestDB(t)
	seedSampleData(t, database)

	dir := filepath.Join(t.TempDir(), "dump")
	exporter := NewExporter(database, dir, opts, quiet)
	if _, err := exporter.Export(); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	return database, dir
}

func TestExport_Layout(t *testing.T) {
	_, dir := exportSample(t, ExportOptions{})

	wantFiles := []string{
		"sources/s-joy.json",
		"sources/s-nonna.json",
		"ingredients/i-flour.json",
		"ingredients/i-egg.json",
		"ingredients/i-salt.json",
		"metadata/m-italian.json",
		"metadata/m-dinner.json",
		"recipes/r-pasta.json",
		"recipes/r-boiled-egg.json",
		"recipe_ingredients/r-pasta--i-flour.json",
		"recipe_ingredients/r-pasta--i-egg.json",
		"recipe_ingredients/r-pasta--i-salt.json",
		"recipe_ingredients/r-boiled-egg--i-egg.json",
		"recipe_metadata/r-pasta--m-italian.json",
		"recipe_metadata/r-pasta--m-dinner.json",
		"instructions/r-pasta.txt",
		"README.md",
	}
	for _, name := range wantFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s in dump: %v", name, err)
		}
	}

	// The recipe without instructions gets no companion file.
	if _, err := os.Stat(filepath.Join(dir, "instructions", "r-boiled-egg.txt")); !os.IsNotExist(err) {
		t.Errorf("r-boiled-egg.txt should not exist, stat err = %v", err)
	}
}

func TestExport_ExtractsInstructions(t *testing.T) {
	_, dir := exportSample(t, ExportOptions{})

	text, err := os.ReadFile(filepath.Join(dir, "instructions", "r-pasta.txt"))
	if err != nil {
		t.Fatalf("reading instruction file failed: %v", err)
	}
	want := "Mound the flour. Crack in the eggs. Knead 10 minutes.\n"
	if string(text) != want {
		t.Errorf("instruction text = %q, want %q", text, want)
	}

	// The JSON record must not carry the text inline.
	rec, err := schema.ReadRecipeFile(filepath.Join(dir, "recipes", "r-pasta.json"))
	if err != nil {
		t.Fatalf("ReadRecipeFile() failed: %v", err)
	}
	if rec.Instructions != "" {
		t.Errorf("exported record retains instructions %q, want empty", rec.Instructions)
	}
}

func TestExport_RetainInstructions(t *testing.T) {
	_, dir := exportSample(t, ExportOptions{RetainInstructions: true})

	rec, err := schema.ReadRecipeFile(filepath.Join(dir, "recipes", "r-pasta.json"))
	if err != nil {
		t.Fatalf("ReadRecipeFile() failed: %v", err)
	}
	if rec.Instructions == "" {
		t.Error("record should retain instructions when configured to")
	}

	// Companion file is written either way.
	if _, err := os.Stat(filepath.Join(dir, "instructions", "r-pasta.txt")); err != nil {
		t.Errorf("instruction file missing: %v", err)
	}
}

func TestExport_Counts(t *testing.T) {
	database := setupTestDB(t)
	seedSampleData(t, database)

	dir := filepath.Join(t.TempDir(), "dump")
	result, err := NewExporter(database, dir, ExportOptions{}, quiet).Export()
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	want := map[string]int{
		"sources":            2,
		"ingredients":        3,
		"metadata":           2,
		"recipes":            2,
		"recipe_ingredients": 4,
		"recipe_metadata":    2,
	}
	for table, n := range want {
		if result.Records[table] != n {
			t.Errorf("Records[%s] = %d, want %d", table, result.Records[table], n)
		}
	}
	if result.Instructions != 1 {
		t.Errorf("Instructions = %d, want 1", result.Instructions)
	}
	if result.Total() != 15 {
		t.Errorf("Total() = %d, want 15", result.Total())
	}
}

// TestExport_Deterministic re-exports an unchanged database and requires a
// byte-identical tree, README included.
func TestExport_Deterministic(t *testing.T) {
	database := setupTestDB(t)
	seedSampleData(t, database)

	dirA := filepath.Join(t.TempDir(), "a")
	dirB := filepath.Join(t.TempDir(), "b")
	for _, dir := range []string{dirA, dirB} {
		if _, err := NewExporter(database, dir, ExportOptions{}, quiet).Export(); err != nil {
			t.Fatalf("Export() to %s failed: %v", dir, err)
		}
	}

	first := readTreeBytes(t, dirA)
	second := readTreeBytes(t, dirB)
	if len(first) != len(second) {
		t.Fatalf("trees differ in file count: %d vs %d", len(first), len(second))
	}
	for name, data := range first {
		other, ok := second[name]
		if !ok {
			t.Errorf("file %s missing from second export", name)
			continue
		}
		if data != other {
			t.Errorf("file %s differs between exports", name)
		}
	}
}

// TestExport_ClearsStaleRecords deletes a row and re-exports into the same
// directory; the stale record file must disappear.
func TestExport_ClearsStaleRecords(t *testing.T) {
	database := setupTestDB(t)
	seedSampleData(t, database)

	dir := filepath.Join(t.TempDir(), "dump")
	exporter := NewExporter(database, dir, ExportOptions{}, quiet)
	if _, err := exporter.Export(); err != nil {
		t.Fatalf("first Export() failed: %v", err)
	}

	if err := database.DeleteRecipe("r-boiled-egg"); err != nil {
		t.Fatalf("DeleteRecipe() failed: %v", err)
	}
	if _, err := exporter.Export(); err != nil {
		t.Fatalf("second Export() failed: %v", err)
	}

	stale := []string{
		filepath.Join(dir, "recipes", "r-boiled-egg.json"),
		filepath.Join(dir, "recipe_ingredients", "r-boiled-egg--i-egg.json"),
	}
	for _, path := range stale {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("stale record %s survived re-export, stat err = %v", path, err)
		}
	}
}

// TestExport_SchemaError runs against a database that was never initialized.
func TestExport_SchemaError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.db")
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer database.Close()

	dir := filepath.Join(t.TempDir(), "dump")
	_, err = NewExporter(database, dir, ExportOptions{}, quiet).Export()
	if err == nil {
		t.Fatal("Export() against uninitialized database should fail")
	}
	if !IsSchemaError(err) {
		t.Errorf("error should wrap ErrSchema, got: %v", err)
	}
}

// readTreeBytes reads every file under root into a map keyed by relative path.
func readTreeBytes(t *testing.T, root string) map[string]string {
	t.Helper()

	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[rel] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s failed: %v", root, err)
	}
	return files
}
