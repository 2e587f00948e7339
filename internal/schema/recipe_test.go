package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testRecipe() *RecipeFile {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &RecipeFile{
		ID:          "r1",
		Name:        "Spaghetti Carbonara",
		Description: "Roman classic",
		Servings:    4,
		PrepMinutes: 10,
		CookMinutes: 20,
		SourceID:    "s-essentials",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TestRecipeValidate verifies recipe field validation.
func TestRecipeValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RecipeFile)
		wantErr bool
		errMsg  string
	}{
		{"valid", func(r *RecipeFile) {}, false, ""},
		{"missing id", func(r *RecipeFile) { r.ID = "" }, true, "id"},
		{"separator in id", func(r *RecipeFile) { r.ID = "r--1" }, true, "id"},
		{"missing name", func(r *RecipeFile) { r.Name = "" }, true, "name is required"},
		{"negative servings", func(r *RecipeFile) { r.Servings = -1 }, true, "servings"},
		{"negative prep", func(r *RecipeFile) { r.PrepMinutes = -5 }, true, "minutes"},
		{"bad source id", func(r *RecipeFile) { r.SourceID = "s--x" }, true, "source_id"},
		{"zero created_at", func(r *RecipeFile) { r.CreatedAt = time.Time{} }, true, "created_at"},
		{"zero updated_at", func(r *RecipeFile) { r.UpdatedAt = time.Time{} }, true, "updated_at"},
		{"no source is fine", func(r *RecipeFile) { r.SourceID = "" }, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testRecipe()
			tt.mutate(rec)
			err := rec.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() = %q, want substring %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

// TestRecipeWriteRead verifies the write/read round trip preserves fields.
func TestRecipeWriteRead(t *testing.T) {
	dir := t.TempDir()
	rec := testRecipe()

	if err := WriteRecipeFile(dir, rec); err != nil {
		t.Fatalf("WriteRecipeFile() failed: %v", err)
	}

	got, err := ReadRecipeFile(filepath.Join(dir, "r1.json"))
	if err != nil {
		t.Fatalf("ReadRecipeFile() failed: %v", err)
	}

	if got.ID != rec.ID || got.Name != rec.Name || got.Servings != rec.Servings {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, rec)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
}

// TestRecipeWriteOmitsEmptyInstructions verifies the instructions field is
// absent from the JSON when empty.
func TestRecipeWriteOmitsEmptyInstructions(t *testing.T) {
	dir := t.TempDir()
	rec := testRecipe()

	if err := WriteRecipeFile(dir, rec); err != nil {
		t.Fatalf("WriteRecipeFile() failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "r1.json"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Contains(string(data), "instructions") {
		t.Errorf("JSON should omit empty instructions field:\n%s", data)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("record file should end with a newline")
	}
}

// TestRecipeWriteInvalid verifies invalid records are rejected before writing.
func TestRecipeWriteInvalid(t *testing.T) {
	dir := t.TempDir()
	rec := testRecipe()
	rec.Name = ""

	if err := WriteRecipeFile(dir, rec); err == nil {
		t.Fatal("WriteRecipeFile() accepted an invalid record")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("invalid write left %d files behind", len(entries))
	}
}

// TestRecipeFilenameEncodesID verifies hostile keys become safe filenames.
func TestRecipeFilenameEncodesID(t *testing.T) {
	rec := testRecipe()
	rec.ID = "grandma's pie"

	want := "grandma%27s%20pie.json"
	if got := rec.Filename(); got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}

// TestDeleteRecipeFile verifies deletion and its idempotence.
func TestDeleteRecipeFile(t *testing.T) {
	dir := t.TempDir()
	rec := testRecipe()

	if err := WriteRecipeFile(dir, rec); err != nil {
		t.Fatalf("WriteRecipeFile() failed: %v", err)
	}
	if err := DeleteRecipeFile(dir, rec.ID); err != nil {
		t.Fatalf("DeleteRecipeFile() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "r1.json")); !os.IsNotExist(err) {
		t.Error("recipe file still exists after delete")
	}

	// Deleting again is not an error
	if err := DeleteRecipeFile(dir, rec.ID); err != nil {
		t.Errorf("second DeleteRecipeFile() failed: %v", err)
	}
}

// TestReadRecipeFileMalformed verifies malformed JSON is rejected.
func TestReadRecipeFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := ReadRecipeFile(path); err == nil {
		t.Fatal("ReadRecipeFile() accepted malformed JSON")
	}
}
