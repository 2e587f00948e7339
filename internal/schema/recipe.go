// Package schema provides record structures for pantry dump files.
package schema

import (
	"fmt"
	"path/filepath"
	"time"
)

// RecipeFile represents one recipes row stored as recipes/{id}.json.
// Long-form instructions are normally extracted to a companion text file at
// export time (see InstructionFilename), so the Instructions field is empty
// in most dumps and omitted from the JSON when it is.
type RecipeFile struct {
	// ===== Core Identification =====
	ID string `json:"id"`

	// ===== Content =====
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// ===== Yield & Timing =====
	Servings    int `json:"servings,omitempty"`
	PrepMinutes int `json:"prep_minutes,omitempty"`
	CookMinutes int `json:"cook_minutes,omitempty"`

	// ===== Provenance =====
	SourceID string `json:"source_id,omitempty"` // References sources/{source_id}.json

	// ===== Instructions =====
	Instructions string `json:"instructions,omitempty"`

	// ===== Timestamps =====
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that the RecipeFile has valid field values.
func (r *RecipeFile) Validate() error {
	if err := CheckID(r.ID); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Servings < 0 {
		return fmt.Errorf("servings must not be negative (got %d)", r.Servings)
	}
	if r.PrepMinutes < 0 || r.CookMinutes < 0 {
		return fmt.Errorf("prep/cook minutes must not be negative")
	}
	if r.SourceID != "" {
		if err := CheckID(r.SourceID); err != nil {
			return fmt.Errorf("source_id: %w", err)
		}
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if r.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	return nil
}

// Filename returns the canonical filename for this recipe: {encoded id}.json
func (r *RecipeFile) Filename() string {
	return EncodeID(r.ID) + ".json"
}

// SetDefaults applies default values for optional fields.
func (r *RecipeFile) SetDefaults() {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
}

// Touch sets UpdatedAt to the current time. Call after modifying any field.
func (r *RecipeFile) Touch() {
	r.UpdatedAt = time.Now().UTC().Truncate(time.Second)
}

// ReadRecipeFile reads and parses a recipe JSON file from the given path.
func ReadRecipeFile(path string) (*RecipeFile, error) {
	var rec RecipeFile
	if err := readRecordFile(path, &rec); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recipe file %s: %w", path, err)
	}
	return &rec, nil
}

// WriteRecipeFile writes a recipe to dir/{encoded id}.json.
func WriteRecipeFile(dir string, rec *RecipeFile) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("cannot write invalid recipe: %w", err)
	}
	return writeRecordFile(dir, rec.Filename(), rec)
}

// DeleteRecipeFile removes dir/{encoded id}.json. Deleting a file that does
// not exist is not an error.
func DeleteRecipeFile(dir, id string) error {
	return deleteRecordFile(filepath.Join(dir, EncodeID(id)+".json"))
}
