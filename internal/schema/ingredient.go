package schema

import (
	"fmt"
	"path/filepath"
)

// IngredientFile represents one ingredients row stored as
// ingredients/{id}.json.
type IngredientFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"` // produce, dairy, pantry, meat, spice, ...
}

// Validate checks that the IngredientFile has valid field values.
func (i *IngredientFile) Validate() error {
	if err := CheckID(i.ID); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// Filename returns the canonical filename for this ingredient.
func (i *IngredientFile) Filename() string {
	return EncodeID(i.ID) + ".json"
}

// ReadIngredientFile reads and parses an ingredient JSON file.
func ReadIngredientFile(path string) (*IngredientFile, error) {
	var ing IngredientFile
	if err := readRecordFile(path, &ing); err != nil {
		return nil, err
	}
	if err := ing.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ingredient file %s: %w", path, err)
	}
	return &ing, nil
}

// WriteIngredientFile writes an ingredient to dir/{encoded id}.json.
func WriteIngredientFile(dir string, ing *IngredientFile) error {
	if err := ing.Validate(); err != nil {
		return fmt.Errorf("cannot write invalid ingredient: %w", err)
	}
	return writeRecordFile(dir, ing.Filename(), ing)
}

// DeleteIngredientFile removes dir/{encoded id}.json.
func DeleteIngredientFile(dir, id string) error {
	return deleteRecordFile(filepath.Join(dir, EncodeID(id)+".json"))
}
