package schema

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RecipeIngredientFile represents one recipe_ingredients row stored as
// recipe_ingredients/{recipe_id}--{ingredient_id}.json. The filename encodes
// the composite key; the JSON content is authoritative for identity.
type RecipeIngredientFile struct {
	RecipeID     string `json:"recipe_id"`
	IngredientID string `json:"ingredient_id"`
	Quantity     string `json:"quantity,omitempty"` // "2", "1/2", "a pinch"
	Unit         string `json:"unit,omitempty"`     // g, ml, cup, tbsp
	Note         string `json:"note,omitempty"`     // "finely chopped", "room temperature"
}

// Validate checks that the RecipeIngredientFile has valid field values.
func (ri *RecipeIngredientFile) Validate() error {
	if err := CheckID(ri.RecipeID); err != nil {
		return fmt.Errorf("recipe_id: %w", err)
	}
	if err := CheckID(ri.IngredientID); err != nil {
		return fmt.Errorf("ingredient_id: %w", err)
	}
	return nil
}

// Filename returns the canonical filename:
// {encoded recipe_id}--{encoded ingredient_id}.json
func (ri *RecipeIngredientFile) Filename() string {
	return JoinStem(ri.RecipeID, ri.IngredientID) + ".json"
}

// ParseRecipeIngredientName recovers the composite key from a filename like
// r1--i-flour.json. The inverse of Filename.
func ParseRecipeIngredientName(name string) (recipeID, ingredientID string, err error) {
	stem := strings.TrimSuffix(name, ".json")
	if stem == name {
		return "", "", fmt.Errorf("not a record filename: %s", name)
	}
	return SplitStem(stem)
}

// ReadRecipeIngredientFile reads and parses a recipe_ingredients JSON file.
func ReadRecipeIngredientFile(path string) (*RecipeIngredientFile, error) {
	var ri RecipeIngredientFile
	if err := readRecordFile(path, &ri); err != nil {
		return nil, err
	}
	if err := ri.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recipe_ingredients file %s: %w", path, err)
	}
	return &ri, nil
}

// WriteRecipeIngredientFile writes a join record to its canonical filename.
func WriteRecipeIngredientFile(dir string, ri *RecipeIngredientFile) error {
	if err := ri.Validate(); err != nil {
		return fmt.Errorf("cannot write invalid recipe_ingredients record: %w", err)
	}
	return writeRecordFile(dir, ri.Filename(), ri)
}

// DeleteRecipeIngredientFile removes the join record for the given pair.
func DeleteRecipeIngredientFile(dir, recipeID, ingredientID string) error {
	return deleteRecordFile(filepath.Join(dir, JoinStem(recipeID, ingredientID)+".json"))
}
