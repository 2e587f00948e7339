package schema

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RecipeMetadataFile represents one recipe_metadata row stored as
// recipe_metadata/{recipe_id}--{metadata_id}.json. A pure link record:
// the foreign-key pair is the whole row.
type RecipeMetadataFile struct {
	RecipeID   string `json:"recipe_id"`
	MetadataID string `json:"metadata_id"`
}

// Validate checks that the RecipeMetadataFile has valid field values.
func (rm *RecipeMetadataFile) Validate() error {
	if err := CheckID(rm.RecipeID); err != nil {
		return fmt.Errorf("recipe_id: %w", err)
	}
	if err := CheckID(rm.MetadataID); err != nil {
		return fmt.Errorf("metadata_id: %w", err)
	}
	return nil
}

// Filename returns the canonical filename:
// {encoded recipe_id}--{encoded metadata_id}.json
func (rm *RecipeMetadataFile) Filename() string {
	return JoinStem(rm.RecipeID, rm.MetadataID) + ".json"
}

// ParseRecipeMetadataName recovers the composite key from a filename.
// The inverse of Filename.
func ParseRecipeMetadataName(name string) (recipeID, metadataID string, err error) {
	stem := strings.TrimSuffix(name, ".json")
	if stem == name {
		return "", "", fmt.Errorf("not a record filename: %s", name)
	}
	return SplitStem(stem)
}

// ReadRecipeMetadataFile reads and parses a recipe_metadata JSON file.
func ReadRecipeMetadataFile(path string) (*RecipeMetadataFile, error) {
	var rm RecipeMetadataFile
	if err := readRecordFile(path, &rm); err != nil {
		return nil, err
	}
	if err := rm.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recipe_metadata file %s: %w", path, err)
	}
	return &rm, nil
}

// WriteRecipeMetadataFile writes a link record to its canonical filename.
func WriteRecipeMetadataFile(dir string, rm *RecipeMetadataFile) error {
	if err := rm.Validate(); err != nil {
		return fmt.Errorf("cannot write invalid recipe_metadata record: %w", err)
	}
	return writeRecordFile(dir, rm.Filename(), rm)
}

// DeleteRecipeMetadataFile removes the link record for the given pair.
func DeleteRecipeMetadataFile(dir, recipeID, metadataID string) error {
	return deleteRecordFile(filepath.Join(dir, JoinStem(recipeID, metadataID)+".json"))
}
