package schema

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
)

// InstructionsDir is the dump subdirectory for extracted instruction text.
const InstructionsDir = "instructions"

// InstructionFilename returns the companion text filename for a recipe:
// {encoded id}.txt
func InstructionFilename(recipeID string) string {
	return EncodeID(recipeID) + ".txt"
}

// RecipeIDFromInstructionName recovers the recipe id from an instruction
// filename. The inverse of InstructionFilename.
func RecipeIDFromInstructionName(name string) (string, error) {
	stem := strings.TrimSuffix(name, ".txt")
	if stem == name {
		return "", fmt.Errorf("not an instruction filename: %s", name)
	}
	return DecodeID(stem)
}

// WriteInstructionFile writes a recipe's instruction text to
// dir/{encoded id}.txt, byte for byte.
func WriteInstructionFile(dir, recipeID, text string) error {
	if err := CheckID(recipeID); err != nil {
		return fmt.Errorf("recipe id: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, InstructionFilename(recipeID))
	if err := atomic.WriteFile(path, bytes.NewReader([]byte(text))); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadInstructionFile reads an instruction text file verbatim.
func ReadInstructionFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// DeleteInstructionFile removes dir/{encoded id}.txt.
func DeleteInstructionFile(dir, recipeID string) error {
	return deleteRecordFile(filepath.Join(dir, InstructionFilename(recipeID)))
}

// ListInstructionFiles returns the .txt filenames in dir, sorted. A missing
// directory means zero files, not an error.
func ListInstructionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
