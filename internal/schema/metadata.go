package schema

import (
	"fmt"
	"path/filepath"
)

// MetadataFile represents one metadata row stored as metadata/{id}.json.
// Metadata records are shared classification labels that recipes link to
// through the recipe_metadata join table.
type MetadataFile struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`  // cuisine, diet, course, tag
	Label string `json:"label"` // Italian, vegan, dessert, weeknight, ...
}

// Validate checks that the MetadataFile has valid field values.
func (m *MetadataFile) Validate() error {
	if err := CheckID(m.ID); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if m.Kind == "" {
		return fmt.Errorf("kind is required")
	}
	if m.Label == "" {
		return fmt.Errorf("label is required")
	}
	return nil
}

// Filename returns the canonical filename for this metadata record.
func (m *MetadataFile) Filename() string {
	return EncodeID(m.ID) + ".json"
}

// ReadMetadataFile reads and parses a metadata JSON file.
func ReadMetadataFile(path string) (*MetadataFile, error) {
	var md MetadataFile
	if err := readRecordFile(path, &md); err != nil {
		return nil, err
	}
	if err := md.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metadata file %s: %w", path, err)
	}
	return &md, nil
}

// WriteMetadataFile writes a metadata record to dir/{encoded id}.json.
func WriteMetadataFile(dir string, md *MetadataFile) error {
	if err := md.Validate(); err != nil {
		return fmt.Errorf("cannot write invalid metadata record: %w", err)
	}
	return writeRecordFile(dir, md.Filename(), md)
}

// DeleteMetadataFile removes dir/{encoded id}.json.
func DeleteMetadataFile(dir, id string) error {
	return deleteRecordFile(filepath.Join(dir, EncodeID(id)+".json"))
}
