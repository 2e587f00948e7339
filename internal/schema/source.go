package schema

import (
	"fmt"
	"path/filepath"
)

// SourceFile represents one sources row stored as sources/{id}.json.
type SourceFile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind,omitempty"` // book, website, magazine, family
	URL    string `json:"url,omitempty"`
	Author string `json:"author,omitempty"`
}

// Validate checks that the SourceFile has valid field values.
func (s *SourceFile) Validate() error {
	if err := CheckID(s.ID); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// Filename returns the canonical filename for this source.
func (s *SourceFile) Filename() string {
	return EncodeID(s.ID) + ".json"
}

// ReadSourceFile reads and parses a source JSON file.
func ReadSourceFile(path string) (*SourceFile, error) {
	var src SourceFile
	if err := readRecordFile(path, &src); err != nil {
		return nil, err
	}
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source file %s: %w", path, err)
	}
	return &src, nil
}

// WriteSourceFile writes a source to dir/{encoded id}.json.
func WriteSourceFile(dir string, src *SourceFile) error {
	if err := src.Validate(); err != nil {
		return fmt.Errorf("cannot write invalid source: %w", err)
	}
	return writeRecordFile(dir, src.Filename(), src)
}

// DeleteSourceFile removes dir/{encoded id}.json.
func DeleteSourceFile(dir, id string) error {
	return deleteRecordFile(filepath.Join(dir, EncodeID(id)+".json"))
}
