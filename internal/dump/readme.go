package dump

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/natefinch/atomic"
	"golang.org/x/mod/semver"

	"github.com/pantrydb/pantry/internal/schema"
)

// FormatVersion identifies the dump layout this build writes. Import warns
// when a dump's major version differs from its own.
const FormatVersion = "v1.0.0"

var versionPattern = regexp.MustCompile(`format (v\d+\.\d+\.\d+)`)

// tableBlurbs describes each dump directory for the README, keyed by table.
var tableBlurbs = map[string]string{
	"sources":            "one JSON record per source of recipes (book, site, person)",
	"ingredients":        "one JSON record per ingredient",
	"metadata":           "one JSON record per metadata tag (cuisine, diet, course)",
	"recipes":            "one JSON record per recipe",
	"recipe_ingredients": "one JSON record per recipe/ingredient pairing",
	"recipe_metadata":    "one JSON record per recipe/metadata pairing",
}

// writeReadme renders the dump README. Everything in it derives from the
// exported data, so re-exporting an unchanged database yields an identical
// file.
func writeReadme(dir string, result *ExportResult) error {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Pantry Dump\n\n")
	fmt.Fprintf(&b, "Pantry dump format %s.\n\n", FormatVersion)
	fmt.Fprintf(&b, "This tree is a complete snapshot of a pantry database. Rebuild the\n")
	fmt.Fprintf(&b, "database from it with:\n\n")
	fmt.Fprintf(&b, "    pantry import --dir <this directory> --db <target file>\n\n")

	fmt.Fprintf(&b, "## Layout\n\n")
	fmt.Fprintf(&b, "| Directory | Contents |\n")
	fmt.Fprintf(&b, "|-----------|----------|\n")
	for _, t := range schema.Tables() {
		fmt.Fprintf(&b, "| %s/ | %s |\n", t.Name, tableBlurbs[t.Name])
	}
	fmt.Fprintf(&b, "| %s/ | one plain-text file per recipe, holding its preparation steps |\n\n",
		schema.InstructionsDir)

	fmt.Fprintf(&b, "Record filenames are the percent-encoded primary key plus `.json`.\n")
	fmt.Fprintf(&b, "Pairing records join their two keys with `--` in the filename.\n\n")

	fmt.Fprintf(&b, "## Contents\n\n")
	fmt.Fprintf(&b, "| Table | Records |\n")
	fmt.Fprintf(&b, "|-------|--------:|\n")
	for _, t := range schema.Tables() {
		fmt.Fprintf(&b, "| %s | %d |\n", t.Name, result.Records[t.Name])
	}
	fmt.Fprintf(&b, "\nInstruction files: %d\n", result.Instructions)

	if !result.LatestUpdate.IsZero() {
		fmt.Fprintf(&b, "\nData current as of %s.\n",
			result.LatestUpdate.UTC().Format(time.RFC3339))
	}

	path := filepath.Join(dir, "README.md")
	if err := atomic.WriteFile(path, &b); err != nil {
		return fmt.Errorf("README.md: %w: %w", ErrIO, err)
	}
	return nil
}

// ReadDumpVersion extracts the format version from a dump's README. A dump
// without a README, or one predating version stamps, returns an error the
// caller can treat as a warning.
func ReadDumpVersion(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil {
		return "", err
	}
	m := versionPattern.FindSubmatch(data)
	if m == nil {
		return "", fmt.Errorf("no format version in README.md")
	}
	return string(m[1]), nil
}

// VersionCompatible reports whether a dump written at version v can be
// imported by this build. Only the major version gates compatibility.
func VersionCompatible(v string) bool {
	if !semver.IsValid(v) {
		return false
	}
	return semver.Major(v) == semver.Major(FormatVersion)
}
