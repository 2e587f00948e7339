package dump

import (
	"log"
	"path/filepath"

	"github.com/pantrydb/pantry/internal/schema"
)

// VerifyResult reports what a verification pass found in a dump tree.
type VerifyResult struct {
	// Records counts the records parsed, keyed by table.
	Records map[string]int

	// Instructions counts the companion text files that name a recipe
	// in the dump.
	Instructions int

	// Orphans lists instruction files that name no recipe in the dump.
	Orphans []string

	// MissingInstructions lists recipes with no instruction text anywhere,
	// inline or companion file.
	MissingInstructions []string
}

// Total returns the number of records parsed across all tables.
func (r *VerifyResult) Total() int {
	total := 0
	for _, n := range r.Records {
		total += n
	}
	return total
}

// Verify checks a dump tree without touching any database: every record
// must parse, validate, match the identity in its filename, and resolve
// its foreign keys within the dump. The checks are exactly the ones an
// import would run, so a tree that verifies cleanly will import cleanly
// into an empty database.
//
// If logger is nil, a default logger writing to stderr is used.
func Verify(dir string, logger *log.Logger) (*VerifyResult, error) {
	tree, err := LoadTree(dir, logger)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		Records:             make(map[string]int),
		Instructions:        len(tree.Instructions),
		Orphans:             tree.Orphans,
		MissingInstructions: tree.MissingInstructions(),
	}
	for _, t := range schema.Tables() {
		result.Records[t.Name] = tree.Count(t.Name)
	}
	return result, nil
}

// CountRecords counts the record files on disk per table, plus instruction
// files under the "instructions" key, without parsing anything. Status
// reporting uses this; it is not a substitute for Verify.
func CountRecords(dir string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, t := range schema.Tables() {
		names, err := schema.ListRecordFiles(filepath.Join(dir, t.Name))
		if err != nil {
			return nil, ioErr(t.Name, err)
		}
		counts[t.Name] = len(names)
	}
	names, err := schema.ListInstructionFiles(filepath.Join(dir, schema.InstructionsDir))
	if err != nil {
		return nil, ioErr(schema.InstructionsDir, err)
	}
	counts[schema.InstructionsDir] = len(names)
	return counts, nil
}
