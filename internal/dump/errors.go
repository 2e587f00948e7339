package dump

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Common errors returned by dump operations.
//
// Every failure during export or import wraps one of these sentinels, so
// callers can classify with errors.Is() without parsing messages:
//
//	if errors.Is(err, dump.ErrReference) {
//	    // A record points at a parent that is not in the dump.
//	}
//
// The wrapped message always names the table and, where one exists, the
// file that triggered the failure.
var (
	// ErrIO is returned when a filesystem operation fails: creating or
	// clearing a dump directory, or reading or writing a record file.
	ErrIO = errors.New("filesystem operation failed")

	// ErrSchema is returned when the database does not have the expected
	// tables and columns, or when a plain file shadows a table directory
	// in the dump tree.
	ErrSchema = errors.New("schema mismatch")

	// ErrParse is returned when a record file cannot be decoded, fails
	// validation, or disagrees with the identity encoded in its filename.
	ErrParse = errors.New("record file invalid")

	// ErrReference is returned during import when a record names a parent
	// record that the dump does not contain, or when a recipe has no
	// instruction text under the require policy.
	ErrReference = errors.New("referenced record missing")
)

// IsIOError reports whether err came from a filesystem failure.
func IsIOError(err error) bool {
	return errors.Is(err, ErrIO)
}

// IsSchemaError reports whether err came from a table or column mismatch.
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

// IsParseError reports whether err came from an invalid record file.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsReferenceError reports whether err came from a dangling foreign key.
func IsReferenceError(err error) bool {
	return errors.Is(err, ErrReference)
}

// classifyRecord sorts a record read or write failure into the I/O or parse
// bucket. Failures carrying a *fs.PathError or *os.LinkError came from the
// filesystem; anything else means the bytes moved fine but the record could
// not be decoded, validated, or marshaled.
func classifyRecord(table, name string, err error) error {
	var pathErr *fs.PathError
	var linkErr *os.LinkError
	if errors.As(err, &pathErr) || errors.As(err, &linkErr) {
		return fmt.Errorf("table %s: %s: %w: %w", table, name, ErrIO, err)
	}
	return fmt.Errorf("table %s: %s: %w: %w", table, name, ErrParse, err)
}

// ioErr wraps a filesystem failure, tagging the table it interrupted.
func ioErr(table string, err error) error {
	return fmt.Errorf("table %s: %w: %w", table, ErrIO, err)
}

// parseErr reports a record whose content is wrong in a way the decoder
// could not catch, such as a filename that disagrees with the record's keys.
func parseErr(table, name, format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	return fmt.Errorf("table %s: %s: %w: %s", table, name, ErrParse, detail)
}

// refErr reports a record pointing at a parent absent from the dump.
func refErr(table, name, parentTable, parentID string) error {
	return fmt.Errorf("table %s: %s: %w: %s %q not in dump",
		table, name, ErrReference, parentTable, parentID)
}
