package daemon

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/pantrydb/pantry/internal/schema"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates a new file was created.
	OpCreate EventOp = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file was deleted.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// FileEvent is one classified change inside the dump tree.
type FileEvent struct {
	// Path is the path to the file that changed.
	Path string

	// Table is the dump subdirectory the file lives in: a declared table
	// name, or schema.InstructionsDir for instruction text files.
	Table string

	// Op is the operation that occurred.
	Op EventOp
}

// classifyEvent maps an fsnotify event inside the dump root to a FileEvent.
// Returns false for events the daemon ignores: files outside the known
// subdirectories, wrong extensions, chmod noise, the README.
func classifyEvent(root string, event fsnotify.Event) (FileEvent, bool) {
	table, ok := classifyPath(root, event.Name)
	if !ok {
		return FileEvent{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		// The old name is gone; a create event follows for the new name.
		op = OpDelete
	default:
		return FileEvent{}, false
	}

	return FileEvent{Path: event.Name, Table: table, Op: op}, true
}

// classifyPath decides which dump subdirectory a path belongs to, checking
// the extension expected there. Instruction files are .txt, records .json.
func classifyPath(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	dir, name := filepath.Split(rel)
	dir = filepath.Clean(dir)
	if strings.ContainsRune(dir, filepath.Separator) {
		return "", false
	}

	if dir == schema.InstructionsDir {
		if !strings.HasSuffix(name, ".txt") {
			return "", false
		}
		return schema.InstructionsDir, true
	}
	if _, ok := schema.TableByName(dir); !ok {
		return "", false
	}
	if !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return dir, true
}
