package dump

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pantrydb/pantry/internal/schema"
)

// Tree holds a fully decoded dump. Record slices keep the order the files
// were read in, which is the sorted filename order within each table.
type Tree struct {
	Sources           []*schema.SourceFile
	Ingredients       []*schema.IngredientFile
	Metadata          []*schema.MetadataFile
	Recipes           []*schema.RecipeFile
	RecipeIngredients []*schema.RecipeIngredientFile
	RecipeMetadata    []*schema.RecipeMetadataFile

	// Instructions maps recipe ID to the text of its companion file.
	Instructions map[string]string

	// Orphans lists instruction files that name no recipe in the dump.
	// They are skipped, not imported.
	Orphans []string
}

// Count returns the number of records loaded for a table.
func (t *Tree) Count(table string) int {
	switch table {
	case "sources":
		return len(t.Sources)
	case "ingredients":
		return len(t.Ingredients)
	case "metadata":
		return len(t.Metadata)
	case "recipes":
		return len(t.Recipes)
	case "recipe_ingredients":
		return len(t.RecipeIngredients)
	case "recipe_metadata":
		return len(t.RecipeMetadata)
	}
	return 0
}

// MissingInstructions returns recipe IDs that carry no inline instruction
// text and have no companion file, sorted by filename order.
func (t *Tree) MissingInstructions() []string {
	var missing []string
	for _, rec := range t.Recipes {
		if rec.Instructions != "" {
			continue
		}
		if _, ok := t.Instructions[rec.ID]; ok {
			continue
		}
		missing = append(missing, rec.ID)
	}
	return missing
}

// LoadTree reads a dump directory into memory, checking each record on the
// way in. Tables are read in dependency order so every foreign key can be
// checked against records already loaded. The first bad record aborts the
// load with an error naming its table and file.
//
// If logger is nil, a default logger writing to stderr is used.
func LoadTree(dir string, logger *log.Logger) (*Tree, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[dump] ", log.LstdFlags)
	}

	if err := checkTree(dir); err != nil {
		return nil, err
	}

	order, err := schema.ImportOrder()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}

	tree := &Tree{Instructions: make(map[string]string)}
	seen := make(map[string]map[string]bool, len(order))

	for _, t := range order {
		ids, err := tree.loadTable(dir, t.Name, seen)
		if err != nil {
			return nil, err
		}
		seen[t.Name] = ids
	}

	if err := tree.loadInstructions(dir, seen["recipes"], logger); err != nil {
		return nil, err
	}

	return tree, nil
}

// checkTree verifies nothing shadows a table directory. An absent directory
// is fine and reads as zero rows; a plain file squatting on a table's name
// means the tree was not produced by an export.
func checkTree(dir string) error {
	for _, t := range schema.Tables() {
		info, err := os.Stat(filepath.Join(dir, t.Name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return ioErr(t.Name, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrSchema, t.Name)
		}
	}
	return nil
}

// loadTable reads every record file of one table, checking filename identity
// and foreign keys, and returns the set of primary keys loaded.
func (tr *Tree) loadTable(dir, table string, seen map[string]map[string]bool) (map[string]bool, error) {
	tableDir := filepath.Join(dir, table)
	names, err := schema.ListRecordFiles(tableDir)
	if err != nil {
		return nil, ioErr(table, err)
	}

	ids := make(map[string]bool, len(names))
	for _, name := range names {
		path := filepath.Join(tableDir, name)
		id, err := tr.loadRecord(table, path, name, seen)
		if err != nil {
			return nil, err
		}
		if ids[id] {
			return nil, parseErr(table, name, "duplicate record %q", id)
		}
		ids[id] = true
	}
	return ids, nil
}

// loadRecord decodes one record file, runs its checks, and appends it to the
// tree. It returns the record's primary key (join tables use the filename
// stem, which pairs both keys).
func (tr *Tree) loadRecord(table, path, name string, seen map[string]map[string]bool) (string, error) {
	switch table {
	case "sources":
		src, err := schema.ReadSourceFile(path)
		if err != nil {
			return "", classifyRecord(table, name, err)
		}
		if src.Filename() != name {
			return "", parseErr(table, name, "record id %q does not match filename", src.ID)
		}
		tr.Sources = append(tr.Sources, src)
		return src.ID, nil

	case "ingredients":
		ing, err := schema.ReadIngredientFile(path)
		if err != nil {
			return "", classifyRecord(table, name, err)
		}
		if ing.Filename() != name {
			return "", parseErr(table, name, "record id %q does not match filename", ing.ID)
		}
		tr.Ingredients = append(tr.Ingredients, ing)
		return ing.ID, nil

	case "metadata":
		md, err := schema.ReadMetadataFile(path)
		if err != nil {
			return "", classifyRecord(table, name, err)
		}
		if md.Filename() != name {
			return "", parseErr(table, name, "record id %q does not match filename", md.ID)
		}
		tr.Metadata = append(tr.Metadata, md)
		return md.ID, nil

	case "recipes":
		rec, err := schema.ReadRecipeFile(path)
		if err != nil {
			return "", classifyRecord(table, name, err)
		}
		if rec.Filename() != name {
			return "", parseErr(table, name, "record id %q does not match filename", rec.ID)
		}
		if rec.SourceID != "" && !seen["sources"][rec.SourceID] {
			return "", refErr(table, name, "sources", rec.SourceID)
		}
		tr.Recipes = append(tr.Recipes, rec)
		return rec.ID, nil

	case "recipe_ingredients":
		ri, err := schema.ReadRecipeIngredientFile(path)
		if err != nil {
			return "", classifyRecord(table, name, err)
		}
		if ri.Filename() != name {
			return "", parseErr(table, name, "record keys %q, %q do not match filename",
				ri.RecipeID, ri.IngredientID)
		}
		if !seen["recipes"][ri.RecipeID] {
			return "", refErr(table, name, "recipes", ri.RecipeID)
		}
		if !seen["ingredients"][ri.IngredientID] {
			return "", refErr(table, name, "ingredients", ri.IngredientID)
		}
		tr.RecipeIngredients = append(tr.RecipeIngredients, ri)
		return schema.JoinStem(ri.RecipeID, ri.IngredientID), nil

	case "recipe_metadata":
		rm, err := schema.ReadRecipeMetadataFile(path)
		if err != nil {
			return "", classifyRecord(table, name, err)
		}
		if rm.Filename() != name {
			return "", parseErr(table, name, "record keys %q, %q do not match filename",
				rm.RecipeID, rm.MetadataID)
		}
		if !seen["recipes"][rm.RecipeID] {
			return "", refErr(table, name, "recipes", rm.RecipeID)
		}
		if !seen["metadata"][rm.MetadataID] {
			return "", refErr(table, name, "metadata", rm.MetadataID)
		}
		tr.RecipeMetadata = append(tr.RecipeMetadata, rm)
		return schema.JoinStem(rm.RecipeID, rm.MetadataID), nil
	}

	return "", fmt.Errorf("%w: unknown table %s", ErrSchema, table)
}

// loadInstructions reads the companion text files. Files naming a recipe
// outside the dump are logged and skipped; a dump with no instructions
// directory at all is fine.
func (tr *Tree) loadInstructions(dir string, recipes map[string]bool, logger *log.Logger) error {
	insDir := filepath.Join(dir, schema.InstructionsDir)
	names, err := schema.ListInstructionFiles(insDir)
	if err != nil {
		return ioErr(schema.InstructionsDir, err)
	}

	for _, name := range names {
		id, err := schema.RecipeIDFromInstructionName(name)
		if err != nil {
			logger.Printf("WARNING: skipping instruction file %s: %v", name, err)
			tr.Orphans = append(tr.Orphans, name)
			continue
		}
		if !recipes[id] {
			logger.Printf("WARNING: skipping orphan instruction file %s (no recipe %q)", name, id)
			tr.Orphans = append(tr.Orphans, name)
			continue
		}
		text, err := schema.ReadInstructionFile(filepath.Join(insDir, name))
		if err != nil {
			return classifyRecord(schema.InstructionsDir, name, err)
		}
		tr.Instructions[id] = text
	}
	return nil
}
