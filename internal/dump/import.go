package dump

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/schema"
)

// Policies for recipes that have no inline instruction text and no
// companion file.
const (
	// MissingEmpty stores an empty string and moves on. The default.
	MissingEmpty = "empty"

	// MissingRequire aborts the import on the first such recipe.
	MissingRequire = "require"
)

// ImportOptions configures an import run.
type ImportOptions struct {
	// MissingInstructions picks the policy for recipes with no
	// instruction text anywhere. Empty string means MissingEmpty.
	MissingInstructions string
}

// ImportResult reports what an import run loaded.
type ImportResult struct {
	// Records counts the records inserted, keyed by table.
	Records map[string]int

	// Instructions counts the companion files attached to recipes.
	Instructions int

	// Orphans lists instruction files skipped for naming no recipe.
	Orphans []string
}

// Total returns the number of records inserted across all tables.
func (r *ImportResult) Total() int {
	total := 0
	for _, n := range r.Records {
		total += n
	}
	return total
}

// Importer rebuilds a pantry database from a dump tree.
type Importer struct {
	db     *db.DB
	dir    string
	opts   ImportOptions
	logger *log.Logger
}

// NewImporter creates an Importer reading from dir.
//
// The database connection must be open and point at a fresh database:
// Import creates the schema itself and refuses to load into one that
// already holds records.
//
// If logger is nil, a default logger writing to stderr is used.
func NewImporter(database *db.DB, dir string, opts ImportOptions, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(os.Stderr, "[import] ", log.LstdFlags)
	}
	return &Importer{
		db:     database,
		dir:    dir,
		opts:   opts,
		logger: logger,
	}
}

// Import runs ImportContext with a background context.
func (im *Importer) Import() (*ImportResult, error) {
	return im.ImportContext(context.Background())
}

// ImportContext loads the dump tree into the database. The whole tree is
// read and checked before the database is touched, and every insert runs
// inside one transaction, so a failing import leaves nothing behind.
// Tables load in dependency order; instruction files attach to their
// recipes at the end.
func (im *Importer) ImportContext(ctx context.Context) (*ImportResult, error) {
	switch im.opts.MissingInstructions {
	case "", MissingEmpty, MissingRequire:
	default:
		return nil, fmt.Errorf("unknown missing-instructions policy %q", im.opts.MissingInstructions)
	}

	im.logger.Printf("Starting import from %s into %s", im.dir, im.db.Path())

	if v, err := ReadDumpVersion(im.dir); err == nil && !VersionCompatible(v) {
		im.logger.Printf("WARNING: dump format %s does not match this build (%s); attempting import anyway",
			v, FormatVersion)
	}

	tree, err := LoadTree(im.dir, im.logger)
	if err != nil {
		return nil, err
	}

	if im.opts.MissingInstructions == MissingRequire {
		if missing := tree.MissingInstructions(); len(missing) > 0 {
			return nil, refErr("recipes", schema.EncodeID(missing[0])+".json",
				schema.InstructionsDir, missing[0])
		}
	}

	if err := im.db.InitSchemaContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := im.db.CheckSchemaContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	counts, err := im.db.CountsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count existing records: %w", err)
	}
	for table, n := range counts {
		if n > 0 {
			return nil, fmt.Errorf("database %s is not empty: table %s has %d records",
				im.db.Path(), table, n)
		}
	}

	result := &ImportResult{
		Records: make(map[string]int),
		Orphans: tree.Orphans,
	}

	err = im.db.WithTxContext(ctx, func(tx *db.Tx) error {
		order, err := schema.ImportOrder()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSchema, err)
		}
		for _, t := range order {
			n, err := im.insertTable(ctx, tx, t.Name, tree)
			if err != nil {
				return err
			}
			result.Records[t.Name] = n
			im.logger.Printf("Imported %s: %d records", t.Name, n)
		}

		n, err := im.attachInstructions(ctx, tx, tree)
		if err != nil {
			return err
		}
		result.Instructions = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	im.logger.Printf("Import complete: %d records, %d instruction files (%d skipped)",
		result.Total(), result.Instructions, len(result.Orphans))
	return result, nil
}

// insertTable inserts one table's loaded records in file order.
func (im *Importer) insertTable(ctx context.Context, tx *db.Tx, table string, tree *Tree) (int, error) {
	switch table {
	case "sources":
		for _, src := range tree.Sources {
			if err := tx.InsertSource(ctx, src); err != nil {
				return 0, insertErr(table, src.Filename(), err)
			}
		}
		return len(tree.Sources), nil

	case "ingredients":
		for _, ing := range tree.Ingredients {
			if err := tx.InsertIngredient(ctx, ing); err != nil {
				return 0, insertErr(table, ing.Filename(), err)
			}
		}
		return len(tree.Ingredients), nil

	case "metadata":
		for _, md := range tree.Metadata {
			if err := tx.InsertMetadata(ctx, md); err != nil {
				return 0, insertErr(table, md.Filename(), err)
			}
		}
		return len(tree.Metadata), nil

	case "recipes":
		for _, rec := range tree.Recipes {
			if err := tx.InsertRecipe(ctx, rec); err != nil {
				return 0, insertErr(table, rec.Filename(), err)
			}
		}
		return len(tree.Recipes), nil

	case "recipe_ingredients":
		for _, ri := range tree.RecipeIngredients {
			if err := tx.InsertRecipeIngredient(ctx, ri); err != nil {
				return 0, insertErr(table, ri.Filename(), err)
			}
		}
		return len(tree.RecipeIngredients), nil

	case "recipe_metadata":
		for _, rm := range tree.RecipeMetadata {
			if err := tx.InsertRecipeMetadata(ctx, rm); err != nil {
				return 0, insertErr(table, rm.Filename(), err)
			}
		}
		return len(tree.RecipeMetadata), nil
	}

	return 0, fmt.Errorf("%w: unknown table %s", ErrSchema, table)
}

// attachInstructions copies companion-file text onto the freshly inserted
// recipe rows. Timestamps stay as the records declared them.
func (im *Importer) attachInstructions(ctx context.Context, tx *db.Tx, tree *Tree) (int, error) {
	attached := 0
	for _, rec := range tree.Recipes {
		text, ok := tree.Instructions[rec.ID]
		if !ok {
			continue
		}
		found, err := tx.AttachInstructions(ctx, rec.ID, text)
		if err != nil {
			return 0, fmt.Errorf("table recipes: %s: failed to attach instructions: %w",
				rec.Filename(), err)
		}
		if !found {
			return 0, fmt.Errorf("table recipes: %s: recipe vanished before instructions attached",
				rec.Filename())
		}
		attached++
	}
	return attached, nil
}

// insertErr wraps a database insert failure with the record's location.
func insertErr(table, name string, err error) error {
	return fmt.Errorf("table %s: %s: failed to insert: %w", table, name, err)
}
