package dump

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/schema"
)

// ExportOptions configures an export run.
type ExportOptions struct {
	// RetainInstructions keeps instruction text inline in recipe records
	// in addition to writing the companion text files.
	RetainInstructions bool
}

// ExportResult reports what an export run wrote.
type ExportResult struct {
	// Records counts the record files written, keyed by table.
	Records map[string]int

	// Instructions counts the companion text files written.
	Instructions int

	// LatestUpdate is the newest recipe update in the database, used to
	// stamp the README. Zero when the database holds no recipes.
	LatestUpdate time.Time
}

// Total returns the number of record files written across all tables.
func (r *ExportResult) Total() int {
	total := 0
	for _, n := range r.Records {
		total += n
	}
	return total
}

// Exporter writes every row of a pantry database into a dump tree.
type Exporter struct {
	db     *db.DB
	dir    string
	opts   ExportOptions
	logger *log.Logger
}

// NewExporter creates an Exporter targeting dir.
//
// The database connection must be open and carry the expected schema;
// Export checks the schema before touching the output tree.
//
// If logger is nil, a default logger writing to stderr is used.
//
// Example:
//
//	database, err := db.Open("pantry.db")
//	if err != nil {
//	    return err
//	}
//	exporter := dump.NewExporter(database, "./dump", dump.ExportOptions{}, nil)
//	result, err := exporter.Export()
func NewExporter(database *db.DB, dir string, opts ExportOptions, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.New(os.Stderr, "[export] ", log.LstdFlags)
	}
	return &Exporter{
		db:     database,
		dir:    dir,
		opts:   opts,
		logger: logger,
	}
}

// Export runs ExportContext with a background context.
func (e *Exporter) Export() (*ExportResult, error) {
	return e.ExportContext(context.Background())
}

// ExportContext dumps the full database into the target directory: one JSON
// record per row grouped by table, one text file per recipe with
// instructions, and a README describing the tree. Existing table
// directories are cleared first so the tree always mirrors the database
// exactly.
func (e *Exporter) ExportContext(ctx context.Context) (*ExportResult, error) {
	e.logger.Printf("Starting export from %s to %s", e.db.Path(), e.dir)

	if err := e.db.CheckSchemaContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}

	if err := e.resetTree(); err != nil {
		return nil, err
	}

	result := &ExportResult{Records: make(map[string]int)}

	for _, t := range schema.Tables() {
		n, err := e.exportTable(ctx, t.Name, result)
		if err != nil {
			return nil, err
		}
		result.Records[t.Name] = n
		e.logger.Printf("Exported %s: %d records", t.Name, n)
	}

	latest, err := e.db.LatestUpdateContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest update: %w", err)
	}
	result.LatestUpdate = latest

	if err := writeReadme(e.dir, result); err != nil {
		return nil, err
	}

	e.logger.Printf("Export complete: %d records, %d instruction files",
		result.Total(), result.Instructions)
	return result, nil
}

// resetTree clears and recreates every dump directory so stale records from
// an earlier export cannot survive.
func (e *Exporter) resetTree() error {
	dirs := make([]string, 0, len(schema.Tables())+1)
	for _, t := range schema.Tables() {
		dirs = append(dirs, t.Name)
	}
	dirs = append(dirs, schema.InstructionsDir)

	for _, name := range dirs {
		dir := filepath.Join(e.dir, name)
		if err := os.RemoveAll(dir); err != nil {
			return ioErr(name, err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return ioErr(name, err)
		}
	}
	return nil
}

// exportTable writes one table's rows and returns the record count.
func (e *Exporter) exportTable(ctx context.Context, table string, result *ExportResult) (int, error) {
	switch table {
	case "sources":
		return e.exportSources(ctx)
	case "ingredients":
		return e.exportIngredients(ctx)
	case "metadata":
		return e.exportMetadata(ctx)
	case "recipes":
		return e.exportRecipes(ctx, result)
	case "recipe_ingredients":
		return e.exportRecipeIngredients(ctx)
	case "recipe_metadata":
		return e.exportRecipeMetadata(ctx)
	}
	return 0, fmt.Errorf("%w: unknown table %s", ErrSchema, table)
}

func (e *Exporter) exportSources(ctx context.Context) (int, error) {
	sources, err := e.db.ListSourcesContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sources: %w", err)
	}
	dir := filepath.Join(e.dir, "sources")
	for _, src := range sources {
		if err := schema.WriteSourceFile(dir, src); err != nil {
			return 0, classifyRecord("sources", src.Filename(), err)
		}
	}
	return len(sources), nil
}

func (e *Exporter) exportIngredients(ctx context.Context) (int, error) {
	ingredients, err := e.db.ListIngredientsContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list ingredients: %w", err)
	}
	dir := filepath.Join(e.dir, "ingredients")
	for _, ing := range ingredients {
		if err := schema.WriteIngredientFile(dir, ing); err != nil {
			return 0, classifyRecord("ingredients", ing.Filename(), err)
		}
	}
	return len(ingredients), nil
}

func (e *Exporter) exportMetadata(ctx context.Context) (int, error) {
	metadata, err := e.db.ListMetadataContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list metadata: %w", err)
	}
	dir := filepath.Join(e.dir, "metadata")
	for _, md := range metadata {
		if err := schema.WriteMetadataFile(dir, md); err != nil {
			return 0, classifyRecord("metadata", md.Filename(), err)
		}
	}
	return len(metadata), nil
}

// exportRecipes writes recipe records and pulls instruction text out into
// companion files. Unless RetainInstructions is set, the JSON record drops
// the text so the companion file is the single copy.
func (e *Exporter) exportRecipes(ctx context.Context, result *ExportResult) (int, error) {
	recipes, err := e.db.ListRecipesContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	dir := filepath.Join(e.dir, "recipes")
	insDir := filepath.Join(e.dir, schema.InstructionsDir)

	for _, rec := range recipes {
		if rec.Instructions != "" {
			if err := schema.WriteInstructionFile(insDir, rec.ID, rec.Instructions); err != nil {
				return 0, classifyRecord(schema.InstructionsDir,
					schema.InstructionFilename(rec.ID), err)
			}
			result.Instructions++
			if !e.opts.RetainInstructions {
				rec.Instructions = ""
			}
		}
		if err := schema.WriteRecipeFile(dir, rec); err != nil {
			return 0, classifyRecord("recipes", rec.Filename(), err)
		}
	}
	return len(recipes), nil
}

func (e *Exporter) exportRecipeIngredients(ctx context.Context) (int, error) {
	joins, err := e.db.ListRecipeIngredientsContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list recipe_ingredients: %w", err)
	}
	dir := filepath.Join(e.dir, "recipe_ingredients")
	for _, ri := range joins {
		if err := schema.WriteRecipeIngredientFile(dir, ri); err != nil {
			return 0, classifyRecord("recipe_ingredients", ri.Filename(), err)
		}
	}
	return len(joins), nil
}

func (e *Exporter) exportRecipeMetadata(ctx context.Context) (int, error) {
	joins, err := e.db.ListRecipeMetadataContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list recipe_metadata: %w", err)
	}
	dir := filepath.Join(e.dir, "recipe_metadata")
	for _, rm := range joins {
		if err := schema.WriteRecipeMetadataFile(dir, rm); err != nil {
			return 0, classifyRecord("recipe_metadata", rm.Filename(), err)
		}
	}
	return len(joins), nil
}
