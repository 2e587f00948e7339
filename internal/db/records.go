package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pantrydb/pantry/internal/schema"
)

// ===== Sources =====

// UpsertSource inserts or updates a source row.
func (db *DB) UpsertSource(src *schema.SourceFile) error {
	return db.UpsertSourceContext(context.Background(), src)
}

// UpsertSourceContext inserts or updates a source with context support.
func (db *DB) UpsertSourceContext(ctx context.Context, src *schema.SourceFile) error {
	if err := src.Validate(); err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}

	query := `
	INSERT INTO sources (id, name, kind, url, author)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		kind = excluded.kind,
		url = excluded.url,
		author = excluded.author
	`
	_, err := db.conn.ExecContext(ctx, query,
		src.ID, src.Name, src.Kind, src.URL, src.Author)
	if err != nil {
		return fmt.Errorf("failed to upsert source %s: %w", src.ID, err)
	}
	return nil
}

// DeleteSource removes a source row. Recipes referencing it keep their row
// with source_id cleared. Idempotent.
func (db *DB) DeleteSource(id string) error {
	return db.DeleteSourceContext(context.Background(), id)
}

// DeleteSourceContext removes a source with context support.
func (db *DB) DeleteSourceContext(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete source %s: %w", id, err)
	}
	return nil
}

// ListSources returns all sources ordered by id.
func (db *DB) ListSources() ([]*schema.SourceFile, error) {
	return db.ListSourcesContext(context.Background())
}

// ListSourcesContext returns all sources with context support.
func (db *DB) ListSourcesContext(ctx context.Context) ([]*schema.SourceFile, error) {
	query := `SELECT id, name, kind, url, author FROM sources ORDER BY id`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []*schema.SourceFile
	for rows.Next() {
		var src schema.SourceFile
		if err := rows.Scan(&src.ID, &src.Name, &src.Kind, &src.URL, &src.Author); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, &src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sources: %w", err)
	}
	return sources, nil
}

// ===== Ingredients =====

// UpsertIngredient inserts or updates an ingredient row.
func (db *DB) UpsertIngredient(ing *schema.IngredientFile) error {
	return db.UpsertIngredientContext(context.Background(), ing)
}

// UpsertIngredientContext inserts or updates an ingredient with context support.
func (db *DB) UpsertIngredientContext(ctx context.Context, ing *schema.IngredientFile) error {
	if err := ing.Validate(); err != nil {
		return fmt.Errorf("invalid ingredient: %w", err)
	}

	query := `
	INSERT INTO ingredients (id, name, category)
	VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		category = excluded.category
	`
	_, err := db.conn.ExecContext(ctx, query, ing.ID, ing.Name, ing.Category)
	if err != nil {
		return fmt.Errorf("failed to upsert ingredient %s: %w", ing.ID, err)
	}
	return nil
}

// DeleteIngredient removes an ingredient row and cascades to join rows.
// Idempotent.
func (db *DB) DeleteIngredient(id string) error {
	return db.DeleteIngredientContext(context.Background(), id)
}

// DeleteIngredientContext removes an ingredient with context support.
func (db *DB) DeleteIngredientContext(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM ingredients WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete ingredient %s: %w", id, err)
	}
	return nil
}

// ListIngredients returns all ingredients ordered by id.
func (db *DB) ListIngredients() ([]*schema.IngredientFile, error) {
	return db.ListIngredientsContext(context.Background())
}

// ListIngredientsContext returns all ingredients with context support.
func (db *DB) ListIngredientsContext(ctx context.Context) ([]*schema.IngredientFile, error) {
	query := `SELECT id, name, category FROM ingredients ORDER BY id`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []*schema.IngredientFile
	for rows.Next() {
		var ing schema.IngredientFile
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Category); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ingredients = append(ingredients, &ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingredients: %w", err)
	}
	return ingredients, nil
}

// ===== Metadata =====

// UpsertMetadata inserts or updates a metadata row.
func (db *DB) UpsertMetadata(md *schema.MetadataFile) error {
	return db.UpsertMetadataContext(context.Background(), md)
}

// UpsertMetadataContext inserts or updates a metadata row with context support.
func (db *DB) UpsertMetadataContext(ctx context.Context, md *schema.MetadataFile) error {
	if err := md.Validate(); err != nil {
		return fmt.Errorf("invalid metadata record: %w", err)
	}

	query := `
	INSERT INTO metadata (id, kind, label)
	VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		kind = excluded.kind,
		label = excluded.label
	`
	_, err := db.conn.ExecContext(ctx, query, md.ID, md.Kind, md.Label)
	if err != nil {
		return fmt.Errorf("failed to upsert metadata %s: %w", md.ID, err)
	}
	return nil
}

// DeleteMetadata removes a metadata row and cascades to join rows. Idempotent.
func (db *DB) DeleteMetadata(id string) error {
	return db.DeleteMetadataContext(context.Background(), id)
}

// DeleteMetadataContext removes a metadata row with context support.
func (db *DB) DeleteMetadataContext(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM metadata WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete metadata %s: %w", id, err)
	}
	return nil
}

// ListMetadata returns all metadata rows ordered by id.
func (db *DB) ListMetadata() ([]*schema.MetadataFile, error) {
	return db.ListMetadataContext(context.Background())
}

// ListMetadataContext returns all metadata rows with context support.
func (db *DB) ListMetadataContext(ctx context.Context) ([]*schema.MetadataFile, error) {
	query := `SELECT id, kind, label FROM metadata ORDER BY id`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	var records []*schema.MetadataFile
	for rows.Next() {
		var md schema.MetadataFile
		if err := rows.Scan(&md.ID, &md.Kind, &md.Label); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		records = append(records, &md)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metadata: %w", err)
	}
	return records, nil
}

// ===== Recipes =====

// UpsertRecipe inserts or updates a recipe row.
func (db *DB) UpsertRecipe(rec *schema.RecipeFile) error {
	return db.UpsertRecipeContext(context.Background(), rec)
}

// UpsertRecipeContext inserts or updates a recipe with context support.
//
// Instructions normally arrive through the companion text file, so an empty
// instructions value on an update must not clobber text already attached to
// the row; a non-empty value wins.
func (db *DB) UpsertRecipeContext(ctx context.Context, rec *schema.RecipeFile) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid recipe: %w", err)
	}

	query := `
	INSERT INTO recipes (
		id, name, description, servings, prep_minutes, cook_minutes,
		source_id, instructions, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		servings = excluded.servings,
		prep_minutes = excluded.prep_minutes,
		cook_minutes = excluded.cook_minutes,
		source_id = excluded.source_id,
		instructions = CASE
			WHEN excluded.instructions != '' THEN excluded.instructions
			ELSE recipes.instructions
		END,
		updated_at = excluded.updated_at
	`
	_, err := db.conn.ExecContext(ctx, query,
		rec.ID,
		rec.Name,
		rec.Description,
		rec.Servings,
		rec.PrepMinutes,
		rec.CookMinutes,
		stringToNullString(rec.SourceID),
		rec.Instructions,
		rec.CreatedAt.Format(time.RFC3339),
		rec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert recipe %s: %w", rec.ID, err)
	}
	return nil
}

// DeleteRecipe removes a recipe row and cascades to its join rows. Idempotent.
func (db *DB) DeleteRecipe(id string) error {
	return db.DeleteRecipeContext(context.Background(), id)
}

// DeleteRecipeContext removes a recipe with context support.
func (db *DB) DeleteRecipeContext(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete recipe %s: %w", id, err)
	}
	return nil
}

// GetRecipe retrieves a single recipe by id.
// Returns sql.ErrNoRows if the recipe is not found.
func (db *DB) GetRecipe(id string) (*schema.RecipeFile, error) {
	return db.GetRecipeContext(context.Background(), id)
}

// GetRecipeContext retrieves a single recipe with context support.
func (db *DB) GetRecipeContext(ctx context.Context, id string) (*schema.RecipeFile, error) {
	query := `
	SELECT id, name, description, servings, prep_minutes, cook_minutes,
	       source_id, instructions, created_at, updated_at
	FROM recipes
	WHERE id = ?
	`
	row := db.conn.QueryRowContext(ctx, query, id)

	rec, err := scanRecipe(row.Scan)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecipes returns all recipes ordered by id.
func (db *DB) ListRecipes() ([]*schema.RecipeFile, error) {
	return db.ListRecipesContext(context.Background())
}

// ListRecipesContext returns all recipes with context support.
func (db *DB) ListRecipesContext(ctx context.Context) ([]*schema.RecipeFile, error) {
	query := `
	SELECT id, name, description, servings, prep_minutes, cook_minutes,
	       source_id, instructions, created_at, updated_at
	FROM recipes
	ORDER BY id
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*schema.RecipeFile
	for rows.Next() {
		rec, err := scanRecipe(rows.Scan)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", err)
	}
	return recipes, nil
}

// scanRecipe scans one recipes row through any Scan-shaped function.
func scanRecipe(scan func(...any) error) (*schema.RecipeFile, error) {
	var rec schema.RecipeFile
	var sourceID sql.NullString
	var createdAt, updatedAt string

	err := scan(
		&rec.ID,
		&rec.Name,
		&rec.Description,
		&rec.Servings,
		&rec.PrepMinutes,
		&rec.CookMinutes,
		&sourceID,
		&rec.Instructions,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan recipe: %w", err)
	}

	rec.SourceID = nullStringToString(sourceID)
	rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q for recipe %s: %w",
			createdAt, rec.ID, err)
	}
	rec.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at %q for recipe %s: %w",
			updatedAt, rec.ID, err)
	}
	return &rec, nil
}

// UpdateRecipeInstructions sets the instructions column of one recipe.
// Returns false if no recipe has the given id. The timestamps are left
// untouched: instruction text mirrors a companion file, it is not an edit
// of the recipe record.
func (db *DB) UpdateRecipeInstructions(id, text string) (bool, error) {
	return db.UpdateRecipeInstructionsContext(context.Background(), id, text)
}

// UpdateRecipeInstructionsContext sets instructions with context support.
func (db *DB) UpdateRecipeInstructionsContext(ctx context.Context, id, text string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE recipes SET instructions = ? WHERE id = ?`, text, id)
	if err != nil {
		return false, fmt.Errorf("failed to update instructions for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// ===== Recipe ingredients =====

// UpsertRecipeIngredient inserts or updates a recipe_ingredients row.
func (db *DB) UpsertRecipeIngredient(ri *schema.RecipeIngredientFile) error {
	return db.UpsertRecipeIngredientContext(context.Background(), ri)
}

// UpsertRecipeIngredientContext inserts or updates a join row with context
// support. Both referenced rows must already exist.
func (db *DB) UpsertRecipeIngredientContext(ctx context.Context, ri *schema.RecipeIngredientFile) error {
	if err := ri.Validate(); err != nil {
		return fmt.Errorf("invalid recipe_ingredients record: %w", err)
	}

	query := `
	INSERT INTO recipe_ingredients (recipe_id, ingredient_id, quantity, unit, note)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(recipe_id, ingredient_id) DO UPDATE SET
		quantity = excluded.quantity,
		unit = excluded.unit,
		note = excluded.note
	`
	_, err := db.conn.ExecContext(ctx, query,
		ri.RecipeID, ri.IngredientID, ri.Quantity, ri.Unit, ri.Note)
	if err != nil {
		return fmt.Errorf("failed to upsert recipe_ingredients %s/%s: %w",
			ri.RecipeID, ri.IngredientID, err)
	}
	return nil
}

// DeleteRecipeIngredient removes one join row. Idempotent.
func (db *DB) DeleteRecipeIngredient(recipeID, ingredientID string) error {
	return db.DeleteRecipeIngredientContext(context.Background(), recipeID, ingredientID)
}

// DeleteRecipeIngredientContext removes one join row with context support.
func (db *DB) DeleteRecipeIngredientContext(ctx context.Context, recipeID, ingredientID string) error {
	query := `DELETE FROM recipe_ingredients WHERE recipe_id = ? AND ingredient_id = ?`
	if _, err := db.conn.ExecContext(ctx, query, recipeID, ingredientID); err != nil {
		return fmt.Errorf("failed to delete recipe_ingredients %s/%s: %w",
			recipeID, ingredientID, err)
	}
	return nil
}

// ListRecipeIngredients returns all join rows ordered by the composite key.
func (db *DB) ListRecipeIngredients() ([]*schema.RecipeIngredientFile, error) {
	return db.ListRecipeIngredientsContext(context.Background())
}

// ListRecipeIngredientsContext returns all join rows with context support.
func (db *DB) ListRecipeIngredientsContext(ctx context.Context) ([]*schema.RecipeIngredientFile, error) {
	query := `
	SELECT recipe_id, ingredient_id, quantity, unit, note
	FROM recipe_ingredients
	ORDER BY recipe_id, ingredient_id
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipe_ingredients: %w", err)
	}
	defer rows.Close()

	var records []*schema.RecipeIngredientFile
	for rows.Next() {
		var ri schema.RecipeIngredientFile
		if err := rows.Scan(&ri.RecipeID, &ri.IngredientID, &ri.Quantity, &ri.Unit, &ri.Note); err != nil {
			return nil, fmt.Errorf("failed to scan recipe_ingredients: %w", err)
		}
		records = append(records, &ri)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipe_ingredients: %w", err)
	}
	return records, nil
}

// ===== Recipe metadata =====

// UpsertRecipeMetadata inserts a recipe_metadata link if absent.
func (db *DB) UpsertRecipeMetadata(rm *schema.RecipeMetadataFile) error {
	return db.UpsertRecipeMetadataContext(context.Background(), rm)
}

// UpsertRecipeMetadataContext inserts a link row with context support.
// The pair is the whole row, so a conflict is a no-op.
func (db *DB) UpsertRecipeMetadataContext(ctx context.Context, rm *schema.RecipeMetadataFile) error {
	if err := rm.Validate(); err != nil {
		return fmt.Errorf("invalid recipe_metadata record: %w", err)
	}

	query := `
	INSERT INTO recipe_metadata (recipe_id, metadata_id)
	VALUES (?, ?)
	ON CONFLICT(recipe_id, metadata_id) DO NOTHING
	`
	_, err := db.conn.ExecContext(ctx, query, rm.RecipeID, rm.MetadataID)
	if err != nil {
		return fmt.Errorf("failed to upsert recipe_metadata %s/%s: %w",
			rm.RecipeID, rm.MetadataID, err)
	}
	return nil
}

// DeleteRecipeMetadata removes one link row. Idempotent.
func (db *DB) DeleteRecipeMetadata(recipeID, metadataID string) error {
	return db.DeleteRecipeMetadataContext(context.Background(), recipeID, metadataID)
}

// DeleteRecipeMetadataContext removes one link row with context support.
func (db *DB) DeleteRecipeMetadataContext(ctx context.Context, recipeID, metadataID string) error {
	query := `DELETE FROM recipe_metadata WHERE recipe_id = ? AND metadata_id = ?`
	if _, err := db.conn.ExecContext(ctx, query, recipeID, metadataID); err != nil {
		return fmt.Errorf("failed to delete recipe_metadata %s/%s: %w",
			recipeID, metadataID, err)
	}
	return nil
}

// ListRecipeMetadata returns all link rows ordered by the composite key.
func (db *DB) ListRecipeMetadata() ([]*schema.RecipeMetadataFile, error) {
	return db.ListRecipeMetadataContext(context.Background())
}

// ListRecipeMetadataContext returns all link rows with context support.
func (db *DB) ListRecipeMetadataContext(ctx context.Context) ([]*schema.RecipeMetadataFile, error) {
	query := `
	SELECT recipe_id, metadata_id
	FROM recipe_metadata
	ORDER BY recipe_id, metadata_id
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipe_metadata: %w", err)
	}
	defer rows.Close()

	var records []*schema.RecipeMetadataFile
	for rows.Next() {
		var rm schema.RecipeMetadataFile
		if err := rows.Scan(&rm.RecipeID, &rm.MetadataID); err != nil {
			return nil, fmt.Errorf("failed to scan recipe_metadata: %w", err)
		}
		records = append(records, &rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipe_metadata: %w", err)
	}
	return records, nil
}

// ===== Transactional inserts =====

// InsertSource inserts a source row, failing on a duplicate id.
func (t *Tx) InsertSource(ctx context.Context, src *schema.SourceFile) error {
	query := `INSERT INTO sources (id, name, kind, url, author) VALUES (?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, query, src.ID, src.Name, src.Kind, src.URL, src.Author)
	if err != nil {
		return fmt.Errorf("failed to insert source %s: %w", src.ID, err)
	}
	return nil
}

// InsertIngredient inserts an ingredient row, failing on a duplicate id.
func (t *Tx) InsertIngredient(ctx context.Context, ing *schema.IngredientFile) error {
	query := `INSERT INTO ingredients (id, name, category) VALUES (?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, query, ing.ID, ing.Name, ing.Category)
	if err != nil {
		return fmt.Errorf("failed to insert ingredient %s: %w", ing.ID, err)
	}
	return nil
}

// InsertMetadata inserts a metadata row, failing on a duplicate id.
func (t *Tx) InsertMetadata(ctx context.Context, md *schema.MetadataFile) error {
	query := `INSERT INTO metadata (id, kind, label) VALUES (?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, query, md.ID, md.Kind, md.Label)
	if err != nil {
		return fmt.Errorf("failed to insert metadata %s: %w", md.ID, err)
	}
	return nil
}

// InsertRecipe inserts a recipe row, failing on a duplicate id.
func (t *Tx) InsertRecipe(ctx context.Context, rec *schema.RecipeFile) error {
	query := `
	INSERT INTO recipes (
		id, name, description, servings, prep_minutes, cook_minutes,
		source_id, instructions, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := t.tx.ExecContext(ctx, query,
		rec.ID,
		rec.Name,
		rec.Description,
		rec.Servings,
		rec.PrepMinutes,
		rec.CookMinutes,
		stringToNullString(rec.SourceID),
		rec.Instructions,
		rec.CreatedAt.Format(time.RFC3339),
		rec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recipe %s: %w", rec.ID, err)
	}
	return nil
}

// InsertRecipeIngredient inserts a join row, failing on a duplicate pair.
func (t *Tx) InsertRecipeIngredient(ctx context.Context, ri *schema.RecipeIngredientFile) error {
	query := `
	INSERT INTO recipe_ingredients (recipe_id, ingredient_id, quantity, unit, note)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := t.tx.ExecContext(ctx, query,
		ri.RecipeID, ri.IngredientID, ri.Quantity, ri.Unit, ri.Note)
	if err != nil {
		return fmt.Errorf("failed to insert recipe_ingredients %s/%s: %w",
			ri.RecipeID, ri.IngredientID, err)
	}
	return nil
}

// InsertRecipeMetadata inserts a link row, failing on a duplicate pair.
func (t *Tx) InsertRecipeMetadata(ctx context.Context, rm *schema.RecipeMetadataFile) error {
	query := `INSERT INTO recipe_metadata (recipe_id, metadata_id) VALUES (?, ?)`
	_, err := t.tx.ExecContext(ctx, query, rm.RecipeID, rm.MetadataID)
	if err != nil {
		return fmt.Errorf("failed to insert recipe_metadata %s/%s: %w",
			rm.RecipeID, rm.MetadataID, err)
	}
	return nil
}

// AttachInstructions sets a recipe's instructions column inside the
// transaction. Returns false if no recipe has the given id.
func (t *Tx) AttachInstructions(ctx context.Context, id, text string) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE recipes SET instructions = ? WHERE id = ?`, text, id)
	if err != nil {
		return false, fmt.Errorf("failed to attach instructions for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}
