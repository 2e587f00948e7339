// Package seed loads starter data into a pantry database from a single
// YAML, TOML, or JSON file. Seed files are for bootstrapping demo or test
// databases; the dump tree remains the canonical interchange format.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/schema"
)

// File is the root of a seed document. Every section is optional; join
// entries must reference ids declared (or already present in the database)
// for their parent rows.
type File struct {
	Sources           []Source           `json:"sources" yaml:"sources" toml:"sources"`
	Ingredients       []Ingredient       `json:"ingredients" yaml:"ingredients" toml:"ingredients"`
	Metadata          []Metadata         `json:"metadata" yaml:"metadata" toml:"metadata"`
	Recipes           []Recipe           `json:"recipes" yaml:"recipes" toml:"recipes"`
	RecipeIngredients []RecipeIngredient `json:"recipe_ingredients" yaml:"recipe_ingredients" toml:"recipe_ingredients"`
	RecipeMetadata    []RecipeMetadata   `json:"recipe_metadata" yaml:"recipe_metadata" toml:"recipe_metadata"`
}

// Source seeds one sources row.
type Source struct {
	ID     string `json:"id" yaml:"id" toml:"id"`
	Name   string `json:"name" yaml:"name" toml:"name"`
	Kind   string `json:"kind" yaml:"kind" toml:"kind"`
	URL    string `json:"url" yaml:"url" toml:"url"`
	Author string `json:"author" yaml:"author" toml:"author"`
}

// Ingredient seeds one ingredients row.
type Ingredient struct {
	ID       string `json:"id" yaml:"id" toml:"id"`
	Name     string `json:"name" yaml:"name" toml:"name"`
	Category string `json:"category" yaml:"category" toml:"category"`
}

// Metadata seeds one metadata row.
type Metadata struct {
	ID    string `json:"id" yaml:"id" toml:"id"`
	Kind  string `json:"kind" yaml:"kind" toml:"kind"`
	Label string `json:"label" yaml:"label" toml:"label"`
}

// Recipe seeds one recipes row. Instructions given here land in the
// database column directly.
type Recipe struct {
	ID           string `json:"id" yaml:"id" toml:"id"`
	Name         string `json:"name" yaml:"name" toml:"name"`
	Description  string `json:"description" yaml:"description" toml:"description"`
	Servings     int    `json:"servings" yaml:"servings" toml:"servings"`
	PrepMinutes  int    `json:"prep_minutes" yaml:"prep_minutes" toml:"prep_minutes"`
	CookMinutes  int    `json:"cook_minutes" yaml:"cook_minutes" toml:"cook_minutes"`
	SourceID     string `json:"source_id" yaml:"source_id" toml:"source_id"`
	Instructions string `json:"instructions" yaml:"instructions" toml:"instructions"`
}

// RecipeIngredient seeds one recipe_ingredients row.
type RecipeIngredient struct {
	RecipeID     string `json:"recipe_id" yaml:"recipe_id" toml:"recipe_id"`
	IngredientID string `json:"ingredient_id" yaml:"ingredient_id" toml:"ingredient_id"`
	Quantity     string `json:"quantity" yaml:"quantity" toml:"quantity"`
	Unit         string `json:"unit" yaml:"unit" toml:"unit"`
	Note         string `json:"note" yaml:"note" toml:"note"`
}

// RecipeMetadata seeds one recipe_metadata row.
type RecipeMetadata struct {
	RecipeID   string `json:"recipe_id" yaml:"recipe_id" toml:"recipe_id"`
	MetadataID string `json:"metadata_id" yaml:"metadata_id" toml:"metadata_id"`
}

// Result reports what a seed run inserted.
type Result struct {
	// Records counts rows upserted, keyed by table.
	Records map[string]int

	// Generated counts records that arrived without an id and got a UUID.
	Generated int
}

// Total returns the number of rows upserted across all tables.
func (r *Result) Total() int {
	total := 0
	for _, n := range r.Records {
		total += n
	}
	return total
}

// Load parses a seed file, picking the decoder by extension:
// .yaml/.yml, .toml, or .json.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML seed %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse TOML seed %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse JSON seed %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported seed format %q (want .yaml, .toml, or .json)", filepath.Ext(path))
	}
	return &f, nil
}

// Apply upserts the seed data into the database in dependency order, so a
// seed file can declare a recipe and its joins together. Records without an
// id get a generated UUID; referenced ids must be spelled out.
func (f *File) Apply(ctx context.Context, database *db.DB) (*Result, error) {
	result := &Result{Records: make(map[string]int)}
	now := time.Now().UTC().Truncate(time.Second)

	order, err := schema.ImportOrder()
	if err != nil {
		return nil, err
	}
	for _, t := range order {
		n, err := f.applyTable(ctx, database, t.Name, now, result)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		result.Records[t.Name] = n
	}
	return result, nil
}

func (f *File) applyTable(ctx context.Context, database *db.DB, table string, now time.Time, result *Result) (int, error) {
	switch table {
	case "sources":
		for _, s := range f.Sources {
			rec := &schema.SourceFile{
				ID: f.ensureID(s.ID, result), Name: s.Name,
				Kind: s.Kind, URL: s.URL, Author: s.Author,
			}
			if err := database.UpsertSourceContext(ctx, rec); err != nil {
				return 0, err
			}
		}
		return len(f.Sources), nil

	case "ingredients":
		for _, i := range f.Ingredients {
			rec := &schema.IngredientFile{
				ID: f.ensureID(i.ID, result), Name: i.Name, Category: i.Category,
			}
			if err := database.UpsertIngredientContext(ctx, rec); err != nil {
				return 0, err
			}
		}
		return len(f.Ingredients), nil

	case "metadata":
		for _, m := range f.Metadata {
			rec := &schema.MetadataFile{
				ID: f.ensureID(m.ID, result), Kind: m.Kind, Label: m.Label,
			}
			if err := database.UpsertMetadataContext(ctx, rec); err != nil {
				return 0, err
			}
		}
		return len(f.Metadata), nil

	case "recipes":
		for _, r := range f.Recipes {
			rec := &schema.RecipeFile{
				ID: f.ensureID(r.ID, result), Name: r.Name,
				Description: r.Description, Servings: r.Servings,
				PrepMinutes: r.PrepMinutes, CookMinutes: r.CookMinutes,
				SourceID: r.SourceID, Instructions: r.Instructions,
				CreatedAt: now, UpdatedAt: now,
			}
			if err := database.UpsertRecipeContext(ctx, rec); err != nil {
				return 0, err
			}
		}
		return len(f.Recipes), nil

	case "recipe_ingredients":
		for _, ri := range f.RecipeIngredients {
			rec := &schema.RecipeIngredientFile{
				RecipeID: ri.RecipeID, IngredientID: ri.IngredientID,
				Quantity: ri.Quantity, Unit: ri.Unit, Note: ri.Note,
			}
			if err := database.UpsertRecipeIngredientContext(ctx, rec); err != nil {
				return 0, err
			}
		}
		return len(f.RecipeIngredients), nil

	case "recipe_metadata":
		for _, rm := range f.RecipeMetadata {
			rec := &schema.RecipeMetadataFile{
				RecipeID: rm.RecipeID, MetadataID: rm.MetadataID,
			}
			if err := database.UpsertRecipeMetadataContext(ctx, rec); err != nil {
				return 0, err
			}
		}
		return len(f.RecipeMetadata), nil
	}
	return 0, fmt.Errorf("unknown table")
}

// ensureID returns id, or a fresh UUID when it is empty.
func (f *File) ensureID(id string, result *Result) string {
	if id != "" {
		return id
	}
	result.Generated++
	return uuid.NewString()
}
