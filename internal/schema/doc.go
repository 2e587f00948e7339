// Package schema defines the per-record file formats of a pantry dump.
//
// # Overview
//
// A dump is a directory tree holding one JSON file per database row, grouped
// into one subdirectory per table, plus plain-text instruction files. The
// tree is meant to be read, diffed, and hand-edited; every file stands alone.
//
// # Record Files
//
// Single-key tables store each row as {table}/{id}.json:
//
//	{
//	  "id": "r1",
//	  "name": "Spaghetti Carbonara",
//	  "servings": 4,
//	  "source_id": "s-essentials",
//	  "created_at": "2026-03-01T12:00:00Z",
//	  "updated_at": "2026-03-01T12:00:00Z"
//	}
//
// Join tables store each row as {table}/{from}--{to}.json:
//
//	{
//	  "recipe_id": "r1",
//	  "ingredient_id": "i-guanciale",
//	  "quantity": "150",
//	  "unit": "g"
//	}
//
// # Identity Encoding
//
// Filename stems are the primary keys passed through EncodeID, which escapes
// anything outside [A-Za-z0-9._-] as %XX. The encoding is reversible, so a
// stem maps back to exactly one key. Keys containing "--" (the join
// separator) or with a leading or trailing "-" are rejected by CheckID.
//
// # Instruction Files
//
// A recipe's long-form instructions live in instructions/{id}.txt, byte for
// byte. The JSON record usually omits the instructions field; on import the
// text file is attached back onto the row.
//
// # Table Registry
//
// Tables() declares the tables with their foreign-key dependencies, and
// ImportOrder() derives a stable topological order from those declarations.
// Nothing else in the codebase hardcodes a table sequence.
//
// # Usage Examples
//
// Writing a record:
//
//	rec := &schema.RecipeFile{ID: "r1", Name: "Spaghetti Carbonara"}
//	rec.SetDefaults()
//	err := schema.WriteRecipeFile("dump/recipes", rec)
//
// Reading a record:
//
//	rec, err := schema.ReadRecipeFile("dump/recipes/r1.json")
//
// Recovering a join key from a filename:
//
//	recipeID, ingredientID, err := schema.ParseRecipeIngredientName("r1--i-flour.json")
package schema
