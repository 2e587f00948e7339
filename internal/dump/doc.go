// Package dump implements the flat-file dump engine: exporting a pantry
// database into a directory tree of per-record JSON files, importing such a
// tree back into a fresh database, and verifying a tree without a database.
//
// Layout of a dump root:
//
//	sources/            one JSON file per sources row
//	ingredients/        one JSON file per ingredients row
//	metadata/           one JSON file per metadata row
//	recipes/            one JSON file per recipes row
//	recipe_ingredients/ one JSON file per join row
//	recipe_metadata/    one JSON file per join row
//	instructions/       one text file per recipe with instructions
//	README.md           generated description and record counts
//
// Exports are deterministic: running against an unchanged database writes a
// byte-identical tree, so dumps diff cleanly under version control. Imports
// are transactional: a failure anywhere rolls back everything.
//
// Failures wrap one of four sentinels (ErrIO, ErrSchema, ErrParse,
// ErrReference) and always name the table and file being processed.
package dump
