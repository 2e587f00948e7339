package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/schema"
	"github.com/pantrydb/pantry/internal/seed"
	"github.com/pantrydb/pantry/internal/ui"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Load starter data from a YAML, TOML, or JSON file",
	Long: `Load starter data into the database from a single seed file.

The decoder is picked by extension (.yaml/.yml, .toml, .json). Rows are
upserted in dependency order, so one file can declare recipes together with
their ingredient and metadata joins. Records without an id get a generated
UUID.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := seed.Load(args[0])
		if err != nil {
			return err
		}

		database, err := db.Open(dbPath())
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.InitSchemaContext(cmd.Context()); err != nil {
			return err
		}

		result, err := file.Apply(cmd.Context(), database)
		if err != nil {
			return err
		}

		fmt.Printf("%s Seeded %d records into %s\n",
			ui.RenderPass("✓"), result.Total(), dbPath())
		for _, t := range schema.Tables() {
			if n := result.Records[t.Name]; n > 0 {
				fmt.Printf("  %s: %d\n", t.Name, n)
			}
		}
		if result.Generated > 0 {
			fmt.Printf("  %s\n", ui.RenderMuted(
				fmt.Sprintf("generated %d ids", result.Generated)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
