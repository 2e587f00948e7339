package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database file and schema",
	Long: `Create the database file with the pantry schema.

Idempotent: running init against an existing database verifies its schema
and leaves the data alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(dbPath())
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.InitSchemaContext(cmd.Context()); err != nil {
			return err
		}
		if err := database.CheckSchemaContext(cmd.Context()); err != nil {
			return err
		}

		fmt.Printf("%s Database ready at %s\n", ui.RenderPass("✓"), dbPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
