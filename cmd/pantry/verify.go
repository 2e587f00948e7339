package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pantrydb/pantry/internal/dump"
	"github.com/pantrydb/pantry/internal/schema"
	"github.com/pantrydb/pantry/internal/ui"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a dump tree without touching any database",
	Long: `Check the dump directory: every record must parse, validate, match
the identity in its filename, and resolve its references within the dump.

The checks are the ones an import would run, so a tree that verifies
cleanly will import cleanly into an empty database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := dumpDir()

		result, err := dump.Verify(dir, newLogger("[verify] "))
		if err != nil {
			return err
		}

		fmt.Printf("%s Dump tree %s verified: %d records, %d instruction files\n",
			ui.RenderPass("✓"), dir, result.Total(), result.Instructions)
		for _, t := range schema.Tables() {
			fmt.Printf("  %s: %d\n", t.Name, result.Records[t.Name])
		}
		for _, name := range result.Orphans {
			fmt.Printf("%s instruction file %s names no recipe in the dump\n",
				ui.RenderWarn("!"), name)
		}
		for _, id := range result.MissingInstructions {
			fmt.Printf("%s recipe %s has no instruction text\n",
				ui.RenderWarn("!"), id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
