package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pantrydb/pantry/internal/config"
	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/dump"
	"github.com/pantrydb/pantry/internal/schema"
	"github.com/pantrydb/pantry/internal/ui"
)

var importForce bool

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Rebuild the database from a dump tree",
	Long: `Rebuild a fresh database from the dump directory.

The whole tree is read and checked before the database is touched, and
every insert runs inside one transaction, so a failing import leaves
nothing behind. The target database must be empty; with --force an
existing database file is replaced.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dbPath()

		if _, err := os.Stat(path); err == nil {
			if !importForce {
				ok, err := confirm(fmt.Sprintf(
					"Database %s already exists. Replace it?", path))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Import cancelled.")
					return nil
				}
			}
			if err := removeDatabase(path); err != nil {
				return err
			}
		}

		database, err := db.Open(path)
		if err != nil {
			return err
		}
		defer database.Close()

		opts := dump.ImportOptions{
			MissingInstructions: viper.GetString(config.KeyMissingInstructions),
		}
		importer := dump.NewImporter(database, dumpDir(), opts, newLogger("[import] "))

		result, err := importer.ImportContext(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("%s Imported %d records into %s\n",
			ui.RenderPass("✓"), result.Total(), path)
		for _, t := range schema.Tables() {
			fmt.Printf("  %s: %d\n", t.Name, result.Records[t.Name])
		}
		fmt.Printf("  instructions: %d\n", result.Instructions)
		for _, name := range result.Orphans {
			fmt.Printf("%s skipped orphan instruction file %s\n",
				ui.RenderWarn("!"), name)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().String("missing-instructions", dump.MissingEmpty,
		"policy for recipes with no instruction text: empty or require")
	importCmd.Flags().BoolVarP(&importForce, "force", "f", false,
		"replace an existing database file without asking")
	_ = viper.BindPFlag(config.KeyMissingInstructions,
		importCmd.Flags().Lookup("missing-instructions"))

	rootCmd.AddCommand(importCmd)
}

// removeDatabase deletes the database file and its WAL sidecars.
func removeDatabase(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path+suffix, err)
		}
	}
	return nil
}
