package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pantrydb/pantry/internal/config"
	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/dump"
	"github.com/pantrydb/pantry/internal/schema"
	"github.com/pantrydb/pantry/internal/ui"
)

var exportForce bool

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the database into a tree of record files",
	Long: `Dump every database row into the dump directory: one JSON file per
row grouped by table, one text file per recipe with instructions, and a
README describing the tree.

Table directories are cleared first so the tree mirrors the database
exactly. Exporting the same database twice produces byte-identical trees.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := dumpDir()

		if !exportForce {
			nonEmpty, err := dirNonEmpty(dir)
			if err != nil {
				return err
			}
			if nonEmpty {
				ok, err := confirm(fmt.Sprintf(
					"Dump directory %s is not empty. Overwrite it?", dir))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Export cancelled.")
					return nil
				}
			}
		}

		database, err := db.Open(dbPath())
		if err != nil {
			return err
		}
		defer database.Close()

		opts := dump.ExportOptions{
			RetainInstructions: viper.GetBool(config.KeyRetainInstructions),
		}
		exporter := dump.NewExporter(database, dir, opts, newLogger("[export] "))

		result, err := exporter.ExportContext(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("%s Exported %d records to %s\n",
			ui.RenderPass("✓"), result.Total(), dir)
		for _, t := range schema.Tables() {
			fmt.Printf("  %s: %d\n", t.Name, result.Records[t.Name])
		}
		fmt.Printf("  instructions: %d\n", result.Instructions)
		if !result.LatestUpdate.IsZero() {
			fmt.Printf("  %s\n", ui.RenderMuted(
				"data current as of "+result.LatestUpdate.UTC().Format(time.RFC3339)))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().Bool("retain-instructions", false,
		"keep instruction text inline in recipe records as well")
	exportCmd.Flags().BoolVarP(&exportForce, "force", "f", false,
		"overwrite a non-empty dump directory without asking")
	_ = viper.BindPFlag(config.KeyRetainInstructions,
		exportCmd.Flags().Lookup("retain-instructions"))

	rootCmd.AddCommand(exportCmd)
}

// dirNonEmpty reports whether dir exists and holds at least one entry.
func dirNonEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	return len(entries) > 0, nil
}

// confirm asks an interactive yes/no question.
func confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	return ok, nil
}
