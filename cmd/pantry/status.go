package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/dump"
	"github.com/pantrydb/pantry/internal/schema"
	"github.com/pantrydb/pantry/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show record counts in the database and the dump tree",
	Long: `Show per-table record counts side by side for the database and the
dump directory. A quick way to see whether the two are in sync; use verify
for a full integrity check.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbCounts, dbInstructions, err := databaseCounts(cmd)
		if err != nil {
			return err
		}

		dumpCounts, err := dump.CountRecords(dumpDir())
		if err != nil {
			return err
		}

		fmt.Printf("Database: %s\n", dbPath())
		fmt.Printf("Dump:     %s\n\n", dumpDir())

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Table", "Database", "Dump"})
		table.SetBorder(false)
		table.SetColumnAlignment([]int{
			tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		})

		inSync := true
		for _, t := range schema.Tables() {
			dbCell := "-"
			if dbCounts != nil {
				dbCell = strconv.Itoa(dbCounts[t.Name])
				if dbCounts[t.Name] != dumpCounts[t.Name] {
					inSync = false
				}
			}
			table.Append([]string{t.Name, dbCell, strconv.Itoa(dumpCounts[t.Name])})
		}

		insCell := "-"
		if dbCounts != nil {
			insCell = strconv.Itoa(dbInstructions)
			if dbInstructions != dumpCounts[schema.InstructionsDir] {
				inSync = false
			}
		}
		table.Append([]string{schema.InstructionsDir, insCell,
			strconv.Itoa(dumpCounts[schema.InstructionsDir])})
		table.Render()

		fmt.Println()
		switch {
		case dbCounts == nil:
			fmt.Printf("%s no database at %s\n", ui.RenderWarn("!"), dbPath())
		case inSync:
			fmt.Printf("%s counts match\n", ui.RenderPass("✓"))
		default:
			fmt.Printf("%s counts differ; run export, import, or verify\n",
				ui.RenderWarn("!"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// databaseCounts returns per-table row counts plus the number of recipes
// carrying instructions. A missing database file yields nil counts rather
// than an error so status still reports the dump side.
func databaseCounts(cmd *cobra.Command) (map[string]int, int, error) {
	if _, err := os.Stat(dbPath()); os.IsNotExist(err) {
		return nil, 0, nil
	}

	database, err := db.Open(dbPath())
	if err != nil {
		return nil, 0, err
	}
	defer database.Close()

	if err := database.CheckSchemaContext(cmd.Context()); err != nil {
		return nil, 0, err
	}
	counts, err := database.CountsContext(cmd.Context())
	if err != nil {
		return nil, 0, err
	}
	instructions, err := database.InstructionCountContext(cmd.Context())
	if err != nil {
		return nil, 0, err
	}
	return counts, instructions, nil
}
