// Command pantry dumps a recipe database into a tree of per-record JSON
// files and restores it back, with a watch daemon and live dashboard for
// keeping a database mirrored to an edited dump tree.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pantrydb/pantry/internal/config"
	"github.com/pantrydb/pantry/internal/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "pantry",
	Short: "Flat-file dump and restore for a recipe database",
	Long: `Pantry keeps a recipe database and a plain-text dump tree in sync.

The dump tree holds one JSON file per database row, grouped by table, with
long-form recipe instructions extracted into companion text files. Trees are
deterministic and diff-friendly, so they version well under git or jj.

  pantry export    database -> dump tree
  pantry import    dump tree -> fresh database
  pantry watch     mirror live dump edits into the database
  pantry serve     watch, plus a WebSocket dashboard`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile); err != nil {
			return err
		}
		if noColor {
			ui.DisableColor()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .pantry.yaml in . or $HOME)")
	rootCmd.PersistentFlags().String("db", config.DefaultDB, "path to the database file")
	rootCmd.PersistentFlags().String("dir", config.DefaultDir, "path to the dump directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine progress to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable styled output")

	_ = viper.BindPFlag(config.KeyDB, rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag(config.KeyDir, rootCmd.PersistentFlags().Lookup("dir"))
}

// dbPath returns the configured database file path.
func dbPath() string {
	return viper.GetString(config.KeyDB)
}

// dumpDir returns the configured dump directory.
func dumpDir() string {
	return viper.GetString(config.KeyDir)
}

// newLogger returns a logger for the dump engines: stderr when --verbose,
// silent otherwise. The engines report results through their Result types
// either way.
func newLogger(prefix string) *log.Logger {
	if verbose {
		return log.New(os.Stderr, prefix, log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
		os.Exit(1)
	}
}
