package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pantrydb/pantry/internal/config"
	"github.com/pantrydb/pantry/internal/daemon"
	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Mirror live dump-tree edits into the database",
	Long: `Watch the dump directory and mirror its edits into the database.

On startup the daemon performs a full sync, then applies debounced file
changes as upserts and deletes: editing a record file updates its row,
deleting one removes it, and instruction files track the recipes they
name. Runs until interrupted.

Unlike import, the watch daemon is tolerant: a broken record file is
logged and skipped so one bad edit cannot stall the mirror.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(dbPath())
		if err != nil {
			return err
		}
		defer database.Close()

		d, err := newWatchDaemon(database, nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("%s Watching %s, mirroring into %s (Ctrl-C to stop)\n",
			ui.RenderAccent("▶"), dumpDir(), dbPath())
		return d.Start(ctx)
	},
}

func init() {
	watchCmd.Flags().Duration("debounce", config.DefaultWatchDebounce,
		"how long a file must stay quiet before its change is applied")
	watchCmd.Flags().String("log-file", "",
		"write daemon logs to this rotating file instead of stderr")
	_ = viper.BindPFlag(config.KeyWatchDebounce, watchCmd.Flags().Lookup("debounce"))
	_ = viper.BindPFlag(config.KeyWatchLogFile, watchCmd.Flags().Lookup("log-file"))

	rootCmd.AddCommand(watchCmd)
}

// newWatchDaemon builds a daemon from the watch.* configuration. Both the
// watch and serve commands go through here.
func newWatchDaemon(database *db.DB, notifier daemon.Notifier) (*daemon.Daemon, error) {
	cfg := daemon.DefaultConfig()
	cfg.DebounceInterval = viper.GetDuration(config.KeyWatchDebounce)
	cfg.Notifier = notifier

	if logFile := viper.GetString(config.KeyWatchLogFile); logFile != "" {
		cfg.Logger = daemon.NewRotatingLogger(logFile)
	}

	return daemon.NewWithConfig(database, dumpDir(), cfg)
}
