package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pantrydb/pantry/internal/config"
	"github.com/pantrydb/pantry/internal/dashboard"
	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch the dump tree and serve a live dashboard",
	Long: `Run the watch daemon together with a WebSocket dashboard.

The dashboard broadcasts every mirrored record change and refreshed
per-table counts to connected clients. Open the listen address in a
browser for a live feed, or connect to /ws directly. Runs until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(dbPath())
		if err != nil {
			return err
		}
		defer database.Close()

		server := dashboard.NewServer(&dashboard.Config{
			Addr:  viper.GetString(config.KeyServeAddr),
			Stats: statsFunc(database),
		})
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop()

		handler := dashboard.NewHandler(server, nil)
		d, err := newWatchDaemon(database, handler)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("%s Dashboard on http://%s, watching %s (Ctrl-C to stop)\n",
			ui.RenderAccent("▶"), server.GetAddr(), dumpDir())
		return d.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", config.DefaultServeAddr,
		"dashboard listen address")
	_ = viper.BindPFlag(config.KeyServeAddr, serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

// statsFunc counts database rows for dashboard broadcasts and /api/stats.
func statsFunc(database *db.DB) dashboard.StatsFunc {
	return func(ctx context.Context) (dashboard.StatsData, error) {
		counts, err := database.CountsContext(ctx)
		if err != nil {
			return dashboard.StatsData{}, err
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		return dashboard.StatsData{Total: total, ByTable: counts}, nil
	}
}
