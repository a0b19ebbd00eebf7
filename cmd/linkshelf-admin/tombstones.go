package main

import (
	"fmt"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/services"
	"github.com/spf13/cobra"
)

var purgeOlderThan time.Duration

var purgeTombstonesCmd = &cobra.Command{
	Use:   "purge-tombstones",
	Short: "Delete tombstones past the retention window",
	Long: `Delete tombstones older than --older-than (default: TOMBSTONE_RETENTION).

Clients whose last sync predates the cutoff will miss those deletions and
must run a full sync.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		retention := purgeOlderThan
		if retention == 0 {
			retention = app.cfg.Sync.TombstoneRetention
		}

		cutoff := time.Now().Add(-retention)
		n, err := services.NewTombstoneService(app.db).Purge(cmd.Context(), cutoff)
		if err != nil {
			return err
		}
		app.logger.Info("tombstones purged", "count", n, "cutoff", cutoff)
		fmt.Printf("Purged %d tombstones older than %s\n", n, cutoff.Format(time.RFC3339))
		return nil
	},
}

func init() {
	purgeTombstonesCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 0, "retention window, e.g. 720h")
	rootCmd.AddCommand(purgeTombstonesCmd)
}
